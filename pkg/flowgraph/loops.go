package flowgraph

import (
	"sort"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// LoopDepth returns the loop nesting depth of every node: 0 outside any
// loop, 1 inside one loop, and so on.
//
// Loops are the non-trivial strongly connected components. For nesting,
// each component's header (its lowest-numbered member) is cut off from the
// edges that enter it and the components are recomputed inside.
func LoopDepth(g *Graph) []int {
	depth := make([]int, g.Len())
	all := make([]Node, g.Len())
	for i := range all {
		all[i] = Node(i)
	}
	loopDepth(g, all, -1, depth)
	return depth
}

func loopDepth(g *Graph, nodes []Node, header Node, depth []int) {
	in := make(map[Node]bool, len(nodes))
	for _, n := range nodes {
		in[n] = true
	}

	// Jump targets are always label nodes, so there are no self edges
	// (simple.DirectedGraph would reject them).
	dg := simple.NewDirectedGraph()
	for _, n := range nodes {
		if dg.Node(int64(n)) == nil {
			dg.AddNode(simple.Node(n))
		}
		for _, s := range g.Succ(n) {
			if !in[s] || s == header {
				continue
			}
			dg.SetEdge(dg.NewEdge(simple.Node(n), simple.Node(s)))
		}
	}

	for _, comp := range topo.TarjanSCC(dg) {
		if len(comp) == 1 {
			continue
		}
		members := make([]Node, len(comp))
		for i, v := range comp {
			members[i] = Node(v.ID())
			depth[members[i]]++
		}
		sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })
		loopDepth(g, members, members[0], depth)
	}
}
