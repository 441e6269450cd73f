package liveness

import (
	"fmt"
	"math"

	"github.com/ghazariann/SJTU-compilers/pkg/assem"
	"github.com/ghazariann/SJTU-compilers/pkg/flowgraph"
	"github.com/ghazariann/SJTU-compilers/pkg/frame"
	"github.com/ghazariann/SJTU-compilers/pkg/temp"
)

// InfiniteDegree is the fixed degree of a precolored node. It is larger than
// any register count so precolored nodes are never simplified or spilled.
const InfiniteDegree = math.MaxInt32

// NodeID indexes a node of an IGraph
type NodeID int

// MoveID indexes a move pair of an IGraph
type MoveID int

// MovePair is a move instruction seen as an edge from its source node to its destination node
type MovePair struct {
	Src NodeID
	Dst NodeID
}

type inode struct {
	temp       temp.Temp
	precolored bool
	adj        []NodeID
	degree     int
	moves      []MoveID
}

type edge struct{ u, v NodeID }

// IGraph is the interference graph of one allocation attempt.
//
// Adjacency is symmetric and never holds self loops or edges between two
// precolored nodes. A precolored node's adjacency list and degree are never
// changed; the other endpoint of its edges still records them.
type IGraph struct {
	nodes  []inode
	byTemp map[temp.Temp]NodeID
	adjSet map[edge]struct{}

	moves      []MovePair
	moveIndex  map[MovePair]MoveID
	candidates []MoveID
}

// NewIGraph creates a graph holding one precolored node per machine register,
// allocatable ones first in color order.
func NewIGraph(regs frame.RegManager) *IGraph {
	g := &IGraph{
		byTemp:    make(map[temp.Temp]NodeID),
		adjSet:    make(map[edge]struct{}),
		moveIndex: make(map[MovePair]MoveID),
	}
	for _, r := range regs.Registers() {
		g.addPrecolored(r)
	}
	for _, r := range regs.SpecialRegisters() {
		g.addPrecolored(r)
	}
	return g
}

func (g *IGraph) addPrecolored(t temp.Temp) {
	if _, ok := g.byTemp[t]; ok {
		return
	}
	g.byTemp[t] = NodeID(len(g.nodes))
	g.nodes = append(g.nodes, inode{temp: t, precolored: true, degree: InfiniteDegree})
}

// AddTemp returns the node of t, creating it on first sight
func (g *IGraph) AddTemp(t temp.Temp) NodeID {
	if id, ok := g.byTemp[t]; ok {
		return id
	}
	id := NodeID(len(g.nodes))
	g.byTemp[t] = id
	g.nodes = append(g.nodes, inode{temp: t})
	return id
}

// Lookup returns the node of t if there is one
func (g *IGraph) Lookup(t temp.Temp) (NodeID, bool) {
	id, ok := g.byTemp[t]
	return id, ok
}

// NodeOf returns the node of t. Asking for a temp that was never registered
// means the graph and the instructions are out of sync, and panics.
func (g *IGraph) NodeOf(t temp.Temp) NodeID {
	id, ok := g.byTemp[t]
	if !ok {
		panic(fmt.Sprintf("liveness: %s has no interference node", t))
	}
	return id
}

// Len returns the number of nodes
func (g *IGraph) Len() int { return len(g.nodes) }

// Temp returns the temporary of node id
func (g *IGraph) Temp(id NodeID) temp.Temp { return g.nodes[id].temp }

// IsPrecolored reports whether id stands for a machine register
func (g *IGraph) IsPrecolored(id NodeID) bool { return g.nodes[id].precolored }

// Precolored returns the machine-register nodes in creation order
func (g *IGraph) Precolored() []NodeID {
	var ids []NodeID
	for i := range g.nodes {
		if g.nodes[i].precolored {
			ids = append(ids, NodeID(i))
		}
	}
	return ids
}

// AddEdge records that u and v interfere
func (g *IGraph) AddEdge(u, v NodeID) {
	if u == v || g.IsAdjacent(u, v) {
		return
	}
	nu, nv := &g.nodes[u], &g.nodes[v]
	if nu.precolored && nv.precolored {
		return
	}
	g.adjSet[edge{u, v}] = struct{}{}
	g.adjSet[edge{v, u}] = struct{}{}
	if !nu.precolored {
		nu.adj = append(nu.adj, v)
		nu.degree++
	}
	if !nv.precolored {
		nv.adj = append(nv.adj, u)
		nv.degree++
	}
}

// IsAdjacent reports whether u and v interfere
func (g *IGraph) IsAdjacent(u, v NodeID) bool {
	_, ok := g.adjSet[edge{u, v}]
	return ok
}

// Adj returns the adjacency list of id. Precolored nodes have none.
func (g *IGraph) Adj(id NodeID) []NodeID { return g.nodes[id].adj }

// Degree returns the current degree of id
func (g *IGraph) Degree(id NodeID) int { return g.nodes[id].degree }

// DecrementDegree lowers the degree of a non-precolored node and returns the
// new value. A precolored node keeps InfiniteDegree.
func (g *IGraph) DecrementDegree(id NodeID) int {
	n := &g.nodes[id]
	if n.precolored {
		return n.degree
	}
	if n.degree == 0 {
		panic(fmt.Sprintf("liveness: degree of %s would become negative", n.temp))
	}
	n.degree--
	return n.degree
}

// AddMove records a move from src to dst in the move list of both nodes and
// in the candidate set. Repeated pairs are recorded once.
func (g *IGraph) AddMove(src, dst NodeID) MoveID {
	p := MovePair{Src: src, Dst: dst}
	if id, ok := g.moveIndex[p]; ok {
		return id
	}
	id := MoveID(len(g.moves))
	g.moves = append(g.moves, p)
	g.moveIndex[p] = id
	g.candidates = append(g.candidates, id)
	g.addNodeMove(src, id)
	g.addNodeMove(dst, id)
	return id
}

func (g *IGraph) addNodeMove(n NodeID, m MoveID) {
	for _, x := range g.nodes[n].moves {
		if x == m {
			return
		}
	}
	g.nodes[n].moves = append(g.nodes[n].moves, m)
}

// Move returns a move pair
func (g *IGraph) Move(id MoveID) MovePair { return g.moves[id] }

// MoveCount returns the number of distinct move pairs
func (g *IGraph) MoveCount() int { return len(g.moves) }

// Moves returns the move list of a node
func (g *IGraph) Moves(id NodeID) []MoveID { return g.nodes[id].moves }

// Candidates returns every move pair in the order it was found
func (g *IGraph) Candidates() []MoveID { return g.candidates }

// MergeMoves adds the moves of v to the move list of u
func (g *IGraph) MergeMoves(u, v NodeID) {
	for _, m := range g.nodes[v].moves {
		g.addNodeMove(u, m)
	}
}

// BuildInterference creates the interference graph of instrs from their liveness.
// For a move, its source does not interfere with its destination, which is
// what makes the pair a coalescing candidate.
func BuildInterference(g *flowgraph.Graph, lm *LiveMap, regs frame.RegManager) *IGraph {
	ig := NewIGraph(regs)
	for i := 0; i < g.Len(); i++ {
		instr := g.Instr(flowgraph.Node(i))
		for _, t := range instr.Def() {
			ig.AddTemp(t)
		}
		for _, t := range instr.Use() {
			ig.AddTemp(t)
		}
	}

	for i := 0; i < g.Len(); i++ {
		instr := g.Instr(flowgraph.Node(i))
		live := lm.Out[i].Copy()

		if m, ok := instr.(*assem.Move); ok {
			dst, src := m.Endpoints()
			live.Remove(src)
			ig.AddMove(ig.NodeOf(src), ig.NodeOf(dst))
		}

		for _, d := range instr.Def() {
			live.Add(d)
		}
		for _, d := range instr.Def() {
			dn := ig.NodeOf(d)
			for _, t := range live.Slice() {
				if t != d {
					ig.AddEdge(dn, ig.NodeOf(t))
				}
			}
		}
	}
	return ig
}
