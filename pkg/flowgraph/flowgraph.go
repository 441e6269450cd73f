// Package flowgraph builds the control-flow graph of an instruction list.
// Node i wraps instruction i; edges are stored as node indices.
package flowgraph

import (
	"fmt"

	"github.com/ghazariann/SJTU-compilers/pkg/assem"
	"github.com/ghazariann/SJTU-compilers/pkg/temp"
)

// Node is an index into Graph
type Node int

// Graph is a control-flow graph with one node per instruction
type Graph struct {
	instrs []assem.Instr
	succ   [][]Node
	pred   [][]Node
	labels map[temp.Label]Node
}

// Build creates the flow graph of instrs.
// A jump to a label that is not in instrs is an instruction-selection bug and panics.
func Build(instrs []assem.Instr) *Graph {
	g := &Graph{
		instrs: instrs,
		succ:   make([][]Node, len(instrs)),
		pred:   make([][]Node, len(instrs)),
		labels: make(map[temp.Label]Node),
	}

	for i, instr := range instrs {
		if l, ok := instr.(*assem.Label); ok {
			g.labels[l.Label] = Node(i)
		}
	}

	for i, instr := range instrs {
		n := Node(i)
		fallThrough := true
		if o, ok := instr.(*assem.Oper); ok && len(o.Jumps) > 0 {
			for _, l := range o.Jumps {
				target, ok := g.labels[l]
				if !ok {
					panic(fmt.Sprintf("flowgraph: %q jumps to undefined label %s", o.Assem, l))
				}
				g.addEdge(n, target)
			}
			fallThrough = !o.IsUnconditionalJump()
		}
		if fallThrough && i+1 < len(instrs) {
			g.addEdge(n, n+1)
		}
	}
	return g
}

func (g *Graph) addEdge(from, to Node) {
	for _, s := range g.succ[from] {
		if s == to {
			return
		}
	}
	g.succ[from] = append(g.succ[from], to)
	g.pred[to] = append(g.pred[to], from)
}

// Len returns the number of nodes
func (g *Graph) Len() int { return len(g.instrs) }

// Instr returns the instruction wrapped by n
func (g *Graph) Instr(n Node) assem.Instr { return g.instrs[n] }

// Instrs returns the instruction list the graph was built from
func (g *Graph) Instrs() []assem.Instr { return g.instrs }

// Succ returns the successors of n
func (g *Graph) Succ(n Node) []Node { return g.succ[n] }

// Pred returns the predecessors of n
func (g *Graph) Pred(n Node) []Node { return g.pred[n] }

// LabelNode returns the node of a label instruction
func (g *Graph) LabelNode(l temp.Label) (Node, bool) {
	n, ok := g.labels[l]
	return n, ok
}
