package liveness

import (
	"fmt"
	"io"
	"strings"

	"github.com/ghazariann/SJTU-compilers/pkg/assem"
	"github.com/ghazariann/SJTU-compilers/pkg/flowgraph"
	"github.com/ghazariann/SJTU-compilers/pkg/temp"
)

// Printer dumps flow graphs, live sets and interference graphs as text
type Printer struct {
	w     io.Writer
	names *temp.Map
}

// NewPrinter creates a printer that names temps through names
func NewPrinter(w io.Writer, names *temp.Map) *Printer {
	return &Printer{w: w, names: names}
}

// PrintFlowGraph prints one line per node with its successors
//
//	3: jne L1                  -> 1 4
func (p *Printer) PrintFlowGraph(g *flowgraph.Graph) {
	for i := 0; i < g.Len(); i++ {
		n := flowgraph.Node(i)
		succ := make([]string, len(g.Succ(n)))
		for j, s := range g.Succ(n) {
			succ[j] = fmt.Sprint(int(s))
		}
		fmt.Fprintf(p.w, "%3d: %-30s -> %s\n", i, assem.Format(g.Instr(n), p.names), strings.Join(succ, " "))
	}
}

// PrintLiveMap prints the in and out sets of every node
func (p *Printer) PrintLiveMap(g *flowgraph.Graph, lm *LiveMap) {
	for i := 0; i < g.Len(); i++ {
		fmt.Fprintf(p.w, "%3d: %-30s in: %s out: %s\n", i,
			assem.Format(g.Instr(flowgraph.Node(i)), p.names), p.set(lm.In[i]), p.set(lm.Out[i]))
	}
	fmt.Fprintf(p.w, "# %d passes\n", lm.Iterations)
}

// PrintIGraph prints the neighbors and moves of every non-precolored node
func (p *Printer) PrintIGraph(ig *IGraph) {
	for i := 0; i < ig.Len(); i++ {
		id := NodeID(i)
		if ig.IsPrecolored(id) {
			continue
		}
		adj := temp.NewSet()
		for _, n := range ig.Adj(id) {
			adj.Add(ig.Temp(n))
		}
		fmt.Fprintf(p.w, "%s (degree %d): %s\n", p.names.Name(ig.Temp(id)), ig.Degree(id), p.set(adj))
	}
	for _, m := range ig.Candidates() {
		pair := ig.Move(m)
		fmt.Fprintf(p.w, "move %s <- %s\n", p.names.Name(ig.Temp(pair.Dst)), p.names.Name(ig.Temp(pair.Src)))
	}
}

func (p *Printer) set(s temp.Set) string {
	ts := s.Slice()
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = p.names.Name(t)
	}
	return "{" + strings.Join(parts, " ") + "}"
}
