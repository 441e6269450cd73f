// Package liveness computes which temporaries are live at every instruction
// and builds the interference graph the register allocator colors.
package liveness

import (
	"github.com/ghazariann/SJTU-compilers/pkg/flowgraph"
	"github.com/ghazariann/SJTU-compilers/pkg/temp"
	"tlog.app/go/tlog"
)

// LiveMap holds the live-in and live-out sets of every flow-graph node
type LiveMap struct {
	In  []temp.Set
	Out []temp.Set
	// Iterations is the number of full passes, including the last one that changed nothing
	Iterations int
}

// Analyze solves
//
//	out[n] = ∪ in[s] for s in succ[n]
//	in[n]  = use[n] ∪ (out[n] − def[n])
//
// by sweeping the nodes in reverse order until a pass changes no set.
func Analyze(g *flowgraph.Graph) *LiveMap {
	n := g.Len()
	lm := &LiveMap{
		In:  make([]temp.Set, n),
		Out: make([]temp.Set, n),
	}
	for i := 0; i < n; i++ {
		lm.In[i] = temp.NewSet()
		lm.Out[i] = temp.NewSet()
	}

	for changed := true; changed; {
		changed = false
		lm.Iterations++
		for i := n - 1; i >= 0; i-- {
			node := flowgraph.Node(i)
			out := temp.NewSet()
			for _, s := range g.Succ(node) {
				out = out.Union(lm.In[s])
			}
			instr := g.Instr(node)
			in := temp.NewSet(instr.Use()...).Union(out.Minus(temp.NewSet(instr.Def()...)))

			if !out.Equal(lm.Out[i]) || !in.Equal(lm.In[i]) {
				lm.Out[i] = out
				lm.In[i] = in
				changed = true
			}
		}
	}

	tlog.V("liveness").Printw("fixpoint", "nodes", n, "passes", lm.Iterations)
	return lm
}
