package regalloc

import (
	"math"

	"github.com/ghazariann/SJTU-compilers/pkg/flowgraph"
	"github.com/ghazariann/SJTU-compilers/pkg/liveness"
	"github.com/ghazariann/SJTU-compilers/pkg/temp"
	"tlog.app/go/errors"
)

// Heuristic chooses which high-degree node to give up on when nothing else
// can be simplified, coalesced or frozen.
type Heuristic int

const (
	// Distance spills the node with the longest stretch from a definition to
	// its next use in program order. A definition that is never used wins outright.
	Distance Heuristic = iota
	// Chaitin spills the node with the lowest sum of 10^loopdepth over its
	// occurrences divided by its degree.
	Chaitin
)

func (h Heuristic) String() string {
	switch h {
	case Distance:
		return "distance"
	case Chaitin:
		return "chaitin"
	}
	return "unknown"
}

// ParseHeuristic maps a heuristic name to its value
func ParseHeuristic(name string) (Heuristic, error) {
	switch name {
	case "distance", "":
		return Distance, nil
	case "chaitin":
		return Chaitin, nil
	}
	return 0, errors.New("unknown spill heuristic %q (want distance or chaitin)", name)
}

type spillChooser func(a *attempt, candidates []liveness.NodeID) liveness.NodeID

// chooser returns the selection function for h. Temps created by an earlier
// spill rewrite are only chosen when nothing else is left.
func (h Heuristic) chooser(introduced temp.Set) spillChooser {
	score := distanceScore
	if h == Chaitin {
		score = chaitinScore
	}
	return func(a *attempt, candidates []liveness.NodeID) liveness.NodeID {
		var fresh, old []liveness.NodeID
		for _, n := range candidates {
			if introduced.Contains(a.ig.Temp(n)) {
				fresh = append(fresh, n)
			} else {
				old = append(old, n)
			}
		}
		if len(old) == 0 {
			old = fresh
		}

		best, bestScore := old[0], math.Inf(-1)
		for _, n := range old {
			if s := score(a, n); s > bestScore {
				best, bestScore = n, s
			}
		}
		return best
	}
}

// occurrence is one instruction that mentions a node
type occurrence struct {
	index    int
	def, use bool
}

// occurrences lists, in program order, the instructions that define or use n
// or any node coalesced into it
func (a *attempt) occurrences(n liveness.NodeID) []occurrence {
	members := temp.NewSet(a.ig.Temp(n))
	for _, c := range a.coalescedNodes {
		if a.getAlias(c) == n {
			members.Add(a.ig.Temp(c))
		}
	}

	var occ []occurrence
	for i, instr := range a.instrs {
		o := occurrence{index: i}
		for _, t := range instr.Def() {
			o.def = o.def || members.Contains(t)
		}
		for _, t := range instr.Use() {
			o.use = o.use || members.Contains(t)
		}
		if o.def || o.use {
			occ = append(occ, o)
		}
	}
	return occ
}

// distanceScore is the longest distance from a use back to the latest
// definition before it, or to the top of the procedure when there is none.
// A node that is never used scores +Inf.
//
// A use reads the value from before its own instruction, so an instruction
// that uses and defines the node measures from the previous definition.
func distanceScore(a *attempt, n liveness.NodeID) float64 {
	start := -1
	longest := -1
	for _, o := range a.occurrences(n) {
		if o.use {
			if d := o.index - start; d > longest {
				longest = d
			}
		}
		if o.def {
			start = o.index
		}
	}
	if longest < 0 {
		return math.Inf(1)
	}
	return float64(longest)
}

// chaitinScore is the negated cost so that the cheapest node scores highest
func chaitinScore(a *attempt, n liveness.NodeID) float64 {
	if a.depth == nil {
		a.depth = flowgraph.LoopDepth(a.flow)
	}
	cost := 0.0
	for _, o := range a.occurrences(n) {
		w := math.Pow(10, float64(a.depth[o.index]))
		if o.def {
			cost += w
		}
		if o.use {
			cost += w
		}
	}
	degree := a.ig.Degree(n)
	if degree < 1 {
		degree = 1
	}
	return -cost / float64(degree)
}
