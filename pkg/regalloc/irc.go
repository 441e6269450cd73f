package regalloc

import (
	"fmt"

	"github.com/ghazariann/SJTU-compilers/pkg/assem"
	"github.com/ghazariann/SJTU-compilers/pkg/flowgraph"
	"github.com/ghazariann/SJTU-compilers/pkg/frame"
	"github.com/ghazariann/SJTU-compilers/pkg/liveness"
	"github.com/oleiade/lane"
)

// attempt is one round of iterated register coalescing over a fixed
// instruction list. Everything in it is discarded when the round spills.
type attempt struct {
	instrs []assem.Instr
	regs   frame.RegManager
	k      int

	flow  *flowgraph.Graph
	ig    *liveness.IGraph
	depth []int

	state     []nodeState
	nodeCount [numNodeStates]int
	moveState []moveState
	moveCount [numMoveStates]int
	alias     []liveness.NodeID
	color     []int

	simplifyList  worklist
	freezeList    worklist
	worklistMoves worklist
	selectStack   *lane.Stack

	spilledNodes   []liveness.NodeID
	coalescedNodes []liveness.NodeID
}

// newAttempt runs flow analysis, liveness and interference construction
// over instrs and sorts every node into its initial worklist.
func newAttempt(instrs []assem.Instr, regs frame.RegManager) *attempt {
	flow := flowgraph.Build(instrs)
	a := prepare(liveness.BuildInterference(flow, liveness.Analyze(flow), regs), regs)
	a.instrs = instrs
	a.flow = flow
	return a
}

func prepare(ig *liveness.IGraph, regs frame.RegManager) *attempt {
	n := ig.Len()
	a := &attempt{
		regs:          regs,
		k:             regs.RegisterCount(),
		ig:            ig,
		state:         make([]nodeState, n),
		moveState:     make([]moveState, ig.MoveCount()),
		alias:         make([]liveness.NodeID, n),
		color:         make([]int, n),
		simplifyList:  newWorklist(),
		freezeList:    newWorklist(),
		worklistMoves: newWorklist(),
		selectStack:   lane.NewStack(),
	}
	a.nodeCount[nodeInitial] = n
	for i := range a.alias {
		a.alias[i] = liveness.NodeID(i)
		a.color[i] = -1
	}

	// Allocatable registers take colors 0..k-1 in order; the special ones get
	// colors past k-1 so that no temp can ever be given them.
	for c, r := range regs.Registers() {
		id := ig.NodeOf(r)
		a.color[id] = c
		a.setNode(id, nodePrecolored)
	}
	for j, r := range regs.SpecialRegisters() {
		id := ig.NodeOf(r)
		a.color[id] = a.k + j
		a.setNode(id, nodePrecolored)
	}

	for _, m := range ig.Candidates() {
		a.moveCount[moveWorklist]++
		a.worklistMoves.push(int(m))
	}

	a.makeWorklist()
	return a
}

func (a *attempt) makeWorklist() {
	for i := 0; i < a.ig.Len(); i++ {
		n := liveness.NodeID(i)
		if a.state[n] != nodeInitial {
			continue
		}
		switch {
		case a.ig.Degree(n) >= a.k:
			a.setNode(n, nodeSpill)
		case a.moveRelated(n):
			a.setNode(n, nodeFreeze)
		default:
			a.setNode(n, nodeSimplify)
		}
	}
}

// run drives simplify, coalesce, freeze and select-spill in that priority
// until every worklist is empty, then assigns colors.
func (a *attempt) run(choose spillChooser) {
	for {
		switch {
		case a.nodeCount[nodeSimplify] > 0:
			a.simplify()
		case a.moveCount[moveWorklist] > 0:
			a.coalesce()
		case a.nodeCount[nodeFreeze] > 0:
			a.freeze()
		case a.nodeCount[nodeSpill] > 0:
			a.selectSpill(choose)
		default:
			a.assignColors()
			return
		}
	}
}

// adjacent returns the neighbors of n still in the graph
func (a *attempt) adjacent(n liveness.NodeID) []liveness.NodeID {
	var out []liveness.NodeID
	for _, m := range a.ig.Adj(n) {
		if s := a.state[m]; s != nodeSelect && s != nodeCoalesced {
			out = append(out, m)
		}
	}
	return out
}

// nodeMoves returns the moves of n that may still be coalesced
func (a *attempt) nodeMoves(n liveness.NodeID) []liveness.MoveID {
	var out []liveness.MoveID
	for _, m := range a.ig.Moves(n) {
		if s := a.moveState[m]; s == moveActive || s == moveWorklist {
			out = append(out, m)
		}
	}
	return out
}

func (a *attempt) moveRelated(n liveness.NodeID) bool {
	for _, m := range a.ig.Moves(n) {
		if s := a.moveState[m]; s == moveActive || s == moveWorklist {
			return true
		}
	}
	return false
}

func (a *attempt) precolored(n liveness.NodeID) bool {
	return a.state[n] == nodePrecolored
}

func (a *attempt) simplify() {
	n := a.popNode(nodeSimplify, a.simplifyList)
	a.setNode(n, nodeSelect)
	for _, m := range a.adjacent(n) {
		a.decrementDegree(m)
	}
}

func (a *attempt) decrementDegree(m liveness.NodeID) {
	if a.precolored(m) {
		return
	}
	d := a.ig.Degree(m)
	a.ig.DecrementDegree(m)
	if d != a.k {
		return
	}
	a.enableMoves(m)
	for _, n := range a.adjacent(m) {
		a.enableMoves(n)
	}
	// Combine can push a freeze node to degree k without moving it to spill
	if a.state[m] != nodeSpill {
		return
	}
	if a.moveRelated(m) {
		a.setNode(m, nodeFreeze)
	} else {
		a.setNode(m, nodeSimplify)
	}
}

func (a *attempt) enableMoves(n liveness.NodeID) {
	for _, m := range a.nodeMoves(n) {
		if a.moveState[m] == moveActive {
			a.setMove(m, moveWorklist)
		}
	}
}

func (a *attempt) coalesce() {
	m := a.popMove()
	pair := a.ig.Move(m)
	x, y := a.getAlias(pair.Dst), a.getAlias(pair.Src)
	u, v := x, y
	if a.precolored(y) {
		u, v = y, x
	}

	switch {
	case u == v:
		a.setMove(m, moveCoalesced)
		a.addWorkList(u)
	case a.precolored(v) || a.ig.IsAdjacent(u, v):
		a.setMove(m, moveConstrained)
		a.addWorkList(u)
		a.addWorkList(v)
	case a.conservative(u, v):
		a.setMove(m, moveCoalesced)
		a.combine(u, v)
		a.addWorkList(u)
	default:
		a.setMove(m, moveActive)
	}
}

// addWorkList lets a freeze node that lost its last move be simplified
func (a *attempt) addWorkList(u liveness.NodeID) {
	if a.state[u] == nodeFreeze && !a.moveRelated(u) && a.ig.Degree(u) < a.k {
		a.setNode(u, nodeSimplify)
	}
}

// conservative applies George's test when u is a machine register and Briggs' test otherwise
func (a *attempt) conservative(u, v liveness.NodeID) bool {
	if a.precolored(u) {
		return a.george(u, v)
	}
	return a.briggs(u, v)
}

// george is safe when every neighbor of v is insignificant, precolored or already a neighbor of u
func (a *attempt) george(u, v liveness.NodeID) bool {
	for _, t := range a.adjacent(v) {
		if a.ig.Degree(t) >= a.k && !a.precolored(t) && !a.ig.IsAdjacent(t, u) {
			return false
		}
	}
	return true
}

// briggs is safe when the merged node has fewer than k significant neighbors
func (a *attempt) briggs(u, v liveness.NodeID) bool {
	seen := make(map[liveness.NodeID]bool)
	significant := 0
	for _, nodes := range [][]liveness.NodeID{a.adjacent(u), a.adjacent(v)} {
		for _, n := range nodes {
			if seen[n] {
				continue
			}
			seen[n] = true
			if a.ig.Degree(n) >= a.k {
				significant++
			}
		}
	}
	return significant < a.k
}

func (a *attempt) getAlias(n liveness.NodeID) liveness.NodeID {
	for a.state[n] == nodeCoalesced {
		n = a.alias[n]
	}
	return n
}

// combine merges v into u
func (a *attempt) combine(u, v liveness.NodeID) {
	if s := a.state[v]; s != nodeFreeze && s != nodeSpill {
		panic(fmt.Sprintf("regalloc: coalescing %s from %s, want freeze or spill",
			a.ig.Temp(v), s))
	}
	a.setNode(v, nodeCoalesced)
	a.alias[v] = u
	a.ig.MergeMoves(u, v)
	a.enableMoves(v)
	for _, t := range a.adjacent(v) {
		a.ig.AddEdge(t, u)
		a.decrementDegree(t)
	}
	if a.ig.Degree(u) >= a.k && a.state[u] == nodeFreeze {
		a.setNode(u, nodeSpill)
	}
}

func (a *attempt) freeze() {
	u := a.popNode(nodeFreeze, a.freezeList)
	a.setNode(u, nodeSimplify)
	a.freezeMoves(u)
}

func (a *attempt) freezeMoves(u liveness.NodeID) {
	for _, m := range a.nodeMoves(u) {
		pair := a.ig.Move(m)
		v := a.getAlias(pair.Dst)
		if v == a.getAlias(u) {
			v = a.getAlias(pair.Src)
		}
		a.setMove(m, moveFrozen)
		if a.state[v] == nodeFreeze && !a.moveRelated(v) && a.ig.Degree(v) < a.k {
			a.setNode(v, nodeSimplify)
		}
	}
}

func (a *attempt) selectSpill(choose spillChooser) {
	var candidates []liveness.NodeID
	for i, s := range a.state {
		if s == nodeSpill {
			candidates = append(candidates, liveness.NodeID(i))
		}
	}
	m := choose(a, candidates)
	if a.state[m] != nodeSpill {
		panic(fmt.Sprintf("regalloc: spill heuristic chose %s from %s", a.ig.Temp(m), a.state[m]))
	}
	a.setNode(m, nodeSimplify)
	a.freezeMoves(m)
}

// assignColors pops the select stack. Every node popped has fewer than k
// colored neighbors unless it was an optimistic spill candidate.
func (a *attempt) assignColors() {
	for !a.selectStack.Empty() {
		n := a.selectStack.Pop().(liveness.NodeID)

		ok := make([]bool, a.k)
		for i := range ok {
			ok[i] = true
		}
		for _, w := range a.ig.Adj(n) {
			wa := a.getAlias(w)
			if s := a.state[wa]; s == nodeColored || s == nodePrecolored {
				if c := a.color[wa]; c < a.k {
					ok[c] = false
				}
			}
		}

		a.color[n] = -1
		for c, free := range ok {
			if free {
				a.color[n] = c
				break
			}
		}
		if a.color[n] < 0 {
			a.setNode(n, nodeSpilled)
		} else {
			a.setNode(n, nodeColored)
		}
	}
	for _, n := range a.coalescedNodes {
		a.color[n] = a.color[a.getAlias(n)]
	}
}
