package regalloc

import (
	"github.com/ghazariann/SJTU-compilers/pkg/liveness"
	"github.com/oleiade/lane"
)

// nodeState says which partition a node is in. A node is in exactly one.
type nodeState uint8

const (
	nodeInitial nodeState = iota
	nodePrecolored
	nodeSimplify
	nodeFreeze
	nodeSpill
	nodeSpilled
	nodeCoalesced
	nodeColored
	nodeSelect

	numNodeStates
)

var nodeStateNames = [numNodeStates]string{
	"initial", "precolored", "simplify", "freeze", "spill", "spilled", "coalesced", "colored", "select",
}

func (s nodeState) String() string { return nodeStateNames[s] }

// moveState says which partition a move is in
type moveState uint8

const (
	moveWorklist moveState = iota
	moveActive
	moveCoalesced
	moveConstrained
	moveFrozen

	numMoveStates
)

var moveStateNames = [numMoveStates]string{
	"worklist", "active", "coalesced", "constrained", "frozen",
}

func (s moveState) String() string { return moveStateNames[s] }

// worklist is a FIFO of IDs whose membership is decided by the owner's state
// table: an ID that left the list's state since it was queued is skipped on
// the way out.
type worklist struct {
	q *lane.Queue
}

func newWorklist() worklist {
	return worklist{q: lane.NewQueue()}
}

func (w worklist) push(id int) {
	w.q.Enqueue(id)
}

// pop returns the next queued ID for which valid holds.
// The caller knows from its counts that there is one.
func (w worklist) pop(valid func(int) bool) int {
	for !w.q.Empty() {
		id := w.q.Dequeue().(int)
		if valid(id) {
			return id
		}
	}
	panic("regalloc: worklist count out of sync with queue")
}

// setNode moves n into state s and queues it on the matching list
func (a *attempt) setNode(n liveness.NodeID, s nodeState) {
	old := a.state[n]
	if old == s {
		return
	}
	a.nodeCount[old]--
	a.nodeCount[s]++
	a.state[n] = s

	switch s {
	case nodeSimplify:
		a.simplifyList.push(int(n))
	case nodeFreeze:
		a.freezeList.push(int(n))
	case nodeSelect:
		a.selectStack.Push(n)
	case nodeSpilled:
		a.spilledNodes = append(a.spilledNodes, n)
	case nodeCoalesced:
		a.coalescedNodes = append(a.coalescedNodes, n)
	}
}

func (a *attempt) setMove(m liveness.MoveID, s moveState) {
	old := a.moveState[m]
	if old == s {
		return
	}
	a.moveCount[old]--
	a.moveCount[s]++
	a.moveState[m] = s

	if s == moveWorklist {
		a.worklistMoves.push(int(m))
	}
}

func (a *attempt) popNode(s nodeState, w worklist) liveness.NodeID {
	return liveness.NodeID(w.pop(func(id int) bool { return a.state[id] == s }))
}

func (a *attempt) popMove() liveness.MoveID {
	return liveness.MoveID(a.worklistMoves.pop(func(id int) bool { return a.moveState[id] == moveWorklist }))
}
