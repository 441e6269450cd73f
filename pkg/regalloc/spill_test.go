package regalloc

import (
	"testing"

	"github.com/ghazariann/SJTU-compilers/pkg/assem"
	"github.com/ghazariann/SJTU-compilers/pkg/frame"
	"github.com/ghazariann/SJTU-compilers/pkg/liveness"
	"github.com/ghazariann/SJTU-compilers/pkg/temp"
	"github.com/stretchr/testify/assert"
)

func TestDistanceScore(t *testing.T) {
	f := temp.NewFactory()
	a := newAttempt([]assem.Instr{
		imm(1, 1), // 0
		imm(2, 2), // 1
		out(2),    // 2
		out(1),    // 3
		imm(3, 3), // 4: never used
		out(4),    // 5: never defined
	}, frame.NewX64(f))

	score := func(x temp.Temp) float64 { return distanceScore(a, a.ig.NodeOf(x)) }
	assert.Equal(t, 3.0, score(1))
	assert.Equal(t, 1.0, score(2))
	assert.True(t, score(3) > 1e300, "a dead definition is the best candidate")
	assert.Equal(t, 6.0, score(4))
}

func TestDistanceScoreLoopCarried(t *testing.T) {
	f := temp.NewFactory()
	jne := &assem.Oper{Assem: "jne `j0", Jumps: []temp.Label{"L1"}}
	a := newAttempt([]assem.Instr{
		imm(1, 1),            // 0
		assem.NewLabel("L1"), // 1
		out(1),               // 2: reads the previous iteration's value
		add(1, 2),            // 3
		imm(5, 1),            // 4: defined for the next iteration
		jne,                  // 5
		out(2),               // 6
	}, frame.NewX64(f))

	// The definition at 4 has no later use in program order but is not dead:
	// the longest stretch is from 0 to the add at 3
	assert.Equal(t, 3.0, distanceScore(a, a.ig.NodeOf(1)))
	// add uses and defines t2, and its use measures from the top
	assert.Equal(t, 4.0, distanceScore(a, a.ig.NodeOf(2)))
}

func TestChooserPrefersOriginalTemps(t *testing.T) {
	f := temp.NewFactory()
	a := newAttempt([]assem.Instr{
		imm(1, 1),
		imm(2, 2),
		out(2),
		out(1),
		imm(3, 3),
	}, frame.NewX64(f))
	nodes := []liveness.NodeID{a.ig.NodeOf(1), a.ig.NodeOf(2), a.ig.NodeOf(3)}

	choose := Distance.chooser(temp.NewSet())
	assert.Equal(t, a.ig.NodeOf(3), choose(a, nodes))
	assert.Equal(t, a.ig.NodeOf(1), choose(a, nodes[:2]))

	choose = Distance.chooser(temp.NewSet(3))
	assert.Equal(t, a.ig.NodeOf(1), choose(a, nodes), "t3 came from a spill rewrite")
	assert.Equal(t, a.ig.NodeOf(3), choose(a, nodes[2:]))
}

func TestChaitinScore(t *testing.T) {
	f := temp.NewFactory()
	jne := &assem.Oper{Assem: "jne `j0", Src: []temp.Temp{2}, Jumps: []temp.Label{"L1"}}
	a := newAttempt([]assem.Instr{
		imm(1, 1),            // 0
		imm(2, 2),            // 1
		assem.NewLabel("L1"), // 2: loop
		add(2, 2),            // 3: loop
		jne,                  // 4: loop
		out(1),               // 5
	}, frame.NewX64(f))

	n1, n2 := a.ig.NodeOf(1), a.ig.NodeOf(2)
	assert.Equal(t, 1, a.ig.Degree(n1))
	assert.Equal(t, 1, a.ig.Degree(n2))
	// t1: one def and one use outside the loop
	assert.Equal(t, -2.0, chaitinScore(a, n1))
	// t2: a def outside, then a def, a use and a use at depth 1
	assert.Equal(t, -31.0, chaitinScore(a, n2))
	assert.Equal(t, n1, Chaitin.chooser(temp.NewSet())(a, []liveness.NodeID{n1, n2}))
}
