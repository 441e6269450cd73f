// Package regalloc assigns machine registers to temporaries by iterated
// register coalescing (George and Appel), spilling to the stack frame and
// retrying until every temporary has a register.
package regalloc

import (
	"fmt"
	"io"

	"github.com/ghazariann/SJTU-compilers/pkg/assem"
	"github.com/ghazariann/SJTU-compilers/pkg/frame"
	"github.com/ghazariann/SJTU-compilers/pkg/liveness"
	"github.com/ghazariann/SJTU-compilers/pkg/temp"
	"tlog.app/go/tlog"
)

// RoundLimit bounds the spill-and-retry loop of a procedure with n virtual
// temps: one round to spill each of them and one to spill the temps its
// rewrite created, plus the round that succeeds and one spare.
func RoundLimit(n int) int {
	return 2*n + 2
}

// Options configures an Allocator
type Options struct {
	Heuristic Heuristic
	// MaxRounds is the number of attempts after which allocation gives up.
	// Zero means RoundLimit of the procedure's virtual temp count.
	MaxRounds int
	// DumpState receives a dump of the allocator state after every attempt when set
	DumpState io.Writer
}

// Result is the outcome of allocating one procedure
type Result struct {
	// Coloring names every temporary of the final program by its register
	Coloring *temp.Map
	// Colors is the register index of every temporary; machine registers keep their own
	Colors map[temp.Temp]int
	// Instrs is the final program: spill code inserted, same-register moves removed
	Instrs []assem.Instr
	// Graph is the interference graph the final coloring was computed on
	Graph *liveness.IGraph
	// Rounds counts attempts, 1 when nothing spilled
	Rounds int
	// Spilled lists every temporary sent to the stack, across all rounds
	Spilled []temp.Temp
	// CoalescedMoves counts the moves removed from the final program
	CoalescedMoves int
}

// Allocator allocates registers for one procedure.
// Its frame receives one new slot per spilled temporary.
type Allocator struct {
	instrs []assem.Instr
	frame  *frame.Frame
	opts   Options

	introduced temp.Set
	spilled    []temp.Temp
}

// New creates an allocator for instrs. The instructions are taken over:
// spill rewriting updates their def and use lists.
func New(instrs []assem.Instr, fr *frame.Frame, opts Options) *Allocator {
	if opts.MaxRounds <= 0 {
		opts.MaxRounds = RoundLimit(virtualTemps(instrs, fr.Regs()))
	}
	return &Allocator{
		instrs:     instrs,
		frame:      fr,
		opts:       opts,
		introduced: temp.NewSet(),
	}
}

// Allocate runs attempts until one colors every node
func (al *Allocator) Allocate() *Result {
	regs := al.frame.Regs()
	choose := al.opts.Heuristic.chooser(al.introduced)
	instrs := al.instrs

	for round := 1; ; round++ {
		if round > al.opts.MaxRounds {
			panic(fmt.Sprintf("regalloc: %s still spills after %d rounds; an instruction needs more than %d registers at once",
				al.frame.Name(), al.opts.MaxRounds, regs.RegisterCount()))
		}

		a := newAttempt(instrs, regs)
		a.run(choose)

		spilled := make([]temp.Temp, len(a.spilledNodes))
		for i, n := range a.spilledNodes {
			spilled[i] = a.ig.Temp(n)
		}

		tlog.V("regalloc").Printw("attempt",
			"proc", al.frame.Name(), "round", round,
			"nodes", a.ig.Len(), "moves", a.ig.MoveCount(),
			"coalesced", a.moveCount[moveCoalesced], "spilled", len(spilled))
		if al.opts.DumpState != nil {
			dumpState(al.opts.DumpState, al.frame.Name(), round, a, regs)
		}

		if len(spilled) == 0 {
			return al.finish(a, round)
		}

		al.spilled = append(al.spilled, spilled...)
		var created []temp.Temp
		instrs, created = rewriteProgram(instrs, spilled, al.frame)
		for _, t := range created {
			al.introduced.Add(t)
		}
	}
}

func (al *Allocator) finish(a *attempt, rounds int) *Result {
	regs := al.frame.Regs()
	res := &Result{
		Coloring: temp.NewMap(),
		Colors:   make(map[temp.Temp]int, a.ig.Len()),
		Graph:    a.ig,
		Rounds:   rounds,
		Spilled:  al.spilled,
	}
	for i := 0; i < a.ig.Len(); i++ {
		n := liveness.NodeID(i)
		t := a.ig.Temp(n)
		c := a.color[n]
		res.Colors[t] = c
		res.Coloring.Enter(t, colorName(regs, c))
	}

	res.Instrs = RemoveRedundantMoves(a.instrs, res.Colors)
	res.CoalescedMoves = len(a.instrs) - len(res.Instrs)
	return res
}

// virtualTemps counts the distinct temps of instrs that are not machine registers
func virtualTemps(instrs []assem.Instr, regs frame.RegManager) int {
	seen := temp.NewSet()
	for _, instr := range instrs {
		for _, ts := range [][]temp.Temp{instr.Def(), instr.Use()} {
			for _, t := range ts {
				if !frame.IsMachineRegister(regs, t) {
					seen.Add(t)
				}
			}
		}
	}
	return len(seen)
}

// colorName returns the register of color c; colors past the allocatable
// registers belong to the special registers
func colorName(regs frame.RegManager, c int) string {
	names := regs.Names()
	if k := regs.RegisterCount(); c >= k {
		return names.Name(regs.SpecialRegisters()[c-k])
	}
	return names.Name(regs.Registers()[c])
}

// RemoveRedundantMoves drops every move whose source and destination have the same color
func RemoveRedundantMoves(instrs []assem.Instr, colors map[temp.Temp]int) []assem.Instr {
	out := make([]assem.Instr, 0, len(instrs))
	for _, instr := range instrs {
		if m, ok := instr.(*assem.Move); ok {
			dst, src := m.Endpoints()
			cd, okd := colors[dst]
			cs, oks := colors[src]
			if okd && oks && cd == cs {
				continue
			}
		}
		out = append(out, instr)
	}
	return out
}
