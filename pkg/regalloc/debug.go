package regalloc

import (
	"fmt"
	"io"

	"github.com/davecgh/go-spew/spew"
	"github.com/ghazariann/SJTU-compilers/pkg/frame"
	"github.com/ghazariann/SJTU-compilers/pkg/liveness"
	"github.com/ghazariann/SJTU-compilers/pkg/temp"
)

var dumpConfig = spew.ConfigState{
	Indent:                  "  ",
	SortKeys:                true,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
}

// stateDump is the printable view of an attempt
type stateDump struct {
	Procedure string
	Round     int
	Colors    map[string]string
	Coalesced map[string]string
	Spilled   []string
	Moves     map[string]int
}

func dumpState(w io.Writer, proc temp.Label, round int, a *attempt, regs frame.RegManager) {
	names := regs.Names()
	d := stateDump{
		Procedure: string(proc),
		Round:     round,
		Colors:    make(map[string]string),
		Coalesced: make(map[string]string),
		Moves:     make(map[string]int),
	}
	for i, s := range a.state {
		n := liveness.NodeID(i)
		t := names.Name(a.ig.Temp(n))
		switch s {
		case nodeColored:
			d.Colors[t] = colorName(regs, a.color[n])
		case nodeCoalesced:
			d.Coalesced[t] = names.Name(a.ig.Temp(a.getAlias(n)))
		case nodeSpilled:
			d.Spilled = append(d.Spilled, t)
		}
	}
	for s := moveState(0); s < numMoveStates; s++ {
		d.Moves[s.String()] = a.moveCount[s]
	}

	fmt.Fprintf(w, "# %s round %d\n", proc, round)
	dumpConfig.Fdump(w, d)
}
