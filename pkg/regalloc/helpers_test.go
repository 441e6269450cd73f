package regalloc

import (
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/ghazariann/SJTU-compilers/pkg/assem"
	"github.com/ghazariann/SJTU-compilers/pkg/frame"
	"github.com/ghazariann/SJTU-compilers/pkg/liveness"
	"github.com/ghazariann/SJTU-compilers/pkg/temp"
	"github.com/stretchr/testify/require"
)

// machine returns a machine with k registers R0..R(k-1) and a stack pointer SP
func machine(t *testing.T, k int) (*temp.Factory, *frame.Machine) {
	t.Helper()
	f := temp.NewFactory()
	spec := frame.MachineSpec{Special: []string{"SP"}, StackPointer: "SP"}
	for i := 0; i < k; i++ {
		spec.Registers = append(spec.Registers, fmt.Sprintf("R%d", i))
	}
	m, err := frame.NewMachine(f, spec)
	require.NoError(t, err)
	return f, m
}

func imm(n int, d temp.Temp) *assem.Oper {
	return &assem.Oper{Assem: fmt.Sprintf("movq $%d, `d0", n), Dst: []temp.Temp{d}}
}

// add computes d += s
func add(s, d temp.Temp) *assem.Oper {
	return &assem.Oper{Assem: "addq `s0, `d0", Dst: []temp.Temp{d}, Src: []temp.Temp{s, d}}
}

func mov(d, s temp.Temp) *assem.Move {
	return assem.NewMove("movq `s0, `d0", d, s)
}

func out(s temp.Temp) *assem.Oper {
	return &assem.Oper{Assem: "out `s0", Src: []temp.Temp{s}}
}

// run interprets a straight-line program. loc names the storage of a temp:
// t<N> before allocation, the register name after.
func run(t *testing.T, instrs []assem.Instr, loc func(temp.Temp) string) []int {
	t.Helper()
	reg := make(map[string]int)
	mem := make(map[string]int)
	var output []int

	for _, instr := range instrs {
		tmpl := instr.Template()
		def, use := instr.Def(), instr.Use()
		switch {
		case strings.HasPrefix(tmpl, "movq $"):
			n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(tmpl, "movq $"), ", `d0"))
			require.NoError(t, err)
			reg[loc(def[0])] = n
		case strings.HasPrefix(tmpl, "movq ("):
			addr := strings.TrimSuffix(strings.TrimPrefix(tmpl, "movq "), ", `d0")
			v, ok := mem[addr]
			require.True(t, ok, "load from unwritten slot %s", addr)
			reg[loc(def[0])] = v
		case strings.HasPrefix(tmpl, "movq `s0, ("):
			mem[strings.TrimPrefix(tmpl, "movq `s0, ")] = reg[loc(use[0])]
		case tmpl == "movq `s0, `d0":
			reg[loc(def[0])] = reg[loc(use[0])]
		case tmpl == "addq `s0, `d0":
			reg[loc(def[0])] = reg[loc(use[0])] + reg[loc(use[1])]
		case tmpl == "out `s0":
			output = append(output, reg[loc(use[0])])
		default:
			t.Fatalf("cannot interpret %q", tmpl)
		}
	}
	return output
}

// checkColoring asserts that no two interfering nodes share a color, that
// machine registers keep their own color and that only allocatable colors are used
func checkColoring(t *testing.T, res *Result, regs frame.RegManager) {
	t.Helper()
	k := regs.RegisterCount()
	g := res.Graph
	for i := 0; i < g.Len(); i++ {
		n := liveness.NodeID(i)
		tn := g.Temp(n)
		c, ok := res.Colors[tn]
		require.True(t, ok, "%s has no color", tn)
		if g.IsPrecolored(n) {
			continue
		}
		require.True(t, c >= 0 && c < k, "%s has color %d outside 0..%d", tn, c, k-1)
		for _, m := range g.Adj(n) {
			require.NotEqual(t, c, res.Colors[g.Temp(m)], "%s and %s interfere", tn, g.Temp(m))
		}
	}
	for c, r := range regs.Registers() {
		require.Equal(t, c, res.Colors[r])
		require.Equal(t, regs.Names().Name(r), res.Coloring.Name(r))
	}
}
