package asmfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ghazariann/SJTU-compilers/pkg/assem"
	"github.com/ghazariann/SJTU-compilers/pkg/temp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoProcs = `
procedures:
  - name: small
    machine:
      registers: [R0, R1]
      special: [SP]
      stack_pointer: SP
    instructions:
      - oper: "movq $1, ` + "`d0" + `"
        dst: [a]
      - label: L1
      - move: "movq ` + "`s0, `d0" + `"
        dst: [b]
        src: [a]
      - oper: "addq ` + "`s0, `d0" + `"
        dst: [R0]
        src: [b, R0]
      - oper: "jne ` + "`j0" + `"
        src: [a]
        jumps: [L1]
  - name: big
    outgoing_args: 8
    instructions:
      - move: "movq ` + "`s0, `d0" + `"
        dst: [x]
        src: ["%rdi"]
  - name: big2
    instructions:
      - move: "movq ` + "`s0, `d0" + `"
        dst: ["%rax"]
        src: [x]
`

func TestParse(t *testing.T) {
	f := temp.NewFactory()
	procs, err := Parse(strings.NewReader(twoProcs), f)
	require.NoError(t, err)
	require.Len(t, procs, 3)

	p := procs[0]
	assert.Equal(t, "small", p.Name)
	assert.Equal(t, 2, p.Machine.RegisterCount())
	require.Len(t, p.Instrs, 5)

	first := p.Instrs[0].(*assem.Oper)
	a := first.Dst[0]
	assert.Equal(t, "a", p.Names.Name(a))

	lbl := p.Instrs[1].(*assem.Label)
	assert.Equal(t, temp.Label("L1"), lbl.Label)
	assert.Equal(t, "L1:", lbl.Assem)

	mv := p.Instrs[2].(*assem.Move)
	dst, src := mv.Endpoints()
	assert.Equal(t, a, src, "one temp per distinct name")
	assert.Equal(t, "b", p.Names.Name(dst))

	add := p.Instrs[3].(*assem.Oper)
	r0, ok := p.Machine.Lookup("R0")
	require.True(t, ok)
	assert.Equal(t, r0, add.Dst[0], "register names resolve to machine registers")
	assert.Equal(t, r0, add.Src[1])
	assert.Equal(t, "R0", p.Names.Name(r0))

	jmp := p.Instrs[4].(*assem.Oper)
	assert.Equal(t, []temp.Label{"L1"}, jmp.Jumps)

	// Procedures without a machine share one x86-64 register file
	assert.Zero(t, p.OutgoingArgs)
	assert.Equal(t, 8, procs[1].OutgoingArgs)

	assert.Same(t, procs[1].Machine, procs[2].Machine)
	assert.Equal(t, 15, procs[1].Machine.RegisterCount())
	rdi, ok := procs[1].Machine.Lookup("%rdi")
	require.True(t, ok)
	_, src = procs[1].Instrs[0].(*assem.Move).Endpoints()
	assert.Equal(t, rdi, src)

	// Names are per procedure
	xBig, _ := procs[1].Instrs[0].(*assem.Move).Endpoints()
	_, xBig2 := procs[2].Instrs[0].(*assem.Move).Endpoints()
	assert.NotEqual(t, xBig, xBig2)
	assert.Equal(t, "x", procs[2].Names.Name(xBig2))
}

func TestParseEmpty(t *testing.T) {
	procs, err := Parse(strings.NewReader(""), temp.NewFactory())
	require.NoError(t, err)
	assert.Empty(t, procs)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"bad yaml", "procedures: [", "decode"},
		{"unknown field", "procedures:\n  - name: p\n    bogus: 1\n", "decode"},
		{"no name", "procedures:\n  - instructions: []\n", "has no name"},
		{"no kind", "procedures:\n  - name: p\n    instructions:\n      - dst: [a]\n", "exactly one of"},
		{"two kinds", "procedures:\n  - name: p\n    instructions:\n      - label: L1\n        oper: nop\n", "exactly one of"},
		{"move without src", "procedures:\n  - name: p\n    instructions:\n      - move: mov\n        dst: [a]\n", "one dst, one src"},
		{"move with two dsts", "procedures:\n  - name: p\n    instructions:\n      - move: mov\n        dst: [a, b]\n        src: [c]\n", "one dst, one src"},
		{"label with operands", "procedures:\n  - name: p\n    instructions:\n      - label: L1\n        src: [a]\n", "has operands"},
		{"undefined label", "procedures:\n  - name: p\n    instructions:\n      - oper: jmp\n        jumps: [L9]\n", "undefined label L9"},
		{"duplicate label", "procedures:\n  - name: p\n    instructions:\n      - label: L1\n      - label: L1\n", "defined twice"},
		{"negative outgoing args", "procedures:\n  - name: p\n    outgoing_args: -1\n", "negative outgoing_args"},
		{"bad machine", "procedures:\n  - name: p\n    machine:\n      registers: []\n", "no allocatable registers"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.doc), temp.NewFactory())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.yaml")
	require.NoError(t, os.WriteFile(path, []byte(twoProcs), 0o644))

	procs, err := LoadFile(path, temp.NewFactory())
	require.NoError(t, err)
	assert.Len(t, procs, 3)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"), temp.NewFactory())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.yaml")
}
