// Package assem defines the target-machine-style instructions produced by
// instruction selection and consumed by the register allocator.
// Each instruction carries an assembly template whose operands are written
// `d0, `s1, `j0 and filled in from its def, use and jump lists.
package assem

import (
	"fmt"
	"strings"

	"github.com/ghazariann/SJTU-compilers/pkg/temp"
)

// Instr is one of *Label, *Move or *Oper
type Instr interface {
	Def() []temp.Temp
	Use() []temp.Temp
	Template() string
	implInstr()
}

// Label marks a branch target
type Label struct {
	Assem string
	Label temp.Label
}

// Move copies one temp to another. After coloring it becomes redundant
// when both sides land in the same register.
type Move struct {
	Assem string
	Dst   []temp.Temp
	Src   []temp.Temp
}

// Oper is any other operation. Jumps is non-empty for control transfers.
type Oper struct {
	Assem string
	Dst   []temp.Temp
	Src   []temp.Temp
	Jumps []temp.Label
}

func (*Label) implInstr() {}
func (*Move) implInstr() {}
func (*Oper) implInstr() {}

func (*Label) Def() []temp.Temp { return nil }
func (*Label) Use() []temp.Temp { return nil }
func (l *Label) Template() string { return l.Assem }

func (m *Move) Def() []temp.Temp { return m.Dst }
func (m *Move) Use() []temp.Temp { return m.Src }
func (m *Move) Template() string { return m.Assem }
func (o *Oper) Def() []temp.Temp { return o.Dst }
func (o *Oper) Use() []temp.Temp { return o.Src }
func (o *Oper) Template() string { return o.Assem }

// NewLabel creates the label instruction "name:"
func NewLabel(l temp.Label) *Label {
	return &Label{Assem: string(l) + ":", Label: l}
}

// NewMove creates a single-def single-use move
func NewMove(assem string, dst, src temp.Temp) *Move {
	return &Move{Assem: assem, Dst: []temp.Temp{dst}, Src: []temp.Temp{src}}
}

// Endpoints returns the single destination and source of a move.
// A move with any other shape is an instruction-selection bug.
func (m *Move) Endpoints() (dst, src temp.Temp) {
	if len(m.Dst) != 1 || len(m.Src) != 1 {
		panic(fmt.Sprintf("assem: move %q must have exactly one def and one use, has %d and %d",
			m.Assem, len(m.Dst), len(m.Src)))
	}
	return m.Dst[0], m.Src[0]
}

// Jumps returns the control-transfer targets of an instruction, nil when it has none
func Jumps(instr Instr) []temp.Label {
	if o, ok := instr.(*Oper); ok {
		return o.Jumps
	}
	return nil
}

// Mnemonic returns the first word of the template
func (o *Oper) Mnemonic() string {
	fields := strings.Fields(o.Assem)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// IsUnconditionalJump reports whether control never falls through this instruction.
// Any other jump is treated as conditional: it falls through on the not-taken path.
func (o *Oper) IsUnconditionalJump() bool {
	return len(o.Jumps) > 0 && o.Mnemonic() == "jmp"
}

// Replace substitutes newT for every occurrence of old in ts and reports whether any was found
func Replace(ts []temp.Temp, old, newT temp.Temp) bool {
	found := false
	for i, t := range ts {
		if t == old {
			ts[i] = newT
			found = true
		}
	}
	return found
}

// Contains reports whether ts mentions t
func Contains(ts []temp.Temp, t temp.Temp) bool {
	for _, x := range ts {
		if x == t {
			return true
		}
	}
	return false
}
