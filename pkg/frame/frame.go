package frame

import (
	"fmt"
	"sync"

	"github.com/ghazariann/SJTU-compilers/pkg/temp"
)

// Access says where a local lives: in the frame or in a register
type Access interface {
	// Addressing renders the operand that reads or writes the local
	Addressing(f *Frame) string
}

// InFrame is a stack slot at Offset bytes below the frame top (Offset is negative)
type InFrame struct {
	Offset int
}

// InReg is a local that never escapes and lives in a temp
type InReg struct {
	Reg temp.Temp
}

// Addressing is frame-size relative because the frame size is only known after allocation:
// (f_framesize-16)(%rsp)
func (a InFrame) Addressing(f *Frame) string {
	return fmt.Sprintf("(%s%d)(%s)", f.SizeLabel(), a.Offset, f.regs.Names().Name(f.regs.StackPointer()))
}

func (a InReg) Addressing(f *Frame) string {
	return f.regs.Names().Name(a.Reg)
}

// Frame is the activation record of one procedure.
// It outlives every allocation attempt and accumulates spill slots across them.
type Frame struct {
	name    temp.Label
	regs    RegManager
	factory *temp.Factory

	mu          sync.Mutex
	locals      int
	accesses    []Access
	maxOutgoing int
}

// NewFrame creates an empty frame for procedure name
func NewFrame(name temp.Label, regs RegManager, f *temp.Factory) *Frame {
	return &Frame{name: name, regs: regs, factory: f}
}

// Name returns the procedure label
func (f *Frame) Name() temp.Label { return f.name }

// Regs returns the machine this frame was laid out for
func (f *Frame) Regs() RegManager { return f.regs }

// Factory returns the temp generator shared with the rest of the procedure
func (f *Frame) Factory() *temp.Factory { return f.factory }

// SizeLabel is the assembler symbol that will hold the final frame size
func (f *Frame) SizeLabel() string {
	return string(f.name) + "_framesize"
}

// AllocateLocal reserves storage for a local. Escaping locals (and spilled
// temporaries) get a fresh word-sized slot; the rest get a fresh temp.
func (f *Frame) AllocateLocal(escape bool) Access {
	f.mu.Lock()
	defer f.mu.Unlock()

	var acc Access
	if escape {
		f.locals++
		acc = InFrame{Offset: -f.locals * f.regs.WordSize()}
	} else {
		acc = InReg{Reg: f.factory.NewTemp()}
	}
	f.accesses = append(f.accesses, acc)
	return acc
}

// LocalCount returns the number of in-frame slots allocated so far
func (f *Frame) LocalCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.locals
}

// SetMaxOutgoingArgs records the largest number of arguments passed by any call in the body
func (f *Frame) SetMaxOutgoingArgs(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n > f.maxOutgoing {
		f.maxOutgoing = n
	}
}

// Locals returns every access handed out, in allocation order
func (f *Frame) Locals() []Access {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Access, len(f.accesses))
	copy(out, f.accesses)
	return out
}
