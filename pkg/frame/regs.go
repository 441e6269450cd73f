// Package frame describes the target machine to the register allocator:
// which registers exist, which of them may be handed out, and how spilled
// values are addressed inside an activation record.
package frame

import (
	"github.com/ghazariann/SJTU-compilers/pkg/temp"
	"tlog.app/go/errors"
)

// RegManager exposes the register file and calling convention of a target
type RegManager interface {
	// Registers returns the allocatable registers in color order; color i is Registers()[i]
	Registers() []temp.Temp
	// SpecialRegisters returns machine registers that appear in code but are never handed out
	SpecialRegisters() []temp.Temp
	ArgRegs() []temp.Temp
	CallerSaves() []temp.Temp
	CalleeSaves() []temp.Temp
	// ReturnSink lists registers live at procedure exit
	ReturnSink() []temp.Temp
	RegisterCount() int
	WordSize() int
	StackPointer() temp.Temp
	FramePointer() temp.Temp
	ReturnValue() temp.Temp
	// Names maps every machine register to its assembly name
	Names() *temp.Map
	// Lookup finds a machine register by assembly name
	Lookup(name string) (temp.Temp, bool)
}

// MachineSpec lists register names; subsets refer to names in Registers or Special
type MachineSpec struct {
	Registers    []string `yaml:"registers"`
	Special      []string `yaml:"special"`
	Args         []string `yaml:"args"`
	CallerSaves  []string `yaml:"caller_saves"`
	CalleeSaves  []string `yaml:"callee_saves"`
	StackPointer string   `yaml:"stack_pointer"`
	FramePointer string   `yaml:"frame_pointer"`
	ReturnValue  string   `yaml:"return_value"`
	WordSize     int      `yaml:"word_size"`
}

// Machine is a RegManager built from a MachineSpec
type Machine struct {
	regs    []temp.Temp
	special []temp.Temp
	args    []temp.Temp
	callers []temp.Temp
	callees []temp.Temp
	sp      temp.Temp
	fp      temp.Temp
	rv      temp.Temp
	word    int
	names   *temp.Map
	byName  map[string]temp.Temp
}

// NewMachine creates one precolored temp per register name.
// Misnamed subsets are a configuration bug and are reported as errors.
func NewMachine(f *temp.Factory, spec MachineSpec) (*Machine, error) {
	if len(spec.Registers) == 0 {
		return nil, errors.New("machine has no allocatable registers")
	}
	m := &Machine{
		word:   spec.WordSize,
		names:  temp.NewMap(),
		byName: make(map[string]temp.Temp),
	}
	if m.word == 0 {
		m.word = 8
	}

	declare := func(name string) (temp.Temp, error) {
		if _, dup := m.byName[name]; dup {
			return 0, errors.New("register %s declared twice", name)
		}
		t := f.NewTemp()
		m.byName[name] = t
		m.names.Enter(t, name)
		return t, nil
	}
	for _, name := range spec.Registers {
		t, err := declare(name)
		if err != nil {
			return nil, err
		}
		m.regs = append(m.regs, t)
	}
	for _, name := range spec.Special {
		t, err := declare(name)
		if err != nil {
			return nil, err
		}
		m.special = append(m.special, t)
	}

	var err error
	if m.args, err = m.resolve(spec.Args); err != nil {
		return nil, err
	}
	if m.callers, err = m.resolve(spec.CallerSaves); err != nil {
		return nil, err
	}
	if m.callees, err = m.resolve(spec.CalleeSaves); err != nil {
		return nil, err
	}
	if m.sp, err = m.resolveOne(spec.StackPointer); err != nil {
		return nil, err
	}
	if m.fp, err = m.resolveOne(spec.FramePointer); err != nil {
		return nil, err
	}
	if m.rv, err = m.resolveOne(spec.ReturnValue); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Machine) resolve(names []string) ([]temp.Temp, error) {
	ts := make([]temp.Temp, 0, len(names))
	for _, name := range names {
		t, ok := m.byName[name]
		if !ok {
			return nil, errors.New("unknown register %s", name)
		}
		ts = append(ts, t)
	}
	return ts, nil
}

// resolveOne maps an optional register name; the empty name means "none" (temp 0)
func (m *Machine) resolveOne(name string) (temp.Temp, error) {
	if name == "" {
		return 0, nil
	}
	t, ok := m.byName[name]
	if !ok {
		return 0, errors.New("unknown register %s", name)
	}
	return t, nil
}

func (m *Machine) Registers() []temp.Temp { return m.regs }
func (m *Machine) SpecialRegisters() []temp.Temp { return m.special }
func (m *Machine) ArgRegs() []temp.Temp { return m.args }
func (m *Machine) CallerSaves() []temp.Temp { return m.callers }
func (m *Machine) CalleeSaves() []temp.Temp { return m.callees }
func (m *Machine) RegisterCount() int { return len(m.regs) }
func (m *Machine) WordSize() int { return m.word }
func (m *Machine) StackPointer() temp.Temp { return m.sp }
func (m *Machine) FramePointer() temp.Temp { return m.fp }
func (m *Machine) ReturnValue() temp.Temp { return m.rv }
func (m *Machine) Names() *temp.Map { return m.names }

// ReturnSink is the callee-saved set plus the return value and stack pointer
func (m *Machine) ReturnSink() []temp.Temp {
	sink := append([]temp.Temp(nil), m.callees...)
	for _, t := range []temp.Temp{m.rv, m.sp} {
		if t != 0 {
			sink = append(sink, t)
		}
	}
	return sink
}

// Lookup finds a machine register by name
func (m *Machine) Lookup(name string) (temp.Temp, bool) {
	t, ok := m.byName[name]
	return t, ok
}

// IsMachineRegister reports whether t is one of this machine's registers
func IsMachineRegister(regs RegManager, t temp.Temp) bool {
	_, ok := regs.Names().Look(t)
	return ok
}

// X64Spec is the x86-64 register file. %rsp is addressable but never allocated.
var X64Spec = MachineSpec{
	Registers: []string{
		"%rax", "%rbx", "%rcx", "%rdx", "%rsi", "%rdi", "%rbp",
		"%r8", "%r9", "%r10", "%r11", "%r12", "%r13", "%r14", "%r15",
	},
	Special:      []string{"%rsp"},
	Args:         []string{"%rdi", "%rsi", "%rdx", "%rcx", "%r8", "%r9"},
	CallerSaves:  []string{"%rax", "%r8", "%r9", "%r10", "%r11", "%rdi", "%rsi", "%rdx", "%rcx"},
	CalleeSaves:  []string{"%rbx", "%rbp", "%r12", "%r13", "%r14", "%r15"},
	StackPointer: "%rsp",
	FramePointer: "%rbp",
	ReturnValue:  "%rax",
	WordSize:     8,
}

// NewX64 creates the x86-64 machine
func NewX64(f *temp.Factory) *Machine {
	m, err := NewMachine(f, X64Spec)
	if err != nil {
		panic("frame: bad built-in x64 spec: " + err.Error())
	}
	return m
}
