// Package asmfile reads procedures in selected-instruction form from YAML.
//
//	procedures:
//	  - name: f
//	    machine: {registers: [R0, R1], special: [SP], stack_pointer: SP}
//	    outgoing_args: 8
//	    instructions:
//	      - label: L1
//	      - move: "movq `s0, `d0"
//	        dst: [a]
//	        src: [b]
//	      - oper: "jne `j0"
//	        src: [a]
//	        jumps: [L1]
//
// Operand names that are machine registers become the precolored temps of
// the machine; every other name becomes one fresh temp per procedure.
// Procedures without a machine use x86-64.
package asmfile

import (
	"bytes"
	"io"
	"os"

	"github.com/ghazariann/SJTU-compilers/pkg/assem"
	"github.com/ghazariann/SJTU-compilers/pkg/frame"
	"github.com/ghazariann/SJTU-compilers/pkg/temp"
	"gopkg.in/yaml.v3"
	"tlog.app/go/errors"
)

// File is the document layout
type File struct {
	Procedures []ProcedureSpec `yaml:"procedures"`
}

// ProcedureSpec is one procedure as written
type ProcedureSpec struct {
	Name         string             `yaml:"name"`
	Machine      *frame.MachineSpec `yaml:"machine,omitempty"`
	OutgoingArgs int                `yaml:"outgoing_args,omitempty"`
	Instructions []InstrSpec        `yaml:"instructions"`
}

// InstrSpec is one instruction as written. Exactly one of Label, Move and Oper is set.
type InstrSpec struct {
	Label string   `yaml:"label,omitempty"`
	Move  string   `yaml:"move,omitempty"`
	Oper  string   `yaml:"oper,omitempty"`
	Dst   []string `yaml:"dst,omitempty"`
	Src   []string `yaml:"src,omitempty"`
	Jumps []string `yaml:"jumps,omitempty"`
}

// Procedure is a procedure ready for allocation
type Procedure struct {
	Name    string
	Machine *frame.Machine
	Instrs  []assem.Instr
	// Names spells virtual temps as they were written, falling back to register names
	Names *temp.Map
	// OutgoingArgs is the largest argument count of any call the procedure makes
	OutgoingArgs int
}

// LoadFile reads and parses path
func LoadFile(path string, f *temp.Factory) ([]*Procedure, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read %s", path)
	}
	procs, err := Parse(bytes.NewReader(data), f)
	if err != nil {
		return nil, errors.Wrap(err, "%s", path)
	}
	return procs, nil
}

// Parse decodes a document and builds its procedures, drawing temps from f
func Parse(r io.Reader, f *temp.Factory) ([]*Procedure, error) {
	var file File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, errors.Wrap(err, "decode")
	}

	var x64 *frame.Machine
	procs := make([]*Procedure, 0, len(file.Procedures))
	for i, spec := range file.Procedures {
		if spec.Name == "" {
			return nil, errors.New("procedure %d has no name", i)
		}

		var m *frame.Machine
		if spec.Machine != nil {
			var err error
			if m, err = frame.NewMachine(f, *spec.Machine); err != nil {
				return nil, errors.Wrap(err, "procedure %s: machine", spec.Name)
			}
		} else {
			if x64 == nil {
				x64 = frame.NewX64(f)
			}
			m = x64
		}

		p, err := build(spec, m, f)
		if err != nil {
			return nil, errors.Wrap(err, "procedure %s", spec.Name)
		}
		procs = append(procs, p)
	}
	return procs, nil
}

func build(spec ProcedureSpec, m *frame.Machine, f *temp.Factory) (*Procedure, error) {
	p := &Procedure{
		Name:         spec.Name,
		Machine:      m,
		Names:        temp.NewMap(),
		OutgoingArgs: spec.OutgoingArgs,
	}
	if spec.OutgoingArgs < 0 {
		return nil, errors.New("negative outgoing_args %d", spec.OutgoingArgs)
	}
	temps := make(map[string]temp.Temp)
	resolve := func(names []string) []temp.Temp {
		if len(names) == 0 {
			return nil
		}
		ts := make([]temp.Temp, len(names))
		for i, name := range names {
			if r, ok := m.Lookup(name); ok {
				ts[i] = r
				continue
			}
			t, ok := temps[name]
			if !ok {
				t = f.NewTemp()
				temps[name] = t
				p.Names.Enter(t, name)
			}
			ts[i] = t
		}
		return ts
	}

	for i, is := range spec.Instructions {
		kinds := 0
		for _, s := range []string{is.Label, is.Move, is.Oper} {
			if s != "" {
				kinds++
			}
		}
		if kinds != 1 {
			return nil, errors.New("instruction %d: want exactly one of label, move and oper", i)
		}

		switch {
		case is.Label != "":
			if len(is.Dst)+len(is.Src)+len(is.Jumps) > 0 {
				return nil, errors.New("instruction %d: label %s has operands", i, is.Label)
			}
			p.Instrs = append(p.Instrs, assem.NewLabel(temp.NamedLabel(is.Label)))
		case is.Move != "":
			if len(is.Dst) != 1 || len(is.Src) != 1 || len(is.Jumps) != 0 {
				return nil, errors.New("instruction %d: move %q needs one dst, one src and no jumps", i, is.Move)
			}
			p.Instrs = append(p.Instrs, &assem.Move{Assem: is.Move, Dst: resolve(is.Dst), Src: resolve(is.Src)})
		default:
			o := &assem.Oper{Assem: is.Oper, Dst: resolve(is.Dst), Src: resolve(is.Src)}
			for _, j := range is.Jumps {
				o.Jumps = append(o.Jumps, temp.NamedLabel(j))
			}
			p.Instrs = append(p.Instrs, o)
		}
	}

	if err := checkLabels(p.Instrs); err != nil {
		return nil, err
	}
	p.Names = p.Names.Layer(m.Names())
	return p, nil
}

// checkLabels rejects jumps to labels the procedure does not define
func checkLabels(instrs []assem.Instr) error {
	defined := make(map[temp.Label]bool)
	for _, instr := range instrs {
		if l, ok := instr.(*assem.Label); ok {
			if defined[l.Label] {
				return errors.New("label %s defined twice", l.Label)
			}
			defined[l.Label] = true
		}
	}
	for _, instr := range instrs {
		for _, j := range assem.Jumps(instr) {
			if !defined[j] {
				return errors.New("jump to undefined label %s", j)
			}
		}
	}
	return nil
}
