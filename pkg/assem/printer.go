package assem

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ghazariann/SJTU-compilers/pkg/temp"
)

// Format fills in the operand placeholders of an instruction's template.
// `dN, `sN and `jN refer to the N-th def, use and jump target.
func Format(instr Instr, names *temp.Map) string {
	tmpl := instr.Template()
	var sb strings.Builder
	for i := 0; i < len(tmpl); i++ {
		kind, n, width, ok := placeholder(tmpl[i:])
		if !ok {
			sb.WriteByte(tmpl[i])
			continue
		}
		switch kind {
		case 'd':
			sb.WriteString(operand(instr.Def(), n, names))
		case 's':
			sb.WriteString(operand(instr.Use(), n, names))
		case 'j':
			if jumps := Jumps(instr); n < len(jumps) {
				sb.WriteString(string(jumps[n]))
			} else {
				fmt.Fprintf(&sb, "<j%d?>", n)
			}
		}
		i += width - 1
	}
	return sb.String()
}

// placeholder parses a `dN, `sN or `jN at the start of s
func placeholder(s string) (kind byte, n, width int, ok bool) {
	if len(s) < 3 || s[0] != '`' {
		return 0, 0, 0, false
	}
	kind = s[1]
	if kind != 'd' && kind != 's' && kind != 'j' {
		return 0, 0, 0, false
	}
	width = 2
	for width < len(s) && s[width] >= '0' && s[width] <= '9' {
		width++
	}
	if width == 2 {
		return 0, 0, 0, false
	}
	n, err := strconv.Atoi(s[2:width])
	if err != nil {
		return 0, 0, 0, false
	}
	return kind, n, width, true
}

func operand(ts []temp.Temp, n int, names *temp.Map) string {
	if n >= len(ts) {
		return fmt.Sprintf("<%d?>", n)
	}
	return names.Name(ts[n])
}

// Printer writes instruction lists one instruction per line
type Printer struct {
	w     io.Writer
	names *temp.Map
}

// NewPrinter creates a printer that names temps through names (nil prints t<N>)
func NewPrinter(w io.Writer, names *temp.Map) *Printer {
	return &Printer{w: w, names: names}
}

// PrintList prints every instruction in order
func (p *Printer) PrintList(instrs []Instr) {
	for _, instr := range instrs {
		p.PrintInstr(instr)
	}
}

// PrintInstr prints a single instruction; labels are flush left, everything else indented
func (p *Printer) PrintInstr(instr Instr) {
	switch i := instr.(type) {
	case *Label:
		fmt.Fprintln(p.w, Format(i, p.names))
	default:
		fmt.Fprintf(p.w, "\t%s\n", Format(instr, p.names))
	}
}

// PrintProcedure prints a named procedure header followed by its body
func (p *Printer) PrintProcedure(name string, instrs []Instr) {
	fmt.Fprintf(p.w, "# procedure %s\n", name)
	p.PrintList(instrs)
}
