package liveness

import (
	"fmt"
	"io"

	svg "github.com/ajstarks/svgo"
	"github.com/ghazariann/SJTU-compilers/pkg/assem"
	"github.com/ghazariann/SJTU-compilers/pkg/temp"
)

const (
	rowHeight = 24
	top       = 100
)

// DrawLiveRanges writes an SVG chart with one row per instruction and one
// column per temporary. A temporary's column is marked at every instruction
// where it is defined (hollow) or live on entry (filled).
func DrawLiveRanges(w io.Writer, instrs []assem.Instr, lm *LiveMap, names *temp.Map) {
	all := temp.NewSet()
	maxText := 0
	text := make([]string, len(instrs))
	for i, instr := range instrs {
		text[i] = assem.Format(instr, names)
		if len(text[i]) > maxText {
			maxText = len(text[i])
		}
		all = all.Union(lm.In[i]).Union(temp.NewSet(instr.Def()...))
	}
	temps := all.Slice()

	maxName := 0
	for _, t := range temps {
		if n := len(names.Name(t)); n > maxName {
			maxName = n
		}
	}
	insw := maxText*9 + 120
	regw := (maxName+1)*8 + 16
	width := len(temps)*regw + insw + 100

	p := svg.New(w)
	p.Start(width, len(instrs)*rowHeight+top)
	p.Rect(0, 0, width, len(instrs)*rowHeight+top, "fill:white")

	row := func(i int) int { return top - 5 + i*rowHeight }
	for i := range instrs {
		p.Text(16, top+i*rowHeight, fmt.Sprint(i), "fill:gray;font-size:16px;font-family:monospace")
		p.Text(insw, top+i*rowHeight, text[i], "fill:black;font-size:16px;font-family:monospace;text-anchor:end")
		p.Line(insw+10, row(i), width-50, row(i), "stroke:lightgray")
	}

	for c, t := range temps {
		x := insw + c*regw + 50
		p.Text(x, 70, names.Name(t), "fill:black;font-size:16px;font-family:monospace;text-anchor:middle")

		var rows, defs []int
		for i, instr := range instrs {
			if assem.Contains(instr.Def(), t) {
				defs = append(defs, i)
			} else if lm.In[i].Contains(t) {
				rows = append(rows, i)
			}
		}
		first, last := span(rows, defs)
		if last > first {
			p.Line(x, row(first), x, row(last), "stroke:black;stroke-width:3")
		}
		for _, i := range rows {
			p.Circle(x, row(i), 4, "fill:black;stroke:black;stroke-width:2")
		}
		for _, i := range defs {
			p.Circle(x, row(i), 4, "fill:white;stroke:black;stroke-width:2")
		}
	}
	p.End()
}

// span returns the smallest and largest index in either list
func span(a, b []int) (first, last int) {
	first, last = -1, -1
	for _, l := range [][]int{a, b} {
		for _, i := range l {
			if first < 0 || i < first {
				first = i
			}
			if i > last {
				last = i
			}
		}
	}
	return first, last
}
