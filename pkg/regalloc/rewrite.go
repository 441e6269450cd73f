package regalloc

import (
	"github.com/ghazariann/SJTU-compilers/pkg/assem"
	"github.com/ghazariann/SJTU-compilers/pkg/frame"
	"github.com/ghazariann/SJTU-compilers/pkg/temp"
)

// rewriteProgram gives every spilled temp a stack slot and replaces it in
// each instruction that mentions it with a new temp, loaded from the slot
// before the instruction and stored back after it.
//
// The new temp is per instruction: the use and the def inside one
// instruction share it, but no two instructions do.
// It returns the new instruction list and the temps it created.
func rewriteProgram(instrs []assem.Instr, spilled []temp.Temp, fr *frame.Frame) ([]assem.Instr, []temp.Temp) {
	regs := fr.Regs()
	sp := regs.StackPointer()
	var created []temp.Temp

	for _, v := range spilled {
		addr := fr.AllocateLocal(true).Addressing(fr)
		out := make([]assem.Instr, 0, len(instrs)+4)
		for _, instr := range instrs {
			uses := assem.Contains(instr.Use(), v)
			defs := assem.Contains(instr.Def(), v)
			if !uses && !defs {
				out = append(out, instr)
				continue
			}

			n := fr.Factory().NewTemp()
			created = append(created, n)
			replaceTemp(instr, v, n)

			if uses {
				out = append(out, &assem.Oper{
					Assem: "movq " + addr + ", `d0",
					Dst:   []temp.Temp{n},
					Src:   withStackPointer(nil, sp),
				})
			}
			out = append(out, instr)
			if defs {
				out = append(out, &assem.Oper{
					Assem: "movq `s0, " + addr,
					Src:   withStackPointer([]temp.Temp{n}, sp),
				})
			}
		}
		instrs = out
	}
	return instrs, created
}

// replaceTemp substitutes n for v in fresh copies of the def and use lists
func replaceTemp(instr assem.Instr, v, n temp.Temp) {
	switch i := instr.(type) {
	case *assem.Move:
		i.Dst, i.Src = replaced(i.Dst, v, n), replaced(i.Src, v, n)
	case *assem.Oper:
		i.Dst, i.Src = replaced(i.Dst, v, n), replaced(i.Src, v, n)
	}
}

func replaced(ts []temp.Temp, v, n temp.Temp) []temp.Temp {
	if !assem.Contains(ts, v) {
		return ts
	}
	out := append([]temp.Temp(nil), ts...)
	assem.Replace(out, v, n)
	return out
}

// withStackPointer appends the stack pointer to a load or store's uses when the machine has one
func withStackPointer(ts []temp.Temp, sp temp.Temp) []temp.Temp {
	if sp != 0 {
		ts = append(ts, sp)
	}
	return ts
}
