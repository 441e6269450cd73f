package frame

const stackAlignment = 16

// x86-64 frame layout (called procedure's view), no frame pointer:
//
//	+---------------------------+  <- %rsp + framesize (caller's %rsp after the call)
//	| return address            |
//	+---------------------------+
//	| locals and spill slots    |  (framesize-8), (framesize-16), ...
//	| outgoing arguments        |  beyond the sixth argument register
//	+---------------------------+  <- %rsp (16-byte aligned at call sites)
//
// Slots are addressed as (name_framesize-off)(%rsp) so that code can be emitted
// before the final size is known.

// Layout describes the concrete frame size of a procedure
type Layout struct {
	LocalSize    int // bytes for locals and spill slots
	OutgoingSize int // bytes for stack-passed call arguments
	TotalSize    int // aligned size subtracted from %rsp in the prologue
}

// Layout computes the frame size from the slots allocated so far
func (f *Frame) Layout() *Layout {
	f.mu.Lock()
	defer f.mu.Unlock()

	word := f.regs.WordSize()
	l := &Layout{LocalSize: f.locals * word}

	// Arguments beyond the argument registers go on the stack
	if extra := f.maxOutgoing - len(f.regs.ArgRegs()); extra > 0 {
		l.OutgoingSize = extra * word
	}

	// The call pushed a return address, so the body must leave %rsp aligned
	// once that word is accounted for.
	body := l.LocalSize + l.OutgoingSize
	l.TotalSize = alignUp(body+word, stackAlignment) - word
	return l
}

// alignUp rounds n up to the next multiple of align
func alignUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}
