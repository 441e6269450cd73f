// Package temp defines temporaries and labels, the symbolic storage locations and
// branch targets that instruction selection emits before register allocation.
// Temporaries are compared by identity: two temps are the same iff their IDs match.
package temp

import (
	"fmt"
	"sync/atomic"
)

// Temp is a value-holding location: either a machine register (precolored)
// or a virtual register introduced by instruction selection.
type Temp int

// Label names a position in an instruction list.
type Label string

func (t Temp) String() string {
	return fmt.Sprintf("t%d", int(t))
}

// Factory hands out fresh temps and labels.
// It is safe for concurrent use; uniqueness is all that is guaranteed, not ordering.
type Factory struct {
	temps  atomic.Int64
	labels atomic.Int64
}

// firstTemp leaves low numbers free so hand-written test programs never collide.
const firstTemp = 100

// NewFactory creates a factory whose first temp is t100 and first label L0
func NewFactory() *Factory {
	f := &Factory{}
	f.temps.Store(firstTemp)
	return f
}

// NewTemp returns a temp never returned before by this factory
func (f *Factory) NewTemp() Temp {
	return Temp(f.temps.Add(1) - 1)
}

// NewLabel returns a fresh label of the form L<n>
func (f *Factory) NewLabel() Label {
	return Label(fmt.Sprintf("L%d", f.labels.Add(1)-1))
}

// NamedLabel returns a label with a caller-chosen name (function entry points)
func NamedLabel(name string) Label {
	return Label(name)
}
