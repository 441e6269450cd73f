package temp

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactoryUniqueUnderConcurrency(t *testing.T) {
	f := NewFactory()
	const workers, perWorker = 8, 500

	var mu sync.Mutex
	seen := NewSet()
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]Temp, 0, perWorker)
			for i := 0; i < perWorker; i++ {
				local = append(local, f.NewTemp())
			}
			mu.Lock()
			for _, tmp := range local {
				seen.Add(tmp)
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, seen, workers*perWorker)
}

func TestFactoryLabels(t *testing.T) {
	f := NewFactory()
	assert.Equal(t, Label("L0"), f.NewLabel())
	assert.Equal(t, Label("L1"), f.NewLabel())
	assert.Equal(t, Label("main"), NamedLabel("main"))
}

func TestMapLayer(t *testing.T) {
	regs := NewMap()
	regs.Enter(1, "%rax")

	coloring := NewMap()
	coloring.Enter(100, "%rbx")

	m := coloring.Layer(regs)
	name, ok := m.Look(100)
	require.True(t, ok)
	assert.Equal(t, "%rbx", name)
	assert.Equal(t, "%rax", m.Name(1))
	assert.Equal(t, "t7", m.Name(7))

	_, ok = coloring.Look(1)
	assert.False(t, ok, "the top layer alone must not see the layer beneath")
}
