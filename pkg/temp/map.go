package temp

import "sync"

// Map associates temps with printable names: register names for machine
// registers, and after allocation the register chosen for every virtual temp.
type Map struct {
	mu    sync.RWMutex
	names map[Temp]string
	under *Map
}

// NewMap creates an empty map
func NewMap() *Map {
	return &Map{names: make(map[Temp]string)}
}

// Layer returns a map that consults m first and falls back to under
func (m *Map) Layer(under *Map) *Map {
	return &Map{names: m.snapshot(), under: under}
}

func (m *Map) snapshot() map[Temp]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make(map[Temp]string, len(m.names))
	for t, n := range m.names {
		names[t] = n
	}
	return names
}

// Enter names t
func (m *Map) Enter(t Temp, name string) {
	m.mu.Lock()
	m.names[t] = name
	m.mu.Unlock()
}

// Look returns the name of t, searching layered maps
func (m *Map) Look(t Temp) (string, bool) {
	for cur := m; cur != nil; cur = cur.under {
		cur.mu.RLock()
		name, ok := cur.names[t]
		cur.mu.RUnlock()
		if ok {
			return name, true
		}
	}
	return "", false
}

// Name returns the name of t, or its default spelling t<N> when unnamed
func (m *Map) Name(t Temp) string {
	if m != nil {
		if name, ok := m.Look(t); ok {
			return name
		}
	}
	return t.String()
}

// Len returns the number of names in the top layer
func (m *Map) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.names)
}

// Temps returns the temps named in the top layer, sorted by ID
func (m *Map) Temps() []Temp {
	m.mu.RLock()
	s := make(Set, len(m.names))
	for t := range m.names {
		s.Add(t)
	}
	m.mu.RUnlock()
	return s.Slice()
}
