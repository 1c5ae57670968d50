package tension

import (
	"sort"
	"sync"

	"github.com/tautline/taut/internal/graph"
)

// Manager tracks a set of live units and keeps their tensions current.
// It is safe for concurrent use.
type Manager struct {
	mu    sync.RWMutex
	cfg   Config
	units map[string]*graph.Unit
}

// NewManager returns an empty registry using the given weights.
func NewManager(cfg Config) *Manager {
	return &Manager{cfg: cfg, units: make(map[string]*graph.Unit)}
}

// Register adds or replaces a unit and recomputes its tension.
func (m *Manager) Register(u *graph.Unit) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.Tension = UnitTension(u, m.cfg)
	m.units[u.ID] = u
}

// Unregister removes a unit. Unknown ids are a no-op.
func (m *Manager) Unregister(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.units, id)
}

// Get returns the registered unit with the given id, or nil.
func (m *Manager) Get(id string) *graph.Unit {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.units[id]
}

// UpdateAll recomputes tension for every registered unit and returns
// the new values keyed by unit id.
func (m *Manager) UpdateAll() map[string]float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]float64, len(m.units))
	for id, u := range m.units {
		u.Tension = UnitTension(u, m.cfg)
		out[id] = u.Tension
	}
	return out
}

// Highest returns the registered unit with the greatest tension, or nil
// when the registry is empty. Ties break on the lexically smaller id so
// repeated calls agree.
func (m *Manager) Highest() *graph.Unit {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var best *graph.Unit
	for _, u := range m.units {
		if best == nil || u.Tension > best.Tension ||
			(u.Tension == best.Tension && u.ID < best.ID) {
			best = u
		}
	}
	return best
}

// AboveThreshold returns units whose tension meets or exceeds the
// threshold, sorted by descending tension then id.
func (m *Manager) AboveThreshold(threshold float64) []*graph.Unit {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*graph.Unit
	for _, u := range m.units {
		if u.Tension >= threshold {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Tension != out[j].Tension {
			return out[i].Tension > out[j].Tension
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Resolve settles a registered unit: tension to 0.1, nodes completed.
// Returns false when the id is unknown.
func (m *Manager) Resolve(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.units[id]
	if !ok {
		return false
	}
	u.Resolve()
	return true
}

// Len reports how many units are registered.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.units)
}
