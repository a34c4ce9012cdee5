// Package idmap keeps the correspondence between old (source) keys and new
// (target) keys for every entity type. Entries are created once and never
// change or disappear.
package idmap

import (
	"slices"
	"sync"

	"github.com/tmforge/tmmigrate/pkg/entity"
)

// Pair is one identifier map entry.
type Pair struct {
	Old string `yaml:"old" json:"old"`
	New string `yaml:"new" json:"new"`
}

// Map is a concurrency-safe identifier map.
type Map struct {
	mu  sync.RWMutex
	fwd map[entity.Type]map[string]string
	rev map[entity.Type]map[string]string
	// order keeps insertion order of old keys per type.
	order map[entity.Type][]string
}

// New creates an empty Map.
func New() *Map {
	return &Map{
		fwd:   make(map[entity.Type]map[string]string),
		rev:   make(map[entity.Type]map[string]string),
		order: make(map[entity.Type][]string),
	}
}

// Put adds an entry. It fails if the old key or the new key is already
// registered for the type.
func (m *Map) Put(t entity.Type, oldKey, newKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.put(t, oldKey, newKey)
}

func (m *Map) put(t entity.Type, oldKey, newKey string) error {
	fwd, ok := m.fwd[t]
	if !ok {
		fwd = make(map[string]string)
		m.fwd[t] = fwd
		m.rev[t] = make(map[string]string)
	}
	rev := m.rev[t]

	if prev, ok := fwd[oldKey]; ok {
		return DuplicateOldKeyError(t, oldKey, prev)
	}
	if prev, ok := rev[newKey]; ok {
		return DuplicateNewKeyError(t, newKey, prev)
	}
	fwd[oldKey] = newKey
	rev[newKey] = oldKey
	m.order[t] = append(m.order[t], oldKey)
	return nil
}

// Seed loads entries persisted by a previous run.
func (m *Map) Seed(t entity.Type, pairs []Pair) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range pairs {
		if err := m.put(t, p.Old, p.New); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the new key of an old key.
func (m *Map) Get(t entity.Type, oldKey string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res, ok := m.fwd[t][oldKey]
	return res, ok
}

// Has reports if the old key is already migrated.
func (m *Map) Has(t entity.Type, oldKey string) bool {
	_, ok := m.Get(t, oldKey)
	return ok
}

// Old returns the old key of a new key.
func (m *Map) Old(t entity.Type, newKey string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res, ok := m.rev[t][newKey]
	return res, ok
}

// Len returns the number of entries of the type.
func (m *Map) Len(t entity.Type) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.fwd[t])
}

// Pairs returns entries of the type in insertion order.
func (m *Map) Pairs(t entity.Type) []Pair {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]Pair, 0, len(m.order[t]))
	for _, k := range m.order[t] {
		res = append(res, Pair{Old: k, New: m.fwd[t][k]})
	}
	return res
}

// Types returns types that have at least one entry, sorted by name.
func (m *Map) Types() []entity.Type {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var res []entity.Type
	for k, v := range m.fwd {
		if len(v) > 0 {
			res = append(res, k)
		}
	}
	slices.Sort(res)
	return res
}
