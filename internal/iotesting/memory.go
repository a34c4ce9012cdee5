package iotesting

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"maps"
	"slices"
	"sync"

	"github.com/tmforge/tmmigrate/pkg/entity"
	"github.com/tmforge/tmmigrate/pkg/index"
	"github.com/tmforge/tmmigrate/pkg/manifest"
	"github.com/tmforge/tmmigrate/pkg/migrate"
	"gopkg.in/yaml.v3"
)

// ErrInjected is returned by failures configured in fakes.
var ErrInjected = errors.New("injected failure")

// MemSource is an in-memory legacy store.
type MemSource struct {
	mu      sync.Mutex
	records map[entity.Type]map[string]entity.Record

	// FailAfter, when positive, makes Read yield an error after that many
	// records of the type.
	FailAfter map[entity.Type]int
	// Truncate, when positive, makes Read end without an error that many
	// records before the end of the type.
	Truncate map[entity.Type]int
}

// NewMemSource creates a source with the given records.
func NewMemSource(recs ...entity.Record) *MemSource {
	res := &MemSource{
		records:   make(map[entity.Type]map[string]entity.Record),
		FailAfter: make(map[entity.Type]int),
		Truncate:  make(map[entity.Type]int),
	}
	res.Add(recs...)
	return res
}

// Add puts records into the source.
func (s *MemSource) Add(recs ...entity.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range recs {
		if _, ok := s.records[v.Type]; !ok {
			s.records[v.Type] = make(map[string]entity.Record)
		}
		s.records[v.Type][v.Key] = v
	}
}

func (s *MemSource) Read(
	ctx context.Context,
	t entity.Type,
	cursor string,
) iter.Seq2[entity.Record, error] {
	return func(yield func(entity.Record, error) bool) {
		s.mu.Lock()
		keys := slices.Sorted(maps.Keys(s.records[t]))
		recs := make([]entity.Record, 0, len(keys))
		for _, k := range keys {
			if k > cursor {
				recs = append(recs, s.records[t][k])
			}
		}
		failAfter := s.FailAfter[t]
		recs = recs[:len(recs)-min(max(s.Truncate[t], 0), len(recs))]
		s.mu.Unlock()

		for i, v := range recs {
			if err := ctx.Err(); err != nil {
				yield(entity.Record{}, err)
				return
			}
			if failAfter > 0 && i == failAfter {
				yield(entity.Record{}, fmt.Errorf("read %s: %w", t, ErrInjected))
				return
			}
			if !yield(v, nil) {
				return
			}
		}
	}
}

func (s *MemSource) Count(_ context.Context, t entity.Type) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records[t]), nil
}

func (s *MemSource) Close() error { return nil }

// MemTarget is an in-memory new store.
type MemTarget struct {
	mu      sync.Mutex
	docs    map[entity.Type]map[string]map[string]any
	seq     int
	indexes map[string]index.Spec

	// Inserts counts insert attempts per legacy key.
	Inserts map[string]int
	// Updates counts SetFields calls per "type|key".
	Updates map[string]int

	// FailInsert decides if a document fails to be written.
	FailInsert func(t entity.Type, legacyKey string, attempt int) bool
	// FailUpdate decides if a patch fails.
	FailUpdate func(t entity.Type, newKey string, attempt int) bool
}

// NewMemTarget creates an empty target.
func NewMemTarget() *MemTarget {
	return &MemTarget{
		docs:    make(map[entity.Type]map[string]map[string]any),
		indexes: make(map[string]index.Spec),
		Inserts: make(map[string]int),
		Updates: make(map[string]int),
	}
}

func (m *MemTarget) Insert(
	ctx context.Context,
	t entity.Type,
	docs []entity.Document,
) []migrate.WriteResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := make([]migrate.WriteResult, len(docs))
	if _, ok := m.docs[t]; !ok {
		m.docs[t] = make(map[string]map[string]any)
	}
	for i, d := range docs {
		if err := ctx.Err(); err != nil {
			res[i].Err = err
			continue
		}
		legacy, _ := d.Fields["legacyKey"].(string)
		id := string(t) + "|" + legacy
		m.Inserts[id]++
		if m.FailInsert != nil && m.FailInsert(t, legacy, m.Inserts[id]) {
			res[i].Err = fmt.Errorf("insert %s: %w", id, ErrInjected)
			continue
		}
		if legacy != "" && m.findLegacy(t, legacy) != "" {
			res[i].Err = fmt.Errorf("insert %s: duplicate legacyKey", id)
			continue
		}
		m.seq++
		key := fmt.Sprintf("%s-%06d", t, m.seq)
		doc := make(map[string]any, len(d.Fields)+len(d.Refs))
		maps.Copy(doc, d.Fields)
		for k, v := range d.Refs {
			doc[k] = v.Value()
		}
		m.docs[t][key] = doc
		res[i].NewKey = key
	}
	return res
}

func (m *MemTarget) findLegacy(t entity.Type, legacy string) string {
	for k, v := range m.docs[t] {
		if v["legacyKey"] == legacy {
			return k
		}
	}
	return ""
}

func (m *MemTarget) SetFields(
	ctx context.Context,
	t entity.Type,
	newKey string,
	fields map[string]any,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id := string(t) + "|" + newKey
	m.Updates[id]++
	if m.FailUpdate != nil && m.FailUpdate(t, newKey, m.Updates[id]) {
		return fmt.Errorf("update %s: %w", id, ErrInjected)
	}
	doc, ok := m.docs[t][newKey]
	if !ok {
		return fmt.Errorf("update %s: no such document", id)
	}
	maps.Copy(doc, fields)
	return nil
}

func (m *MemTarget) Existing(
	_ context.Context,
	t entity.Type,
) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := make(map[string]string)
	for k, v := range m.docs[t] {
		if legacy, ok := v["legacyKey"].(string); ok {
			res[legacy] = k
		}
	}
	return res, nil
}

func (m *MemTarget) EnsureIndexes(
	_ context.Context,
	specs []index.Spec,
) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res int
	for _, v := range specs {
		id := v.Collection() + "/" + v.Name()
		if _, ok := m.indexes[id]; ok {
			continue
		}
		m.indexes[id] = v
		res++
	}
	return res, nil
}

func (m *MemTarget) Close(context.Context) error { return nil }

// Docs returns copies of documents of the type keyed by new key.
func (m *MemTarget) Docs(t entity.Type) map[string]map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := make(map[string]map[string]any, len(m.docs[t]))
	for k, v := range m.docs[t] {
		res[k] = maps.Clone(v)
	}
	return res
}

// Indexes returns names of created indexes.
func (m *MemTarget) Indexes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Sorted(maps.Keys(m.indexes))
}

// MemManifestStore keeps a serialized manifest in memory.
type MemManifestStore struct {
	mu   sync.Mutex
	data []byte

	// Saves counts successful saves.
	Saves int
	// FailSave makes Save fail.
	FailSave bool
}

func NewMemManifestStore() *MemManifestStore {
	return &MemManifestStore{}
}

func (s *MemManifestStore) Load(context.Context) (*manifest.Manifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return nil, nil
	}
	var res manifest.Manifest
	if err := yaml.Unmarshal(s.data, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *MemManifestStore) Save(_ context.Context, m *manifest.Manifest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailSave {
		return fmt.Errorf("save manifest: %w", ErrInjected)
	}
	data, err := yaml.Marshal(m)
	if err != nil {
		return err
	}
	s.data = data
	s.Saves++
	return nil
}

func (s *MemManifestStore) Close() error { return nil }
