// Package manifest describes the durable record of a migration run: the
// identifier maps of every entity type and the references that wait for
// (or went through) the patch pass. A manifest is what makes a run
// resumable and auditable.
package manifest

import (
	"maps"
	"slices"
	"time"

	"github.com/tmforge/tmmigrate/pkg/entity"
	"github.com/tmforge/tmmigrate/pkg/idmap"
)

// Version of the manifest layout.
const Version = 1

// Manifest is the persisted state of a migration run.
type Manifest struct {
	Version int `yaml:"version"`

	// RunID is derived from source and target, it is the same for every
	// attempt of the same migration.
	RunID string `yaml:"run_id"`

	// AttemptID is unique for every invocation that saved the manifest.
	AttemptID string `yaml:"attempt_id"`

	Source string `yaml:"source"`
	Target string `yaml:"target"`

	StartedAt time.Time `yaml:"started_at"`
	UpdatedAt time.Time `yaml:"updated_at"`

	// Completed lists types whose stage finished.
	Completed []entity.Type `yaml:"completed"`

	// Patched is true after a patch pass without failures.
	Patched bool `yaml:"patched"`

	Maps map[entity.Type][]idmap.Pair `yaml:"maps"`

	Deferred []entity.DeferredRef `yaml:"deferred"`

	// idx maps DeferredRef.ID to its position in Deferred.
	idx map[string]int
}

// New creates an empty manifest.
func New(runID, attemptID, source, target string, now time.Time) *Manifest {
	return &Manifest{
		Version:   Version,
		RunID:     runID,
		AttemptID: attemptID,
		Source:    source,
		Target:    target,
		StartedAt: now.UTC(),
		UpdatedAt: now.UTC(),
		Maps:      make(map[entity.Type][]idmap.Pair),
	}
}

// Capture copies all identifier map entries into the manifest.
func (m *Manifest) Capture(ids *idmap.Map) {
	if m.Maps == nil {
		m.Maps = make(map[entity.Type][]idmap.Pair)
	}
	for _, t := range ids.Types() {
		m.Maps[t] = ids.Pairs(t)
	}
}

// Seed loads manifest entries into an identifier map.
func (m *Manifest) Seed(ids *idmap.Map) error {
	for _, t := range m.Types() {
		if err := ids.Seed(t, m.Maps[t]); err != nil {
			return err
		}
	}
	return nil
}

// AddDeferred adds references that are not known yet. A reference of the
// same record and field replaces the old one.
func (m *Manifest) AddDeferred(refs ...entity.DeferredRef) {
	if m.idx == nil || len(m.idx) != len(m.Deferred) {
		m.idx = make(map[string]int, len(m.Deferred))
		for i, v := range m.Deferred {
			m.idx[v.ID()] = i
		}
	}
	for _, v := range refs {
		if i, ok := m.idx[v.ID()]; ok {
			m.Deferred[i] = v
			continue
		}
		m.idx[v.ID()] = len(m.Deferred)
		m.Deferred = append(m.Deferred, v)
	}
}

// MarkCompleted records that the stage of the type finished.
func (m *Manifest) MarkCompleted(t entity.Type) {
	if !slices.Contains(m.Completed, t) {
		m.Completed = append(m.Completed, t)
	}
}

// IsCompleted tells if the stage of the type finished in some attempt.
func (m *Manifest) IsCompleted(t entity.Type) bool {
	return slices.Contains(m.Completed, t)
}

// Types returns types with entries sorted by name.
func (m *Manifest) Types() []entity.Type {
	return slices.Sorted(maps.Keys(m.Maps))
}

// Stats summarizes the manifest.
type Stats struct {
	Pairs    map[entity.Type]int
	Deferred map[string]int
	Total    int
}

// Stats counts pairs per type and deferred references per relation.
func (m *Manifest) Stats() Stats {
	res := Stats{
		Pairs:    make(map[entity.Type]int),
		Deferred: make(map[string]int),
	}
	for k, v := range m.Maps {
		res.Pairs[k] = len(v)
		res.Total += len(v)
	}
	for _, v := range m.Deferred {
		res.Deferred[string(v.Type)+"."+v.Field]++
	}
	return res
}

// Validate checks that keys are unique per type and that every deferred
// reference belongs to a mapped record.
func (m *Manifest) Validate() error {
	if m.Version != Version {
		return VersionError(m.Version)
	}
	news := make(map[entity.Type]map[string]struct{})
	for t, pairs := range m.Maps {
		ids := idmap.New()
		if err := ids.Seed(t, pairs); err != nil {
			return InvalidError(err)
		}
		news[t] = make(map[string]struct{}, len(pairs))
		for _, p := range pairs {
			news[t][p.New] = struct{}{}
		}
	}
	for _, v := range m.Deferred {
		if _, ok := news[v.Type][v.NewKey]; !ok {
			return UnknownRecordError(v)
		}
	}
	return nil
}
