// Package report aggregates outcomes of a migration run: per-type counts,
// patch pass results, index results and samples of non-fatal errors.
package report

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/tmforge/tmmigrate/pkg/entity"
)

// Category of a non-fatal error.
type Category string

const (
	Transform Category = "transform"
	Write     Category = "write"
	Patch     Category = "patch"
)

// Sample keeps the details of one non-fatal error.
type Sample struct {
	Category Category
	Type     entity.Type
	Key      string
	Message  string
}

// TypeStats are counts of one entity type. When a stage finishes,
// Migrated+Resumed+Skipped+Errored equals Total.
type TypeStats struct {
	// Total is the number of records read from the source.
	Total int
	// Migrated records were written in this run.
	Migrated int
	// Resumed records were already written by a previous run.
	Resumed int
	// Skipped records failed the transformation.
	Skipped int
	// Errored records failed to be written.
	Errored int
	// Dangling counts nulled references to records that were never
	// migrated.
	Dangling int
}

// PatchStats are results of the patch pass.
type PatchStats struct {
	// Patched is the number of (record, field) updates that succeeded.
	Patched int
	// Broken is the number of old keys dropped because they had no mapping.
	Broken int
	// Failed is the number of (record, field) updates that failed.
	Failed int
}

// Report is concurrency-safe.
type Report struct {
	mu sync.Mutex

	RunID      string
	DryRun     bool
	StartedAt  time.Time
	FinishedAt time.Time

	// Aborted is set when the run stopped before finishing all steps.
	Aborted bool

	Patch PatchStats

	// IndexesCreated is the number of new indexes.
	IndexesCreated int

	types       map[entity.Type]*TypeStats
	order       []entity.Type
	samples     []Sample
	sampleLimit int
	sampleCount map[string]int
}

// New creates a Report that keeps at most sampleLimit samples per type
// and category.
func New(runID string, sampleLimit int, now time.Time) *Report {
	return &Report{
		RunID:       runID,
		StartedAt:   now,
		types:       make(map[entity.Type]*TypeStats),
		sampleLimit: sampleLimit,
		sampleCount: make(map[string]int),
	}
}

func (r *Report) stats(t entity.Type) *TypeStats {
	res, ok := r.types[t]
	if !ok {
		res = &TypeStats{}
		r.types[t] = res
		r.order = append(r.order, t)
	}
	return res
}

func (r *Report) update(t entity.Type, fn func(*TypeStats)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r.stats(t))
}

// AddTotal counts records read from the source.
func (r *Report) AddTotal(t entity.Type, n int) {
	r.update(t, func(s *TypeStats) { s.Total += n })
}

// AddMigrated counts written records.
func (r *Report) AddMigrated(t entity.Type, n int) {
	r.update(t, func(s *TypeStats) { s.Migrated += n })
}

// AddResumed counts records written by a previous run.
func (r *Report) AddResumed(t entity.Type, n int) {
	r.update(t, func(s *TypeStats) { s.Resumed += n })
}

// AddDangling counts nulled references.
func (r *Report) AddDangling(t entity.Type, n int) {
	r.update(t, func(s *TypeStats) { s.Dangling += n })
}

// AddSkipped counts a record that failed the transformation.
func (r *Report) AddSkipped(t entity.Type, key string, err error) {
	r.update(t, func(s *TypeStats) { s.Skipped++ })
	r.sample(Transform, t, key, err)
}

// AddErrored counts a record that failed to be written.
func (r *Report) AddErrored(t entity.Type, key string, err error) {
	r.update(t, func(s *TypeStats) { s.Errored++ })
	r.sample(Write, t, key, err)
}

// AddPatched counts a successful patch and broken references it dropped.
func (r *Report) AddPatched(broken int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Patch.Patched++
	r.Patch.Broken += broken
}

// AddPatchFailed counts a patch that failed after all attempts.
func (r *Report) AddPatchFailed(t entity.Type, key string, err error) {
	r.mu.Lock()
	r.Patch.Failed++
	r.mu.Unlock()
	r.sample(Patch, t, key, err)
}

// SetIndexesCreated records the number of new indexes.
func (r *Report) SetIndexesCreated(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.IndexesCreated = n
}

// Abort marks the run as not finished.
func (r *Report) Abort() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Aborted = true
}

// Finish sets the end time.
func (r *Report) Finish(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.FinishedAt = now
}

func (r *Report) sample(c Category, t entity.Type, key string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := string(c) + "|" + string(t)
	if r.sampleCount[id] >= r.sampleLimit {
		return
	}
	r.sampleCount[id]++
	r.samples = append(r.samples, Sample{
		Category: c,
		Type:     t,
		Key:      key,
		Message:  err.Error(),
	})
}

// Types returns types in the order they were first reported.
func (r *Report) Types() []entity.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.order)
}

// Stats returns a copy of counts of the type.
func (r *Report) Stats(t entity.Type) TypeStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	if res, ok := r.types[t]; ok {
		return *res
	}
	return TypeStats{}
}

// Samples returns collected error samples.
func (r *Report) Samples() []Sample {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.samples)
}

// Totals sums counts of all types.
func (r *Report) Totals() TypeStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res TypeStats
	for _, v := range r.types {
		res.Total += v.Total
		res.Migrated += v.Migrated
		res.Resumed += v.Resumed
		res.Skipped += v.Skipped
		res.Errored += v.Errored
		res.Dangling += v.Dangling
	}
	return res
}

// Check verifies that every record read is accounted for.
func (r *Report) Check() error {
	for _, t := range r.Types() {
		s := r.Stats(t)
		sum := s.Migrated + s.Resumed + s.Skipped + s.Errored
		if sum != s.Total {
			return fmt.Errorf(
				"%s: migrated %d + resumed %d + skipped %d + errored %d != total %d",
				t, s.Migrated, s.Resumed, s.Skipped, s.Errored, s.Total,
			)
		}
	}
	return nil
}

// Failed tells if the run must end with a non-zero exit code.
func (r *Report) Failed() bool {
	tot := r.Totals()
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Aborted || tot.Errored > 0 || r.Patch.Failed > 0
}
