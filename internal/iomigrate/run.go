package iomigrate

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/gnames/gn"
	"github.com/gnames/gnfmt"
	"github.com/gnames/gnuuid"
	"github.com/google/uuid"
	"github.com/tmforge/tmmigrate/pkg/config"
	"github.com/tmforge/tmmigrate/pkg/entity"
	"github.com/tmforge/tmmigrate/pkg/errcode"
	"github.com/tmforge/tmmigrate/pkg/idmap"
	"github.com/tmforge/tmmigrate/pkg/index"
	"github.com/tmforge/tmmigrate/pkg/manifest"
	"github.com/tmforge/tmmigrate/pkg/report"
	"github.com/tmforge/tmmigrate/pkg/transform"
)

// run holds the state of one invocation.
type run struct {
	m *migrator

	attemptID string
	start     time.Time
	types     []entity.Type

	ids *idmap.Map
	rep *report.Report
	tc  *transform.Context

	// manMu guards man.
	manMu sync.Mutex
	man   *manifest.Manifest

	// written counts records written since the last flush.
	writtenMu sync.Mutex
	written   int
}

// RunID derives the identifier of a migration from its source and
// target. Every attempt of the same migration shares it.
func RunID(cfg *config.Config) string {
	return gnuuid.New(SourceName(cfg) + "|" + TargetName(cfg)).String()
}

// SourceName describes the source store without credentials.
func SourceName(cfg *config.Config) string {
	if cfg.Source.Kind == "sqlite" {
		return "sqlite:" + cfg.Source.Path
	}
	return "mongo:" + redact(cfg.Source.URI) + "/" + cfg.Source.Database
}

// TargetName describes the target store without credentials.
func TargetName(cfg *config.Config) string {
	return "mongo:" + redact(cfg.Target.URI) + "/" + cfg.Target.Database
}

func redact(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return uri
	}
	u.User = nil
	return u.String()
}

func (m *migrator) newRun(ctx context.Context) (*run, error) {
	start := m.clock()
	res := &run{
		m:         m,
		attemptID: uuid.NewString(),
		start:     start,
		ids:       idmap.New(),
	}
	runID := RunID(m.cfg)
	res.rep = report.New(runID, m.cfg.Migrate.ErrorSamples, start)
	res.tc = &transform.Context{Now: start, IDs: res.ids, Plan: m.plan}

	man, err := res.loadManifest(ctx, runID)
	if err != nil {
		return nil, err
	}
	res.man = man

	types, err := res.selectTypes()
	if err != nil {
		return nil, err
	}
	res.types = types
	return res, nil
}

func (r *run) loadManifest(
	ctx context.Context,
	runID string,
) (*manifest.Manifest, error) {
	cfg := r.m.cfg
	fresh := manifest.New(runID, r.attemptID, SourceName(cfg), TargetName(cfg),
		r.start)
	if !cfg.Migrate.Resume {
		return fresh, nil
	}

	var man *manifest.Manifest
	err := retry(ctx, cfg.Migrate.MaxAttempts, cfg.Migrate.RetryDelay,
		func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, cfg.Migrate.Timeout)
			defer cancel()
			var err error
			man, err = r.m.store.Load(ctx)
			return err
		})
	if err != nil {
		return nil, ManifestLoadError(err)
	}
	if man == nil {
		return fresh, nil
	}
	if man.RunID != runID {
		return nil, manifest.MismatchError(man.RunID, runID)
	}
	if err = man.Validate(); err != nil {
		return nil, err
	}
	if err = man.Seed(r.ids); err != nil {
		return nil, err
	}
	man.AttemptID = r.attemptID

	slog.Info("Resuming from manifest",
		"run_id", man.RunID,
		"records", man.Stats().Total,
		"deferred", len(man.Deferred),
	)
	return man, nil
}

// selectTypes returns types of the run. A partial run needs all forward
// dependencies of its types to be completed by earlier runs.
func (r *run) selectTypes() ([]entity.Type, error) {
	all := r.m.plan.Types()
	if len(r.m.cfg.Migrate.Types) == 0 {
		return all, nil
	}

	res, err := parseTypes(r.m.plan, r.m.cfg.Migrate.Types)
	if err != nil {
		return nil, err
	}
	for _, t := range res {
		for _, dep := range r.m.plan.Dependencies(t) {
			if slices.Contains(res, dep) || r.man.IsCompleted(dep) {
				continue
			}
			return nil, MissingDependencyError(t, dep)
		}
	}
	// stage order
	var ordered []entity.Type
	for _, t := range all {
		if slices.Contains(res, t) {
			ordered = append(ordered, t)
		}
	}
	return ordered, nil
}

func (r *run) migrate(ctx context.Context) error {
	cfg := r.m.cfg
	if !cfg.Migrate.DryRun {
		// legacyKey guards make a repeated insert of the same record fail
		// instead of creating a duplicate.
		if _, err := r.m.ensureIndexes(ctx, guardIndexes(r.types)); err != nil {
			return err
		}
	}

	stages := 0
	for _, s := range r.m.plan.Stages {
		if len(r.m.typesOf(s, r.types)) > 0 {
			stages++
		}
	}

	var idx int
	for _, s := range r.m.plan.Stages {
		types := r.m.typesOf(s, r.types)
		if len(types) == 0 {
			continue
		}
		idx++
		if err := ctx.Err(); err != nil {
			return CancelledError(err)
		}

		if r.m.progress {
			gn.Info("Stage <em>%d/%d</em>: %v", idx, stages, types)
		}
		for _, t := range types {
			if err := r.migrateType(ctx, t); err != nil {
				return err
			}
			r.withManifest(func(m *manifest.Manifest) { m.MarkCompleted(t) })
		}
		if err := r.flush(ctx); err != nil {
			return err
		}
	}

	if err := r.patch(ctx); err != nil {
		return err
	}

	if cfg.Migrate.DryRun {
		return nil
	}
	n, err := r.m.ensureIndexes(ctx, index.For(r.types))
	r.rep.SetIndexesCreated(n)
	return err
}

func guardIndexes(types []entity.Type) []index.Spec {
	var res []index.Spec
	for _, v := range index.For(types) {
		if v.Unique && len(v.Keys) == 1 && v.Keys[0].Field == "legacyKey" {
			res = append(res, v)
		}
	}
	return res
}

func (r *run) patch(ctx context.Context) error {
	var refs []entity.DeferredRef
	r.withManifest(func(m *manifest.Manifest) {
		refs = slices.Clone(m.Deferred)
	})
	if len(refs) == 0 {
		return nil
	}

	p := newPatcher(r)
	if err := p.run(ctx, refs); err != nil {
		return err
	}
	if r.rep.Patch.Failed == 0 {
		r.withManifest(func(m *manifest.Manifest) { m.Patched = true })
	}
	return r.flush(ctx)
}

// finish saves the manifest, writes metrics and completes the report.
// When the run failed the manifest is saved with a fresh context.
func (r *run) finish(ctx context.Context, err error) (*report.Report, error) {
	if err != nil {
		r.rep.Abort()
		if ctx.Err() != nil && !isCancelled(err) {
			err = CancelledError(err)
		}
		slog.Error("Migration stopped", "error", err)

		saveCtx, cancel := context.WithTimeout(context.Background(),
			r.m.cfg.Migrate.Timeout)
		defer cancel()
		if ferr := r.flush(saveCtx); ferr != nil {
			slog.Error("Cannot save manifest", "error", ferr)
		}
	} else {
		ctx := context.WithoutCancel(ctx)
		err = r.flush(ctx)
		if err != nil {
			r.rep.Abort()
		}
	}

	r.rep.Finish(r.m.clock())
	if cerr := r.rep.Check(); cerr != nil && !r.rep.Aborted {
		slog.Error("Report counts do not add up", "error", cerr)
	}

	if path := r.m.cfg.Migrate.MetricsFile; path != "" {
		if merr := writeMetrics(path, r.rep); merr != nil {
			slog.Error("Cannot write metrics", "error", merr)
		}
	}

	dur := r.rep.FinishedAt.Sub(r.start)
	tot := r.rep.Totals()
	slog.Info("Migration finished",
		"run_id", r.rep.RunID,
		"total", tot.Total,
		"migrated", tot.Migrated,
		"resumed", tot.Resumed,
		"skipped", tot.Skipped,
		"errored", tot.Errored,
		"patched", r.rep.Patch.Patched,
		"patch_failed", r.rep.Patch.Failed,
		"aborted", r.rep.Aborted,
		"duration", gnfmt.TimeString(dur.Seconds()),
	)
	return r.rep, err
}

func isCancelled(err error) bool {
	var gnErr *gn.Error
	return errors.As(err, &gnErr) && gnErr.Code == errcode.MigrateCancelledError
}

func (r *run) withManifest(fn func(*manifest.Manifest)) {
	r.manMu.Lock()
	defer r.manMu.Unlock()
	fn(r.man)
}

// flush saves the manifest. Dry runs never save it.
func (r *run) flush(ctx context.Context) error {
	cfg := r.m.cfg
	if cfg.Migrate.DryRun {
		return nil
	}
	r.writtenMu.Lock()
	r.written = 0
	r.writtenMu.Unlock()

	r.manMu.Lock()
	defer r.manMu.Unlock()
	r.man.Capture(r.ids)
	r.man.AttemptID = r.attemptID
	r.man.UpdatedAt = r.m.clock().UTC()

	err := retry(ctx, cfg.Migrate.MaxAttempts, cfg.Migrate.RetryDelay,
		func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, cfg.Migrate.Timeout)
			defer cancel()
			return r.m.store.Save(ctx, r.man)
		})
	if err != nil {
		return ManifestSaveError(err)
	}
	slog.Debug("Manifest saved", "records", r.man.Stats().Total)
	return nil
}

// countWritten flushes the manifest after every FlushEvery written
// records.
func (r *run) countWritten(ctx context.Context, n int) error {
	r.writtenMu.Lock()
	r.written += n
	due := r.written >= r.m.cfg.Migrate.FlushEvery
	r.writtenMu.Unlock()
	if !due {
		return nil
	}
	return r.flush(ctx)
}
