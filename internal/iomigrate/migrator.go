// Package iomigrate implements the Migrator interface. It reads legacy
// records stage by stage, writes transformed documents into the new store,
// keeps identifier maps in a manifest, patches deferred references and
// builds indexes.
// This is an impure I/O package.
package iomigrate

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/gnames/gn"
	"github.com/gnames/gnfmt"
	"github.com/tmforge/tmmigrate/pkg/config"
	"github.com/tmforge/tmmigrate/pkg/entity"
	"github.com/tmforge/tmmigrate/pkg/index"
	"github.com/tmforge/tmmigrate/pkg/migrate"
	"github.com/tmforge/tmmigrate/pkg/plan"
	"github.com/tmforge/tmmigrate/pkg/report"
	"github.com/tmforge/tmmigrate/pkg/transform"
)

// migrator implements the Migrator interface.
type migrator struct {
	cfg   *config.Config
	src   migrate.Source
	dst   migrate.Target
	store migrate.ManifestStore
	reg   *transform.Registry
	plan  *plan.Plan

	clock    func() time.Time
	progress bool
}

// Option customizes a Migrator.
type Option func(*migrator)

// OptRegistry replaces the default transformation rules.
func OptRegistry(reg *transform.Registry) Option {
	return func(m *migrator) {
		m.reg = reg
	}
}

// OptClock replaces time.Now.
func OptClock(fn func() time.Time) Option {
	return func(m *migrator) {
		m.clock = fn
	}
}

// OptProgress turns progress bars on or off.
func OptProgress(b bool) Option {
	return func(m *migrator) {
		m.progress = b
	}
}

// New creates a Migrator. Configuration errors (missing enum tables,
// unbreakable cycles) are returned before any I/O happens.
func New(
	cfg *config.Config,
	src migrate.Source,
	dst migrate.Target,
	store migrate.ManifestStore,
	opts ...Option,
) (migrate.Migrator, error) {
	res := &migrator{
		cfg:      cfg,
		src:      src,
		dst:      dst,
		store:    store,
		reg:      transform.Default(),
		clock:    time.Now,
		progress: true,
	}
	for _, opt := range opts {
		opt(res)
	}

	if err := res.reg.Validate(); err != nil {
		return nil, err
	}
	p, err := plan.Build(res.reg.Types(), res.reg.Relations())
	if err != nil {
		return nil, err
	}
	res.plan = p
	return res, nil
}

// Plan builds the stage plan of the default transformation rules.
func Plan() (*plan.Plan, error) {
	reg := transform.Default()
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return plan.Build(reg.Types(), reg.Relations())
}

// CheckConfig validates transformation rules, the plan and the types
// selected by the configuration without touching any store.
func CheckConfig(cfg *config.Config) error {
	p, err := Plan()
	if err != nil {
		return err
	}
	_, err = parseTypes(p, cfg.Migrate.Types)
	return err
}

// parseTypes converts names of types into planned types.
func parseTypes(p *plan.Plan, names []string) ([]entity.Type, error) {
	all := p.Types()
	res := make([]entity.Type, 0, len(names))
	for _, v := range names {
		t := entity.Type(v)
		if !slices.Contains(all, t) {
			return nil, UnknownTypeError(v)
		}
		res = append(res, t)
	}
	return res, nil
}

// Migrate runs every stage in order, then the patch pass and the index
// builder. The manifest is saved during the run and once more at the end,
// also when the run fails.
func (m *migrator) Migrate(ctx context.Context) (*report.Report, error) {
	if m.src == nil || m.dst == nil || m.store == nil {
		return nil, NotConnectedError()
	}

	r, err := m.newRun(ctx)
	if err != nil {
		return nil, err
	}
	r.rep.DryRun = m.cfg.Migrate.DryRun

	slog.Info("Starting migration",
		"run_id", r.man.RunID,
		"attempt_id", r.attemptID,
		"dry_run", m.cfg.Migrate.DryRun,
		"types", r.types,
	)

	err = r.migrate(ctx)
	return r.finish(ctx, err)
}

// Patch repeats the patch pass over references kept in the manifest.
func (m *migrator) Patch(ctx context.Context) (*report.Report, error) {
	if m.dst == nil || m.store == nil {
		return nil, NotConnectedError()
	}
	r, err := m.newRun(ctx)
	if err != nil {
		return nil, err
	}
	if len(r.man.Maps) == 0 {
		return nil, NoManifestError()
	}

	err = r.patch(ctx)
	return r.finish(ctx, err)
}

// Index creates missing indexes of the new store.
func (m *migrator) Index(ctx context.Context) (*report.Report, error) {
	if m.dst == nil {
		return nil, NotConnectedError()
	}
	start := m.clock()
	rep := report.New("", m.cfg.Migrate.ErrorSamples, start)
	n, err := m.ensureIndexes(ctx, index.Current())
	rep.SetIndexesCreated(n)
	rep.Finish(m.clock())
	if err != nil {
		rep.Abort()
		return rep, err
	}
	return rep, nil
}

func (m *migrator) ensureIndexes(
	ctx context.Context,
	specs []index.Spec,
) (int, error) {
	start := m.clock()
	var n int
	err := retry(ctx, m.cfg.Migrate.MaxAttempts, m.cfg.Migrate.RetryDelay,
		func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, m.indexTimeout())
			defer cancel()
			var err error
			n, err = m.dst.EnsureIndexes(ctx, specs)
			return err
		})
	if err != nil {
		return n, err
	}
	slog.Info("Indexes ensured",
		"created", n,
		"total", len(specs),
		"duration", gnfmt.TimeString(m.clock().Sub(start).Seconds()),
	)
	if m.progress {
		gn.Info("Indexes: <em>%d</em> created, %d already existed",
			n, len(specs)-n)
	}
	return n, nil
}

// indexTimeout gives index builds more time than ordinary store calls,
// they scan whole collections.
func (m *migrator) indexTimeout() time.Duration {
	return 10 * m.cfg.Migrate.Timeout
}

// typesOf returns planned types in stage order.
func (m *migrator) typesOf(stage plan.Stage, selected []entity.Type) []entity.Type {
	var res []entity.Type
	for _, t := range stage.Types {
		for _, s := range selected {
			if s == t {
				res = append(res, t)
			}
		}
	}
	return res
}
