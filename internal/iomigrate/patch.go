package iomigrate

import (
	"cmp"
	"context"
	"log/slog"
	"slices"

	"github.com/gnames/gn"
	"github.com/tmforge/tmmigrate/pkg/entity"
	"github.com/tmforge/tmmigrate/pkg/idmap"
	"github.com/tmforge/tmmigrate/pkg/migrate"
	"github.com/tmforge/tmmigrate/pkg/report"
	"golang.org/x/sync/errgroup"
)

// patcher fills deferred references once all stages are written.
// Every (record, field) gets exactly one full-replacement update, so
// running it again produces the same documents.
type patcher struct {
	r   *run
	dst migrate.Target
	ids *idmap.Map
	rep *report.Report
}

func newPatcher(r *run) *patcher {
	return &patcher{r: r, dst: r.m.dst, ids: r.ids, rep: r.rep}
}

type patchGroup struct {
	t     entity.Type
	field string
	refs  []entity.DeferredRef
}

// groups splits references by (type, field) in a stable order.
func groups(refs []entity.DeferredRef) []patchGroup {
	refs = slices.Clone(refs)
	slices.SortStableFunc(refs, func(a, b entity.DeferredRef) int {
		return cmp.Or(
			cmp.Compare(a.Type, b.Type),
			cmp.Compare(a.Field, b.Field),
			cmp.Compare(a.NewKey, b.NewKey),
		)
	})

	var res []patchGroup
	for _, v := range refs {
		n := len(res)
		if n > 0 && res[n-1].t == v.Type && res[n-1].field == v.Field {
			last := res[n-1].refs
			if last[len(last)-1].NewKey == v.NewKey {
				last[len(last)-1] = v
				continue
			}
			res[n-1].refs = append(last, v)
			continue
		}
		res = append(res, patchGroup{t: v.Type, field: v.Field,
			refs: []entity.DeferredRef{v}})
	}
	return res
}

func (p *patcher) run(ctx context.Context, refs []entity.DeferredRef) error {
	for _, grp := range groups(refs) {
		if err := p.patchGroup(ctx, grp); err != nil {
			return err
		}
	}
	s := p.rep.Patch
	slog.Info("Patch pass finished",
		"patched", s.Patched,
		"broken", s.Broken,
		"failed", s.Failed,
	)
	return nil
}

func (p *patcher) patchGroup(ctx context.Context, grp patchGroup) error {
	cfg := p.r.m.cfg
	if p.r.m.progress {
		gn.Info("Patching <em>%s.%s</em>", grp.t, grp.field)
	}
	bar := p.r.newBar(len(grp.refs), grp.t)
	defer bar.finish()

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(max(cfg.JobsNumber, 1))
	for _, ref := range grp.refs {
		if gCtx.Err() != nil {
			break
		}
		g.Go(func() error {
			defer bar.add(1)
			return p.patchOne(gCtx, ref)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return CancelledError(err)
	}
	return nil
}

// value computes the patched field: new keys of mapped old keys in their
// original order. Unmapped keys are dropped and counted as broken.
func (p *patcher) value(ref entity.DeferredRef) (any, int) {
	keys := []string{}
	var broken int
	for _, old := range ref.OldKeys {
		if k, ok := p.ids.Get(ref.RefType, old); ok {
			keys = append(keys, k)
			continue
		}
		broken++
	}
	if ref.Many {
		return keys, broken
	}
	if len(keys) == 0 {
		return nil, broken
	}
	return keys[0], broken
}

// fields builds the update of one (record, field). A count field of the
// relation is recomputed from the patched list.
func (p *patcher) fields(ref entity.DeferredRef) (map[string]any, int) {
	val, broken := p.value(ref)
	res := map[string]any{ref.Field: val}
	rel, ok := p.r.m.plan.Relation(ref.Type, ref.Field)
	if ok && rel.CountField != "" {
		switch v := val.(type) {
		case []string:
			res[rel.CountField] = len(v)
		case string:
			res[rel.CountField] = 1
		default:
			res[rel.CountField] = 0
		}
	}
	return res, broken
}

// patchOne updates one (record, field). Failures of a single update go to
// the report, only cancellation is returned.
func (p *patcher) patchOne(ctx context.Context, ref entity.DeferredRef) error {
	cfg := p.r.m.cfg
	fields, broken := p.fields(ref)
	if broken > 0 {
		slog.Debug("Broken references dropped",
			"type", ref.Type, "key", ref.NewKey, "field", ref.Field,
			"count", broken)
	}
	if cfg.Migrate.DryRun {
		p.rep.AddPatched(broken)
		return nil
	}

	err := retry(ctx, cfg.Migrate.MaxAttempts, cfg.Migrate.RetryDelay,
		func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, cfg.Migrate.Timeout)
			defer cancel()
			return p.dst.SetFields(ctx, ref.Type, ref.NewKey, fields)
		})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.rep.AddPatchFailed(ref.Type, ref.NewKey, PatchError(ref, err))
		slog.Warn("Patch failed",
			"type", ref.Type, "key", ref.NewKey, "field", ref.Field,
			"error", err)
		return nil
	}
	p.rep.AddPatched(broken)
	return nil
}
