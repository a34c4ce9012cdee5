package iomigrate

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gnames/gn"
	"github.com/gnames/gnfmt"
	"github.com/google/uuid"
	"github.com/tmforge/tmmigrate/pkg/entity"
	"github.com/tmforge/tmmigrate/pkg/manifest"
	"github.com/tmforge/tmmigrate/pkg/migrate"
	"github.com/tmforge/tmmigrate/pkg/plan"
	"golang.org/x/sync/errgroup"
)

// migrateType moves all records of one type. Records are read in batches
// by one goroutine and written by JobsNumber workers.
func (r *run) migrateType(ctx context.Context, t entity.Type) error {
	cfg := r.m.cfg
	start := r.m.clock()

	if err := r.reconcile(ctx, t); err != nil {
		return err
	}

	total, err := r.count(ctx, t)
	if err != nil {
		return err
	}
	bar := r.newBar(total, t)
	defer bar.finish()

	rels := make(map[string]plan.Relation)
	var hasDeferred bool
	for _, v := range r.m.plan.RelationsOf(t) {
		rels[v.Field] = v
		if r.m.plan.IsDeferred(v.From, v.Field) {
			hasDeferred = true
		}
	}
	w := stageWorker{r: r, t: t, rels: rels, hasDeferred: hasDeferred}

	chIn := make(chan []entity.Record)
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(chIn)
		return r.readBatches(gCtx, t, total, chIn)
	})

	workers := max(cfg.JobsNumber, 1)
	for range workers {
		g.Go(func() error {
			for batch := range chIn {
				if err := w.process(gCtx, batch); err != nil {
					// Drain the channel on failure
					for range chIn {
					}
					return err
				}
				bar.add(len(batch))
			}
			return nil
		})
	}

	if err = g.Wait(); err != nil {
		if ctx.Err() != nil {
			return CancelledError(err)
		}
		return err
	}

	s := r.rep.Stats(t)
	dur := r.m.clock().Sub(start)
	slog.Info("Entity type migrated",
		"type", t,
		"total", s.Total,
		"migrated", s.Migrated,
		"resumed", s.Resumed,
		"skipped", s.Skipped,
		"errored", s.Errored,
		"dangling", s.Dangling,
		"duration", gnfmt.TimeString(dur.Seconds()),
	)
	if r.m.progress {
		gn.Message(
			"<em>%s</em>: %d migrated, %d resumed, %d skipped, %d errored",
			t, s.Migrated, s.Resumed, s.Skipped, s.Errored,
		)
	}
	return nil
}

func (r *run) count(ctx context.Context, t entity.Type) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, r.m.cfg.Migrate.Timeout)
	defer cancel()
	res, err := r.m.src.Count(ctx, t)
	if err != nil {
		return 0, ReadError(t, err)
	}
	return res, nil
}

// reconcile maps records that reached the target store but not the
// manifest, for example when a previous attempt died between a write and
// a flush.
func (r *run) reconcile(ctx context.Context, t entity.Type) error {
	cfg := r.m.cfg
	var existing map[string]string
	err := retry(ctx, cfg.Migrate.MaxAttempts, cfg.Migrate.RetryDelay,
		func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, cfg.Migrate.Timeout)
			defer cancel()
			var err error
			existing, err = r.m.dst.Existing(ctx, t)
			return err
		})
	if err != nil {
		return ReconcileError(t, err)
	}

	var recovered int
	for oldKey, newKey := range existing {
		if cur, ok := r.ids.Get(t, oldKey); ok {
			if cur != newKey {
				slog.Warn("Manifest and target store disagree",
					"type", t, "old_key", oldKey,
					"manifest", cur, "target", newKey)
			}
			continue
		}
		if err = r.ids.Put(t, oldKey, newKey); err != nil {
			return err
		}
		recovered++
	}
	if recovered > 0 {
		slog.Warn("Recovered records missing from manifest",
			"type", t, "count", recovered)
	}
	return nil
}

// readBatches sends records of the type to chIn in batches of BatchSize.
// A read error stops the stage, and so does a scan that ends before the
// counted total.
func (r *run) readBatches(
	ctx context.Context,
	t entity.Type,
	total int,
	chIn chan<- []entity.Record,
) error {
	size := max(r.m.cfg.Migrate.BatchSize, 1)
	batch := make([]entity.Record, 0, size)

	send := func() error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case chIn <- batch:
		}
		batch = make([]entity.Record, 0, size)
		return nil
	}

	var read int
	for rec, err := range r.m.src.Read(ctx, t, "") {
		if err != nil {
			return ReadError(t, err)
		}
		read++
		batch = append(batch, rec)
		if len(batch) >= size {
			if err = send(); err != nil {
				return err
			}
		}
	}
	if len(batch) > 0 {
		if err := send(); err != nil {
			return err
		}
	}
	if read < total {
		return IncompleteReadError(t, read, total)
	}
	return nil
}

type stageWorker struct {
	r           *run
	t           entity.Type
	rels        map[string]plan.Relation
	hasDeferred bool
}

// process transforms and writes one batch. Only fatal errors are
// returned, failures of single records go to the report.
func (w stageWorker) process(ctx context.Context, batch []entity.Record) error {
	r, t := w.r, w.t
	var recs []entity.Record
	var docs []entity.Document
	var deferred []entity.DeferredRef

	for _, rec := range batch {
		r.rep.AddTotal(t, 1)
		if newKey, ok := r.ids.Get(t, rec.Key); ok {
			r.rep.AddResumed(t, 1)
			if w.hasDeferred {
				deferred = append(deferred, w.recoverDeferred(rec, newKey)...)
			}
			continue
		}

		doc, err := r.m.reg.Transform(rec, r.tc)
		if err != nil {
			r.rep.AddSkipped(t, rec.Key, err)
			slog.Debug("Record skipped", "type", t, "key", rec.Key, "error", err)
			continue
		}
		if n := len(doc.Dangling); n > 0 {
			r.rep.AddDangling(t, n)
			slog.Debug("Dangling references nulled",
				"type", t, "key", rec.Key, "fields", doc.Dangling)
		}
		recs = append(recs, rec)
		docs = append(docs, doc)
	}

	var written int
	if len(docs) > 0 {
		results := r.write(ctx, t, docs)
		for i, res := range results {
			if res.Err != nil {
				if err := ctx.Err(); err != nil {
					return err
				}
				r.rep.AddErrored(t, recs[i].Key, res.Err)
				slog.Warn("Record not written",
					"type", t, "key", recs[i].Key, "error", res.Err)
				continue
			}
			if err := r.ids.Put(t, recs[i].Key, res.NewKey); err != nil {
				return err
			}
			r.rep.AddMigrated(t, 1)
			written++
			deferred = append(deferred, w.deferredRefs(res.NewKey, docs[i])...)
		}
	}

	if len(deferred) > 0 {
		r.withManifest(func(m *manifest.Manifest) { m.AddDeferred(deferred...) })
	}
	return r.countWritten(ctx, written)
}

func (w stageWorker) deferredRefs(
	newKey string,
	doc entity.Document,
) []entity.DeferredRef {
	var res []entity.DeferredRef
	for _, f := range doc.Pending() {
		rel := w.rels[f]
		res = append(res, entity.DeferredRef{
			Type:    w.t,
			NewKey:  newKey,
			Field:   f,
			OldKeys: doc.Refs[f].Keys,
			RefType: rel.To,
			Many:    rel.Many,
		})
	}
	return res
}

// recoverDeferred rebuilds deferred references of an already written
// record, the manifest might have lost them.
func (w stageWorker) recoverDeferred(
	rec entity.Record,
	newKey string,
) []entity.DeferredRef {
	doc, err := w.r.m.reg.Transform(rec, w.r.tc)
	if err != nil {
		return nil
	}
	return w.deferredRefs(newKey, doc)
}

// write inserts documents, repeating the insert of failed ones with
// exponential backoff. Dry runs assign random keys instead.
func (r *run) write(
	ctx context.Context,
	t entity.Type,
	docs []entity.Document,
) []migrate.WriteResult {
	cfg := r.m.cfg
	res := make([]migrate.WriteResult, len(docs))
	if cfg.Migrate.DryRun {
		for i := range res {
			res[i].NewKey = "dry-run-" + uuid.NewString()
		}
		return res
	}

	pending := make([]int, len(docs))
	for i := range pending {
		pending[i] = i
	}
	delay := cfg.Migrate.RetryDelay

	for attempt := 1; ; attempt++ {
		sub := make([]entity.Document, len(pending))
		for j, i := range pending {
			sub[j] = docs[i]
		}

		callCtx, cancel := context.WithTimeout(ctx, cfg.Migrate.Timeout)
		out := r.m.dst.Insert(callCtx, t, sub)
		cancel()

		var failed []int
		for j, i := range pending {
			if j >= len(out) {
				res[i] = migrate.WriteResult{Err: ShortWriteError(t, len(sub), len(out))}
				failed = append(failed, i)
				continue
			}
			res[i] = out[j]
			if out[j].Err != nil && !errors.Is(out[j].Err, migrate.ErrPermanent) {
				failed = append(failed, i)
			}
		}

		if len(failed) == 0 || attempt >= cfg.Migrate.MaxAttempts {
			return res
		}
		slog.Debug("Retrying failed writes",
			"type", t, "count", len(failed), "attempt", attempt+1)
		if err := sleep(ctx, delay); err != nil {
			return res
		}
		delay *= 2
		pending = failed
	}
}
