package iomanifest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/tmforge/tmmigrate/pkg/config"
	"github.com/tmforge/tmmigrate/pkg/entity"
	"github.com/tmforge/tmmigrate/pkg/idmap"
	"github.com/tmforge/tmmigrate/pkg/manifest"
	"github.com/tmforge/tmmigrate/pkg/migrate"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// runRow is the header of a manifest.
type runRow struct {
	RunID     string `gorm:"primaryKey;type:varchar(64)"`
	Version   int
	AttemptID string `gorm:"type:varchar(64)"`
	Source    string
	Target    string
	StartedAt time.Time
	UpdatedAt time.Time
	// Completed is a comma separated list of types.
	Completed string
	Patched   bool
}

func (runRow) TableName() string { return "tmm_runs" }

// pairRow is one identifier map entry. Seq keeps the insertion order.
type pairRow struct {
	RunID  string `gorm:"primaryKey;type:varchar(64)"`
	Type   string `gorm:"primaryKey;type:varchar(32)"`
	OldKey string `gorm:"primaryKey"`
	NewKey string `gorm:"not null"`
	Seq    int
}

func (pairRow) TableName() string { return "tmm_pairs" }

// deferredRow is one old key of a deferred reference. References
// without old keys are not stored, their empty value is already written.
type deferredRow struct {
	RunID   string `gorm:"primaryKey;type:varchar(64)"`
	Type    string `gorm:"primaryKey;type:varchar(32)"`
	NewKey  string `gorm:"primaryKey"`
	Field   string `gorm:"primaryKey;type:varchar(64)"`
	Pos     int    `gorm:"primaryKey;autoIncrement:false"`
	OldKey  string
	RefType string `gorm:"type:varchar(32)"`
	Many    bool
}

func (deferredRow) TableName() string { return "tmm_deferred" }

type pgStore struct {
	pool  *pgxpool.Pool
	runID string

	// saved counts pairs per type already in tmm_pairs. Pairs are only
	// appended, so Save sends the tail. Until the run is loaded or saved
	// once, stored pairs are unknown and the first Save replaces them.
	mu     sync.Mutex
	saved  map[entity.Type]int
	synced bool
}

// NewPostgres connects to the manifest database and creates missing
// tables.
func NewPostgres(
	ctx context.Context,
	cfg config.PostgresConfig,
	runID string,
) (migrate.ManifestStore, error) {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.Database,
		cfg.SSLMode,
	)
	where := fmt.Sprintf("%s:%d/%s", cfg.Host, cfg.Port, cfg.Database)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, ConnectionError("postgres", where, err)
	}
	poolConfig.MaxConns = 4
	poolConfig.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, ConnectionError("postgres", where, err)
	}
	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, ConnectionError("postgres", where, err)
	}

	if err = migrateTables(pool); err != nil {
		pool.Close()
		return nil, ConnectionError("postgres", where, err)
	}

	return &pgStore{
		pool:  pool,
		runID: runID,
		saved: make(map[entity.Type]int),
	}, nil
}

func migrateTables(pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	gormDB, err := gorm.Open(
		postgres.New(postgres.Config{Conn: db}),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)},
	)
	if err != nil {
		return err
	}
	return gormDB.AutoMigrate(&runRow{}, &pairRow{}, &deferredRow{})
}

func (p *pgStore) Load(ctx context.Context) (*manifest.Manifest, error) {
	var run runRow
	err := p.pool.QueryRow(ctx, `
SELECT version, attempt_id, source, target, started_at, updated_at,
       completed, patched
  FROM tmm_runs
  WHERE run_id = $1`, p.runID,
	).Scan(&run.Version, &run.AttemptID, &run.Source, &run.Target,
		&run.StartedAt, &run.UpdatedAt, &run.Completed, &run.Patched)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	res := &manifest.Manifest{
		Version:   run.Version,
		RunID:     p.runID,
		AttemptID: run.AttemptID,
		Source:    run.Source,
		Target:    run.Target,
		StartedAt: run.StartedAt.UTC(),
		UpdatedAt: run.UpdatedAt.UTC(),
		Patched:   run.Patched,
		Maps:      make(map[entity.Type][]idmap.Pair),
	}
	for _, v := range strings.Split(run.Completed, ",") {
		if v != "" {
			res.Completed = append(res.Completed, entity.Type(v))
		}
	}

	if err = p.loadPairs(ctx, res); err != nil {
		return nil, err
	}
	if err = p.loadDeferred(ctx, res); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	clear(p.saved)
	for t, pairs := range res.Maps {
		p.saved[t] = len(pairs)
	}
	p.synced = true
	return res, nil
}

func (p *pgStore) loadPairs(ctx context.Context, m *manifest.Manifest) error {
	rows, err := p.pool.Query(ctx, `
SELECT type, old_key, new_key
  FROM tmm_pairs
  WHERE run_id = $1
  ORDER BY type, seq`, p.runID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var t, oldKey, newKey string
		if err = rows.Scan(&t, &oldKey, &newKey); err != nil {
			return err
		}
		typ := entity.Type(t)
		m.Maps[typ] = append(m.Maps[typ], idmap.Pair{Old: oldKey, New: newKey})
	}
	return rows.Err()
}

func (p *pgStore) loadDeferred(ctx context.Context, m *manifest.Manifest) error {
	rows, err := p.pool.Query(ctx, `
SELECT type, new_key, field, old_key, ref_type, many
  FROM tmm_deferred
  WHERE run_id = $1
  ORDER BY type, new_key, field, pos`, p.runID)
	if err != nil {
		return err
	}
	defer rows.Close()

	var refs []entity.DeferredRef
	for rows.Next() {
		var d deferredRow
		err = rows.Scan(&d.Type, &d.NewKey, &d.Field, &d.OldKey, &d.RefType,
			&d.Many)
		if err != nil {
			return err
		}
		n := len(refs)
		if n > 0 && refs[n-1].Type == entity.Type(d.Type) &&
			refs[n-1].NewKey == d.NewKey && refs[n-1].Field == d.Field {
			refs[n-1].OldKeys = append(refs[n-1].OldKeys, d.OldKey)
			continue
		}
		refs = append(refs, entity.DeferredRef{
			Type:    entity.Type(d.Type),
			NewKey:  d.NewKey,
			Field:   d.Field,
			OldKeys: []string{d.OldKey},
			RefType: entity.Type(d.RefType),
			Many:    d.Many,
		})
	}
	if err = rows.Err(); err != nil {
		return err
	}
	m.AddDeferred(refs...)
	return nil
}

// Save writes the manifest in one transaction. New identifier pairs go
// through COPY into a temporary table and are merged into tmm_pairs,
// deferred references are replaced. The first Save of a store that did
// not load the run drops pairs left by earlier attempts.
func (p *pgStore) Save(ctx context.Context, m *manifest.Manifest) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	completed := make([]string, len(m.Completed))
	for i, v := range m.Completed {
		completed[i] = string(v)
	}
	_, err = tx.Exec(ctx, `
INSERT INTO tmm_runs (run_id, version, attempt_id, source, target,
                      started_at, updated_at, completed, patched)
  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
  ON CONFLICT (run_id) DO UPDATE SET
    version = EXCLUDED.version,
    attempt_id = EXCLUDED.attempt_id,
    updated_at = EXCLUDED.updated_at,
    completed = EXCLUDED.completed,
    patched = EXCLUDED.patched`,
		p.runID, m.Version, m.AttemptID, m.Source, m.Target,
		m.StartedAt, m.UpdatedAt, strings.Join(completed, ","), m.Patched,
	)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}

	if !p.synced {
		_, err = tx.Exec(ctx, "DELETE FROM tmm_pairs WHERE run_id = $1",
			p.runID)
		if err != nil {
			return fmt.Errorf("save pairs: %w", err)
		}
		clear(p.saved)
	}
	sent, err := p.savePairs(ctx, tx, m)
	if err != nil {
		return err
	}
	if err = p.saveDeferred(ctx, tx, m); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return err
	}
	for t, n := range sent {
		p.saved[t] = n
	}
	p.synced = true
	return nil
}

func (p *pgStore) savePairs(
	ctx context.Context,
	tx pgx.Tx,
	m *manifest.Manifest,
) (map[entity.Type]int, error) {
	var rows [][]any
	sent := make(map[entity.Type]int)
	for _, t := range m.Types() {
		pairs := m.Maps[t]
		from := min(p.saved[t], len(pairs))
		for i := from; i < len(pairs); i++ {
			rows = append(rows, []any{p.runID, string(t), pairs[i].Old,
				pairs[i].New, i})
		}
		sent[t] = len(pairs)
	}
	if len(rows) == 0 {
		return sent, nil
	}

	_, err := tx.Exec(ctx, `
CREATE TEMP TABLE tmm_pairs_new
  (LIKE tmm_pairs INCLUDING DEFAULTS) ON COMMIT DROP`)
	if err != nil {
		return nil, fmt.Errorf("save pairs: %w", err)
	}
	columns := []string{"run_id", "type", "old_key", "new_key", "seq"}
	_, err = tx.CopyFrom(ctx, pgx.Identifier{"tmm_pairs_new"}, columns,
		pgx.CopyFromRows(rows))
	if err != nil {
		return nil, fmt.Errorf("save pairs: %w", err)
	}
	_, err = tx.Exec(ctx, `
INSERT INTO tmm_pairs (run_id, type, old_key, new_key, seq)
  SELECT run_id, type, old_key, new_key, seq FROM tmm_pairs_new
  ON CONFLICT (run_id, type, old_key) DO UPDATE SET
    new_key = EXCLUDED.new_key,
    seq = EXCLUDED.seq`)
	if err != nil {
		return nil, fmt.Errorf("save pairs: %w", err)
	}
	return sent, nil
}

func (p *pgStore) saveDeferred(
	ctx context.Context,
	tx pgx.Tx,
	m *manifest.Manifest,
) error {
	_, err := tx.Exec(ctx, "DELETE FROM tmm_deferred WHERE run_id = $1",
		p.runID)
	if err != nil {
		return fmt.Errorf("save deferred: %w", err)
	}

	var rows [][]any
	for _, d := range m.Deferred {
		for i, old := range d.OldKeys {
			rows = append(rows, []any{p.runID, string(d.Type), d.NewKey,
				d.Field, i, old, string(d.RefType), d.Many})
		}
	}
	if len(rows) == 0 {
		return nil
	}
	columns := []string{"run_id", "type", "new_key", "field", "pos",
		"old_key", "ref_type", "many"}
	_, err = tx.CopyFrom(ctx, pgx.Identifier{"tmm_deferred"}, columns,
		pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("save deferred: %w", err)
	}
	return nil
}

func (p *pgStore) Close() error {
	p.pool.Close()
	return nil
}
