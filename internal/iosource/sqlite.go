package iosource

import (
	"context"
	"database/sql"
	"iter"
	"log/slog"
	"os"
	"time"

	"github.com/gnames/gnfmt"
	"github.com/tmforge/tmmigrate/pkg/config"
	"github.com/tmforge/tmmigrate/pkg/entity"
	"github.com/tmforge/tmmigrate/pkg/migrate"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGo)
)

// sqliteSource reads a dump of the legacy store kept in one table:
//
//	documents(collection TEXT, key TEXT, body TEXT,
//	          PRIMARY KEY(collection, key))
//
// where body is the JSON document.
type sqliteSource struct {
	db       *sql.DB
	pageSize int
	timeout  time.Duration
	enc      gnfmt.GNjson
}

const pageQuery = `
SELECT key, body
  FROM documents
  WHERE collection = ? AND key > ?
  ORDER BY key
  LIMIT ?`

// NewSQLite opens the dump read-only.
func NewSQLite(ctx context.Context, cfg *config.Config) (migrate.Source, error) {
	path := cfg.Source.Path
	if _, err := os.Stat(path); err != nil {
		return nil, ConnectionError("sqlite", path, err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=query_only(1)")
	if err != nil {
		return nil, ConnectionError("sqlite", path, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Migrate.Timeout)
	defer cancel()
	var n int
	err = db.QueryRowContext(pingCtx,
		"SELECT count(*) FROM documents WHERE 1 = 0").Scan(&n)
	if err != nil {
		db.Close()
		return nil, ConnectionError("sqlite", path, err)
	}
	slog.Info("Connected to source store", "kind", "sqlite", "path", path)

	return &sqliteSource{
		db:       db,
		pageSize: pageSize(cfg),
		timeout:  cfg.Migrate.Timeout,
	}, nil
}

func (s *sqliteSource) Read(
	ctx context.Context,
	t entity.Type,
	cursor string,
) iter.Seq2[entity.Record, error] {
	return func(yield func(entity.Record, error) bool) {
		after := cursor
		for {
			recs, err := s.page(ctx, t, after)
			if err != nil {
				yield(entity.Record{}, err)
				return
			}
			for _, v := range recs {
				if !yield(v, nil) {
					return
				}
			}
			if len(recs) < s.pageSize {
				return
			}
			after = recs[len(recs)-1].Key
		}
	}
}

func (s *sqliteSource) page(
	ctx context.Context,
	t entity.Type,
	after string,
) ([]entity.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, pageQuery,
		t.SourceCollection(), after, s.pageSize)
	if err != nil {
		return nil, ReadError(t, err)
	}
	defer rows.Close()

	res := make([]entity.Record, 0, s.pageSize)
	for rows.Next() {
		var key, body string
		if err = rows.Scan(&key, &body); err != nil {
			return nil, ReadError(t, err)
		}
		var fields map[string]any
		if err = s.enc.Decode([]byte(body), &fields); err != nil {
			return nil, DecodeError(t, key, err)
		}
		if fields == nil {
			fields = make(map[string]any)
		}
		normalizeJSON(fields)
		res = append(res, entity.Record{Type: t, Key: key, Fields: fields})
	}
	if err = rows.Err(); err != nil {
		return nil, ReadError(t, err)
	}
	return res, nil
}

func (s *sqliteSource) Count(ctx context.Context, t entity.Type) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT count(*) FROM documents WHERE collection = ?",
		t.SourceCollection(),
	).Scan(&n)
	if err != nil {
		return 0, ReadError(t, err)
	}
	return n, nil
}

func (s *sqliteSource) Close() error {
	return s.db.Close()
}
