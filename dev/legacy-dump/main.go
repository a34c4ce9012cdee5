// legacy-dump copies a legacy MongoDB store into a SQLite document dump
// that tmmigrate can read with source kind "sqlite".
//
// The dump keeps every record as JSON in one table:
//
//	documents(collection TEXT, key TEXT, body TEXT,
//	          PRIMARY KEY(collection, key))
//
// A limit makes small dumps for tests: only the first records (by key) of
// every collection are copied. References to records left out become
// dangling, which is useful for testing patch and skip rules.
//
// Usage:
//
//	go run ./dev/legacy-dump <mongo-uri> <database> <output> [limit]
//
// Examples:
//
//	go run ./dev/legacy-dump mongodb://localhost:27017 legacy /tmp/legacy.sqlite
//	go run ./dev/legacy-dump mongodb://localhost:27017 legacy testdata/small.sqlite 200
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/gnames/gnfmt"
	"github.com/tmforge/tmmigrate/internal/iosource"
	"github.com/tmforge/tmmigrate/pkg/config"
	"github.com/tmforge/tmmigrate/pkg/entity"
	"github.com/tmforge/tmmigrate/pkg/migrate"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
  collection TEXT NOT NULL,
  key TEXT NOT NULL,
  body TEXT NOT NULL,
  PRIMARY KEY (collection, key)
)`

func main() {
	if len(os.Args) < 4 || len(os.Args) > 5 {
		fmt.Fprintf(os.Stderr, "Usage: %s <mongo-uri> <database> <output> [limit]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Arguments:\n")
		fmt.Fprintf(os.Stderr, "  mongo-uri  connection string of the legacy store\n")
		fmt.Fprintf(os.Stderr, "  database   legacy database name\n")
		fmt.Fprintf(os.Stderr, "  output     path of the SQLite dump\n")
		fmt.Fprintf(os.Stderr, "  limit      records per collection (default: all)\n")
		os.Exit(1)
	}

	var limit int
	if len(os.Args) == 5 {
		var err error
		if limit, err = strconv.Atoi(os.Args[4]); err != nil || limit < 1 {
			fmt.Fprintf(os.Stderr, "limit must be a positive number: %s\n", os.Args[4])
			os.Exit(1)
		}
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg := config.New()
	cfg.Update([]config.Option{
		config.OptSourceKind("mongo"),
		config.OptSourceURI(os.Args[1]),
		config.OptSourceDatabase(os.Args[2]),
	})

	if err := dump(context.Background(), logger, cfg, os.Args[3], limit); err != nil {
		logger.Error("dump failed", "error", err)
		os.Exit(1)
	}
}

func dump(
	ctx context.Context,
	logger *slog.Logger,
	cfg *config.Config,
	output string,
	limit int,
) error {
	src, err := iosource.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer src.Close()

	db, err := sql.Open("sqlite", output)
	if err != nil {
		return fmt.Errorf("open %s: %w", output, err)
	}
	defer db.Close()

	if _, err = db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	for _, t := range entity.Types() {
		start := time.Now()
		n, err := dumpType(ctx, db, src, t, limit)
		if err != nil {
			return err
		}
		logger.Info("collection copied",
			"collection", t.SourceCollection(),
			"records", n,
			"duration", gnfmt.TimeString(time.Since(start).Seconds()),
		)
	}
	return nil
}

func dumpType(
	ctx context.Context,
	db *sql.DB,
	src migrate.Source,
	t entity.Type,
	limit int,
) (int, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO documents (collection, key, body)
		   VALUES (?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	enc := gnfmt.GNjson{}
	var n int
	for rec, err := range src.Read(ctx, t, "") {
		if err != nil {
			return n, err
		}
		body, err := enc.Encode(rec.Fields)
		if err != nil {
			return n, fmt.Errorf("encode %s %s: %w", t, rec.Key, err)
		}
		_, err = stmt.ExecContext(ctx, t.SourceCollection(), rec.Key, string(body))
		if err != nil {
			return n, fmt.Errorf("insert %s %s: %w", t, rec.Key, err)
		}
		n++
		if limit > 0 && n >= limit {
			break
		}
	}

	return n, tx.Commit()
}
