// Package iosource implements the Source interface for the legacy store:
// a MongoDB database or a SQLite dump of its collections.
// This is an impure I/O package.
package iosource

import (
	"context"

	"github.com/tmforge/tmmigrate/pkg/config"
	"github.com/tmforge/tmmigrate/pkg/migrate"
)

// New opens the source store selected by Source.Kind.
func New(ctx context.Context, cfg *config.Config) (migrate.Source, error) {
	switch cfg.Source.Kind {
	case "sqlite":
		return NewSQLite(ctx, cfg)
	case "mongo":
		return NewMongo(ctx, cfg)
	}
	return nil, UnknownKindError(cfg.Source.Kind)
}

// pageSize is the number of records fetched by one query.
func pageSize(cfg *config.Config) int {
	return max(cfg.Migrate.BatchSize, 1)
}
