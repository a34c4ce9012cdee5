// Package iomanifest implements the ManifestStore interface: a YAML file
// (default), an S3 object or PostgreSQL tables.
// This is an impure I/O package.
package iomanifest

import (
	"context"

	"github.com/tmforge/tmmigrate/pkg/config"
	"github.com/tmforge/tmmigrate/pkg/manifest"
	"github.com/tmforge/tmmigrate/pkg/migrate"
	"gopkg.in/yaml.v3"
)

// New opens the store selected by Manifest.Kind. The PostgreSQL store
// keeps manifests of many runs, runID selects the one to use.
func New(
	ctx context.Context,
	cfg *config.Config,
	runID string,
) (migrate.ManifestStore, error) {
	switch cfg.Manifest.Kind {
	case "file":
		return NewFile(cfg.ManifestFilePath()), nil
	case "s3":
		return NewS3(ctx, cfg.Manifest.S3)
	case "postgres":
		return NewPostgres(ctx, cfg.Manifest.Postgres, runID)
	}
	return nil, UnknownKindError(cfg.Manifest.Kind)
}

func encode(m *manifest.Manifest) ([]byte, error) {
	return yaml.Marshal(m)
}

func decode(data []byte) (*manifest.Manifest, error) {
	var res manifest.Manifest
	if err := yaml.Unmarshal(data, &res); err != nil {
		return nil, DecodeError(err)
	}
	return &res, nil
}
