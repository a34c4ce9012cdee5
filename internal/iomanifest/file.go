package iomanifest

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/tmforge/tmmigrate/pkg/manifest"
	"github.com/tmforge/tmmigrate/pkg/migrate"
)

type fileStore struct {
	path string
}

// NewFile creates a store that keeps the manifest as a YAML file.
func NewFile(path string) migrate.ManifestStore {
	return &fileStore{path: path}
}

func (f *fileStore) Load(context.Context) (*manifest.Manifest, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decode(data)
}

// Save writes into a temporary file and renames it, so a crash never
// leaves a truncated manifest behind.
func (f *fileStore) Save(_ context.Context, m *manifest.Manifest) error {
	data, err := encode(m)
	if err != nil {
		return err
	}

	dir := filepath.Dir(f.path)
	if err = os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err = tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.path)
}

func (f *fileStore) Close() error { return nil }
