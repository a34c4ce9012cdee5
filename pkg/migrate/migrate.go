// Package migrate defines the contracts of the migration engine: the
// legacy store records are read from, the new store documents are written
// to, the store of manifests, and the Migrator that drives them.
package migrate

import (
	"context"
	"errors"
	"iter"

	"github.com/tmforge/tmmigrate/pkg/entity"
	"github.com/tmforge/tmmigrate/pkg/index"
	"github.com/tmforge/tmmigrate/pkg/manifest"
	"github.com/tmforge/tmmigrate/pkg/report"
)

// Source reads records of the legacy store. It never changes the store.
type Source interface {
	// Read returns records of the type with keys greater than cursor in
	// ascending key order. An empty cursor means a full scan. Store errors
	// are yielded and end the sequence. The sequence can be iterated
	// more than once.
	Read(ctx context.Context, t entity.Type, cursor string) iter.Seq2[entity.Record, error]

	// Count returns the number of records of the type.
	Count(ctx context.Context, t entity.Type) (int, error)

	// Close releases the connection.
	Close() error
}

// ErrPermanent is wrapped by store errors that repeating the call cannot
// fix, such as duplicate keys.
var ErrPermanent = errors.New("permanent store error")

// WriteResult is the outcome of writing one document.
type WriteResult struct {
	// NewKey is the key assigned by the target store.
	NewKey string
	Err    error
}

// Target writes documents into the new store. It never deletes anything.
type Target interface {
	// Insert writes documents and returns one result per document in the
	// same order. Pending references are stored empty.
	Insert(ctx context.Context, t entity.Type, docs []entity.Document) []WriteResult

	// SetFields replaces values of fields of a written document in one
	// update.
	SetFields(ctx context.Context, t entity.Type, newKey string, fields map[string]any) error

	// Existing returns legacy keys already written for the type mapped
	// to their new keys.
	Existing(ctx context.Context, t entity.Type) (map[string]string, error)

	// EnsureIndexes creates missing indexes and returns how many were
	// created.
	EnsureIndexes(ctx context.Context, specs []index.Spec) (int, error)

	// Close releases the connection.
	Close(ctx context.Context) error
}

// ManifestStore persists manifests.
type ManifestStore interface {
	// Load returns the stored manifest or nil when there is none.
	Load(ctx context.Context) (*manifest.Manifest, error)

	// Save replaces the stored manifest.
	Save(ctx context.Context, m *manifest.Manifest) error

	// Close releases the connection.
	Close() error
}

// Migrator drives a migration run.
type Migrator interface {
	// Migrate runs every stage, the patch pass and the index builder.
	Migrate(ctx context.Context) (*report.Report, error)

	// Patch runs the patch pass over references stored in the manifest.
	Patch(ctx context.Context) (*report.Report, error)

	// Index creates missing indexes of the new store.
	Index(ctx context.Context) (*report.Report, error)
}
