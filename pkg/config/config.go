// Package config provides configuration management for tmmigrate.
//
// This package has no I/O dependencies (no file operations, no network calls).
// Validation functions may write user-facing warnings via gn.Warn().
//
// # Configuration Sources
//
// Precedence (highest to lowest): CLI flags > env vars > .env file >
// config.yaml > defaults
//
// # Design Principles
//
// - Default config (from New()) is always valid - no validation needed
// - All mutations go through Option functions - the only way to modify Config
// - Invalid options are rejected with gn.Warn() - config remains in valid state
// - ToOptions() converts persistent fields (those in config.yaml)
// - Environment variables match ToOptions() fields exactly
//
// # Persistent vs Runtime Fields
//
// Persistent fields (in ToOptions, config.yaml, and env vars):
//   - Source: kind, uri, database, path
//   - Target: uri, database
//   - Manifest: kind, path, s3.*, postgres.*
//   - Migrate: batch_size, max_attempts, retry_delay, timeout,
//     flush_every, error_samples, metrics_file
//   - Log: level, format, destination
//   - General: jobs_number
//
// Runtime-only fields (CLI flags only):
//   - Migrate.DryRun, Migrate.Resume, Migrate.Types (per-command)
//   - HomeDir (set once at startup)
//
// # Environment Variables
//
// Use TMMIGRATE_ prefix with underscores for nesting:
//
//	TMMIGRATE_SOURCE_URI=mongodb://legacy:27017
//	TMMIGRATE_TARGET_URI=mongodb://localhost:27017
//	TMMIGRATE_MANIFEST_KIND=postgres
//	TMMIGRATE_JOBS_NUMBER=8
package config

import (
	"path/filepath"
	"runtime"
	"time"
)

// Config represents the complete tmmigrate configuration.
type Config struct {
	// Source describes the legacy document store records are read from.
	Source SourceConfig `mapstructure:"source" yaml:"source"`

	// Target describes the document store records are written to.
	Target TargetConfig `mapstructure:"target" yaml:"target"`

	// Manifest describes where identifier maps are persisted.
	Manifest ManifestConfig `mapstructure:"manifest" yaml:"manifest"`

	// Migrate contains settings of the migration engine.
	Migrate MigrateConfig `mapstructure:"migrate" yaml:"migrate"`

	Log LogConfig `mapstructure:"log" yaml:"log"`

	// JobsNumber is the number of concurrent workers within a stage and
	// during the patch pass.
	JobsNumber int `mapstructure:"jobs_number" yaml:"jobs_number"`

	// HomeDir determines where config, data and logs directories reside.
	// It must be set by CLI during init, there is no default value for it.
	HomeDir string
}

// SourceConfig contains connection settings of the legacy store.
type SourceConfig struct {
	// Kind is the source store implementation.
	// Valid values: "mongo", "sqlite".
	Kind string `mapstructure:"kind" yaml:"kind"`

	// URI is the MongoDB connection string (kind "mongo").
	URI string `mapstructure:"uri" yaml:"uri"`

	// Database is the MongoDB database name (kind "mongo").
	Database string `mapstructure:"database" yaml:"database"`

	// Path is the SQLite document dump location (kind "sqlite").
	Path string `mapstructure:"path" yaml:"path"`
}

// TargetConfig contains connection settings of the new store.
type TargetConfig struct {
	// URI is the MongoDB connection string.
	URI string `mapstructure:"uri" yaml:"uri"`

	// Database is the MongoDB database name.
	Database string `mapstructure:"database" yaml:"database"`
}

// ManifestConfig determines where the manifest is stored.
type ManifestConfig struct {
	// Kind is the manifest backend.
	// Valid values: "file", "s3", "postgres".
	Kind string `mapstructure:"kind" yaml:"kind"`

	// Path of the YAML manifest (kind "file"). Empty means
	// ~/.local/share/tmmigrate/manifest.yaml.
	Path string `mapstructure:"path" yaml:"path"`

	S3 S3Config `mapstructure:"s3" yaml:"s3"`

	Postgres PostgresConfig `mapstructure:"postgres" yaml:"postgres"`
}

// S3Config points to the S3 object (or MinIO) holding the manifest.
type S3Config struct {
	Bucket string `mapstructure:"bucket" yaml:"bucket"`
	Key    string `mapstructure:"key" yaml:"key"`
	Region string `mapstructure:"region" yaml:"region"`
	// Endpoint is optional, set it for S3-compatible services.
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint"`
	PathStyle bool   `mapstructure:"path_style" yaml:"path_style"`
}

// PostgresConfig contains PostgreSQL connection parameters of the
// manifest database.
type PostgresConfig struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	User     string `mapstructure:"user" yaml:"user"`
	Password string `mapstructure:"password" yaml:"password"`
	Database string `mapstructure:"database" yaml:"database"`

	// SSLMode specifies the SSL connection mode.
	// Valid values: "disable", "require", "verify-ca", "verify-full"
	SSLMode string `mapstructure:"ssl_mode" yaml:"ssl_mode"`
}

// MigrateConfig contains settings of the migration engine.
type MigrateConfig struct {
	// BatchSize is the number of records sent to the target store in one
	// insert call.
	BatchSize int `mapstructure:"batch_size" yaml:"batch_size"`

	// MaxAttempts bounds retries of a failed write or patch, first attempt
	// included.
	MaxAttempts int `mapstructure:"max_attempts" yaml:"max_attempts"`

	// RetryDelay is the initial backoff between attempts. It doubles
	// after every failed attempt.
	RetryDelay time.Duration `mapstructure:"retry_delay" yaml:"retry_delay"`

	// Timeout limits every single store call.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`

	// FlushEvery is the number of written records after which the manifest
	// is flushed in the middle of a stage.
	FlushEvery int `mapstructure:"flush_every" yaml:"flush_every"`

	// ErrorSamples is the number of error samples kept per entity type
	// and category for the final report.
	ErrorSamples int `mapstructure:"error_samples" yaml:"error_samples"`

	// MetricsFile, when not empty, receives run metrics in Prometheus
	// text exposition format after the run.
	MetricsFile string `mapstructure:"metrics_file" yaml:"metrics_file"`

	// DryRun reads and transforms records without writing anything.
	// Runtime-only field.
	DryRun bool `mapstructure:"-" yaml:"-"`

	// Resume seeds the identifier maps from an existing manifest.
	// Runtime-only field.
	Resume bool `mapstructure:"-" yaml:"-"`

	// Types restricts the run to given entity types. Empty means all.
	// Runtime-only field.
	Types []string `mapstructure:"-" yaml:"-"`
}

// LogConfig provides typical settings for application logs.
type LogConfig struct {
	// Format can be 'json', 'text' or 'tint' (user-facing and colored).
	Format string `mapstructure:"format"      yaml:"format"`
	// Level of logging -- 'error', 'warn', 'info', 'debug'
	Level string `mapstructure:"level"       yaml:"level"`
	// Destination can be a log file (to default place), STDERR or STDOUT
	Destination string `mapstructure:"destination" yaml:"destination"`
}

// New creates a Config with sensible default values.
// The returned config is always valid and ready to use.
// Default values can be overridden using Option functions via Update().
func New() *Config {
	res := &Config{
		Source: SourceConfig{
			Kind:     "mongo",
			URI:      "mongodb://localhost:27017",
			Database: "legacy",
		},
		Target: TargetConfig{
			URI:      "mongodb://localhost:27017",
			Database: "tm",
		},
		Manifest: ManifestConfig{
			Kind: "file",
			S3: S3Config{
				Key:    "tmmigrate/manifest.yaml",
				Region: "us-east-1",
			},
			Postgres: PostgresConfig{
				Host:     "localhost",
				Port:     5432,
				User:     "postgres",
				Password: "postgres",
				Database: "tmmigrate",
				SSLMode:  "disable",
			},
		},
		Migrate: MigrateConfig{
			BatchSize:    500,
			MaxAttempts:  3,
			RetryDelay:   500 * time.Millisecond,
			Timeout:      30 * time.Second,
			FlushEvery:   5_000,
			ErrorSamples: 10,
			Resume:       true,
		},
		Log: LogConfig{
			Format: "json",
			Level:  "info",
			// for now file is rewritten every time the log starts
			Destination: "file",
		},
		JobsNumber: runtime.NumCPU(), // Default to number of CPU threads
	}

	return res
}

// ManifestFilePath returns the location of the YAML manifest.
func (c *Config) ManifestFilePath() string {
	if c.Manifest.Path != "" {
		return c.Manifest.Path
	}
	return filepath.Join(DataDir(c.HomeDir), "manifest.yaml")
}
