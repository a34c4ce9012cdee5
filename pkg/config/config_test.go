package config_test

import (
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmforge/tmmigrate/pkg/config"
)

func TestDirs(t *testing.T) {
	tempHome := t.TempDir()

	tests := []struct {
		msg string
		fn  func(string) string
		res string
	}{
		{
			msg: "config dir",
			fn:  config.ConfigDir,
			res: filepath.Join(tempHome, ".config", "tmmigrate"),
		},
		{
			msg: "data dir",
			fn:  config.DataDir,
			res: filepath.Join(tempHome, ".local", "share", "tmmigrate"),
		},
		{
			msg: "log dir",
			fn:  config.LogDir,
			res: filepath.Join(tempHome, ".local", "share", "tmmigrate", "logs"),
		},
		{
			msg: "config file",
			fn:  config.ConfigFilePath,
			res: filepath.Join(tempHome, ".config", "tmmigrate", "config.yaml"),
		},
	}

	for _, v := range tests {
		res := v.fn(tempHome)
		assert.Equal(t, v.res, res, v.msg)
	}
}

func TestNew(t *testing.T) {
	cfg := config.New()
	require.NotNil(t, cfg)

	assert.Equal(t, "mongo", cfg.Source.Kind)
	assert.Equal(t, "legacy", cfg.Source.Database)
	assert.Equal(t, "tm", cfg.Target.Database)
	assert.Equal(t, "file", cfg.Manifest.Kind)
	assert.Equal(t, 5432, cfg.Manifest.Postgres.Port)
	assert.Equal(t, "disable", cfg.Manifest.Postgres.SSLMode)

	assert.Equal(t, 500, cfg.Migrate.BatchSize)
	assert.Equal(t, 3, cfg.Migrate.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Migrate.RetryDelay)
	assert.Equal(t, 30*time.Second, cfg.Migrate.Timeout)
	assert.True(t, cfg.Migrate.Resume)
	assert.False(t, cfg.Migrate.DryRun)
	assert.Empty(t, cfg.Migrate.Types)

	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "file", cfg.Log.Destination)
	assert.Equal(t, runtime.NumCPU(), cfg.JobsNumber)
}

func TestManifestFilePath(t *testing.T) {
	cfg := config.New()
	cfg.Update([]config.Option{config.OptHomeDir("/home/me")})
	assert.Equal(t,
		filepath.Join("/home/me", ".local", "share", "tmmigrate", "manifest.yaml"),
		cfg.ManifestFilePath(),
	)

	cfg.Update([]config.Option{config.OptManifestPath("/tmp/m.yaml")})
	assert.Equal(t, "/tmp/m.yaml", cfg.ManifestFilePath())
}

func TestOptionSourceURI(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "sets valid uri",
			input:    "mongodb://legacy:27017",
			expected: "mongodb://legacy:27017",
		},
		{
			name:     "trims whitespace",
			input:    "  mongodb://legacy:27017  ",
			expected: "mongodb://legacy:27017",
		},
		{
			name:     "ignores empty string",
			input:    "",
			expected: "mongodb://localhost:27017",
		},
		{
			name:     "ignores whitespace-only",
			input:    "   ",
			expected: "mongodb://localhost:27017",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.New()
			cfg.Update([]config.Option{config.OptSourceURI(tt.input)})
			assert.Equal(t, tt.expected, cfg.Source.URI)
		})
	}
}

func TestEnumOptions(t *testing.T) {
	tests := []struct {
		name  string
		opt   config.Option
		get   func(*config.Config) string
		value string
	}{
		{
			name:  "source kind sqlite",
			opt:   config.OptSourceKind("SQLite"),
			get:   func(c *config.Config) string { return c.Source.Kind },
			value: "sqlite",
		},
		{
			name:  "source kind unknown",
			opt:   config.OptSourceKind("couchdb"),
			get:   func(c *config.Config) string { return c.Source.Kind },
			value: "mongo",
		},
		{
			name:  "manifest kind s3",
			opt:   config.OptManifestKind(" s3 "),
			get:   func(c *config.Config) string { return c.Manifest.Kind },
			value: "s3",
		},
		{
			name:  "manifest kind unknown",
			opt:   config.OptManifestKind("redis"),
			get:   func(c *config.Config) string { return c.Manifest.Kind },
			value: "file",
		},
		{
			name:  "ssl mode",
			opt:   config.OptManifestPostgresSSLMode("verify-full"),
			get:   func(c *config.Config) string { return c.Manifest.Postgres.SSLMode },
			value: "verify-full",
		},
		{
			name:  "log level",
			opt:   config.OptLogLevel("DEBUG"),
			get:   func(c *config.Config) string { return c.Log.Level },
			value: "debug",
		},
		{
			name:  "log level unknown",
			opt:   config.OptLogLevel("trace"),
			get:   func(c *config.Config) string { return c.Log.Level },
			value: "info",
		},
		{
			name:  "log format tint",
			opt:   config.OptLogFormat("tint"),
			get:   func(c *config.Config) string { return c.Log.Format },
			value: "tint",
		},
		{
			name:  "log destination",
			opt:   config.OptLogDestination("stderr"),
			get:   func(c *config.Config) string { return c.Log.Destination },
			value: "stderr",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.New()
			cfg.Update([]config.Option{tt.opt})
			assert.Equal(t, tt.value, tt.get(cfg))
		})
	}
}

func TestNumericOptions(t *testing.T) {
	tests := []struct {
		name  string
		opt   config.Option
		get   func(*config.Config) int
		value int
	}{
		{"batch size", config.OptMigrateBatchSize(100),
			func(c *config.Config) int { return c.Migrate.BatchSize }, 100},
		{"batch size zero", config.OptMigrateBatchSize(0),
			func(c *config.Config) int { return c.Migrate.BatchSize }, 500},
		{"max attempts negative", config.OptMigrateMaxAttempts(-1),
			func(c *config.Config) int { return c.Migrate.MaxAttempts }, 3},
		{"flush every", config.OptMigrateFlushEvery(10),
			func(c *config.Config) int { return c.Migrate.FlushEvery }, 10},
		{"postgres port", config.OptManifestPostgresPort(6543),
			func(c *config.Config) int { return c.Manifest.Postgres.Port }, 6543},
		{"jobs number", config.OptJobsNumber(16),
			func(c *config.Config) int { return c.JobsNumber }, 16},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.New()
			cfg.Update([]config.Option{tt.opt})
			assert.Equal(t, tt.value, tt.get(cfg))
		})
	}
}

func TestDurationOptions(t *testing.T) {
	cfg := config.New()
	cfg.Update([]config.Option{
		config.OptMigrateRetryDelay(2 * time.Second),
		config.OptMigrateTimeout(0),
	})
	assert.Equal(t, 2*time.Second, cfg.Migrate.RetryDelay)
	assert.Equal(t, 30*time.Second, cfg.Migrate.Timeout)
}

func TestOptionMigrateTypes(t *testing.T) {
	cfg := config.New()
	cfg.Update([]config.Option{
		config.OptMigrateTypes([]string{" Account ", "", "item"}),
	})
	assert.Equal(t, []string{"account", "item"}, cfg.Migrate.Types)

	cfg.Update([]config.Option{config.OptMigrateTypes([]string{" "})})
	assert.Equal(t, []string{"account", "item"}, cfg.Migrate.Types)
}

func TestMultipleOptions(t *testing.T) {
	t.Run("later options override earlier ones", func(t *testing.T) {
		cfg := config.New()
		cfg.Update([]config.Option{
			config.OptTargetDatabase("first"),
			config.OptTargetDatabase("second"),
		})
		assert.Equal(t, "second", cfg.Target.Database)
	})
}

func TestToOptions(t *testing.T) {
	t.Run("round trips persistent fields", func(t *testing.T) {
		original := config.New()
		original.Update([]config.Option{
			config.OptSourceKind("sqlite"),
			config.OptSourcePath("/data/dump.db"),
			config.OptTargetURI("mongodb://new:27017"),
			config.OptTargetDatabase("tm2"),
			config.OptManifestKind("s3"),
			config.OptManifestS3Bucket("bucket"),
			config.OptManifestS3Endpoint("http://minio:9000"),
			config.OptManifestS3PathStyle(true),
			config.OptManifestPostgresHost("pg.example.com"),
			config.OptMigrateBatchSize(50),
			config.OptMigrateRetryDelay(time.Second),
			config.OptMigrateMetricsFile("/tmp/metrics.prom"),
			config.OptLogFormat("text"),
			config.OptJobsNumber(8),
		})

		newCfg := config.New()
		newCfg.Update(original.ToOptions())

		assert.Equal(t, original.Source, newCfg.Source)
		assert.Equal(t, original.Target, newCfg.Target)
		assert.Equal(t, original.Manifest, newCfg.Manifest)
		assert.Equal(t, original.Migrate, newCfg.Migrate)
		assert.Equal(t, original.Log, newCfg.Log)
		assert.Equal(t, original.JobsNumber, newCfg.JobsNumber)
	})

	t.Run("excludes runtime-only fields", func(t *testing.T) {
		cfg := config.New()
		cfg.Update([]config.Option{
			config.OptHomeDir("/custom/home"),
			config.OptMigrateDryRun(true),
			config.OptMigrateResume(false),
			config.OptMigrateTypes([]string{"account"}),
		})

		newCfg := config.New()
		newCfg.Update(cfg.ToOptions())

		assert.Equal(t, "", newCfg.HomeDir)
		assert.False(t, newCfg.Migrate.DryRun)
		assert.True(t, newCfg.Migrate.Resume)
		assert.Nil(t, newCfg.Migrate.Types)
	})
}
