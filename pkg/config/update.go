package config

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/gnames/gn"
)

// Update applies a slice of Option functions to the Config.
// This is the only way to modify a Config after creation.
// Invalid options are rejected with warnings - config remains in valid state.
func (c *Config) Update(opts []Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// ToOptions converts the Config to a slice of Option functions.
// Only includes persistent fields appropriate for config.yaml.
// Excludes runtime-only fields (HomeDir, DryRun, Resume, Types).
// Used for round-tripping config.yaml ↔ Config conversions.
func (c *Config) ToOptions() []Option {
	var res []Option
	add := func(ok bool, opt Option) {
		if ok {
			res = append(res, opt)
		}
	}

	add(c.Source.Kind != "", OptSourceKind(c.Source.Kind))
	add(c.Source.URI != "", OptSourceURI(c.Source.URI))
	add(c.Source.Database != "", OptSourceDatabase(c.Source.Database))
	add(c.Source.Path != "", OptSourcePath(c.Source.Path))

	add(c.Target.URI != "", OptTargetURI(c.Target.URI))
	add(c.Target.Database != "", OptTargetDatabase(c.Target.Database))

	m := c.Manifest
	add(m.Kind != "", OptManifestKind(m.Kind))
	add(m.Path != "", OptManifestPath(m.Path))
	add(m.S3.Bucket != "", OptManifestS3Bucket(m.S3.Bucket))
	add(m.S3.Key != "", OptManifestS3Key(m.S3.Key))
	add(m.S3.Region != "", OptManifestS3Region(m.S3.Region))
	add(m.S3.Endpoint != "", OptManifestS3Endpoint(m.S3.Endpoint))
	add(m.S3.PathStyle, OptManifestS3PathStyle(m.S3.PathStyle))
	add(m.Postgres.Host != "", OptManifestPostgresHost(m.Postgres.Host))
	add(m.Postgres.Port > 0, OptManifestPostgresPort(m.Postgres.Port))
	add(m.Postgres.User != "", OptManifestPostgresUser(m.Postgres.User))
	add(m.Postgres.Password != "",
		OptManifestPostgresPassword(m.Postgres.Password))
	add(m.Postgres.Database != "",
		OptManifestPostgresDatabase(m.Postgres.Database))
	add(m.Postgres.SSLMode != "",
		OptManifestPostgresSSLMode(m.Postgres.SSLMode))

	mg := c.Migrate
	add(mg.BatchSize > 0, OptMigrateBatchSize(mg.BatchSize))
	add(mg.MaxAttempts > 0, OptMigrateMaxAttempts(mg.MaxAttempts))
	add(mg.RetryDelay > 0, OptMigrateRetryDelay(mg.RetryDelay))
	add(mg.Timeout > 0, OptMigrateTimeout(mg.Timeout))
	add(mg.FlushEvery > 0, OptMigrateFlushEvery(mg.FlushEvery))
	add(mg.ErrorSamples > 0, OptMigrateErrorSamples(mg.ErrorSamples))
	add(mg.MetricsFile != "", OptMigrateMetricsFile(mg.MetricsFile))

	add(c.Log.Format != "", OptLogFormat(c.Log.Format))
	add(c.Log.Level != "", OptLogLevel(c.Log.Level))
	add(c.Log.Destination != "", OptLogDestination(c.Log.Destination))

	add(c.JobsNumber > 0, OptJobsNumber(c.JobsNumber))
	return res
}

func isValidString(name, s string) bool {
	res := s != ""
	if !res {
		gn.Warn("<em>%s</em> cannot be empty, ignoring", name)
	}
	return res
}

func isValidInt(name string, i int) bool {
	res := i > 0
	if !res {
		gn.Warn("<em>%s</em> has to be positive number, ignoring %d", name, i)
	}
	return res
}

func isValidDuration(name string, d time.Duration) bool {
	res := d > 0
	if !res {
		gn.Warn("<em>%s</em> has to be positive duration, ignoring %s", name, d)
	}
	return res
}

func isValidEnum(name, val string) bool {
	s := struct{}{}
	data := map[string]map[string]struct{}{
		"Source.Kind":   {"mongo": s, "sqlite": s},
		"Manifest.Kind": {"file": s, "s3": s, "postgres": s},
		"Postgres.SSLMode": {"disable": s, "require": s,
			"verify-ca": s, "verify-full": s},
		"Log.Level":       {"debug": s, "info": s, "warn": s, "error": s},
		"Log.Format":      {"json": s, "text": s, "tint": s},
		"Log.Destination": {"file": s, "stderr": s, "stdout": s},
	}
	if _, ok := data[name][val]; ok {
		return true
	}

	vals := slices.Sorted(maps.Keys(data[name]))
	var lines []string
	for _, v := range vals {
		line := fmt.Sprintf("  * %s", v)
		lines = append(lines, line)
	}
	gn.Warn(
		"<em>%s</em> does not support '%s' as a value. "+
			"Valid values are: \n%s\nIgnoring...",
		name, val, strings.Join(lines, "\n"),
	)
	return false
}
