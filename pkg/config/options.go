package config

import (
	"strings"
	"time"
)

// Option is a function that modifies a Config.
// Options validate inputs and reject invalid values with warnings.
type Option func(*Config)

// OptSourceKind sets the source store implementation.
// Valid values: "mongo", "sqlite".
func OptSourceKind(s string) Option {
	s = strings.ToLower(strings.TrimSpace(s))
	return func(c *Config) {
		if isValidEnum("Source.Kind", s) {
			c.Source.Kind = s
		}
	}
}

// OptSourceURI sets the MongoDB connection string of the legacy store.
func OptSourceURI(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("Source URI", s) {
			c.Source.URI = s
		}
	}
}

// OptSourceDatabase sets the database name of the legacy store.
func OptSourceDatabase(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("Source Database", s) {
			c.Source.Database = s
		}
	}
}

// OptSourcePath sets the location of the SQLite document dump.
func OptSourcePath(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("Source Path", s) {
			c.Source.Path = s
		}
	}
}

// OptTargetURI sets the MongoDB connection string of the new store.
func OptTargetURI(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("Target URI", s) {
			c.Target.URI = s
		}
	}
}

// OptTargetDatabase sets the database name of the new store.
func OptTargetDatabase(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("Target Database", s) {
			c.Target.Database = s
		}
	}
}

// OptManifestKind sets the manifest backend.
// Valid values: "file", "s3", "postgres".
func OptManifestKind(s string) Option {
	s = strings.ToLower(strings.TrimSpace(s))
	return func(c *Config) {
		if isValidEnum("Manifest.Kind", s) {
			c.Manifest.Kind = s
		}
	}
}

// OptManifestPath sets the location of the YAML manifest.
func OptManifestPath(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("Manifest Path", s) {
			c.Manifest.Path = s
		}
	}
}

// OptManifestS3Bucket sets the bucket of the S3 manifest.
func OptManifestS3Bucket(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("Manifest S3 Bucket", s) {
			c.Manifest.S3.Bucket = s
		}
	}
}

// OptManifestS3Key sets the object key of the S3 manifest.
func OptManifestS3Key(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("Manifest S3 Key", s) {
			c.Manifest.S3.Key = s
		}
	}
}

// OptManifestS3Region sets the region of the S3 manifest bucket.
func OptManifestS3Region(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("Manifest S3 Region", s) {
			c.Manifest.S3.Region = s
		}
	}
}

// OptManifestS3Endpoint sets a custom endpoint (MinIO and friends).
func OptManifestS3Endpoint(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("Manifest S3 Endpoint", s) {
			c.Manifest.S3.Endpoint = s
		}
	}
}

// OptManifestS3PathStyle enables path-style S3 addressing.
func OptManifestS3PathStyle(b bool) Option {
	return func(c *Config) {
		c.Manifest.S3.PathStyle = b
	}
}

// OptManifestPostgresHost sets the PostgreSQL server hostname.
func OptManifestPostgresHost(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("Postgres Host", s) {
			c.Manifest.Postgres.Host = s
		}
	}
}

// OptManifestPostgresPort sets the PostgreSQL server port number.
func OptManifestPostgresPort(i int) Option {
	return func(c *Config) {
		if isValidInt("Postgres Port", i) {
			c.Manifest.Postgres.Port = i
		}
	}
}

// OptManifestPostgresUser sets the PostgreSQL database username.
func OptManifestPostgresUser(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("Postgres User", s) {
			c.Manifest.Postgres.User = s
		}
	}
}

// OptManifestPostgresPassword sets the PostgreSQL database password.
func OptManifestPostgresPassword(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("Postgres Password", s) {
			c.Manifest.Postgres.Password = s
		}
	}
}

// OptManifestPostgresDatabase sets the PostgreSQL database name.
func OptManifestPostgresDatabase(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("Postgres Database", s) {
			c.Manifest.Postgres.Database = s
		}
	}
}

// OptManifestPostgresSSLMode sets the SSL connection mode.
// Valid values: "disable", "require", "verify-ca", "verify-full".
func OptManifestPostgresSSLMode(s string) Option {
	s = strings.ToLower(strings.TrimSpace(s))
	return func(c *Config) {
		if isValidEnum("Postgres.SSLMode", s) {
			c.Manifest.Postgres.SSLMode = s
		}
	}
}

// OptMigrateBatchSize sets the number of records per insert call.
func OptMigrateBatchSize(i int) Option {
	return func(c *Config) {
		if isValidInt("Batch Size", i) {
			c.Migrate.BatchSize = i
		}
	}
}

// OptMigrateMaxAttempts sets how many times a write or a patch is tried.
func OptMigrateMaxAttempts(i int) Option {
	return func(c *Config) {
		if isValidInt("Max Attempts", i) {
			c.Migrate.MaxAttempts = i
		}
	}
}

// OptMigrateRetryDelay sets the initial backoff between attempts.
func OptMigrateRetryDelay(d time.Duration) Option {
	return func(c *Config) {
		if isValidDuration("Retry Delay", d) {
			c.Migrate.RetryDelay = d
		}
	}
}

// OptMigrateTimeout sets the timeout of every store call.
func OptMigrateTimeout(d time.Duration) Option {
	return func(c *Config) {
		if isValidDuration("Timeout", d) {
			c.Migrate.Timeout = d
		}
	}
}

// OptMigrateFlushEvery sets how often the manifest is flushed within
// a stage.
func OptMigrateFlushEvery(i int) Option {
	return func(c *Config) {
		if isValidInt("Flush Every", i) {
			c.Migrate.FlushEvery = i
		}
	}
}

// OptMigrateErrorSamples sets the number of error samples kept per type.
func OptMigrateErrorSamples(i int) Option {
	return func(c *Config) {
		if isValidInt("Error Samples", i) {
			c.Migrate.ErrorSamples = i
		}
	}
}

// OptMigrateMetricsFile sets the file for Prometheus text metrics.
func OptMigrateMetricsFile(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("Metrics File", s) {
			c.Migrate.MetricsFile = s
		}
	}
}

// OptMigrateDryRun turns writes off.
// Runtime-only field - not in ToOptions().
func OptMigrateDryRun(b bool) Option {
	return func(c *Config) {
		c.Migrate.DryRun = b
	}
}

// OptMigrateResume decides if an existing manifest seeds the run.
// Runtime-only field - not in ToOptions().
func OptMigrateResume(b bool) Option {
	return func(c *Config) {
		c.Migrate.Resume = b
	}
}

// OptMigrateTypes restricts the run to the given entity types.
// Names are lower-cased, empty names are dropped.
// Runtime-only field - not in ToOptions().
func OptMigrateTypes(ss []string) Option {
	var types []string
	for _, v := range ss {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			types = append(types, v)
		}
	}
	return func(c *Config) {
		if len(types) > 0 {
			c.Migrate.Types = types
		}
	}
}

// OptLogLevel sets the logging level.
// Valid values: "debug", "info", "warn", "error".
func OptLogLevel(s string) Option {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return func(c *Config) {
		if isValidEnum("Log.Level", s) {
			c.Log.Level = s
		}
	}
}

// OptLogFormat sets the log output format.
// Valid values: "json", "text", "tint".
func OptLogFormat(s string) Option {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return func(c *Config) {
		if isValidEnum("Log.Format", s) {
			c.Log.Format = s
		}
	}
}

// OptLogDestination sets where logs are written.
// Valid values: "file", "stderr", "stdout".
func OptLogDestination(s string) Option {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return func(c *Config) {
		if isValidEnum("Log.Destination", s) {
			c.Log.Destination = s
		}
	}
}

// OptJobsNumber sets the number of concurrent workers.
// Default is runtime.NumCPU().
func OptJobsNumber(i int) Option {
	return func(c *Config) {
		if isValidInt("Jobs Number", i) {
			c.JobsNumber = i
		}
	}
}

// OptHomeDir sets the home directory for config, data, and log locations.
// Set once at startup from os.UserHomeDir().
// Runtime-only field - not in ToOptions().
func OptHomeDir(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("Home Directory", s) {
			c.HomeDir = s
		}
	}
}
