// Package iotesting provides shared test utilities: configuration for
// integration tests and in-memory stores for engine tests.
package iotesting

import (
	"os"
	"testing"

	"github.com/tmforge/tmmigrate/pkg/config"
)

const (
	// TestDatabaseName is the database name used for all integration tests.
	// This ensures tests never accidentally run against production databases.
	TestDatabaseName = "tmmigrate_test"

	// MongoURIEnv points integration tests to a MongoDB server.
	MongoURIEnv = "TMMIGRATE_TEST_MONGO_URI"

	// PostgresHostEnv points integration tests to a PostgreSQL server.
	PostgresHostEnv = "TMMIGRATE_TEST_POSTGRES_HOST"
)

// GetTestConfig returns a configuration suitable for tests. Databases of
// both stores and of the manifest are named TestDatabaseName, the home
// directory is a temporary one.
func GetTestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.New()
	opts := []config.Option{
		config.OptHomeDir(t.TempDir()),
		config.OptSourceDatabase(TestDatabaseName + "_legacy"),
		config.OptTargetDatabase(TestDatabaseName),
		config.OptManifestPostgresDatabase(TestDatabaseName),
		config.OptMigrateRetryDelay(1),
		config.OptJobsNumber(4),
	}
	if uri := os.Getenv(MongoURIEnv); uri != "" {
		opts = append(opts,
			config.OptSourceURI(uri),
			config.OptTargetURI(uri),
		)
	}
	if host := os.Getenv(PostgresHostEnv); host != "" {
		opts = append(opts, config.OptManifestPostgresHost(host))
	}
	cfg.Update(opts)
	return cfg
}

// RequireMongo skips the test in short mode or when no MongoDB server is
// configured.
func RequireMongo(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping MongoDB integration test in short mode")
	}
	if os.Getenv(MongoURIEnv) == "" {
		t.Skipf("skipping MongoDB integration test, %s is not set", MongoURIEnv)
	}
}

// RequirePostgres skips the test in short mode or when no PostgreSQL
// server is configured.
func RequirePostgres(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping PostgreSQL integration test in short mode")
	}
	if os.Getenv(PostgresHostEnv) == "" {
		t.Skipf("skipping PostgreSQL integration test, %s is not set",
			PostgresHostEnv)
	}
}
