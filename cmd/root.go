/*
Copyright © 2025 Dmitry Mozzherin <dmozzherin@gmail.com>

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gnames/gn"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tmforge/tmmigrate/internal/iofs"
	"github.com/tmforge/tmmigrate/internal/iologger"
	app "github.com/tmforge/tmmigrate/pkg"
	"github.com/tmforge/tmmigrate/pkg/config"
)

var (
	homeDir   string
	cfg       *config.Config
	logCloser io.Closer
)

// getRootCmd returns the root command with all subcommands attached.
func getRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Version: fmt.Sprintf("version: %s\nbuild:   %s", app.Version, app.Build),
		Use:     "tmmigrate",
		Short:   "Migrates translation-management data to a new document store",
		Long: `tmmigrate moves accounts, collections, items, reviews and translation
memory entries from a legacy document store into a new one.

Every record gets a new key. References between records are rewritten
with the new keys; references that cannot be resolved during their own
stage are filled in by a patch pass at the end. Old-to-new key maps are
kept in a manifest, so an interrupted run can be resumed.

Commands:
  - plan: show the order of stages and deferred references
  - migrate: run all stages, the patch pass and the index builder
  - patch: repeat the patch pass from the manifest
  - index: create missing indexes of the new store
  - manifest: show statistics of the manifest

Configuration precedence (highest to lowest):
  1. CLI flags
  2. Environment variables (TMMIGRATE_*), also read from .env
  3. Config file (~/.config/tmmigrate/config.yaml)
  4. Built-in defaults

Environment Variables:
  Nested fields use underscores (source.uri → TMMIGRATE_SOURCE_URI).

  Examples:
    TMMIGRATE_SOURCE_URI              legacy MongoDB connection string
    TMMIGRATE_TARGET_URI              new MongoDB connection string
    TMMIGRATE_MANIFEST_KIND           file, s3 or postgres
    TMMIGRATE_MIGRATE_BATCH_SIZE      records per insert call
    TMMIGRATE_LOG_LEVEL               debug, info, warn, error`,
		PersistentPreRunE:  bootstrap,
		PersistentPostRunE: shutdown,
		SilenceErrors:      true,
		SilenceUsage:       true,
	}

	// Remove the automatic "tmmigrate version" prefix
	rootCmd.SetVersionTemplate("{{.Version}}\n")
	rootCmd.Flags().BoolP("version", "V", false, "version for tmmigrate")

	rootCmd.AddCommand(
		getPlanCmd(),
		getMigrateCmd(),
		getPatchCmd(),
		getIndexCmd(),
		getManifestCmd(),
	)

	return rootCmd
}

// Execute runs the root command. SIGINT and SIGTERM cancel the context
// of the running command.
func Execute() {
	ctx, cancel := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM,
	)
	err := getRootCmd().ExecuteContext(ctx)
	cancel()
	if err != nil {
		os.Exit(1)
	}
}

func bootstrap(cmd *cobra.Command, args []string) error {
	var err error
	homeDir, err = os.UserHomeDir()
	if err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	if err = iofs.EnsureDirs(homeDir); err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	if err = iofs.EnsureConfigFile(homeDir); err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	var cfgViper *config.Config
	if cfgViper, err = initConfig(homeDir); err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	cfg = config.New()
	cfg.Update(cfgViper.ToOptions())
	cfg.Update([]config.Option{config.OptHomeDir(homeDir)})

	logCloser, err = iologger.Init(config.LogDir(homeDir), cfg.Log, false)
	if err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	slog.Info("Configuration loaded",
		"config_file", config.ConfigFilePath(homeDir),
		"command", cmd.Name(),
	)
	return nil
}

func shutdown(_ *cobra.Command, _ []string) error {
	if logCloser == nil {
		return nil
	}
	return logCloser.Close()
}

func initConfig(home string) (*config.Config, error) {
	data, err := iofs.ReadConfigFile(home)
	if err != nil {
		return nil, err
	}

	cfgPath := config.ConfigFilePath(home)
	v := viper.New()
	v.SetConfigType("yaml")

	initEnvVars(v)

	if err = v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, iofs.ParseConfigError(cfgPath, err)
	}

	var res config.Config
	if err = v.Unmarshal(&res); err != nil {
		return nil, iofs.ParseConfigError(cfgPath, err)
	}

	return &res, nil
}

// initEnvVars binds environment variables explicitly, so it is clear which
// of them are supported. They match fields of config.ToOptions().
func initEnvVars(v *viper.Viper) {
	v.SetEnvPrefix("TMMIGRATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	v.AutomaticEnv()
}

var envKeys = []string{
	"source.kind",
	"source.uri",
	"source.database",
	"source.path",

	"target.uri",
	"target.database",

	"manifest.kind",
	"manifest.path",
	"manifest.s3.bucket",
	"manifest.s3.key",
	"manifest.s3.region",
	"manifest.s3.endpoint",
	"manifest.s3.path_style",
	"manifest.postgres.host",
	"manifest.postgres.port",
	"manifest.postgres.user",
	"manifest.postgres.password",
	"manifest.postgres.database",
	"manifest.postgres.ssl_mode",

	"migrate.batch_size",
	"migrate.max_attempts",
	"migrate.retry_delay",
	"migrate.timeout",
	"migrate.flush_every",
	"migrate.error_samples",
	"migrate.metrics_file",

	"log.level",
	"log.format",
	"log.destination",

	"jobs_number",
}
