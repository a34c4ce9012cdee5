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
	"github.com/gnames/gn"
	"github.com/spf13/cobra"
	"github.com/tmforge/tmmigrate/pkg/config"
)

// getMigrateCmd returns the migrate command.
// Extracted as a function to facilitate testing and dynamic
// command registration.
func getMigrateCmd() *cobra.Command {
	var (
		dryRun    bool
		noResume  bool
		resume    bool
		jobs      int
		batchSize int
		types     []string
	)

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Migrate all entity types into the new store",
		Long: `Migrate reads records of the legacy store and writes them into the new one.

This command:
  1. Connects to the source, the target and the manifest store
  2. Seeds identifier maps from the manifest (unless --no-resume)
  3. Runs stages in dependency order: accounts, collections,
     items and memory entries, reviews
  4. Patches references that were deferred during the stages
  5. Creates missing indexes
  6. Prints a per-type summary

Records that fail transformation or writing are skipped and counted.
The command exits with non-zero code when any record failed to be
written, any reference failed to be patched, or the run was interrupted.
An interrupted run can be continued by running the command again.

Examples:
  # Full migration
  tmmigrate migrate

  # Read and transform everything, write nothing
  tmmigrate migrate --dry-run

  # Migrate only reviews (their dependencies must be in the manifest)
  tmmigrate migrate --types review

  # Start from scratch, ignoring an existing manifest
  tmmigrate migrate --no-resume`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts []config.Option
			flags := cmd.Flags()
			if flags.Changed("dry-run") {
				opts = append(opts, config.OptMigrateDryRun(dryRun))
			}
			if flags.Changed("resume") {
				opts = append(opts, config.OptMigrateResume(resume))
			}
			if flags.Changed("no-resume") {
				opts = append(opts, config.OptMigrateResume(!noResume))
			}
			if flags.Changed("jobs") {
				opts = append(opts, config.OptJobsNumber(jobs))
			}
			if flags.Changed("batch-size") {
				opts = append(opts, config.OptMigrateBatchSize(batchSize))
			}
			if flags.Changed("types") {
				opts = append(opts, config.OptMigrateTypes(types))
			}
			cfg.Update(opts)

			err := runMigrate(cmd)
			if err != nil {
				gn.PrintErrorMessage(err)
			}
			return err
		},
	}

	f := migrateCmd.Flags()
	f.BoolVarP(&dryRun, "dry-run", "n", false,
		"read and transform records without writing")
	f.BoolVar(&resume, "resume", true,
		"continue from an existing manifest")
	f.BoolVar(&noResume, "no-resume", false,
		"ignore an existing manifest and start from scratch")
	f.IntVarP(&jobs, "jobs", "j", 0,
		"number of concurrent workers")
	f.IntVarP(&batchSize, "batch-size", "b", 0,
		"records per insert call")
	f.StringSliceVarP(&types, "types", "t", nil,
		"entity types to migrate (empty = all)")
	migrateCmd.MarkFlagsMutuallyExclusive("resume", "no-resume")

	return migrateCmd
}

func runMigrate(cmd *cobra.Command) error {
	ctx := cmd.Context()

	st, err := connect(ctx, cfg, withSource|withTarget|withManifest)
	if err != nil {
		return err
	}
	defer st.close()

	m, err := st.migrator(cfg)
	if err != nil {
		return err
	}

	if cfg.Migrate.DryRun {
		gn.Info("Dry run: records are read and transformed, nothing is written")
	}
	gn.Info("Starting migration...")
	rep, err := m.Migrate(ctx)
	if err = finishRun(rep, err); err != nil {
		return err
	}

	gn.Info("Migration is complete.")
	return nil
}
