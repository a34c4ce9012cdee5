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

// getPatchCmd returns the patch command.
func getPatchCmd() *cobra.Command {
	patchCmd := &cobra.Command{
		Use:   "patch",
		Short: "Repeat the patch pass using the manifest",
		Long: `Patch fills in deferred references of already migrated records.

This command:
  1. Loads identifier maps and deferred references from the manifest
  2. Replaces old keys of every deferred reference with new ones
  3. Writes the field into the new store

References to records that were never migrated are dropped and counted
as broken. Running the command twice gives the same documents.

Examples:
  tmmigrate patch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Update([]config.Option{config.OptMigrateResume(true)})
			err := runPatch(cmd)
			if err != nil {
				gn.PrintErrorMessage(err)
			}
			return err
		},
	}

	return patchCmd
}

func runPatch(cmd *cobra.Command) error {
	ctx := cmd.Context()

	st, err := connect(ctx, cfg, withTarget|withManifest)
	if err != nil {
		return err
	}
	defer st.close()

	m, err := st.migrator(cfg)
	if err != nil {
		return err
	}

	gn.Info("Patching deferred references...")
	rep, err := m.Patch(ctx)
	if err = finishRun(rep, err); err != nil {
		return err
	}

	gn.Info("References are patched.")
	return nil
}
