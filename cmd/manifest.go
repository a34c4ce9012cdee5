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
	"fmt"
	"io"
	"maps"
	"slices"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/gnames/gn"
	"github.com/spf13/cobra"
	"github.com/tmforge/tmmigrate/pkg/manifest"
)

// getManifestCmd returns the manifest command.
func getManifestCmd() *cobra.Command {
	var validate bool

	manifestCmd := &cobra.Command{
		Use:   "manifest",
		Short: "Show statistics of the manifest",
		Long: `Manifest prints what the manifest of the current source and target
knows: identifier map sizes per entity type, completed stages and
references waiting for the patch pass.

Examples:
  tmmigrate manifest

  # Also check that the manifest is consistent
  tmmigrate manifest --validate`,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := runManifest(cmd, validate)
			if err != nil {
				gn.PrintErrorMessage(err)
			}
			return err
		},
	}

	manifestCmd.Flags().BoolVar(&validate, "validate", false,
		"check keys and deferred references of the manifest")

	return manifestCmd
}

func runManifest(cmd *cobra.Command, validate bool) error {
	ctx := cmd.Context()

	st, err := connect(ctx, cfg, withManifest)
	if err != nil {
		return err
	}
	defer st.close()

	man, err := st.store.Load(ctx)
	if err != nil {
		return err
	}
	if man == nil {
		gn.Warn("No manifest found for <em>%s</em>", cfg.Manifest.Kind)
		return nil
	}

	if validate {
		if err = man.Validate(); err != nil {
			return err
		}
		gn.Info("Manifest is valid.")
	}

	printManifest(cmd.OutOrStdout(), man)
	return nil
}

func printManifest(out io.Writer, man *manifest.Manifest) {
	fmt.Fprintf(out, "run:       %s\n", man.RunID)
	fmt.Fprintf(out, "attempt:   %s\n", man.AttemptID)
	fmt.Fprintf(out, "source:    %s\n", man.Source)
	fmt.Fprintf(out, "target:    %s\n", man.Target)
	fmt.Fprintf(out, "started:   %s\n", man.StartedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "updated:   %s (%s)\n",
		man.UpdatedAt.Format("2006-01-02 15:04:05"),
		humanize.Time(man.UpdatedAt))
	fmt.Fprintf(out, "completed: %v\n", man.Completed)
	fmt.Fprintf(out, "patched:   %t\n\n", man.Patched)

	stats := man.Stats()
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "type\tpairs")
	for _, t := range man.Types() {
		fmt.Fprintf(w, "%s\t%s\n", t, humanize.Comma(int64(stats.Pairs[t])))
	}
	fmt.Fprintf(w, "all\t%s\n", humanize.Comma(int64(stats.Total)))
	_ = w.Flush()

	if len(stats.Deferred) == 0 {
		return
	}
	fmt.Fprintln(out)
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "deferred\trefs")
	for _, k := range slices.Sorted(maps.Keys(stats.Deferred)) {
		fmt.Fprintf(w, "%s\t%s\n", k, humanize.Comma(int64(stats.Deferred[k])))
	}
	_ = w.Flush()
}
