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
)

// getIndexCmd returns the index command.
func getIndexCmd() *cobra.Command {
	indexCmd := &cobra.Command{
		Use:   "index",
		Short: "Create missing indexes of the new store",
		Long: `Index creates indexes the new store needs. Existing indexes
are left as they are, so the command can be run any number of times.

Examples:
  tmmigrate index`,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := runIndex(cmd)
			if err != nil {
				gn.PrintErrorMessage(err)
			}
			return err
		},
	}

	return indexCmd
}

func runIndex(cmd *cobra.Command) error {
	ctx := cmd.Context()

	st, err := connect(ctx, cfg, withTarget)
	if err != nil {
		return err
	}
	defer st.close()

	m, err := st.migrator(cfg)
	if err != nil {
		return err
	}

	rep, err := m.Index(ctx)
	if err != nil {
		return err
	}

	gn.Info("Created <em>%d</em> indexes.", rep.IndexesCreated)
	return nil
}
