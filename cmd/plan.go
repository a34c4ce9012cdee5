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

	"github.com/gnames/gn"
	"github.com/spf13/cobra"
	"github.com/tmforge/tmmigrate/internal/iomigrate"
)

// getPlanCmd returns the plan command.
func getPlanCmd() *cobra.Command {
	planCmd := &cobra.Command{
		Use:   "plan",
		Short: "Show stages of the migration and deferred references",
		Long: `Plan prints the order in which entity types are migrated and the
references that are filled in by the patch pass.

Types of one stage do not depend on each other and are written
concurrently. A reference to a type migrated in a later stage (or to the
same type) is deferred: it is stored empty and patched at the end.

No store is contacted.

Examples:
  tmmigrate plan`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := iomigrate.Plan()
			if err != nil {
				gn.PrintErrorMessage(err)
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), p.String())
			return nil
		},
	}

	return planCmd
}
