package report

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/gnames/gnfmt"
)

// Summary renders the report as a table for the console.
func (r *Report) Summary() string {
	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "type\ttotal\tmigrated\tresumed\tskipped\terrored\tdangling\t")
	row := func(name string, s TypeStats) {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n", name,
			humanize.Comma(int64(s.Total)),
			humanize.Comma(int64(s.Migrated)),
			humanize.Comma(int64(s.Resumed)),
			humanize.Comma(int64(s.Skipped)),
			humanize.Comma(int64(s.Errored)),
			humanize.Comma(int64(s.Dangling)),
		)
	}
	for _, t := range r.Types() {
		row(string(t), r.Stats(t))
	}
	row("all", r.Totals())
	_ = w.Flush()

	r.mu.Lock()
	p := r.Patch
	idx := r.IndexesCreated
	dur := r.FinishedAt.Sub(r.StartedAt)
	dry := r.DryRun
	r.mu.Unlock()

	fmt.Fprintf(&sb, "\npatched: %s, broken references: %s, failed patches: %s\n",
		humanize.Comma(int64(p.Patched)),
		humanize.Comma(int64(p.Broken)),
		humanize.Comma(int64(p.Failed)),
	)
	fmt.Fprintf(&sb, "indexes created: %d\n", idx)
	if dur > 0 {
		fmt.Fprintf(&sb, "elapsed: %s\n", gnfmt.TimeString(dur.Seconds()))
	}
	if dry {
		sb.WriteString("dry run: nothing was written\n")
	}

	samples := r.Samples()
	if len(samples) > 0 {
		sb.WriteString("\nerror samples:\n")
		for _, v := range samples {
			fmt.Fprintf(&sb, "  [%s] %s %s: %s\n", v.Category, v.Type, v.Key,
				v.Message)
		}
	}
	return sb.String()
}
