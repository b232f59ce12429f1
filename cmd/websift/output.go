package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/fwojciec/websift"
	"github.com/fwojciec/websift/fs"
	"github.com/jedib0t/go-pretty/v6/table"
)

// finish prints resp, exports it if requested and flushes metrics.
func finish(deps *Dependencies, flags RaceFlags, resp *websift.AggregatedResponse) error {
	if err := writeResponse(deps.Stdout, resp, flags.Format); err != nil {
		return err
	}
	if flags.Out != "" {
		out := filepath.Clean(flags.Out)
		exporter := fs.NewExporter(filepath.Dir(out), filepath.Base(out))
		if err := exporter.Export(deps.Ctx, resp); err != nil {
			fmt.Fprintf(deps.Stderr, "error: export: %s\n", websift.ErrorMessage(err))
			return err
		}
		fmt.Fprintf(deps.Stderr, "Wrote %d files to %s\n", resp.ActualCount, exporter.Dir())
	}
	if deps.Flush != nil {
		if err := deps.Flush(); err != nil {
			fmt.Fprintf(deps.Stderr, "warning: %s\n", websift.ErrorMessage(err))
		}
	}
	return nil
}

func writeResponse(w io.Writer, resp *websift.AggregatedResponse, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	case "markdown":
		now := time.Now()
		for i, o := range resp.Outcomes {
			if i > 0 {
				fmt.Fprint(w, "\n\n")
			}
			fmt.Fprint(w, fs.FormatOutcome(o, i+1, now))
		}
		fmt.Fprintln(w)
		return nil
	default:
		writeText(w, resp)
		return nil
	}
}

func writeText(w io.Writer, resp *websift.AggregatedResponse) {
	fmt.Fprintf(w, "Results for %q: %d of %d requested (%d pages raced)\n",
		resp.Query, resp.ActualCount, resp.RequestedCount, resp.Candidates)
	if resp.Partial {
		fmt.Fprintln(w, "No page met the quality bar; showing the best low-confidence results.")
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Score", "Tier", "Strategy", "Elapsed", "Words", "URL"})
	for i, o := range resp.Outcomes {
		score, tier := 0, websift.TierPoor
		if o.Score != nil {
			score, tier = o.Score.Score, o.Score.Tier
		}
		t.AppendRow(table.Row{
			i + 1, score, tier, o.WinningStrategy,
			o.TotalElapsed.Round(time.Millisecond), o.Result.WordCount, o.URL,
		})
	}
	t.Render()

	for i, o := range resp.Outcomes {
		title := o.Result.Title
		if title == "" {
			title = o.URL
		}
		fmt.Fprintf(w, "\n[%d] %s\n%s\n\n%s\n", i+1, title, o.URL, strings.TrimSpace(o.Result.Content))
	}
}
