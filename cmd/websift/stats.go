package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fwojciec/websift"
	"github.com/jedib0t/go-pretty/v6/table"
)

// Run executes the stats command.
func (c *StatsCmd) Run(deps *Dependencies) error {
	stats, err := deps.Outcomes.StrategyStats(deps.Ctx)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", websift.ErrorMessage(err))
		return err
	}
	recent, err := deps.Outcomes.FindOutcomes(deps.Ctx, websift.OutcomeFilter{Limit: c.Recent})
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", websift.ErrorMessage(err))
		return err
	}

	if c.JSON {
		enc := json.NewEncoder(deps.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Strategies []websift.StrategyStat      `json:"strategies"`
			Recent     []*websift.RecordedOutcome `json:"recent"`
		}{stats, recent})
	}

	if len(stats) == 0 {
		fmt.Fprintln(deps.Stdout, "No race history yet. Use 'websift search' to record some.")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(deps.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Strategy", "Attempts", "Wins", "Win rate", "Failed", "Timeout", "Canceled", "Mean elapsed", "Mean score"})
	for _, s := range stats {
		t.AppendRow(table.Row{
			s.StrategyID, s.Attempts, s.Wins,
			fmt.Sprintf("%.0f%%", s.WinRate()*100),
			s.Failures, s.Timeouts, s.Canceled,
			s.MeanElapsed.Round(time.Millisecond),
			fmt.Sprintf("%.1f", s.MeanScore),
		})
	}
	t.Render()

	if len(recent) == 0 {
		return nil
	}
	fmt.Fprintln(deps.Stdout)
	r := table.NewWriter()
	r.SetOutputMirror(deps.Stdout)
	r.SetStyle(table.StyleLight)
	r.AppendHeader(table.Row{"When", "Query", "State", "Strategy", "Score", "URL"})
	for _, o := range recent {
		r.AppendRow(table.Row{
			o.RecordedAt.Local().Format(time.DateTime), o.Query, o.State, o.Strategy, o.Score, o.URL,
		})
	}
	r.Render()
	return nil
}
