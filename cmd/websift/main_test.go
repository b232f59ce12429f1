package main_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fwojciec/websift"
	main "github.com/fwojciec/websift/cmd/websift"
	"github.com/fwojciec/websift/mock"
	"github.com/fwojciec/websift/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resolved returns a racer that resolves every URL with score.
func resolved(score int) *mock.Racer {
	return &mock.Racer{
		RaceFn: func(ctx context.Context, c websift.CandidateURL) *websift.ExtractionOutcome {
			return &websift.ExtractionOutcome{
				URL:             c.URL,
				Position:        c.Position,
				State:           websift.RaceResolved,
				WinningStrategy: "static",
				TotalElapsed:    1200 * time.Millisecond,
				Result: &websift.ExtractionResult{
					URL:         c.URL,
					Title:       "Page " + c.URL,
					Content:     "# Heading\n\nBody of " + c.URL,
					WordCount:   4,
					ContentHash: c.URL,
				},
				Score: &websift.QualityScore{Score: score, Tier: websift.TierFor(score)},
			}
		},
	}
}

func testDeps(searcher *search.Searcher) (*main.Dependencies, *bytes.Buffer, *bytes.Buffer) {
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	return &main.Dependencies{
		Ctx:      context.Background(),
		Stdout:   stdout,
		Stderr:   stderr,
		Searcher: searcher,
	}, stdout, stderr
}

func TestSearchCmd_Run(t *testing.T) {
	t.Parallel()

	t.Run("prints table and content", func(t *testing.T) {
		t.Parallel()

		deps, stdout, _ := testDeps(&search.Searcher{
			Provider: &mock.SearchService{
				SearchFn: func(ctx context.Context, query string, limit int) ([]websift.SearchResult, error) {
					return []websift.SearchResult{{URL: "https://go.dev/doc", Title: "Docs"}}, nil
				},
			},
			Ranker: search.KeywordRanker{},
			Racer:  resolved(88),
		})

		cmd := &main.SearchCmd{Query: "go docs", Count: 1, RaceFlags: main.RaceFlags{Format: "text"}}
		require.NoError(t, cmd.Run(deps))

		out := stdout.String()
		assert.Contains(t, out, `Results for "go docs": 1 of 1 requested`)
		assert.Contains(t, out, "EXCELLENT")
		assert.Contains(t, out, "https://go.dev/doc")
		assert.Contains(t, out, "Body of https://go.dev/doc")
	})

	t.Run("reports no result", func(t *testing.T) {
		t.Parallel()

		deps, _, stderr := testDeps(&search.Searcher{
			Provider: &mock.SearchService{
				SearchFn: func(ctx context.Context, query string, limit int) ([]websift.SearchResult, error) {
					return nil, nil
				},
			},
		})

		err := (&main.SearchCmd{Query: "nothing", Count: 1}).Run(deps)

		assert.Equal(t, websift.ENORESULT, websift.ErrorCode(err))
		assert.Contains(t, stderr.String(), "error:")
	})
}

func TestExtractCmd_Run(t *testing.T) {
	t.Parallel()

	t.Run("json output", func(t *testing.T) {
		t.Parallel()

		deps, stdout, _ := testDeps(&search.Searcher{Racer: resolved(72)})

		cmd := &main.ExtractCmd{
			URLs:      []string{"https://a.example/", "https://b.example/"},
			Query:     "q",
			RaceFlags: main.RaceFlags{Format: "json"},
		}
		require.NoError(t, cmd.Run(deps))

		var resp websift.AggregatedResponse
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &resp))
		assert.Equal(t, "q", resp.Query)
		assert.Equal(t, 2, resp.RequestedCount, "defaults to one per URL")
		assert.Equal(t, 2, resp.ActualCount)
		assert.Equal(t, "https://a.example/", resp.Outcomes[0].URL)
	})

	t.Run("markdown output", func(t *testing.T) {
		t.Parallel()

		deps, stdout, _ := testDeps(&search.Searcher{Racer: resolved(72)})

		cmd := &main.ExtractCmd{URLs: []string{"https://a.example/"}, RaceFlags: main.RaceFlags{Format: "markdown"}}
		require.NoError(t, cmd.Run(deps))

		assert.Contains(t, stdout.String(), "---\nsource: https://a.example/\n")
		assert.Contains(t, stdout.String(), "tier: GOOD")
	})

	t.Run("exports files and flushes", func(t *testing.T) {
		t.Parallel()

		deps, _, stderr := testDeps(&search.Searcher{Racer: resolved(90)})
		flushed := false
		deps.Flush = func() error {
			flushed = true
			return nil
		}
		out := filepath.Join(t.TempDir(), "results")

		cmd := &main.ExtractCmd{
			URLs:      []string{"https://a.example/docs"},
			RaceFlags: main.RaceFlags{Format: "json", Out: out},
		}
		require.NoError(t, cmd.Run(deps))

		_, err := os.Stat(filepath.Join(out, "a.example", "docs.md"))
		require.NoError(t, err)
		assert.Contains(t, stderr.String(), "Wrote 1 files")
		assert.True(t, flushed)
	})
}

func TestBudgetCmd_Run(t *testing.T) {
	t.Parallel()

	budget := &mock.BudgetSource{
		CurrentBudgetFn: func() websift.ResourceBudget {
			return websift.ResourceBudget{
				MaxParallelOps: 3,
				Sample:         websift.HostSample{LogicalCores: 4, CPUPercent: 55, MemAvailable: 3 << 30, MemUsedPercent: 60},
			}
		},
	}

	t.Run("table", func(t *testing.T) {
		t.Parallel()

		stdout := &bytes.Buffer{}
		deps := &main.Dependencies{Ctx: context.Background(), Stdout: stdout, Budget: budget}

		require.NoError(t, (&main.BudgetCmd{}).Run(deps))

		assert.Contains(t, stdout.String(), "Max parallel ops")
		assert.Contains(t, stdout.String(), "55.0%")
		assert.Contains(t, stdout.String(), "3.0 GiB")
	})

	t.Run("json", func(t *testing.T) {
		t.Parallel()

		stdout := &bytes.Buffer{}
		deps := &main.Dependencies{Ctx: context.Background(), Stdout: stdout, Budget: budget}

		require.NoError(t, (&main.BudgetCmd{JSON: true}).Run(deps))

		var got websift.ResourceBudget
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &got))
		assert.Equal(t, 3, got.MaxParallelOps)
		assert.Equal(t, 4, got.Sample.LogicalCores)
	})
}

func TestStatsCmd_Run(t *testing.T) {
	t.Parallel()

	outcomes := &mock.OutcomeService{
		StrategyStatsFn: func(ctx context.Context) ([]websift.StrategyStat, error) {
			return []websift.StrategyStat{
				{StrategyID: "static", Attempts: 4, Wins: 3, MeanElapsed: 900 * time.Millisecond, MeanScore: 71.5},
			}, nil
		},
		FindOutcomesFn: func(ctx context.Context, filter websift.OutcomeFilter) ([]*websift.RecordedOutcome, error) {
			return []*websift.RecordedOutcome{
				{Query: "go docs", URL: "https://go.dev/doc", State: websift.RaceResolved, Strategy: "static", Score: 80, RecordedAt: time.Now()},
			}, nil
		},
	}

	stdout := &bytes.Buffer{}
	deps := &main.Dependencies{Ctx: context.Background(), Stdout: stdout, Outcomes: outcomes}

	require.NoError(t, (&main.StatsCmd{Recent: 5}).Run(deps))

	out := stdout.String()
	assert.Contains(t, out, "static")
	assert.Contains(t, out, "75%")
	assert.Contains(t, out, "71.5")
	assert.Contains(t, out, "https://go.dev/doc")
}
