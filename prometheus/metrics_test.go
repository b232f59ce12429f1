package prometheus_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fwojciec/websift"
	"github.com/fwojciec/websift/mock"
	wprom "github.com/fwojciec/websift/prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RecordOutcome(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m, err := wprom.NewMetrics(reg, nil)
	require.NoError(t, err)

	outcome := &websift.ExtractionOutcome{
		URL:   "https://example.com",
		State: websift.RaceResolved,
		Score: &websift.QualityScore{Score: 77, Tier: websift.TierGood},
		Attempts: []websift.AttemptReport{
			{StrategyID: "static", Status: websift.AttemptWon, Elapsed: time.Second},
			{StrategyID: "browser", Status: websift.AttemptCanceled, Elapsed: 2 * time.Second},
		},
	}
	require.NoError(t, m.RecordOutcome(context.Background(), "q", outcome))
	require.NoError(t, m.RecordOutcome(context.Background(), "q", &websift.ExtractionOutcome{
		URL:     "https://example.org",
		State:   websift.RaceExhausted,
		Partial: true,
	}))

	expected := `
# HELP websift_outcomes_total Total number of finished races, labeled by terminal state.
# TYPE websift_outcomes_total counter
websift_outcomes_total{state="EXHAUSTED"} 1
websift_outcomes_total{state="RESOLVED"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "websift_outcomes_total"))

	expected = `
# HELP websift_attempts_total Total number of race attempts, labeled by strategy and how the attempt ended.
# TYPE websift_attempts_total counter
websift_attempts_total{status="canceled",strategy="browser"} 1
websift_attempts_total{status="won",strategy="static"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "websift_attempts_total"))
	n, err := testutil.GatherAndCount(reg, "websift_quality_score")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = testutil.GatherAndCount(reg, "websift_attempt_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Equal(t, websift.EINVALID, websift.ErrorCode(m.RecordOutcome(context.Background(), "q", nil)))
}

func TestMetrics_BudgetGauge(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	_, err := wprom.NewMetrics(reg, websift.StaticBudget(6))
	require.NoError(t, err)

	expected := `
# HELP websift_budget_max_parallel_ops Current system-wide cap on in-flight extraction attempts.
# TYPE websift_budget_max_parallel_ops gauge
websift_budget_max_parallel_ops 6
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "websift_budget_max_parallel_ops"))
}

func TestMetrics_DuplicateRegistration(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	_, err := wprom.NewMetrics(reg, nil)
	require.NoError(t, err)

	_, err = wprom.NewMetrics(reg, nil)
	assert.Error(t, err)
}

func TestMetrics_Strategy(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m, err := wprom.NewMetrics(reg, nil)
	require.NoError(t, err)

	results := []struct {
		res *websift.ExtractionResult
		err error
	}{
		{res: &websift.ExtractionResult{Content: "text"}},
		{res: &websift.ExtractionResult{}},
		{err: errors.New("boom")},
		{err: websift.Errorf(websift.ETIMEOUT, "attempt timed out")},
		{err: context.Canceled},
	}
	i := 0
	s := m.Strategy(&mock.Strategy{
		NameFn: func() string { return "static" },
		AttemptFn: func(ctx context.Context, url, query string) (*websift.ExtractionResult, error) {
			r := results[i]
			i++
			return r.res, r.err
		},
	})
	assert.Equal(t, "static", s.Name())

	for range results {
		_, _ = s.Attempt(context.Background(), "https://example.com", "q")
	}

	expected := `
# HELP websift_strategy_calls_total Total number of strategy invocations, labeled by strategy and result.
# TYPE websift_strategy_calls_total counter
websift_strategy_calls_total{result="canceled",strategy="static"} 1
websift_strategy_calls_total{result="empty",strategy="static"} 1
websift_strategy_calls_total{result="error",strategy="static"} 1
websift_strategy_calls_total{result="ok",strategy="static"} 1
websift_strategy_calls_total{result="timeout",strategy="static"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "websift_strategy_calls_total"))
}

func TestMetrics_WriteToTextfile(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m, err := wprom.NewMetrics(reg, websift.StaticBudget(2))
	require.NoError(t, err)
	require.NoError(t, m.RecordOutcome(context.Background(), "q", &websift.ExtractionOutcome{URL: "u", State: websift.RaceResolved}))

	path := filepath.Join(t.TempDir(), "websift.prom")
	require.NoError(t, m.WriteToTextfile(path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), `websift_outcomes_total{state="RESOLVED"} 1`)
	assert.Contains(t, string(content), "websift_budget_max_parallel_ops 2")
}
