// Package prometheus exposes Prometheus collectors for races and strategies.
package prometheus

import (
	"context"
	"errors"
	"time"

	"github.com/fwojciec/websift"
	"github.com/prometheus/client_golang/prometheus"
)

var _ websift.OutcomeRecorder = (*Metrics)(nil)

// Metrics holds the collectors for one process.
type Metrics struct {
	reg *prometheus.Registry

	attempts        *prometheus.CounterVec
	attemptDuration *prometheus.HistogramVec
	outcomes        *prometheus.CounterVec
	qualityScore    prometheus.Histogram
	strategyCalls   *prometheus.CounterVec
	strategyLatency *prometheus.HistogramVec
}

// NewMetrics registers the collectors on reg. When budget is non-nil the
// current parallelism budget is exported as a gauge read at scrape time.
func NewMetrics(reg *prometheus.Registry, budget websift.BudgetSource) (*Metrics, error) {
	m := &Metrics{
		reg: reg,
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "websift_attempts_total",
				Help: "Total number of race attempts, labeled by strategy and how the attempt ended.",
			},
			[]string{"strategy", "status"},
		),
		attemptDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "websift_attempt_duration_seconds",
				Help:    "Histogram of attempt durations as seen by the race, labeled by strategy.",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
			},
			[]string{"strategy"},
		),
		outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "websift_outcomes_total",
				Help: "Total number of finished races, labeled by terminal state.",
			},
			[]string{"state"},
		),
		qualityScore: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "websift_quality_score",
				Help:    "Histogram of quality scores of race outcomes.",
				Buckets: prometheus.LinearBuckets(10, 10, 10),
			},
		),
		strategyCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "websift_strategy_calls_total",
				Help: "Total number of strategy invocations, labeled by strategy and result.",
			},
			[]string{"strategy", "result"},
		),
		strategyLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "websift_strategy_latency_seconds",
				Help:    "Histogram of strategy call latencies, labeled by strategy.",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
			},
			[]string{"strategy"},
		),
	}

	collectors := []prometheus.Collector{
		m.attempts, m.attemptDuration, m.outcomes, m.qualityScore,
		m.strategyCalls, m.strategyLatency,
	}
	if budget != nil {
		collectors = append(collectors, prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "websift_budget_max_parallel_ops",
				Help: "Current system-wide cap on in-flight extraction attempts.",
			},
			func() float64 { return float64(budget.CurrentBudget().MaxParallelOps) },
		))
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// RecordOutcome observes a finished race.
func (m *Metrics) RecordOutcome(_ context.Context, _ string, o *websift.ExtractionOutcome) error {
	if o == nil {
		return websift.Errorf(websift.EINVALID, "outcome required")
	}
	m.outcomes.WithLabelValues(string(o.State)).Inc()
	if o.Score != nil {
		m.qualityScore.Observe(float64(o.Score.Score))
	}
	for _, a := range o.Attempts {
		m.attempts.WithLabelValues(a.StrategyID, string(a.Status)).Inc()
		m.attemptDuration.WithLabelValues(a.StrategyID).Observe(a.Elapsed.Seconds())
	}
	return nil
}

// WriteToTextfile writes the current metric values in the text exposition
// format, e.g. for the node exporter textfile collector.
func (m *Metrics) WriteToTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.reg)
}

// Strategy wraps next so that every call is counted and timed.
func (m *Metrics) Strategy(next websift.Strategy) websift.Strategy {
	return &instrumentedStrategy{next: next, m: m}
}

type instrumentedStrategy struct {
	next websift.Strategy
	m    *Metrics
}

func (s *instrumentedStrategy) Name() string {
	return s.next.Name()
}

func (s *instrumentedStrategy) Attempt(ctx context.Context, url, query string) (res *websift.ExtractionResult, err error) {
	name := s.next.Name()
	defer func(begin time.Time) {
		s.m.strategyLatency.WithLabelValues(name).Observe(time.Since(begin).Seconds())
		s.m.strategyCalls.WithLabelValues(name, callResult(res, err)).Inc()
	}(time.Now())
	return s.next.Attempt(ctx, url, query)
}

func callResult(res *websift.ExtractionResult, err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "canceled"
	case websift.ErrorCode(err) == websift.ETIMEOUT || errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case err != nil:
		return "error"
	case res == nil || res.Content == "":
		return "empty"
	default:
		return "ok"
	}
}
