package mock

import (
	"context"

	"github.com/fwojciec/websift"
)

var (
	_ websift.Racer          = (*Racer)(nil)
	_ websift.OutcomeService = (*OutcomeService)(nil)
)

// Racer is a mock implementation of websift.Racer.
type Racer struct {
	RaceFn func(ctx context.Context, candidate websift.CandidateURL) *websift.ExtractionOutcome
}

func (r *Racer) Race(ctx context.Context, candidate websift.CandidateURL) *websift.ExtractionOutcome {
	return r.RaceFn(ctx, candidate)
}

// OutcomeService is a mock implementation of websift.OutcomeService.
type OutcomeService struct {
	RecordOutcomeFn func(ctx context.Context, query string, outcome *websift.ExtractionOutcome) error
	FindOutcomesFn  func(ctx context.Context, filter websift.OutcomeFilter) ([]*websift.RecordedOutcome, error)
	StrategyStatsFn func(ctx context.Context) ([]websift.StrategyStat, error)
}

func (s *OutcomeService) RecordOutcome(ctx context.Context, query string, outcome *websift.ExtractionOutcome) error {
	return s.RecordOutcomeFn(ctx, query, outcome)
}

func (s *OutcomeService) FindOutcomes(ctx context.Context, filter websift.OutcomeFilter) ([]*websift.RecordedOutcome, error) {
	return s.FindOutcomesFn(ctx, filter)
}

func (s *OutcomeService) StrategyStats(ctx context.Context) ([]websift.StrategyStat, error) {
	return s.StrategyStatsFn(ctx)
}
