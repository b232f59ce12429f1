package websift

import (
	"context"
	"time"
)

// RaceState is the state of a per-URL race.
type RaceState string

// Race states. RESOLVED and EXHAUSTED are terminal.
const (
	RacePending   RaceState = "PENDING"
	RaceRacing    RaceState = "RACING"
	RaceGraceWait RaceState = "GRACE_WAIT"
	RaceResolved  RaceState = "RESOLVED"
	RaceExhausted RaceState = "EXHAUSTED"
)

// Terminal reports whether no further transitions are possible.
func (s RaceState) Terminal() bool {
	return s == RaceResolved || s == RaceExhausted
}

// AttemptStatus describes how an attempt ended from the race's point of view.
type AttemptStatus string

// Attempt statuses.
const (
	AttemptWon       AttemptStatus = "won"
	AttemptDiscarded AttemptStatus = "discarded" // scored but not selected
	AttemptFailed    AttemptStatus = "failed"
	AttemptTimeout   AttemptStatus = "timeout"
	AttemptCanceled  AttemptStatus = "canceled"
)

// AttemptReport summarizes one attempt of a finished race.
type AttemptReport struct {
	StrategyID string        `json:"strategyId"`
	Status     AttemptStatus `json:"status"`
	Score      int           `json:"score,omitempty"`
	Tier       Tier          `json:"tier,omitempty"`
	Elapsed    time.Duration `json:"elapsed"`
	Err        string        `json:"err,omitempty"`
}

// ExtractionOutcome is the single terminal value a race produces for one URL.
type ExtractionOutcome struct {
	URL             string            `json:"url"`
	Position        int               `json:"position"`
	Result          *ExtractionResult `json:"result,omitempty"`
	Score           *QualityScore     `json:"score,omitempty"`
	WinningStrategy string            `json:"winningStrategy,omitempty"`
	TotalElapsed    time.Duration     `json:"totalElapsed"`
	State           RaceState         `json:"state"`

	// Partial is true when the race ended without an ACCEPTABLE-or-better
	// result. Result then holds the best POOR result, if any.
	Partial bool `json:"partial"`

	Attempts []AttemptReport `json:"attempts,omitempty"`

	// Tokens is an estimate of the result size for downstream LLM consumers.
	Tokens int `json:"tokens,omitempty"`
}

// Racer runs one race per candidate URL.
type Racer interface {
	// Race always returns exactly one outcome, even when ctx is canceled.
	Race(ctx context.Context, candidate CandidateURL) *ExtractionOutcome
}

// OutcomeRecorder observes finished races, e.g. for history or metrics.
type OutcomeRecorder interface {
	RecordOutcome(ctx context.Context, query string, outcome *ExtractionOutcome) error
}

// StrategyStat summarizes historical race performance of one strategy.
type StrategyStat struct {
	StrategyID  string        `json:"strategyId"`
	Attempts    int           `json:"attempts"`
	Wins        int           `json:"wins"`
	Failures    int           `json:"failures"`
	Timeouts    int           `json:"timeouts"`
	Canceled    int           `json:"canceled"`
	MeanElapsed time.Duration `json:"meanElapsed"`
	MeanScore   float64       `json:"meanScore"`
}

// WinRate returns the fraction of attempts that won their race.
func (s StrategyStat) WinRate() float64 {
	if s.Attempts == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.Attempts)
}

// OutcomeFilter represents a filter for FindOutcomes.
type OutcomeFilter struct {
	Query *string `json:"query"`
	URL   *string `json:"url"`

	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// RecordedOutcome is an outcome as stored in the race history.
type RecordedOutcome struct {
	ID         string        `json:"id"`
	Query      string        `json:"query"`
	URL        string        `json:"url"`
	State      RaceState     `json:"state"`
	Strategy   string        `json:"strategy"`
	Score      int           `json:"score"`
	Tier       Tier          `json:"tier"`
	Partial    bool          `json:"partial"`
	Elapsed    time.Duration `json:"elapsed"`
	RecordedAt time.Time     `json:"recordedAt"`
}

// OutcomeService stores race history.
type OutcomeService interface {
	OutcomeRecorder

	// FindOutcomes retrieves recorded outcomes matching the filter,
	// most recent first.
	FindOutcomes(ctx context.Context, filter OutcomeFilter) ([]*RecordedOutcome, error)

	// StrategyStats aggregates attempt history per strategy.
	StrategyStats(ctx context.Context) ([]StrategyStat, error)
}
