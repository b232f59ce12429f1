package race

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fwojciec/websift"
)

// Ensure Scheduler implements websift.Racer.
var _ websift.Racer = (*Scheduler)(nil)

// Default timings.
const (
	DefaultAttemptTimeout = 20 * time.Second
	DefaultGracePeriod    = 3 * time.Second
	DefaultCleanupTimeout = 2 * time.Second
)

// Scheduler races strategies against candidate URLs.
//
// Many races may run at once on the same Scheduler; they share the Gate.
type Scheduler struct {
	Strategies []websift.Strategy
	Assessor   websift.QualityAssessor

	// Gate is required. Races sharing a Gate share its budget.
	Gate *Gate

	// AttemptTimeout bounds each strategy attempt.
	AttemptTimeout time.Duration

	// GracePeriod is how long a race waits for a better result after its
	// first qualifying one. It is not extended by later results.
	GracePeriod time.Duration

	// CleanupTimeout bounds the wait for canceled attempts to return after a
	// race resolves. Attempts still running afterwards are logged as leak
	// risks.
	CleanupTimeout time.Duration

	Logger *slog.Logger
}

// arrival is an attempt that has returned.
type arrival struct {
	index    int
	strategy string
	result   *websift.ExtractionResult
	err      error
	admitted bool
	elapsed  time.Duration
	at       time.Time
}

// Race runs every allowed strategy against candidate and returns its outcome.
// It always returns exactly one outcome, including when ctx is canceled.
func (s *Scheduler) Race(ctx context.Context, candidate websift.CandidateURL) *websift.ExtractionOutcome {
	start := time.Now()
	logger := s.logger().With("url", candidate.URL)

	var strategies []websift.Strategy
	for _, st := range s.Strategies {
		if candidate.Allows(st.Name()) {
			strategies = append(strategies, st)
		}
	}
	if len(strategies) == 0 && len(candidate.Strategies) > 0 {
		strategies = s.Strategies
		logger.Debug("allow-list matches no strategy, racing all",
			"allowed", candidate.Strategies,
			"strategies", len(strategies),
		)
	}

	m := NewMachine(s.gracePeriod())
	reports := make([]websift.AttemptReport, len(strategies))
	for i, st := range strategies {
		reports[i] = websift.AttemptReport{StrategyID: st.Name(), Status: websift.AttemptCanceled}
	}

	if len(strategies) == 0 {
		m.Exhaust(start)
		logger.Debug("race exhausted", "reason", "no strategies")
		return s.outcome(candidate, m, start, reports)
	}

	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Buffered so attempts never block on send after the race has moved on.
	results := make(chan arrival, len(strategies))
	var wg sync.WaitGroup
	for i, st := range strategies {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- s.attempt(raceCtx, i, st, candidate)
		}()
	}

	m.Start()
	logger.Debug("race started", "strategies", len(strategies))

	returned := make([]bool, len(strategies))
	pending := len(strategies)
	var timer *time.Timer
	var expired <-chan time.Time

	observe := func(a arrival) {
		returned[a.index] = true
		pending--
		s.observe(m, a, candidate, &reports[a.index], logger)
	}

	for !m.State().Terminal() {
		select {
		case a := <-results:
			observe(a)
			if pending == 0 && m.Exhaust(a.at) {
				logger.Debug("race exhausted")
			}
		case <-expired:
			// Results that finished by the deadline but are still queued
			// are applied before the grace period closes.
		drain:
			for {
				select {
				case a := <-results:
					observe(a)
				default:
					break drain
				}
			}
			if m.Expire(time.Now()) {
				logger.Debug("grace period expired")
			}
		case <-ctx.Done():
			m.Interrupt(time.Now())
			logger.Debug("race interrupted", "err", ctx.Err())
		}

		if m.State() == websift.RaceGraceWait && timer == nil {
			timer = time.NewTimer(time.Until(m.Deadline()))
			expired = timer.C
			logger.Debug("grace wait", "deadline", m.Deadline())
		}
	}
	if timer != nil {
		timer.Stop()
	}

	cancel()
	outcome := s.outcome(candidate, m, start, reports)
	s.cleanup(&wg, results, returned, reports, logger)

	logger.Debug("race finished",
		"state", outcome.State,
		"strategy", outcome.WinningStrategy,
		"elapsed", outcome.TotalElapsed,
	)
	return outcome
}

func (s *Scheduler) attempt(ctx context.Context, index int, st websift.Strategy, candidate websift.CandidateURL) arrival {
	a := arrival{index: index, strategy: st.Name()}
	if err := s.Gate.Acquire(ctx); err != nil {
		a.err = err
		a.at = time.Now()
		return a
	}
	defer s.Gate.Release()
	a.admitted = true

	begin := time.Now()
	attemptCtx, cancel := context.WithTimeout(ctx, s.attemptTimeout())
	defer cancel()

	a.result, a.err = st.Attempt(attemptCtx, candidate.URL, candidate.Query)
	if a.err == nil && a.result == nil {
		a.err = websift.Errorf(websift.ESTRATEGY, "%s returned no result", st.Name())
	}
	if a.err != nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		a.err = fmt.Errorf("%w: %w", websift.Errorf(websift.ETIMEOUT, "%s exceeded %s", st.Name(), s.attemptTimeout()), a.err)
	}
	a.elapsed = time.Since(begin)
	a.at = time.Now()
	return a
}

// observe applies a returned attempt to the machine and records its report.
func (s *Scheduler) observe(m *Machine, a arrival, candidate websift.CandidateURL, report *websift.AttemptReport, logger *slog.Logger) {
	report.Elapsed = a.elapsed

	if a.err != nil {
		report.Err = a.err.Error()
		switch {
		case websift.ErrorCode(a.err) == websift.ETIMEOUT:
			report.Status = websift.AttemptTimeout
		case !a.admitted || errors.Is(a.err, context.Canceled):
			report.Status = websift.AttemptCanceled
		default:
			report.Status = websift.AttemptFailed
		}
		logger.Debug("attempt discarded", "strategy", a.strategy, "status", report.Status, "err", a.err)
		return
	}

	report.Status = websift.AttemptDiscarded
	if !m.Accepts(a.at) {
		logger.Debug("attempt arrived after grace deadline", "strategy", a.strategy)
		return
	}

	score := s.Assessor.Assess(candidate.URL, a.result.Content, candidate.Query)
	report.Score = score.Score
	report.Tier = score.Tier

	before := m.State()
	m.Observe(Entry{StrategyID: a.strategy, Result: a.result, Score: score, At: a.at})
	logger.Debug("attempt scored",
		"strategy", a.strategy,
		"score", score.Score,
		"tier", score.Tier,
		"from", before,
		"to", m.State(),
	)
}

// cleanup waits up to the cleanup timeout for attempts that have not yet
// returned. Those still running afterwards keep their gate slot until they
// return and are reported as leak risks.
func (s *Scheduler) cleanup(wg *sync.WaitGroup, results <-chan arrival, returned []bool, reports []websift.AttemptReport, logger *slog.Logger) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	timeout := time.NewTimer(s.cleanupTimeout())
	defer timeout.Stop()

	select {
	case <-done:
	case <-timeout.C:
	}

drain:
	for {
		select {
		case a := <-results:
			returned[a.index] = true
			reports[a.index].Elapsed = a.elapsed
			if a.err != nil {
				reports[a.index].Err = a.err.Error()
			}
			if reports[a.index].Err == "" {
				reports[a.index].Err = "canceled"
			}
		default:
			break drain
		}
	}

	for i, ok := range returned {
		if ok {
			continue
		}
		reports[i].Err = "no return within cleanup timeout"
		logger.Warn("attempt leak risk",
			"strategy", reports[i].StrategyID,
			"cleanupTimeout", s.cleanupTimeout(),
		)
	}
}

func (s *Scheduler) outcome(candidate websift.CandidateURL, m *Machine, start time.Time, reports []websift.AttemptReport) *websift.ExtractionOutcome {
	o := &websift.ExtractionOutcome{
		URL:          candidate.URL,
		Position:     candidate.Position,
		State:        m.State(),
		Partial:      m.State() != websift.RaceResolved,
		TotalElapsed: m.ResolvedAt().Sub(start),
		Attempts:     reports,
	}
	if e, ok := m.Winner(); ok {
		score := e.Score
		o.Result = e.Result
		o.Score = &score
		o.WinningStrategy = e.StrategyID
		if !o.Partial {
			for i := range reports {
				if reports[i].StrategyID == e.StrategyID {
					reports[i].Status = websift.AttemptWon
					break
				}
			}
		}
	}
	return o
}

func (s *Scheduler) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.Logger
}

func (s *Scheduler) attemptTimeout() time.Duration {
	if s.AttemptTimeout <= 0 {
		return DefaultAttemptTimeout
	}
	return s.AttemptTimeout
}

func (s *Scheduler) gracePeriod() time.Duration {
	if s.GracePeriod <= 0 {
		return DefaultGracePeriod
	}
	return s.GracePeriod
}

func (s *Scheduler) cleanupTimeout() time.Duration {
	if s.CleanupTimeout <= 0 {
		return DefaultCleanupTimeout
	}
	return s.CleanupTimeout
}
