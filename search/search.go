// Package search turns a query into an aggregated response: it finds
// candidate pages, ranks them and races extraction strategies against them
// in budget-sized batches.
package search

import (
	"context"
	"log/slog"
	"sync"

	"github.com/fwojciec/websift"
	"github.com/fwojciec/websift/bloom"
	"golang.org/x/sync/errgroup"
)

// DefaultMultiplier is how many search results are requested per wanted
// outcome.
const DefaultMultiplier = 10

// Searcher orchestrates search, ranking and races.
type Searcher struct {
	Provider websift.SearchService
	Ranker   websift.Ranker
	Racer    websift.Racer

	// Budget sizes race batches. Nil means batches of twice the number
	// of outcomes still needed.
	Budget websift.BudgetSource

	// Recorders observe every finished race. Errors are logged, not returned.
	Recorders []websift.OutcomeRecorder

	// TokenCounter, if set, fills ExtractionOutcome.Tokens.
	TokenCounter websift.TokenCounter

	// Multiplier is the number of search results requested per wanted
	// outcome. Zero uses DefaultMultiplier.
	Multiplier int

	// OnOutcome, if set, is called after each race.
	OnOutcome func(*websift.ExtractionOutcome)

	Logger *slog.Logger
}

// Search finds pages for query and returns up to n ranked outcomes.
func (s *Searcher) Search(ctx context.Context, query string, n int) (*websift.AggregatedResponse, error) {
	if query == "" {
		return nil, websift.Errorf(websift.EINVALID, "query required")
	}
	if n < 1 {
		return nil, websift.Errorf(websift.EINVALID, "result count must be at least 1")
	}

	multiplier := s.Multiplier
	if multiplier <= 0 {
		multiplier = DefaultMultiplier
	}
	results, err := s.Provider.Search(ctx, query, n*multiplier)
	if err != nil {
		return nil, err
	}

	filter := bloom.NewFilter(uint(len(results)), 0.001)
	valid := results[:0:0]
	for _, r := range results {
		if !ValidURL(r.URL) || filter.TestAndAdd(r.URL) {
			continue
		}
		valid = append(valid, r)
	}
	if len(valid) == 0 {
		return nil, websift.Errorf(websift.ENORESULT, "no usable search results for %q", query)
	}

	candidates, err := s.Ranker.Rank(ctx, query, valid)
	if err != nil {
		return nil, err
	}
	return s.race(ctx, query, candidates, n)
}

// Extract races the given candidates in order and returns up to n ranked
// outcomes. Candidate positions are reassigned to their order in the slice.
func (s *Searcher) Extract(ctx context.Context, candidates []websift.CandidateURL, n int) (*websift.AggregatedResponse, error) {
	if n < 1 {
		return nil, websift.Errorf(websift.EINVALID, "result count must be at least 1")
	}
	for i := range candidates {
		if err := candidates[i].Validate(); err != nil {
			return nil, err
		}
	}
	query := ""
	if len(candidates) > 0 {
		query = candidates[0].Query
	}
	return s.race(ctx, query, candidates, n)
}

// race runs candidates in batches until n distinct qualifying outcomes exist
// or candidates run out.
func (s *Searcher) race(ctx context.Context, query string, candidates []websift.CandidateURL, n int) (*websift.AggregatedResponse, error) {
	logger := s.logger().With("query", query)

	filter := bloom.NewFilter(uint(len(candidates)), 0.001)
	queue := make([]websift.CandidateURL, 0, len(candidates))
	for _, c := range candidates {
		if !ValidURL(c.URL) || filter.TestAndAdd(c.URL) {
			logger.Debug("candidate skipped", "url", c.URL)
			continue
		}
		c.Position = len(queue)
		if c.Query == "" {
			c.Query = query
		}
		queue = append(queue, c)
	}

	var (
		outcomes  []*websift.ExtractionOutcome
		qualified = make(map[string]bool)
		next      int
	)
	for len(qualified) < n && next < len(queue) && ctx.Err() == nil {
		size := min(s.batchSize(n-len(qualified)), len(queue)-next)
		batch := queue[next : next+size]
		next += size
		logger.Debug("racing batch", "size", size, "remaining", len(queue)-next)

		for _, o := range s.raceBatch(ctx, query, batch) {
			outcomes = append(outcomes, o)
			if !o.Partial && o.Result != nil {
				key := o.Result.ContentHash
				if key == "" {
					key = o.URL
				}
				qualified[key] = true
			}
		}
	}

	resp := websift.Aggregate(query, outcomes, n)
	if resp.ActualCount == 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, websift.Errorf(websift.ENORESULT, "no content extracted for %q from %d candidates", query, len(queue))
	}
	logger.Info("search finished",
		"candidates", resp.Candidates,
		"results", resp.ActualCount,
		"partial", resp.Partial,
	)
	return resp, nil
}

// raceBatch races every candidate in batch at once. Admission control is
// left to the Racer; the batch size only bounds how far ahead we commit.
func (s *Searcher) raceBatch(ctx context.Context, query string, batch []websift.CandidateURL) []*websift.ExtractionOutcome {
	out := make([]*websift.ExtractionOutcome, len(batch))
	var mu sync.Mutex

	var g errgroup.Group
	for i, c := range batch {
		g.Go(func() error {
			o := s.Racer.Race(ctx, c)
			s.annotate(ctx, o)
			s.record(ctx, query, o)
			out[i] = o
			if s.OnOutcome != nil {
				mu.Lock()
				s.OnOutcome(o)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (s *Searcher) annotate(ctx context.Context, o *websift.ExtractionOutcome) {
	if s.TokenCounter == nil || o.Result == nil || o.Result.Content == "" {
		return
	}
	n, err := s.TokenCounter.CountTokens(ctx, o.Result.Content)
	if err != nil {
		s.logger().Debug("token count failed", "url", o.URL, "err", err)
		return
	}
	o.Tokens = n
}

func (s *Searcher) record(ctx context.Context, query string, o *websift.ExtractionOutcome) {
	for _, r := range s.Recorders {
		if err := r.RecordOutcome(context.WithoutCancel(ctx), query, o); err != nil {
			s.logger().Warn("record outcome", "url", o.URL, "err", err)
		}
	}
}

func (s *Searcher) batchSize(remaining int) int {
	size := 2 * remaining
	if s.Budget != nil {
		size = min(size, s.Budget.CurrentBudget().MaxParallelOps)
	}
	return max(1, size)
}

func (s *Searcher) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.Logger
}
