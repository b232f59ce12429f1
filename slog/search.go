package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/websift"
)

var (
	_ websift.SearchService = (*LoggingSearchService)(nil)
	_ websift.Ranker        = (*LoggingRanker)(nil)
)

// LoggingSearchService wraps a SearchService with logging.
type LoggingSearchService struct {
	next   websift.SearchService
	logger *slog.Logger
}

// NewLoggingSearchService creates a new LoggingSearchService.
func NewLoggingSearchService(next websift.SearchService, logger *slog.Logger) *LoggingSearchService {
	return &LoggingSearchService{next: next, logger: logger}
}

// Search delegates to the wrapped service and logs the operation.
func (s *LoggingSearchService) Search(ctx context.Context, query string, limit int) (results []websift.SearchResult, err error) {
	defer func(begin time.Time) {
		s.logger.Info("search",
			"query", query,
			"limit", limit,
			"count", len(results),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.Search(ctx, query, limit)
}

// LoggingRanker wraps a Ranker with logging.
type LoggingRanker struct {
	next   websift.Ranker
	logger *slog.Logger
}

// NewLoggingRanker creates a new LoggingRanker.
func NewLoggingRanker(next websift.Ranker, logger *slog.Logger) *LoggingRanker {
	return &LoggingRanker{next: next, logger: logger}
}

// Rank delegates to the wrapped ranker and logs the operation.
func (r *LoggingRanker) Rank(ctx context.Context, query string, results []websift.SearchResult) (candidates []websift.CandidateURL, err error) {
	defer func(begin time.Time) {
		r.logger.Info("rank",
			"query", query,
			"results", len(results),
			"candidates", len(candidates),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return r.next.Rank(ctx, query, results)
}
