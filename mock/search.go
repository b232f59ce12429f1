package mock

import (
	"context"

	"github.com/fwojciec/websift"
)

var (
	_ websift.SearchService = (*SearchService)(nil)
	_ websift.Ranker        = (*Ranker)(nil)
)

// SearchService is a mock implementation of websift.SearchService.
type SearchService struct {
	SearchFn func(ctx context.Context, query string, limit int) ([]websift.SearchResult, error)
}

func (s *SearchService) Search(ctx context.Context, query string, limit int) ([]websift.SearchResult, error) {
	return s.SearchFn(ctx, query, limit)
}

// Ranker is a mock implementation of websift.Ranker.
type Ranker struct {
	RankFn func(ctx context.Context, query string, results []websift.SearchResult) ([]websift.CandidateURL, error)
}

func (r *Ranker) Rank(ctx context.Context, query string, results []websift.SearchResult) ([]websift.CandidateURL, error) {
	return r.RankFn(ctx, query, results)
}
