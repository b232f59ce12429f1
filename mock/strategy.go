package mock

import (
	"context"

	"github.com/fwojciec/websift"
)

var _ websift.Strategy = (*Strategy)(nil)

// Strategy is a mock implementation of websift.Strategy.
type Strategy struct {
	NameFn    func() string
	AttemptFn func(ctx context.Context, url, query string) (*websift.ExtractionResult, error)
}

func (s *Strategy) Name() string {
	return s.NameFn()
}

func (s *Strategy) Attempt(ctx context.Context, url, query string) (*websift.ExtractionResult, error) {
	return s.AttemptFn(ctx, url, query)
}
