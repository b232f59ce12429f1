package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/websift"
)

var _ websift.Strategy = (*LoggingStrategy)(nil)

// LoggingStrategy wraps a Strategy and logs every attempt.
type LoggingStrategy struct {
	next   websift.Strategy
	logger *slog.Logger
}

// NewLoggingStrategy creates a new LoggingStrategy.
func NewLoggingStrategy(next websift.Strategy, logger *slog.Logger) *LoggingStrategy {
	return &LoggingStrategy{next: next, logger: logger}
}

// Name returns the wrapped strategy's name.
func (s *LoggingStrategy) Name() string {
	return s.next.Name()
}

// Attempt delegates to the wrapped strategy and logs the outcome.
func (s *LoggingStrategy) Attempt(ctx context.Context, url, query string) (res *websift.ExtractionResult, err error) {
	defer func(begin time.Time) {
		words := 0
		if res != nil {
			words = res.WordCount
		}
		s.logger.Info("attempt",
			"strategy", s.next.Name(),
			"url", url,
			"words", words,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.Attempt(ctx, url, query)
}
