package websift

import (
	"context"
	"slices"
	"strings"
	"time"
)

// Strategy names for the stock extraction strategies.
const (
	StrategyStatic   = "static"
	StrategyAdvanced = "advanced"
	StrategyBrowser  = "browser"
)

// Strategy is a pluggable content-extraction method raced by the scheduler.
//
// Cancellation is cooperative and carried by ctx: canceling the context is the
// signal to abort. Attempt must release every resource it acquired (sockets,
// browser pages, file handles) before it returns. A page with no usable
// content is an empty result, not an error.
type Strategy interface {
	// Name identifies the strategy, e.g. "static" or "browser".
	Name() string

	// Attempt extracts the main content of url as markdown.
	Attempt(ctx context.Context, url, query string) (*ExtractionResult, error)
}

// ExtractionAttempt is one in-flight unit of work inside a race.
type ExtractionAttempt struct {
	StrategyID string
	StartedAt  time.Time
	Deadline   time.Time
}

// ExtractionResult is content produced by a strategy. It is never mutated
// after creation.
type ExtractionResult struct {
	URL         string        `json:"url"`
	Title       string        `json:"title"`
	Content     string        `json:"content"` // Markdown
	WordCount   int           `json:"wordCount"`
	Elapsed     time.Duration `json:"elapsed"`
	StrategyID  string        `json:"strategyId"`
	ContentHash string        `json:"contentHash,omitempty"`
}

// DomainLimiter provides per-domain rate limiting.
type DomainLimiter interface {
	// Wait blocks until the rate limit allows a request to the domain.
	// Returns an error if the context is canceled.
	Wait(ctx context.Context, domain string) error
}

// StockStrategies lists the built-in strategy names, cheapest first.
var StockStrategies = []string{StrategyStatic, StrategyAdvanced, StrategyBrowser}

// NormalizeStrategies drops unknown and duplicate names and keeps the
// browser strategy as a backup. An empty input stays empty, meaning
// every strategy may race.
func NormalizeStrategies(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names)+1)
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if seen[n] || !slices.Contains(StockStrategies, n) {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	if !seen[StrategyBrowser] {
		out = append(out, StrategyBrowser)
	}
	return out
}
