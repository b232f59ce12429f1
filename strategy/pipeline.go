// Package strategy assembles extraction strategies from a fetcher, an
// extractor and a converter.
package strategy

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/websift"
)

// Ensure Pipeline implements websift.Strategy.
var _ websift.Strategy = (*Pipeline)(nil)

// Pipeline is a Strategy that fetches a page, extracts its main content and
// converts it to markdown.
type Pipeline struct {
	ID        string
	Fetcher   websift.Fetcher
	Extractor websift.Extractor
	Converter websift.Converter

	// RateLimiter, if set, is waited on per domain before fetching.
	RateLimiter websift.DomainLimiter

	// RetryDelays are the pauses between fetch retries. Nil uses
	// DefaultRetryDelays; an empty slice disables retries.
	RetryDelays []time.Duration
}

// Name returns the pipeline ID.
func (p *Pipeline) Name() string {
	return p.ID
}

// Attempt runs the pipeline against rawURL. A page with no main content
// yields an empty result rather than an error.
func (p *Pipeline) Attempt(ctx context.Context, rawURL, _ string) (*websift.ExtractionResult, error) {
	begin := time.Now()

	if p.RateLimiter != nil {
		u, err := url.Parse(rawURL)
		if err != nil {
			return nil, websift.Errorf(websift.EINVALID, "parse url %q: %v", rawURL, err)
		}
		if err := p.RateLimiter.Wait(ctx, u.Hostname()); err != nil {
			return nil, p.classify(ctx, "rate limit", err)
		}
	}

	delays := p.RetryDelays
	if delays == nil {
		delays = DefaultRetryDelays()
	}
	html, err := FetchWithRetryDelays(ctx, rawURL, p.Fetcher.Fetch, delays)
	if err != nil {
		return nil, p.classify(ctx, "fetch", err)
	}

	extracted, err := p.Extractor.Extract(html)
	if err != nil {
		return nil, p.classify(ctx, "extract", err)
	}

	result := &websift.ExtractionResult{
		URL:        rawURL,
		Title:      extracted.Title,
		StrategyID: p.ID,
	}
	if strings.TrimSpace(extracted.ContentHTML) != "" {
		markdown, err := p.Converter.Convert(extracted.ContentHTML)
		if err != nil {
			return nil, p.classify(ctx, "convert", err)
		}
		result.Content = markdown
		result.WordCount = len(strings.Fields(markdown))
		result.ContentHash = ComputeHash(markdown)
	}
	result.Elapsed = time.Since(begin)
	return result, nil
}

// classify maps a stage failure onto the strategy error taxonomy.
// Cancellation is returned unchanged.
func (p *Pipeline) classify(ctx context.Context, stage string, err error) error {
	switch {
	case errors.Is(err, context.Canceled) && ctx.Err() != nil:
		return err
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", websift.Errorf(websift.ETIMEOUT, "%s %s", p.ID, stage), err)
	case websift.ErrorCode(err) != websift.EINTERNAL:
		return err
	default:
		return fmt.Errorf("%w: %w", websift.Errorf(websift.ESTRATEGY, "%s %s", p.ID, stage), err)
	}
}

// ComputeHash returns the xxhash of content as hex.
func ComputeHash(content string) string {
	return fmt.Sprintf("%x", xxhash.Sum64String(content))
}
