// Package readability provides an extractor built on go-readability, used
// for browser-rendered pages.
package readability

import (
	"strings"

	"github.com/fwojciec/websift"
	"github.com/go-shiori/go-readability"
)

// Ensure Extractor implements websift.Extractor at compile time.
var _ websift.Extractor = (*Extractor)(nil)

// DefaultMinTextLength is the shortest article text, in characters, that
// counts as content.
const DefaultMinTextLength = 80

// Extractor wraps go-readability to extract main content from HTML.
type Extractor struct {
	minTextLength int
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithMinTextLength sets the shortest article text treated as content.
func WithMinTextLength(n int) ExtractorOption {
	return func(e *Extractor) {
		e.minTextLength = n
	}
}

// NewExtractor creates a new Extractor.
func NewExtractor(opts ...ExtractorOption) *Extractor {
	e := &Extractor{minTextLength: DefaultMinTextLength}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns the readable article. Pages whose article text is shorter
// than the minimum yield an empty ContentHTML so that cookie walls and app
// shells score as poor content instead of failing.
func (e *Extractor) Extract(rawHTML string) (*websift.ExtractResult, error) {
	if strings.TrimSpace(rawHTML) == "" {
		return &websift.ExtractResult{}, nil
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), nil)
	if err != nil {
		return nil, websift.Errorf(websift.ESTRATEGY, "readability: %v", err)
	}

	result := &websift.ExtractResult{Title: article.Title}
	if len(strings.TrimSpace(article.TextContent)) >= e.minTextLength {
		result.ContentHTML = article.Content
	}
	return result, nil
}
