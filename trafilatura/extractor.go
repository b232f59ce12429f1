// Package trafilatura provides the extractor behind the advanced strategy,
// built on go-trafilatura.
package trafilatura

import (
	"bytes"
	"strings"

	"github.com/fwojciec/websift"
	"github.com/markusmobius/go-trafilatura"
	"golang.org/x/net/html"
)

// Ensure Extractor implements websift.Extractor at compile time.
var _ websift.Extractor = (*Extractor)(nil)

// Extractor wraps go-trafilatura to extract main content from HTML.
type Extractor struct {
	fallback bool
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithFallback toggles go-trafilatura's readability and dom-distiller
// fallbacks. Enabled by default.
func WithFallback(enabled bool) ExtractorOption {
	return func(e *Extractor) {
		e.fallback = enabled
	}
}

// NewExtractor creates a new Extractor.
func NewExtractor(opts ...ExtractorOption) *Extractor {
	e := &Extractor{fallback: true}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract processes raw HTML and returns the main content. go-trafilatura
// reports pages without extractable text as errors; those become an empty
// result.
func (e *Extractor) Extract(rawHTML string) (*websift.ExtractResult, error) {
	if strings.TrimSpace(rawHTML) == "" {
		return &websift.ExtractResult{}, nil
	}

	opts := trafilatura.Options{
		EnableFallback:  e.fallback,
		ExcludeComments: true,
	}

	result, err := trafilatura.Extract(strings.NewReader(rawHTML), opts)
	if err != nil || result == nil {
		return &websift.ExtractResult{}, nil
	}

	var contentHTML string
	if result.ContentNode != nil {
		contentHTML, err = renderNode(result.ContentNode)
		if err != nil {
			return nil, websift.Errorf(websift.EINTERNAL, "render content: %v", err)
		}
	}

	return &websift.ExtractResult{
		Title:       result.Metadata.Title,
		ContentHTML: contentHTML,
	}, nil
}

func renderNode(n *html.Node) (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return "", err
	}
	return buf.String(), nil
}
