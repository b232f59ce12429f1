// Package goquery provides a static boilerplate-stripping extractor built on
// goquery.
package goquery

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/websift"
)

// Ensure Extractor implements websift.Extractor at compile time.
var _ websift.Extractor = (*Extractor)(nil)

// DefaultBoilerplate lists elements removed before the main content is
// chosen.
var DefaultBoilerplate = []string{
	"script", "style", "noscript", "iframe", "svg", "form",
	"nav", "header", "footer", "aside",
	"[role=navigation]", "[role=banner]", "[role=contentinfo]", "[aria-hidden=true]",
	".sidebar", ".advertisement", ".ads", ".cookie-banner",
}

// DefaultContentSelectors are tried in order; the first match with text is
// the main content. The body is the last resort.
var DefaultContentSelectors = []string{
	"article",
	"main",
	"[role=main]",
	"#content",
	".content",
	".post",
}

// Extractor strips boilerplate with CSS selectors and returns the most
// specific content container. It does not run any readability scoring.
type Extractor struct {
	boilerplate []string
	content     []string
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithBoilerplate replaces the selectors removed before extraction.
func WithBoilerplate(selectors []string) ExtractorOption {
	return func(e *Extractor) {
		e.boilerplate = selectors
	}
}

// WithContentSelectors replaces the main-content selectors.
func WithContentSelectors(selectors []string) ExtractorOption {
	return func(e *Extractor) {
		e.content = selectors
	}
}

// NewExtractor creates an Extractor with the default selectors.
func NewExtractor(opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		boilerplate: DefaultBoilerplate,
		content:     DefaultContentSelectors,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns the page title and the cleaned main content. A page with
// no text yields an empty ContentHTML.
func (e *Extractor) Extract(html string) (*websift.ExtractResult, error) {
	if strings.TrimSpace(html) == "" {
		return &websift.ExtractResult{}, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, websift.Errorf(websift.EINVALID, "failed to parse HTML: %v", err)
	}

	title := pageTitle(doc)

	for _, sel := range e.boilerplate {
		doc.Find("body " + sel).Remove()
	}

	main := doc.Find("body")
	for _, sel := range e.content {
		if candidate := doc.Find(sel).First(); candidate.Length() > 0 && hasText(candidate) {
			main = candidate
			break
		}
	}
	if !hasText(main) {
		return &websift.ExtractResult{Title: title}, nil
	}

	content, err := goquery.OuterHtml(main)
	if err != nil {
		return nil, websift.Errorf(websift.EINTERNAL, "render content: %v", err)
	}
	return &websift.ExtractResult{Title: title, ContentHTML: content}, nil
}

// pageTitle prefers og:title, then <title>, then the first <h1>.
func pageTitle(doc *goquery.Document) string {
	if og, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok && strings.TrimSpace(og) != "" {
		return strings.TrimSpace(og)
	}
	if t := strings.TrimSpace(doc.Find("title").First().Text()); t != "" {
		return t
	}
	return strings.TrimSpace(doc.Find("h1").First().Text())
}

func hasText(sel *goquery.Selection) bool {
	return strings.TrimSpace(sel.Text()) != ""
}
