package mock

import "github.com/fwojciec/websift"

var _ websift.Extractor = (*Extractor)(nil)

// Extractor is a mock implementation of websift.Extractor.
type Extractor struct {
	ExtractFn func(html string) (*websift.ExtractResult, error)
}

func (e *Extractor) Extract(html string) (*websift.ExtractResult, error) {
	return e.ExtractFn(html)
}
