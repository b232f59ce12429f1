package mock

import "github.com/fwojciec/websift"

var _ websift.Converter = (*Converter)(nil)

// Converter is a mock implementation of websift.Converter.
type Converter struct {
	ConvertFn func(html string) (string, error)
}

func (c *Converter) Convert(html string) (string, error) {
	return c.ConvertFn(html)
}
