package gemini

import (
	"context"
	"unicode/utf8"

	"github.com/fwojciec/websift"
	"google.golang.org/genai"
	"google.golang.org/genai/tokenizer"
)

var _ websift.TokenCounter = (*TokenCounter)(nil)

// DefaultSampleRunes is the longest text tokenized in full. Longer content is
// estimated from a prefix of this many runes.
const DefaultSampleRunes = 16000

// TokenCounter estimates how many tokens extracted content will cost when
// passed to a Gemini model. It tokenizes locally and never calls the API.
type TokenCounter struct {
	tok         *tokenizer.LocalTokenizer
	sampleRunes int
}

// TokenOption configures a TokenCounter.
type TokenOption func(*TokenCounter)

// WithSampleRunes bounds how much content is tokenized exactly. Zero or less
// tokenizes everything.
func WithSampleRunes(n int) TokenOption {
	return func(tc *TokenCounter) {
		tc.sampleRunes = n
	}
}

// NewTokenCounter creates a TokenCounter for model.
func NewTokenCounter(model string, opts ...TokenOption) (*TokenCounter, error) {
	if model == "" {
		return nil, websift.Errorf(websift.EINVALID, "tokenizer model required")
	}
	tok, err := tokenizer.NewLocalTokenizer(model)
	if err != nil {
		return nil, websift.Errorf(websift.EINVALID, "tokenizer for %s: %v", model, err)
	}
	tc := &TokenCounter{tok: tok, sampleRunes: DefaultSampleRunes}
	for _, opt := range opts {
		opt(tc)
	}
	return tc, nil
}

// CountTokens returns the token count of text. Text longer than the sample
// size is counted on its prefix and scaled by rune count.
func (tc *TokenCounter) CountTokens(ctx context.Context, text string) (int, error) {
	if text == "" {
		return 0, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	total := utf8.RuneCountInString(text)
	sample := text
	if tc.sampleRunes > 0 && total > tc.sampleRunes {
		sample = prefix(text, tc.sampleRunes)
	}

	n, err := tc.count(sample)
	if err != nil {
		return 0, err
	}
	if sample == text {
		return n, nil
	}
	return int(int64(n) * int64(total) / int64(tc.sampleRunes)), nil
}

func (tc *TokenCounter) count(text string) (int, error) {
	result, err := tc.tok.CountTokens([]*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}, nil)
	if err != nil {
		return 0, websift.Errorf(websift.EINTERNAL, "count tokens: %v", err)
	}
	return int(result.TotalTokens), nil
}

// prefix returns the first n runes of s.
func prefix(s string, n int) string {
	i := 0
	for j := range s {
		if i == n {
			return s[:j]
		}
		i++
	}
	return s
}
