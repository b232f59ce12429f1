package strategy_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fwojciec/websift"
	"github.com/fwojciec/websift/mock"
	"github.com/fwojciec/websift/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPipeline(fetch func(ctx context.Context, url string) (string, error)) *strategy.Pipeline {
	return &strategy.Pipeline{
		ID:      "static",
		Fetcher: &mock.Fetcher{FetchFn: fetch},
		Extractor: &mock.Extractor{
			ExtractFn: func(html string) (*websift.ExtractResult, error) {
				return &websift.ExtractResult{Title: "Title", ContentHTML: html}, nil
			},
		},
		Converter: &mock.Converter{
			ConvertFn: func(html string) (string, error) {
				return "# " + html, nil
			},
		},
		RetryDelays: []time.Duration{},
	}
}

func TestPipeline_Attempt(t *testing.T) {
	t.Parallel()

	t.Run("fetches extracts and converts", func(t *testing.T) {
		t.Parallel()

		p := newPipeline(func(_ context.Context, url string) (string, error) {
			assert.Equal(t, "https://example.com/a", url)
			return "hello brave new world", nil
		})

		got, err := p.Attempt(context.Background(), "https://example.com/a", "q")

		require.NoError(t, err)
		assert.Equal(t, "static", p.Name())
		assert.Equal(t, "https://example.com/a", got.URL)
		assert.Equal(t, "Title", got.Title)
		assert.Equal(t, "# hello brave new world", got.Content)
		assert.Equal(t, 5, got.WordCount)
		assert.Equal(t, "static", got.StrategyID)
		assert.Equal(t, strategy.ComputeHash("# hello brave new world"), got.ContentHash)
	})

	t.Run("empty main content is a result not an error", func(t *testing.T) {
		t.Parallel()

		p := newPipeline(func(context.Context, string) (string, error) {
			return "   ", nil
		})
		p.Converter = &mock.Converter{
			ConvertFn: func(string) (string, error) {
				t.Fatal("converter should not be called for empty content")
				return "", nil
			},
		}

		got, err := p.Attempt(context.Background(), "https://example.com", "q")

		require.NoError(t, err)
		assert.Empty(t, got.Content)
		assert.Equal(t, 0, got.WordCount)
	})

	t.Run("fetch failure is a strategy error", func(t *testing.T) {
		t.Parallel()

		p := newPipeline(func(context.Context, string) (string, error) {
			return "", errors.New("HTTP 503 for https://example.com")
		})

		_, err := p.Attempt(context.Background(), "https://example.com", "q")

		require.Error(t, err)
		assert.Equal(t, websift.ESTRATEGY, websift.ErrorCode(err))
		assert.Contains(t, err.Error(), "HTTP 503")
	})

	t.Run("extract failure is a strategy error", func(t *testing.T) {
		t.Parallel()

		p := newPipeline(func(context.Context, string) (string, error) {
			return "<html>", nil
		})
		p.Extractor = &mock.Extractor{
			ExtractFn: func(string) (*websift.ExtractResult, error) {
				return nil, errors.New("malformed")
			},
		}

		_, err := p.Attempt(context.Background(), "https://example.com", "q")

		assert.Equal(t, websift.ESTRATEGY, websift.ErrorCode(err))
	})

	t.Run("deadline is a timeout error", func(t *testing.T) {
		t.Parallel()

		p := newPipeline(func(ctx context.Context, _ string) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		})
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		_, err := p.Attempt(ctx, "https://example.com", "q")

		assert.Equal(t, websift.ETIMEOUT, websift.ErrorCode(err))
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("cancellation is returned unchanged", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		p := newPipeline(func(ctx context.Context, _ string) (string, error) {
			cancel()
			<-ctx.Done()
			return "", ctx.Err()
		})

		_, err := p.Attempt(ctx, "https://example.com", "q")

		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, websift.EINTERNAL, websift.ErrorCode(err))
	})

	t.Run("waits on the rate limiter for the url host", func(t *testing.T) {
		t.Parallel()

		var domain string
		p := newPipeline(func(context.Context, string) (string, error) {
			return "content", nil
		})
		p.RateLimiter = &mock.DomainLimiter{
			WaitFn: func(_ context.Context, d string) error {
				domain = d
				return nil
			},
		}

		_, err := p.Attempt(context.Background(), "https://docs.example.com:8443/a?b=c", "q")

		require.NoError(t, err)
		assert.Equal(t, "docs.example.com", domain)
	})

	t.Run("retries failed fetches", func(t *testing.T) {
		t.Parallel()

		calls := 0
		p := newPipeline(func(context.Context, string) (string, error) {
			calls++
			if calls < 3 {
				return "", errors.New("connection reset")
			}
			return "content", nil
		})
		p.RetryDelays = []time.Duration{time.Millisecond, time.Millisecond}

		got, err := p.Attempt(context.Background(), "https://example.com", "q")

		require.NoError(t, err)
		assert.Equal(t, 3, calls)
		assert.Equal(t, "# content", got.Content)
	})
}
