package gemini_test

import (
	"context"
	"strings"
	"testing"

	"github.com/fwojciec/websift"
	"github.com/fwojciec/websift/gemini"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTokenCounter(t *testing.T) {
	t.Parallel()

	t.Run("empty model is invalid", func(t *testing.T) {
		t.Parallel()

		_, err := gemini.NewTokenCounter("")

		assert.Equal(t, websift.EINVALID, websift.ErrorCode(err))
	})

	t.Run("unknown model is invalid", func(t *testing.T) {
		t.Parallel()

		_, err := gemini.NewTokenCounter("no-such-model")

		assert.Equal(t, websift.EINVALID, websift.ErrorCode(err))
	})
}

func TestTokenCounter_CountTokens(t *testing.T) {
	t.Parallel()

	tc, err := gemini.NewTokenCounter("gemini-2.0-flash")
	require.NoError(t, err)

	t.Run("counts tokens in content", func(t *testing.T) {
		t.Parallel()

		count, err := tc.CountTokens(context.Background(), "# Go\n\nGo is an open source programming language.")

		require.NoError(t, err)
		assert.Positive(t, count)
	})

	t.Run("empty content is zero", func(t *testing.T) {
		t.Parallel()

		count, err := tc.CountTokens(context.Background(), "")

		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})

	t.Run("canceled context", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := tc.CountTokens(ctx, "hello")

		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("long content is estimated from a prefix", func(t *testing.T) {
		t.Parallel()

		para := "The scheduler races strategies and keeps the best result. "
		content := strings.Repeat(para, 400)

		exact, err := gemini.NewTokenCounter("gemini-2.0-flash", gemini.WithSampleRunes(0))
		require.NoError(t, err)
		sampled, err := gemini.NewTokenCounter("gemini-2.0-flash", gemini.WithSampleRunes(len(para)*40))
		require.NoError(t, err)

		want, err := exact.CountTokens(context.Background(), content)
		require.NoError(t, err)
		got, err := sampled.CountTokens(context.Background(), content)
		require.NoError(t, err)

		assert.InEpsilon(t, want, got, 0.05)
	})

	t.Run("multibyte content is cut on rune boundaries", func(t *testing.T) {
		t.Parallel()

		sampled, err := gemini.NewTokenCounter("gemini-2.0-flash", gemini.WithSampleRunes(7))
		require.NoError(t, err)

		count, err := sampled.CountTokens(context.Background(), strings.Repeat("żółć ", 20))

		require.NoError(t, err)
		assert.Positive(t, count)
	})
}
