package goquery_test

import (
	"testing"

	"github.com/fwojciec/websift/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const page = `<!DOCTYPE html>
<html>
<head>
<title>Generics in Go - Example Blog</title>
<script>var tracking = "analytics";</script>
</head>
<body>
<header><p>Site header banner</p></header>
<nav><a href="/">Home Nav Link</a></nav>
<aside class="sidebar"><p>Related posts sidebar</p></aside>
<article>
<h1>Generics in Go</h1>
<p>Type parameters let functions work with many types.</p>
<script>console.log("inline")</script>
</article>
<footer><p>Copyright footer text</p></footer>
</body>
</html>`

func TestExtractor_Extract(t *testing.T) {
	t.Parallel()

	t.Run("keeps article and strips boilerplate", func(t *testing.T) {
		t.Parallel()

		result, err := goquery.NewExtractor().Extract(page)

		require.NoError(t, err)
		assert.Equal(t, "Generics in Go - Example Blog", result.Title)
		assert.Contains(t, result.ContentHTML, "Type parameters let functions work with many types.")
		assert.Contains(t, result.ContentHTML, "<h1>Generics in Go</h1>")
		assert.NotContains(t, result.ContentHTML, "Home Nav Link")
		assert.NotContains(t, result.ContentHTML, "Related posts sidebar")
		assert.NotContains(t, result.ContentHTML, "Copyright footer text")
		assert.NotContains(t, result.ContentHTML, "console.log")
	})

	t.Run("prefers og:title", func(t *testing.T) {
		t.Parallel()

		html := `<html><head><title>Plain</title><meta property="og:title" content="Open Graph Title"></head>
<body><main><p>Body text.</p></main></body></html>`

		result, err := goquery.NewExtractor().Extract(html)

		require.NoError(t, err)
		assert.Equal(t, "Open Graph Title", result.Title)
		assert.Contains(t, result.ContentHTML, "<main>")
	})

	t.Run("falls back to body", func(t *testing.T) {
		t.Parallel()

		html := `<html><body><nav>Menu</nav><div><p>Loose paragraph content.</p></div></body></html>`

		result, err := goquery.NewExtractor().Extract(html)

		require.NoError(t, err)
		assert.Contains(t, result.ContentHTML, "Loose paragraph content.")
		assert.NotContains(t, result.ContentHTML, "Menu")
	})

	t.Run("empty article is skipped for a later selector", func(t *testing.T) {
		t.Parallel()

		html := `<html><body><article>  </article><main><p>Main text.</p></main></body></html>`

		result, err := goquery.NewExtractor().Extract(html)

		require.NoError(t, err)
		assert.Contains(t, result.ContentHTML, "Main text.")
	})

	t.Run("page without text has no content", func(t *testing.T) {
		t.Parallel()

		html := `<html><head><title>App</title></head><body><div id="root"></div><script>boot()</script></body></html>`

		result, err := goquery.NewExtractor().Extract(html)

		require.NoError(t, err)
		assert.Equal(t, "App", result.Title)
		assert.Empty(t, result.ContentHTML)
	})

	t.Run("empty input has no content", func(t *testing.T) {
		t.Parallel()

		result, err := goquery.NewExtractor().Extract("")

		require.NoError(t, err)
		assert.Empty(t, result.ContentHTML)
	})

	t.Run("custom content selectors", func(t *testing.T) {
		t.Parallel()

		html := `<html><body><div class="doc-body"><p>Doc text.</p></div><article><p>Other.</p></article></body></html>`

		ext := goquery.NewExtractor(goquery.WithContentSelectors([]string{".doc-body"}))
		result, err := ext.Extract(html)

		require.NoError(t, err)
		assert.Contains(t, result.ContentHTML, "Doc text.")
		assert.NotContains(t, result.ContentHTML, "Other.")
	})
}
