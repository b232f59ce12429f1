package htmltomarkdown_test

import (
	"testing"

	"github.com/fwojciec/websift/htmltomarkdown"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConverter_Convert(t *testing.T) {
	t.Parallel()

	t.Run("converts headings and paragraphs into blocks", func(t *testing.T) {
		t.Parallel()

		html := `<article><h1>Title</h1><p>First paragraph.</p><h2>Section</h2><p>Second paragraph.</p></article>`

		md, err := htmltomarkdown.NewConverter().Convert(html)

		require.NoError(t, err)
		assert.Contains(t, md, "# Title\n\nFirst paragraph.")
		assert.Contains(t, md, "## Section\n\nSecond paragraph.")
	})

	t.Run("collapses runs of blank lines", func(t *testing.T) {
		t.Parallel()

		html := `<div><p>One</p><div><div><br><br><br></div></div><p>Two</p></div>`

		md, err := htmltomarkdown.NewConverter().Convert(html)

		require.NoError(t, err)
		assert.NotContains(t, md, "\n\n\n")
		assert.Contains(t, md, "One")
		assert.Contains(t, md, "Two")
	})

	t.Run("keeps links lists and code", func(t *testing.T) {
		t.Parallel()

		html := `<p>See <a href="https://go.dev">the docs</a> and run <code>go build</code>.</p>
<ul><li>First</li><li>Second</li></ul>
<pre><code class="language-go">package main</code></pre>`

		md, err := htmltomarkdown.NewConverter().Convert(html)

		require.NoError(t, err)
		assert.Contains(t, md, "[the docs](https://go.dev)")
		assert.Contains(t, md, "`go build`")
		assert.Contains(t, md, "- First")
		assert.Contains(t, md, "```go")
		assert.Contains(t, md, "package main")
	})

	t.Run("converts tables", func(t *testing.T) {
		t.Parallel()

		html := `<table><thead><tr><th>Strategy</th><th>Wins</th></tr></thead>
<tbody><tr><td>static</td><td>12</td></tr></tbody></table>`

		md, err := htmltomarkdown.NewConverter().Convert(html)

		require.NoError(t, err)
		assert.Contains(t, md, "Strategy")
		assert.Contains(t, md, "static")
		assert.Contains(t, md, "|")
		assert.Contains(t, md, "---")
	})

	t.Run("empty input converts to empty markdown", func(t *testing.T) {
		t.Parallel()

		md, err := htmltomarkdown.NewConverter().Convert("   ")

		require.NoError(t, err)
		assert.Empty(t, md)
	})
}
