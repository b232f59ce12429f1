package search_test

import (
	"testing"

	"github.com/fwojciec/websift/search"
	"github.com/stretchr/testify/assert"
)

func TestValidURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		url  string
		want bool
	}{
		{name: "https page", url: "https://go.dev/doc/tutorial/generics", want: true},
		{name: "http page", url: "http://example.com/", want: true},
		{name: "query string kept", url: "https://example.com/search?q=pdf", want: true},
		{name: "empty", url: "", want: false},
		{name: "relative", url: "/docs/page", want: false},
		{name: "ftp", url: "ftp://example.com/file", want: false},
		{name: "pdf", url: "https://example.com/paper.pdf", want: false},
		{name: "uppercase extension", url: "https://example.com/IMAGE.PNG", want: false},
		{name: "video page", url: "https://www.youtube.com/watch?v=abc", want: false},
		{name: "tiktok", url: "https://www.tiktok.com/@user", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, search.ValidURL(tt.url))
		})
	}
}
