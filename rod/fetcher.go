// Package rod provides a headless Chrome fetcher built on go-rod, used by the
// browser strategy for JavaScript-rendered pages.
package rod

import (
	"context"
	"fmt"
	"time"

	"github.com/fwojciec/websift"
	"github.com/go-rod/rod/lib/proto"
)

// Ensure Fetcher implements websift.Fetcher at compile time.
var _ websift.Fetcher = (*Fetcher)(nil)

// Fetcher retrieves rendered HTML from URLs using Chrome browser automation.
// Each Fetch opens its own page and closes it before returning, including
// when ctx is canceled. Fetcher is safe for concurrent use.
type Fetcher struct {
	manager     *BrowserManager
	maxPages    int64
	renderDelay time.Duration
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithRenderDelay waits the given time after the load event so client-side
// rendering can finish.
func WithRenderDelay(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.renderDelay = d
	}
}

// WithPagesPerBrowser sets how many pages are served before the browser is
// recycled.
func WithPagesPerBrowser(n int64) FetcherOption {
	return func(f *Fetcher) {
		f.maxPages = n
	}
}

// NewFetcher launches a headless browser and returns a Fetcher using it.
// Close must be called when the Fetcher is no longer needed.
//
// Returns an error if Chrome/Chromium cannot be found or launched.
func NewFetcher(opts ...FetcherOption) (*Fetcher, error) {
	f := &Fetcher{maxPages: DefaultMaxPages}
	for _, opt := range opts {
		opt(f)
	}

	manager, err := NewBrowserManager(WithMaxPages(f.maxPages))
	if err != nil {
		return nil, err
	}
	f.manager = manager
	return f, nil
}

// Fetch navigates to the URL and returns the rendered HTML.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	browser, release, err := f.manager.Acquire()
	if err != nil {
		return "", err
	}
	defer release()

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return "", fmt.Errorf("open page: %w", err)
	}
	// page is not bound to ctx, so closing still works after cancellation.
	defer page.Close()

	p := page.Context(ctx)
	if err := p.Navigate(url); err != nil {
		return "", err
	}
	if err := p.WaitLoad(); err != nil {
		return "", err
	}

	if f.renderDelay > 0 {
		timer := time.NewTimer(f.renderDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
		}
	}

	return p.HTML()
}

// Close shuts the browser down.
func (f *Fetcher) Close() error {
	return f.manager.Close()
}

// LauncherPID returns the browser launcher's process ID, for tests.
func (f *Fetcher) LauncherPID() int {
	return f.manager.LauncherPID()
}
