package websift

import "context"

// Fetcher retrieves HTML from URLs.
// Implementations may use browser automation to handle JavaScript-rendered content.
type Fetcher interface {
	// Fetch retrieves the HTML at url.
	// The context controls timeout and cancellation; the fetcher must not
	// hold any per-request resource once Fetch returns.
	Fetch(ctx context.Context, url string) (html string, err error)

	// Close releases long-lived resources such as a browser process.
	// Must be called when the Fetcher is no longer needed.
	Close() error
}
