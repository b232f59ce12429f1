package rod

import (
	"fmt"
	"sync"

	"github.com/fwojciec/websift"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
)

// DefaultMaxPages is the default number of pages before browser recycling.
const DefaultMaxPages = 75

// instance is one launched browser process.
type instance struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	active   int
	retired  bool
}

// BrowserManager owns the headless browser and recycles it every maxPages
// pages. Chrome memory grows under sustained load and does not return to
// its baseline even when every page is closed.
//
// A recycled browser stays up until the last page opened on it is released,
// so attempts still running on it are not torn down mid-render.
//
// BrowserManager is safe for concurrent use.
type BrowserManager struct {
	mu        sync.Mutex
	current   *instance
	pageCount int64
	maxPages  int64
	closed    bool
}

// ManagerOption configures a BrowserManager.
type ManagerOption func(*BrowserManager)

// WithMaxPages sets the maximum number of pages before the browser is recycled.
func WithMaxPages(n int64) ManagerOption {
	return func(bm *BrowserManager) {
		bm.maxPages = n
	}
}

// NewBrowserManager launches a headless Chrome browser.
// Close must be called when the BrowserManager is no longer needed.
func NewBrowserManager(opts ...ManagerOption) (*BrowserManager, error) {
	bm := &BrowserManager{
		maxPages: DefaultMaxPages,
	}
	for _, opt := range opts {
		opt(bm)
	}

	inst, err := launch()
	if err != nil {
		return nil, err
	}
	bm.current = inst
	return bm, nil
}

// Acquire returns the browser to open one page on, recycling it first when
// the page budget is spent. The release func must be called after the page
// is closed.
func (bm *BrowserManager) Acquire() (*rod.Browser, func(), error) {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	if bm.closed {
		return nil, nil, websift.Errorf(websift.EINVALID, "browser manager closed")
	}
	if bm.pageCount >= bm.maxPages {
		bm.recycleLocked()
	}

	inst := bm.current
	inst.active++
	bm.pageCount++

	var once sync.Once
	release := func() {
		once.Do(func() {
			bm.mu.Lock()
			defer bm.mu.Unlock()
			inst.active--
			if inst.retired && inst.active == 0 {
				inst.shutdown()
			}
		})
	}
	return inst.browser, release, nil
}

// Close releases browser resources. Close is safe to call multiple times.
// Pages still open are closed with the browser.
func (bm *BrowserManager) Close() error {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	if bm.closed {
		return nil
	}
	bm.closed = true
	return bm.current.shutdown()
}

// LauncherPID returns the process ID of the current browser launcher.
// This method exists for testing purposes to verify proper cleanup.
func (bm *BrowserManager) LauncherPID() int {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	if bm.current == nil || bm.current.launcher == nil {
		return 0
	}
	return bm.current.launcher.PID()
}

// recycleLocked swaps in a fresh browser. The old one is shut down now if
// idle, otherwise by the release of its last page. If the launch fails the
// old browser stays in service.
func (bm *BrowserManager) recycleLocked() {
	next, err := launch()
	if err != nil {
		return
	}
	old := bm.current
	bm.current = next
	bm.pageCount = 0

	old.retired = true
	if old.active == 0 {
		_ = old.shutdown()
	}
}

// launch starts a new browser instance with stability flags.
func launch() (*instance, error) {
	l := launcher.New().
		Set("disable-background-timer-throttling").
		Set("disable-backgrounding-occluded-windows").
		Set("disable-renderer-backgrounding").
		Set("disable-dev-shm-usage").
		Set("disable-hang-monitor").
		Leakless(true).
		Headless(true)

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launching browser: %w", err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connecting to browser: %w", err)
	}

	return &instance{browser: browser, launcher: l}, nil
}

func (i *instance) shutdown() error {
	var err error
	if i.browser != nil {
		err = i.browser.Close()
		i.browser = nil
	}
	if i.launcher != nil {
		i.launcher.Kill()
		i.launcher = nil
	}
	return err
}
