package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/websift"
	"github.com/fwojciec/websift/gemini"
	"github.com/fwojciec/websift/goquery"
	"github.com/fwojciec/websift/gopsutil"
	"github.com/fwojciec/websift/htmltomarkdown"
	wshttp "github.com/fwojciec/websift/http"
	wsprom "github.com/fwojciec/websift/prometheus"
	"github.com/fwojciec/websift/quality"
	"github.com/fwojciec/websift/race"
	"github.com/fwojciec/websift/readability"
	"github.com/fwojciec/websift/rod"
	"github.com/fwojciec/websift/search"
	wsslog "github.com/fwojciec/websift/slog"
	"github.com/fwojciec/websift/sqlite"
	"github.com/fwojciec/websift/strategy"
	"github.com/fwojciec/websift/trafilatura"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/genai"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// tokenizerModel is used for token estimates on extracted content.
const tokenizerModel = "gemini-2.5-flash"

// Main represents the program.
type Main struct {
	// Database path. Set before calling Run().
	DBPath string

	// GeminiAPIKey enables LLM ranking when set.
	GeminiAPIKey string

	// SQLite database used by the history service.
	DB *sqlite.DB

	closers []func() error
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{
		DBPath:       defaultDBPath(),
		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
	}
}

// Close gracefully stops the program, releasing resources in reverse
// order of acquisition.
func (m *Main) Close() error {
	var errs []error
	for _, c := range slices.Backward(m.closers) {
		errs = append(errs, c())
	}
	m.closers = nil
	if m.DB != nil {
		errs = append(errs, m.DB.Close())
		m.DB = nil
	}
	return errors.Join(errs...)
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	deps := &Dependencies{
		Ctx:    ctx,
		Stdout: stdout,
		Stderr: stderr,
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("websift"),
		kong.Description("Race extraction strategies against web pages and keep the best content."),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}), // Don't exit on help
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'websift --help' to see available commands")
	}

	cmd := args[0]
	if cmd == "help" || cmd == "--help" || cmd == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	deps.Logger = newLogger(stderr, cli.Verbose)
	defer m.Close()

	switch strings.Fields(kongCtx.Command())[0] {
	case "search":
		c := &cli.Search
		if err := m.wire(ctx, deps, c.RaceFlags, stderr); err != nil {
			return err
		}
		provider, err := newProvider(c.Engine)
		if err != nil {
			return err
		}
		deps.Searcher.Provider = wsslog.NewLoggingSearchService(provider, deps.Logger)
		deps.Searcher.Multiplier = c.Multiplier
	case "extract":
		if err := m.wire(ctx, deps, cli.Extract.RaceFlags, stderr); err != nil {
			return err
		}
	case "budget":
		monitor := gopsutil.NewMonitor(
			gopsutil.WithPolicy(policy(cli.Budget.MaxParallel)),
			gopsutil.WithLogger(deps.Logger),
		)
		if err := monitor.Open(ctx); err != nil {
			return err
		}
		m.closers = append(m.closers, monitor.Close)
		deps.Budget = monitor
	case "stats":
		if err := m.openDB(stderr); err != nil {
			return err
		}
		deps.Outcomes = sqlite.NewOutcomeService(m.DB)
	}

	return kongCtx.Run(deps)
}

// wire builds the searcher and everything it races with.
func (m *Main) wire(ctx context.Context, deps *Dependencies, flags RaceFlags, stderr io.Writer) error {
	logger := deps.Logger

	budget, err := m.budget(ctx, flags, logger)
	if err != nil {
		return err
	}
	deps.Budget = budget

	reg := prometheus.NewRegistry()
	metrics, err := wsprom.NewMetrics(reg, budget)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	strategies, err := m.strategies(flags.Strategies, logger, stderr)
	if err != nil {
		return err
	}
	for i, s := range strategies {
		strategies[i] = metrics.Strategy(wsslog.NewLoggingStrategy(s, logger))
	}

	weights := quality.DefaultWeights()
	weights.Authority = flags.AuthorityWeight

	searcher := &search.Searcher{
		Racer: &race.Scheduler{
			Strategies:     strategies,
			Assessor:       quality.NewAssessor(quality.WithWeights(weights)),
			Gate:           race.NewGate(budget),
			AttemptTimeout: flags.AttemptTimeout,
			GracePeriod:    flags.Grace,
			CleanupTimeout: flags.CleanupTimeout,
			Logger:         logger,
		},
		Ranker: wsslog.NewLoggingRanker(m.ranker(ctx, logger), logger),
		Budget: budget,
		Logger: logger,
	}
	if flags.MetricsFile != "" {
		searcher.Recorders = append(searcher.Recorders, metrics)
		deps.Flush = func() error { return metrics.WriteToTextfile(flags.MetricsFile) }
	}
	if !flags.NoHistory {
		if err := m.openDB(stderr); err != nil {
			return err
		}
		outcomes := sqlite.NewOutcomeService(m.DB)
		searcher.Recorders = append(searcher.Recorders, outcomes)
		deps.Outcomes = outcomes
	}
	if tc, err := gemini.NewTokenCounter(tokenizerModel); err != nil {
		logger.Warn("token counting disabled", "err", err)
	} else {
		searcher.TokenCounter = tc
	}

	deps.Searcher = searcher
	return nil
}

func (m *Main) budget(ctx context.Context, flags RaceFlags, logger *slog.Logger) (websift.BudgetSource, error) {
	if flags.Parallel > 0 {
		return websift.StaticBudget(flags.Parallel), nil
	}
	monitor := gopsutil.NewMonitor(
		gopsutil.WithPolicy(policy(flags.MaxParallel)),
		gopsutil.WithLogger(logger),
	)
	if err := monitor.Open(ctx); err != nil {
		return nil, fmt.Errorf("failed to start resource monitor: %w", err)
	}
	m.closers = append(m.closers, monitor.Close)
	return monitor, nil
}

func policy(maxParallel int) websift.BudgetPolicy {
	p := websift.DefaultBudgetPolicy()
	if maxParallel > 0 {
		p.Max = maxParallel
	}
	return p
}

// strategies builds the requested stock strategies. The browser is only
// launched when the browser strategy is requested.
func (m *Main) strategies(names []string, logger *slog.Logger, stderr io.Writer) ([]websift.Strategy, error) {
	httpFetcher := wsslog.NewLoggingFetcher(wshttp.NewFetcher(), logger)
	limiter := strategy.NewDomainLimiter(2, 4)
	converter := htmltomarkdown.NewConverter()

	var out []websift.Strategy
	for _, name := range names {
		switch name {
		case websift.StrategyStatic:
			out = append(out, &strategy.Pipeline{
				ID:          websift.StrategyStatic,
				Fetcher:     httpFetcher,
				Extractor:   goquery.NewExtractor(),
				Converter:   converter,
				RateLimiter: limiter,
			})
		case websift.StrategyAdvanced:
			out = append(out, &strategy.Pipeline{
				ID:          websift.StrategyAdvanced,
				Fetcher:     httpFetcher,
				Extractor:   trafilatura.NewExtractor(),
				Converter:   converter,
				RateLimiter: limiter,
			})
		case websift.StrategyBrowser:
			browser, err := rod.NewFetcher()
			if err != nil {
				fmt.Fprintln(stderr, "Hint: Chrome or Chromium must be installed, or pass --strategies=static,advanced")
				return nil, fmt.Errorf("failed to start browser: %w", err)
			}
			m.closers = append(m.closers, browser.Close)
			out = append(out, &strategy.Pipeline{
				ID:          websift.StrategyBrowser,
				Fetcher:     wsslog.NewLoggingFetcher(browser, logger),
				Extractor:   readability.NewExtractor(),
				Converter:   converter,
				RetryDelays: []time.Duration{},
			})
		default:
			return nil, websift.Errorf(websift.EINVALID, "unknown strategy %q (want static, advanced or browser)", name)
		}
	}
	if len(out) == 0 {
		return nil, websift.Errorf(websift.EINVALID, "at least one strategy required")
	}
	return out, nil
}

// ranker uses Gemini when an API key is configured and keyword matching
// otherwise.
func (m *Main) ranker(ctx context.Context, logger *slog.Logger) websift.Ranker {
	fallback := search.KeywordRanker{}
	if m.GeminiAPIKey == "" {
		return fallback
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  m.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		logger.Warn("gemini ranking disabled", "err", err)
		return fallback
	}
	return gemini.NewRanker(client.Models, fallback)
}

func newProvider(engine string) (websift.SearchService, error) {
	switch engine {
	case "bing":
		return wshttp.NewBing(nil, ""), nil
	case "duckduckgo", "":
		return wshttp.NewDuckDuckGo(nil, ""), nil
	default:
		return nil, websift.Errorf(websift.EINVALID, "unknown engine %q", engine)
	}
}

func (m *Main) openDB(stderr io.Writer) error {
	if m.DB != nil {
		return nil
	}
	db := sqlite.NewDB(m.DBPath)
	if err := db.Open(); err != nil {
		fmt.Fprintf(stderr, "Hint: Set WEBSIFT_DB to use a different database path, or pass --no-history\n")
		return fmt.Errorf("failed to open database at %q: %w", m.DBPath, err)
	}
	m.DB = db
	return nil
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	if !verbose {
		return slog.New(slog.DiscardHandler)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func defaultDBPath() string {
	if path := os.Getenv("WEBSIFT_DB"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "websift.db"
	}
	dir := filepath.Join(home, ".websift")
	_ = os.MkdirAll(dir, 0755)
	return filepath.Join(dir, "websift.db")
}
