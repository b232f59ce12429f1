package main

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/fwojciec/websift"
	"github.com/fwojciec/websift/search"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx      context.Context
	Stdout   io.Writer
	Stderr   io.Writer
	Logger   *slog.Logger
	Searcher *search.Searcher
	Outcomes websift.OutcomeService
	Budget   websift.BudgetSource

	// Flush, if set, runs after a search or extract command completes,
	// e.g. to write the metrics textfile.
	Flush func() error
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Verbose bool `short:"v" help:"Log debug output to stderr"`

	Search  SearchCmd  `cmd:"" help:"Search the web and extract the best pages for a query"`
	Extract ExtractCmd `cmd:"" help:"Race extraction strategies against the given URLs"`
	Budget  BudgetCmd  `cmd:"" help:"Show the current parallelism budget"`
	Stats   StatsCmd   `cmd:"" help:"Show per-strategy race history"`
}

// RaceFlags configure races. They are shared by search and extract.
type RaceFlags struct {
	Parallel        int           `help:"Fixed parallelism budget; 0 adapts to host load" env:"WEBSIFT_PARALLEL"`
	MaxParallel     int           `default:"8" help:"Upper bound on the adaptive budget"`
	Grace           time.Duration `default:"3s" help:"How long to wait for a better result after the first acceptable one"`
	AttemptTimeout  time.Duration `default:"20s" help:"Timeout for a single strategy attempt"`
	CleanupTimeout  time.Duration `default:"2s" help:"How long to wait for canceled attempts to return"`
	Strategies      []string      `default:"static,advanced,browser" help:"Strategies to race"`
	AuthorityWeight float64       `default:"10" help:"Weight of the source authority criterion; 0 disables it"`
	Format          string        `short:"f" enum:"text,json,markdown" default:"text" help:"Output format (text, json, markdown)"`
	Out             string        `short:"o" type:"path" help:"Also write markdown files to this directory"`
	MetricsFile     string        `type:"path" env:"WEBSIFT_METRICS_FILE" help:"Write Prometheus metrics to this textfile"`
	NoHistory       bool          `help:"Do not record races in the history database"`
}

// SearchCmd is the "search" subcommand.
type SearchCmd struct {
	Query      string `arg:"" help:"Search query"`
	Count      int    `short:"n" default:"3" help:"Number of results wanted"`
	Engine     string `enum:"duckduckgo,bing" default:"duckduckgo" help:"Search engine (duckduckgo, bing)"`
	Multiplier int    `default:"10" help:"Search results requested per wanted result"`

	RaceFlags `embed:""`
}

// ExtractCmd is the "extract" subcommand.
type ExtractCmd struct {
	URLs  []string `arg:"" name:"url" help:"Page URLs in priority order"`
	Query string   `short:"q" help:"Query used for relevance scoring"`
	Count int      `short:"n" help:"Number of results wanted; 0 means one per URL"`

	RaceFlags `embed:""`
}

// BudgetCmd is the "budget" subcommand.
type BudgetCmd struct {
	MaxParallel int  `default:"8" help:"Upper bound on the adaptive budget"`
	JSON        bool `help:"Print as JSON"`
}

// StatsCmd is the "stats" subcommand.
type StatsCmd struct {
	Recent int  `default:"10" help:"Number of recent races to list"`
	JSON   bool `help:"Print as JSON"`
}
