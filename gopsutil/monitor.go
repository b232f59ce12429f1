// Package gopsutil provides a resource monitor that derives the extraction
// budget from host CPU and memory load.
package gopsutil

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fwojciec/websift"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
)

// Ensure Monitor implements websift.BudgetSource.
var _ websift.BudgetSource = (*Monitor)(nil)

// DefaultInterval is the time between background samples.
const DefaultInterval = 3 * time.Second

// Sampler reads host load.
type Sampler interface {
	Sample(ctx context.Context) (websift.HostSample, error)
}

// HostSampler samples the local machine.
type HostSampler struct{}

// Sample reads logical core count, CPU utilisation since the previous call
// and virtual memory statistics.
func (HostSampler) Sample(ctx context.Context) (websift.HostSample, error) {
	cores, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		return websift.HostSample{}, fmt.Errorf("count cpus: %w", err)
	}
	percent, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return websift.HostSample{}, fmt.Errorf("cpu percent: %w", err)
	}
	if len(percent) == 0 {
		return websift.HostSample{}, errors.New("cpu percent: no data")
	}
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return websift.HostSample{}, fmt.Errorf("virtual memory: %w", err)
	}
	return websift.HostSample{
		LogicalCores:   cores,
		CPUPercent:     percent[0],
		MemAvailable:   vm.Available,
		MemUsedPercent: vm.UsedPercent,
	}, nil
}

// Monitor periodically samples host load and publishes a budget.
//
// Open takes a baseline sample before returning so CurrentBudget is valid
// immediately. CurrentBudget only reads the last published value.
type Monitor struct {
	sampler  Sampler
	policy   websift.BudgetPolicy
	interval time.Duration
	logger   *slog.Logger

	current atomic.Pointer[websift.ResourceBudget]

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithSampler sets the sampler. Defaults to HostSampler.
func WithSampler(s Sampler) Option {
	return func(m *Monitor) {
		m.sampler = s
	}
}

// WithPolicy sets the budget policy.
func WithPolicy(p websift.BudgetPolicy) Option {
	return func(m *Monitor) {
		m.policy = p
	}
}

// WithInterval sets the refresh interval. Non-positive values keep
// DefaultInterval.
func WithInterval(d time.Duration) Option {
	return func(m *Monitor) {
		if d <= 0 {
			d = DefaultInterval
		}
		m.interval = d
	}
}

// WithLogger sets the logger for sampling failures and budget changes.
func WithLogger(l *slog.Logger) Option {
	return func(m *Monitor) {
		m.logger = l
	}
}

// NewMonitor creates a Monitor. Call Open to start sampling.
func NewMonitor(opts ...Option) *Monitor {
	m := &Monitor{
		sampler:  HostSampler{},
		policy:   websift.DefaultBudgetPolicy(),
		interval: DefaultInterval,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Open takes the baseline sample and starts the refresh loop. A failed
// baseline sample is logged and replaced by a budget derived from the core
// count alone.
func (m *Monitor) Open(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return errors.New("monitor already open")
	}

	if err := m.Refresh(ctx); err != nil {
		m.publish(websift.ResourceBudget{
			MaxParallelOps: m.policy.Baseline(runtime.NumCPU()),
			SampledAt:      time.Now(),
		})
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.done = make(chan struct{})
	go m.loop(loopCtx, m.done)
	return nil
}

// Close stops the refresh loop. The last budget remains readable.
func (m *Monitor) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel == nil {
		return nil
	}
	m.cancel()
	<-m.done
	m.cancel = nil
	return nil
}

// Refresh takes one sample and publishes the resulting budget. On failure
// the previous budget is kept.
func (m *Monitor) Refresh(ctx context.Context) error {
	sample, err := m.sampler.Sample(ctx)
	if err != nil {
		m.logger.Warn("resource sample failed", "err", err)
		return err
	}

	b := websift.ResourceBudget{
		MaxParallelOps: m.policy.Budget(sample),
		SampledAt:      time.Now(),
		Sample:         sample,
	}
	if prev := m.current.Load(); prev == nil || prev.MaxParallelOps != b.MaxParallelOps {
		m.logger.Info("budget changed",
			"maxParallelOps", b.MaxParallelOps,
			"cpuPercent", sample.CPUPercent,
			"memAvailable", sample.MemAvailable,
		)
	}
	m.publish(b)
	return nil
}

// CurrentBudget returns the most recently published budget. Before the
// first sample it returns the core-count baseline.
func (m *Monitor) CurrentBudget() websift.ResourceBudget {
	if b := m.current.Load(); b != nil {
		return *b
	}
	return websift.ResourceBudget{MaxParallelOps: m.policy.Baseline(runtime.NumCPU())}
}

func (m *Monitor) publish(b websift.ResourceBudget) {
	b.MaxParallelOps = max(1, b.MaxParallelOps)
	m.current.Store(&b)
}

func (m *Monitor) loop(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sampleCtx, cancel := context.WithTimeout(ctx, m.interval)
			_ = m.Refresh(sampleCtx)
			cancel()
		}
	}
}
