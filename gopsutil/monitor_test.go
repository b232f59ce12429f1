package gopsutil_test

import (
	"context"
	"errors"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fwojciec/websift"
	"github.com/fwojciec/websift/gopsutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const gib = 1 << 30

type samplerFunc func(ctx context.Context) (websift.HostSample, error)

func (f samplerFunc) Sample(ctx context.Context) (websift.HostSample, error) {
	return f(ctx)
}

func idle(cores int) websift.HostSample {
	return websift.HostSample{LogicalCores: cores, CPUPercent: 10, MemAvailable: 16 * gib, MemUsedPercent: 30}
}

func TestMonitor_Open(t *testing.T) {
	t.Parallel()

	t.Run("baseline sample is published before open returns", func(t *testing.T) {
		t.Parallel()

		m := gopsutil.NewMonitor(
			gopsutil.WithSampler(samplerFunc(func(context.Context) (websift.HostSample, error) {
				return idle(4), nil
			})),
			gopsutil.WithInterval(time.Hour),
		)
		require.NoError(t, m.Open(context.Background()))
		defer m.Close()

		b := m.CurrentBudget()
		assert.Equal(t, 4, b.MaxParallelOps)
		assert.Equal(t, 4, b.Sample.LogicalCores)
		assert.False(t, b.SampledAt.IsZero())
	})

	t.Run("failed baseline falls back to core count", func(t *testing.T) {
		t.Parallel()

		m := gopsutil.NewMonitor(
			gopsutil.WithSampler(samplerFunc(func(context.Context) (websift.HostSample, error) {
				return websift.HostSample{}, errors.New("permission denied")
			})),
			gopsutil.WithInterval(time.Hour),
		)
		require.NoError(t, m.Open(context.Background()))
		defer m.Close()

		want := websift.DefaultBudgetPolicy().Baseline(runtime.NumCPU())
		assert.Equal(t, want, m.CurrentBudget().MaxParallelOps)
	})

	t.Run("open twice fails", func(t *testing.T) {
		t.Parallel()

		m := gopsutil.NewMonitor(
			gopsutil.WithSampler(samplerFunc(func(context.Context) (websift.HostSample, error) {
				return idle(2), nil
			})),
			gopsutil.WithInterval(time.Hour),
		)
		require.NoError(t, m.Open(context.Background()))
		defer m.Close()

		assert.Error(t, m.Open(context.Background()))
	})
}

func TestMonitor_Refresh(t *testing.T) {
	t.Parallel()

	t.Run("failure keeps last known good budget", func(t *testing.T) {
		t.Parallel()

		var fail atomic.Bool
		m := gopsutil.NewMonitor(
			gopsutil.WithSampler(samplerFunc(func(context.Context) (websift.HostSample, error) {
				if fail.Load() {
					return websift.HostSample{}, errors.New("sample failed")
				}
				return idle(6), nil
			})),
		)
		require.NoError(t, m.Refresh(context.Background()))
		assert.Equal(t, 6, m.CurrentBudget().MaxParallelOps)

		fail.Store(true)
		require.Error(t, m.Refresh(context.Background()))

		assert.Equal(t, 6, m.CurrentBudget().MaxParallelOps)
	})

	t.Run("overloaded host gets a budget of one", func(t *testing.T) {
		t.Parallel()

		m := gopsutil.NewMonitor(
			gopsutil.WithSampler(samplerFunc(func(context.Context) (websift.HostSample, error) {
				return websift.HostSample{LogicalCores: 8, CPUPercent: 97, MemAvailable: 16 * gib}, nil
			})),
		)
		require.NoError(t, m.Refresh(context.Background()))

		assert.Equal(t, 1, m.CurrentBudget().MaxParallelOps)
	})

	t.Run("custom policy is applied", func(t *testing.T) {
		t.Parallel()

		policy := websift.DefaultBudgetPolicy()
		policy.PerCore = 2
		policy.Max = 16
		m := gopsutil.NewMonitor(
			gopsutil.WithPolicy(policy),
			gopsutil.WithSampler(samplerFunc(func(context.Context) (websift.HostSample, error) {
				return idle(4), nil
			})),
		)
		require.NoError(t, m.Refresh(context.Background()))

		assert.Equal(t, 8, m.CurrentBudget().MaxParallelOps)
	})
}

func TestMonitor_Loop(t *testing.T) {
	t.Parallel()

	var cores atomic.Int64
	cores.Store(2)
	var calls atomic.Int64
	m := gopsutil.NewMonitor(
		gopsutil.WithSampler(samplerFunc(func(context.Context) (websift.HostSample, error) {
			calls.Add(1)
			return idle(int(cores.Load())), nil
		})),
		gopsutil.WithInterval(5*time.Millisecond),
	)
	require.NoError(t, m.Open(context.Background()))
	assert.Equal(t, 2, m.CurrentBudget().MaxParallelOps)

	cores.Store(5)
	require.Eventually(t, func() bool {
		return m.CurrentBudget().MaxParallelOps == 5
	}, time.Second, time.Millisecond)

	require.NoError(t, m.Close())
	after := calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, calls.Load())
}

func TestMonitor_CurrentBudget_BeforeOpen(t *testing.T) {
	t.Parallel()

	m := gopsutil.NewMonitor()

	assert.GreaterOrEqual(t, m.CurrentBudget().MaxParallelOps, 1)
}

func TestMonitor_NonPositiveInterval(t *testing.T) {
	t.Parallel()

	for _, d := range []time.Duration{0, -time.Second} {
		m := gopsutil.NewMonitor(
			gopsutil.WithSampler(samplerFunc(func(context.Context) (websift.HostSample, error) {
				return idle(3), nil
			})),
			gopsutil.WithInterval(d),
		)
		require.NoError(t, m.Open(context.Background()))

		assert.Equal(t, 3, m.CurrentBudget().MaxParallelOps)
		require.NoError(t, m.Close())
	}
}
