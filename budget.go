package websift

import (
	"math"
	"time"
)

// ResourceBudget caps the number of extraction attempts in flight
// system-wide. MaxParallelOps is always at least 1.
type ResourceBudget struct {
	MaxParallelOps int        `json:"maxParallelOps"`
	SampledAt      time.Time  `json:"sampledAt"`
	Sample         HostSample `json:"sample"`
}

// HostSample is a point-in-time reading of host load.
type HostSample struct {
	LogicalCores   int     `json:"logicalCores"`
	CPUPercent     float64 `json:"cpuPercent"`
	MemAvailable   uint64  `json:"memAvailable"` // bytes
	MemUsedPercent float64 `json:"memUsedPercent"`
}

// BudgetSource exposes the current budget.
type BudgetSource interface {
	// CurrentBudget returns the most recent budget without blocking
	// and without triggering a fresh sample.
	CurrentBudget() ResourceBudget
}

// StaticBudget is a BudgetSource with a fixed size.
type StaticBudget int

// CurrentBudget returns the fixed budget, floored at 1.
func (b StaticBudget) CurrentBudget() ResourceBudget {
	return ResourceBudget{MaxParallelOps: max(1, int(b))}
}

const gib = 1 << 30

// BudgetPolicy derives a budget from a host sample.
// The zero value is not usable; start from DefaultBudgetPolicy.
type BudgetPolicy struct {
	// PerCore is the number of parallel operations granted per logical core.
	PerCore float64

	// Max is the ceiling on the budget regardless of core count.
	Max int

	// BusyCPU reduces the budget by one above this CPU percentage.
	BusyCPU float64

	// OverloadedCPU collapses the budget to 1 above this CPU percentage.
	OverloadedCPU float64

	// OverloadedMemPercent collapses the budget to 1 above this memory usage.
	OverloadedMemPercent float64

	// MinMemAvailable collapses the budget to 1 below this many free bytes.
	MinMemAvailable uint64

	// TightMemAvailable caps the budget at 2, LowMemAvailable at 3.
	TightMemAvailable uint64
	LowMemAvailable   uint64
}

// DefaultBudgetPolicy returns the policy used when none is configured.
func DefaultBudgetPolicy() BudgetPolicy {
	return BudgetPolicy{
		PerCore:              1,
		Max:                  8,
		BusyCPU:              50,
		OverloadedCPU:        80,
		OverloadedMemPercent: 90,
		MinMemAvailable:      1 * gib,
		TightMemAvailable:    2 * gib,
		LowMemAvailable:      4 * gib,
	}
}

// Baseline returns the budget for a host with the given core count and no
// load information.
func (p BudgetPolicy) Baseline(cores int) int {
	return p.clamp(int(math.Floor(float64(max(1, cores)) * p.PerCore)))
}

// Budget computes the parallelism budget for a sample.
func (p BudgetPolicy) Budget(s HostSample) int {
	if s.CPUPercent > p.OverloadedCPU ||
		s.MemUsedPercent > p.OverloadedMemPercent ||
		s.MemAvailable < p.MinMemAvailable {
		return 1
	}

	n := p.Baseline(s.LogicalCores)
	switch {
	case s.MemAvailable < p.TightMemAvailable:
		n = min(n, 2)
	case s.MemAvailable < p.LowMemAvailable:
		n = min(n, 3)
	}
	if s.CPUPercent > p.BusyCPU {
		n--
	}
	return p.clamp(n)
}

func (p BudgetPolicy) clamp(n int) int {
	if p.Max > 0 {
		n = min(n, p.Max)
	}
	return max(1, n)
}
