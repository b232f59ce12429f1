package race

import (
	"container/list"
	"context"
	"sync"

	"github.com/fwojciec/websift"
)

// Gate bounds the number of attempts in flight across all races.
//
// The limit is read from the BudgetSource at every admission decision, so a
// budget change takes effect on the next Acquire or Release. Waiters are
// served in FIFO order and are never dropped. A shrinking budget does not
// preempt running attempts; new admissions wait until the in-use count falls
// below the new limit.
type Gate struct {
	budget websift.BudgetSource

	mu      sync.Mutex
	inUse   int
	waiters list.List // of chan struct{}
}

// NewGate returns a gate limited by budget.
func NewGate(budget websift.BudgetSource) *Gate {
	return &Gate{budget: budget}
}

// Acquire blocks until an attempt may start or ctx is done. On success the
// caller must call Release exactly once.
func (g *Gate) Acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	g.mu.Lock()
	if g.waiters.Len() == 0 && g.inUse < g.limit() {
		g.inUse++
		g.mu.Unlock()
		return nil
	}
	ready := make(chan struct{})
	elem := g.waiters.PushBack(ready)
	g.notifyLocked()
	g.mu.Unlock()

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		g.mu.Lock()
		select {
		case <-ready:
			// Admitted while being canceled; hand the slot on.
			g.inUse--
		default:
			g.waiters.Remove(elem)
		}
		g.notifyLocked()
		g.mu.Unlock()
		return ctx.Err()
	}
}

// Release frees a slot taken by Acquire.
func (g *Gate) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.inUse == 0 {
		panic("race: gate released more than acquired")
	}
	g.inUse--
	g.notifyLocked()
}

// InUse returns the number of admitted attempts that have not released.
func (g *Gate) InUse() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inUse
}

// Waiting returns the number of queued attempts.
func (g *Gate) Waiting() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.waiters.Len()
}

// Limit returns the current admission limit.
func (g *Gate) Limit() int {
	return g.limit()
}

func (g *Gate) limit() int {
	return max(1, g.budget.CurrentBudget().MaxParallelOps)
}

func (g *Gate) notifyLocked() {
	limit := g.limit()
	for g.inUse < limit {
		front := g.waiters.Front()
		if front == nil {
			return
		}
		g.waiters.Remove(front)
		g.inUse++
		close(front.Value.(chan struct{}))
	}
}
