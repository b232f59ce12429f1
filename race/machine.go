// Package race runs extraction strategies against a URL concurrently and
// picks one outcome as results stream in.
package race

import (
	"time"

	"github.com/fwojciec/websift"
)

// Entry is a scored result as seen by a Machine.
type Entry struct {
	StrategyID string
	Result     *websift.ExtractionResult
	Score      websift.QualityScore
	At         time.Time
}

// Machine is the decision policy of a single race. It is not safe for
// concurrent use; a race feeds it from one goroutine in arrival order.
//
// PENDING moves to RACING on Start. An EXCELLENT entry resolves the race. The
// first ACCEPTABLE or GOOD entry moves RACING to GRACE_WAIT and fixes a
// deadline of its arrival plus the grace period; the deadline never moves.
// In GRACE_WAIT a qualifying entry replaces the best only when its score is
// strictly higher. POOR entries never become the best but the highest one is
// kept as a fallback for an EXHAUSTED race.
type Machine struct {
	grace time.Duration

	state      websift.RaceState
	deadline   time.Time
	resolvedAt time.Time
	best       *Entry
	fallback   *Entry
}

// NewMachine returns a machine in the PENDING state.
func NewMachine(grace time.Duration) *Machine {
	return &Machine{
		grace: grace,
		state: websift.RacePending,
	}
}

// State returns the current state.
func (m *Machine) State() websift.RaceState {
	return m.state
}

// Deadline returns the grace deadline. It is zero until the race enters
// GRACE_WAIT.
func (m *Machine) Deadline() time.Time {
	return m.deadline
}

// ResolvedAt returns the time the race reached a terminal state.
func (m *Machine) ResolvedAt() time.Time {
	return m.resolvedAt
}

// Start moves a pending race to RACING.
func (m *Machine) Start() {
	if m.state == websift.RacePending {
		m.state = websift.RaceRacing
	}
}

// Accepts reports whether an entry arriving at the given time would be
// considered. Arrivals at the deadline are accepted; arrivals strictly after
// it are not.
func (m *Machine) Accepts(at time.Time) bool {
	switch m.state {
	case websift.RacePending, websift.RaceRacing:
		return true
	case websift.RaceGraceWait:
		return !at.After(m.deadline)
	default:
		return false
	}
}

// Observe applies one scored entry and reports whether it was considered.
func (m *Machine) Observe(e Entry) bool {
	if !m.Accepts(e.At) {
		return false
	}
	m.Start()

	switch {
	case e.Score.Tier == websift.TierExcellent:
		m.best = &e
		m.resolve(websift.RaceResolved, e.At)
	case e.Score.Tier.Qualifies():
		if m.state == websift.RaceRacing {
			m.best = &e
			m.deadline = e.At.Add(m.grace)
			m.state = websift.RaceGraceWait
		} else if e.Score.Score > m.best.Score.Score {
			m.best = &e
		}
	default:
		if m.fallback == nil || e.Score.Score > m.fallback.Score.Score {
			m.fallback = &e
		}
	}
	return true
}

// Expire resolves a GRACE_WAIT race once at has reached the deadline.
// It reports whether a transition happened.
func (m *Machine) Expire(at time.Time) bool {
	if m.state != websift.RaceGraceWait || at.Before(m.deadline) {
		return false
	}
	m.resolve(websift.RaceResolved, m.deadline)
	return true
}

// Exhaust ends a race whose attempts have all finished without a
// qualifying result. It reports whether a transition happened.
func (m *Machine) Exhaust(at time.Time) bool {
	if m.state != websift.RacePending && m.state != websift.RaceRacing {
		return false
	}
	m.resolve(websift.RaceExhausted, at)
	return true
}

// Interrupt ends the race early, for example when the caller gives up.
// A race holding a qualifying result resolves with it; any other race is
// exhausted.
func (m *Machine) Interrupt(at time.Time) {
	switch m.state {
	case websift.RaceGraceWait:
		m.resolve(websift.RaceResolved, at)
	case websift.RacePending, websift.RaceRacing:
		m.resolve(websift.RaceExhausted, at)
	}
}

// Winner returns the selected entry of a terminal race: the best qualifying
// entry when RESOLVED, the best POOR entry when EXHAUSTED.
func (m *Machine) Winner() (Entry, bool) {
	var e *Entry
	switch m.state {
	case websift.RaceResolved:
		e = m.best
	case websift.RaceExhausted:
		e = m.fallback
	}
	if e == nil {
		return Entry{}, false
	}
	return *e, true
}

func (m *Machine) resolve(state websift.RaceState, at time.Time) {
	m.state = state
	m.resolvedAt = at
}
