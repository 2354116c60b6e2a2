// Package resilience guards calls to slow or flaky collaborators, the
// decision oracle above all.
package resilience

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned while the breaker is rejecting calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

type phase int

const (
	phaseClosed phase = iota
	phaseOpen
	phaseHalfOpen
)

// Breaker is a consecutive-failure circuit breaker. After maxFailures
// failures in a row it rejects calls for the cooldown period, then lets a
// single probe through; the probe's outcome decides whether it closes
// again or reopens.
type Breaker struct {
	mu          sync.Mutex
	phase       phase
	streak      int
	maxFailures int
	cooldown    time.Duration
	openedAt    time.Time
	now         func() time.Time // swapped in tests
}

// NewBreaker creates a closed breaker.
func NewBreaker(maxFailures int, cooldown time.Duration) *Breaker {
	return &Breaker{
		maxFailures: maxFailures,
		cooldown:    cooldown,
		now:         time.Now,
	}
}

// Execute runs fn unless the breaker is open, and feeds the outcome back
// into the breaker.
func (b *Breaker) Execute(fn func() error) error {
	if !b.admit() {
		return ErrCircuitOpen
	}

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.streak++
		if b.phase == phaseHalfOpen || b.streak >= b.maxFailures {
			b.phase = phaseOpen
			b.openedAt = b.now()
		}
		return err
	}
	b.streak = 0
	b.phase = phaseClosed
	return nil
}

func (b *Breaker) admit() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.phase == phaseOpen {
		if b.now().Sub(b.openedAt) < b.cooldown {
			return false
		}
		b.phase = phaseHalfOpen
	}
	return true
}

// State reports "closed", "open", or "half_open" for health output.
func (b *Breaker) State() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.phase {
	case phaseOpen:
		if b.now().Sub(b.openedAt) >= b.cooldown {
			return "half_open"
		}
		return "open"
	case phaseHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}
