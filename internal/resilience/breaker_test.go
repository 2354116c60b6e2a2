package resilience

import (
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("oracle unreachable")

func trip(b *Breaker, n int) {
	for range n {
		_ = b.Execute(func() error { return errBoom })
	}
}

func TestClosedBreakerRunsCalls(t *testing.T) {
	b := NewBreaker(3, time.Second)

	ran := false
	if err := b.Execute(func() error { ran = true; return nil }); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !ran {
		t.Fatal("expected fn to run")
	}
}

func TestBreakerOpensOnFailureStreak(t *testing.T) {
	b := NewBreaker(3, time.Second)
	trip(b, 3)

	if err := b.Execute(func() error { return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if got := b.State(); got != "open" {
		t.Fatalf("expected state open, got %s", got)
	}
}

func TestProbeAfterCooldownCloses(t *testing.T) {
	now := time.Now()
	b := NewBreaker(2, time.Second)
	b.now = func() time.Time { return now }

	trip(b, 2)
	if err := b.Execute(func() error { return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected rejection before cooldown, got %v", err)
	}

	now = now.Add(2 * time.Second)

	ran := false
	if err := b.Execute(func() error { ran = true; return nil }); err != nil {
		t.Fatalf("expected probe to run, got %v", err)
	}
	if !ran {
		t.Fatal("expected probe fn to run")
	}
	if got := b.State(); got != "closed" {
		t.Fatalf("expected state closed after successful probe, got %s", got)
	}
}

func TestFailedProbeReopens(t *testing.T) {
	now := time.Now()
	b := NewBreaker(2, time.Second)
	b.now = func() time.Time { return now }

	trip(b, 2)
	now = now.Add(2 * time.Second)

	_ = b.Execute(func() error { return errBoom })

	if got := b.State(); got != "open" {
		t.Fatalf("expected state open after failed probe, got %s", got)
	}
	if err := b.Execute(func() error { return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen after reopen, got %v", err)
	}
}

func TestSuccessResetsStreak(t *testing.T) {
	b := NewBreaker(3, time.Second)

	trip(b, 2)
	_ = b.Execute(func() error { return nil })
	trip(b, 2)

	ran := false
	if err := b.Execute(func() error { ran = true; return nil }); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !ran {
		t.Fatal("expected fn to run, breaker should still be closed")
	}
}

func TestStateReportsHalfOpenAfterCooldown(t *testing.T) {
	now := time.Now()
	b := NewBreaker(1, time.Second)
	b.now = func() time.Time { return now }

	trip(b, 1)
	now = now.Add(2 * time.Second)

	if got := b.State(); got != "half_open" {
		t.Fatalf("expected half_open, got %s", got)
	}
}
