package ws

import (
	"context"
	"testing"

	"github.com/Strob0t/SwarmPilot/internal/domain/swarm"
)

func TestNewHub(t *testing.T) {
	h := NewHub()
	if h.ConnectionCount() != 0 {
		t.Fatalf("expected 0 connections, got %d", h.ConnectionCount())
	}
}

func TestBroadcastNoConnections(t *testing.T) {
	h := NewHub()

	// Broadcasting with no clients must not panic or block.
	h.BroadcastEvent(context.Background(), swarm.NewEvent(swarm.EventReady, "s1", nil))
}

func TestCloseIdempotent(t *testing.T) {
	h := NewHub()
	h.Close()
	h.Close()
	if h.ConnectionCount() != 0 {
		t.Fatalf("expected 0 connections after close, got %d", h.ConnectionCount())
	}
}
