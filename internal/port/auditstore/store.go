// Package auditstore defines the port for the durable coordination-decision log.
package auditstore

import (
	"context"

	"github.com/Strob0t/SwarmPilot/internal/domain/swarm"
)

// Store persists coordination decisions for after-the-fact review.
// The in-memory TaskContext history stays authoritative; this log is an
// append-only mirror, and write failures never block coordination.
type Store interface {
	// AppendDecision records one decision for a session.
	AppendDecision(ctx context.Context, sessionID string, d swarm.Decision) error

	// ListDecisions returns up to limit decisions for a session, newest first.
	ListDecisions(ctx context.Context, sessionID string, limit int) ([]swarm.Decision, error)
}
