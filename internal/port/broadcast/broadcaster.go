// Package broadcast defines the port for delivering coordinator events to
// live sinks (websocket hub, message relays).
package broadcast

import (
	"context"

	"github.com/Strob0t/SwarmPilot/internal/domain/swarm"
)

// Sink receives every swarm event. Implementations must never block the
// caller and must swallow delivery failures (logging them at most).
type Sink interface {
	// BroadcastEvent delivers one event to all connected consumers.
	BroadcastEvent(ctx context.Context, ev swarm.Event)
}
