// Package sessionhost defines the port for the process that actually hosts
// agent sessions. The coordinator observes and steers sessions only through
// this interface.
package sessionhost

import "context"

// Event names emitted by a session host. Hosts may emit names outside this
// set; the coordinator forwards unknown names verbatim.
const (
	EventBlocked      = "blocked"
	EventTaskComplete = "task_complete"
	EventError        = "error"
	EventStopped      = "stopped"
	EventReady        = "ready"
	EventToolRunning  = "tool_running"
)

// EventHandler receives one session event. Handlers must not block the host.
type EventHandler func(sessionID, event string, data map[string]any)

// Host is the port interface for a session host.
type Host interface {
	// SendText types text into the session's input.
	SendText(ctx context.Context, sessionID, text string) error

	// SendKeys sends a raw key sequence (e.g. "Enter", "C-c") to the session.
	SendKeys(ctx context.Context, sessionID string, keys []string) error

	// Stop terminates the session.
	Stop(ctx context.Context, sessionID string) error

	// RecentOutput returns up to lines of recent terminal output.
	// An empty session buffer is not an error.
	RecentOutput(ctx context.Context, sessionID string, lines int) (string, error)

	// Subscribe registers a handler for all session events and returns an
	// unsubscribe function.
	Subscribe(handler EventHandler) (func(), error)
}
