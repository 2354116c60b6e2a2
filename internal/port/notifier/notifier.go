// Package notifier defines the user-facing chat notification port.
package notifier

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned when a notifier is not properly configured.
var ErrNotConfigured = errors.New("notifier: not configured")

// Notification is one plain-language message for the user. Message text is
// already truncated by the caller; notifiers never see raw prompts or stacks.
type Notification struct {
	Message string `json:"message"`
	Level   string `json:"level"`  // "info", "success", "warning", "error"
	Source  string `json:"source"` // event tag, e.g. "coordination_decision"
}

// Notifier is the port interface for a chat sink. Sends are fire-and-forget
// from the coordinator's point of view; failures are logged, never surfaced.
type Notifier interface {
	// Name returns the unique identifier for this notifier (e.g. "slack").
	Name() string

	// Send delivers a notification.
	Send(ctx context.Context, notification Notification) error
}
