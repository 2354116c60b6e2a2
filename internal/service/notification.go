// Package service contains the session coordination engine.
package service

import (
	"context"
	"log/slog"

	"github.com/Strob0t/SwarmPilot/internal/port/notifier"
)

// NotificationService dispatches chat notices to all registered notifiers.
type NotificationService struct {
	notifiers      []notifier.Notifier
	enabledSources map[string]bool
}

// NewNotificationService creates a NotificationService with the given
// notifiers and list of enabled sources (e.g. "coordination_decision",
// "task_complete"). If enabledSources is nil or empty, all sources are enabled.
func NewNotificationService(notifiers []notifier.Notifier, enabledSources []string) *NotificationService {
	enabled := make(map[string]bool, len(enabledSources))
	for _, s := range enabledSources {
		enabled[s] = true
	}
	return &NotificationService{
		notifiers:      notifiers,
		enabledSources: enabled,
	}
}

// Notify sends a notification to all registered notifiers.
// Errors are logged but do not interrupt delivery to other notifiers.
func (s *NotificationService) Notify(ctx context.Context, n notifier.Notification) {
	if len(s.enabledSources) > 0 && !s.enabledSources[n.Source] {
		return
	}

	for _, provider := range s.notifiers {
		if err := provider.Send(ctx, n); err != nil {
			slog.Warn("notification send failed",
				"provider", provider.Name(),
				"source", n.Source,
				"error", err,
			)
			continue
		}
		slog.Debug("notification sent", "provider", provider.Name(), "source", n.Source)
	}
}

// NotifierCount returns the number of registered notifiers.
func (s *NotificationService) NotifierCount() int {
	return len(s.notifiers)
}
