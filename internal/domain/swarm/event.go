package swarm

import (
	"time"

	"github.com/google/uuid"
)

// GlobalSession is the session ID used on events that are not tied to a
// single session (supervision changes, snapshots).
const GlobalSession = "*"

// Broadcast event type constants. Session-host event names reuse the same
// strings where the meaning is unchanged (blocked, error, stopped, ready,
// tool_running); task_complete from the host is re-broadcast as
// turn_complete because it marks the end of one turn, not the whole task.
const (
	EventTaskRegistered       = "task_registered"
	EventBlocked              = "blocked"
	EventBlockedAutoResolved  = "blocked_auto_resolved"
	EventCoordinationDecision = "coordination_decision"
	EventEscalation           = "escalation"
	EventPendingConfirmation  = "pending_confirmation"
	EventConfirmationApproved = "confirmation_approved"
	EventConfirmationRejected = "confirmation_rejected"
	EventTurnComplete         = "turn_complete"
	EventTurnAssessment       = "turn_assessment"
	EventTaskComplete         = "task_complete"
	EventError                = "error"
	EventStopped              = "stopped"
	EventReady                = "ready"
	EventToolRunning          = "tool_running"
	EventSessionIdle          = "session_idle"
	EventSupervisionLevel     = "supervision_level"
	EventSnapshot             = "snapshot"
)

// Event is the broadcast envelope fanned out to all subscribers and sinks.
// Immutable once constructed; downstream transports serialize it verbatim.
type Event struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	SessionID string         `json:"session_id"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

// NewEvent constructs an Event with a fresh ID and timestamp.
func NewEvent(eventType, sessionID string, data map[string]any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		SessionID: sessionID,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}
