// Package swarm defines the domain entities for coordinated agent sessions.
package swarm

import "time"

// TaskStatus represents the current state of a coordinated session.
type TaskStatus string

const (
	TaskStatusActive    TaskStatus = "active"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusError     TaskStatus = "error"
	TaskStatusStopped   TaskStatus = "stopped"
)

// TaskContext holds everything the coordinator knows about one registered session.
// The session host assigns the session ID; the coordinator owns all other fields.
type TaskContext struct {
	SessionID         string     `json:"session_id"`
	AgentType         string     `json:"agent_type"`
	Label             string     `json:"label"`
	OriginalTask      string     `json:"original_task"`
	Workdir           string     `json:"workdir"`
	Status            TaskStatus `json:"status"`
	Decisions         []Decision `json:"decisions"`
	AutoResolvedCount int        `json:"auto_resolved_count"`
	RegisteredAt      time.Time  `json:"registered_at"`
	LastActivityAt    time.Time  `json:"last_activity_at"`
	IdleCheckCount    int        `json:"idle_check_count"`
}

// RecentDecisions returns the last n decisions that were not auto-resolved,
// oldest first. These form the only cross-call memory the oracle receives.
func (t *TaskContext) RecentDecisions(n int) []Decision {
	if n <= 0 {
		return nil
	}
	var out []Decision
	for i := len(t.Decisions) - 1; i >= 0 && len(out) < n; i-- {
		if t.Decisions[i].Decision == ActionAutoResolved {
			continue
		}
		out = append(out, t.Decisions[i])
	}
	// Reverse into chronological order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// SupervisionLevel controls how blocked events are routed, process-wide.
type SupervisionLevel string

const (
	// SupervisionAutonomous executes oracle decisions immediately.
	SupervisionAutonomous SupervisionLevel = "autonomous"
	// SupervisionConfirm queues oracle suggestions for human approval.
	SupervisionConfirm SupervisionLevel = "confirm"
	// SupervisionNotify broadcasts blocked events without acting on them.
	SupervisionNotify SupervisionLevel = "notify"
)

// Valid reports whether l is a known supervision level.
func (l SupervisionLevel) Valid() bool {
	switch l {
	case SupervisionAutonomous, SupervisionConfirm, SupervisionNotify:
		return true
	}
	return false
}

// PendingDecision is an oracle suggestion parked for human review while the
// supervision level is "confirm". At most one exists per session; a newer
// suggestion for the same session replaces the older one.
type PendingDecision struct {
	SessionID    string          `json:"session_id"`
	Event        string          `json:"event"`
	PromptText   string          `json:"prompt_text"`
	RecentOutput string          `json:"recent_output"`
	Suggested    *OracleDecision `json:"suggested"`
	Task         *TaskContext    `json:"-"`
	CreatedAt    time.Time       `json:"created_at"`
}
