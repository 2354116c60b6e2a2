package swarm

import (
	"strings"
	"time"
)

// Action is what the coordinator decided to do with a session.
type Action string

const (
	ActionRespond      Action = "respond"
	ActionComplete     Action = "complete"
	ActionEscalate     Action = "escalate"
	ActionIgnore       Action = "ignore"
	ActionAutoResolved Action = "auto_resolved"
)

// Valid reports whether a is an action the oracle is allowed to return.
// auto_resolved is produced upstream by the rule-based pre-filter, never
// by the oracle.
func (a Action) Valid() bool {
	switch a {
	case ActionRespond, ActionComplete, ActionEscalate, ActionIgnore:
		return true
	}
	return false
}

// Decision is one append-only history entry on a TaskContext.
type Decision struct {
	Timestamp  time.Time `json:"timestamp"`
	Event      string    `json:"event"`
	PromptText string    `json:"prompt_text,omitempty"`
	Decision   Action    `json:"decision"`
	Response   string    `json:"response,omitempty"`
	Reasoning  string    `json:"reasoning,omitempty"`
}

// OracleDecision is the structured answer parsed from the oracle's reply.
// Response is a pointer so "respond with the empty string" stays
// distinguishable from "no response given".
type OracleDecision struct {
	Action    Action   `json:"action"`
	Response  *string  `json:"response,omitempty"`
	UseKeys   bool     `json:"useKeys,omitempty"`
	Keys      []string `json:"keys,omitempty"`
	Reasoning string   `json:"reasoning"`
}

// EncodeResponse renders the decision's response for the history log:
// the echoed text, or a keys:a,b,c encoding when key-sends were used.
func (d *OracleDecision) EncodeResponse() string {
	if d.UseKeys && len(d.Keys) > 0 {
		return "keys:" + strings.Join(d.Keys, ",")
	}
	if d.Response != nil {
		return *d.Response
	}
	return ""
}

// Truncate shortens s to at most n runes, appending an ellipsis marker when
// anything was cut. Used to keep prompt text in history and chat notices bounded.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
