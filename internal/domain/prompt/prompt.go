// Package prompt builds decision-oracle prompts and parses the oracle's replies.
package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Strob0t/SwarmPilot/internal/domain/swarm"
)

const (
	maxPromptChars = 2000
	maxOutputChars = 4000
)

// BuildBlocked assembles the prompt sent to the oracle when a session is
// blocked on input. History must already be filtered to non-auto-resolved
// decisions, oldest first.
func BuildBlocked(task *swarm.TaskContext, promptText, recentOutput string, history []swarm.Decision) string {
	var b strings.Builder

	b.WriteString("You supervise an autonomous coding agent session. It is blocked waiting for input.\n\n")
	writeTaskSummary(&b, task)

	b.WriteString("The session is asking:\n")
	b.WriteString(swarm.Truncate(promptText, maxPromptChars))
	b.WriteString("\n\n")

	if recentOutput != "" {
		b.WriteString("Recent session output:\n")
		b.WriteString(swarm.Truncate(recentOutput, maxOutputChars))
		b.WriteString("\n\n")
	}

	writeHistory(&b, history)

	b.WriteString(`Decide what to do. Reply with a single JSON object, no prose:
{"action": "respond" | "complete" | "escalate" | "ignore",
 "response": "text to type into the session (for respond)",
 "useKeys": false,
 "keys": ["Enter"],
 "reasoning": "one sentence"}
Use "escalate" when a human must look at it. Use "complete" only when the original task is clearly finished.`)

	return b.String()
}

// BuildTurnAssessment assembles the prompt sent to the oracle when a session
// finishes one turn, asking whether the overall task is done.
func BuildTurnAssessment(task *swarm.TaskContext, turnOutput string, history []swarm.Decision) string {
	var b strings.Builder

	b.WriteString("You supervise an autonomous coding agent session. It just finished one turn of work.\n\n")
	writeTaskSummary(&b, task)

	b.WriteString("Output of the finished turn:\n")
	b.WriteString(swarm.Truncate(turnOutput, maxOutputChars))
	b.WriteString("\n\n")

	writeHistory(&b, history)

	b.WriteString(`Judge the state of the task. Reply with a single JSON object, no prose:
{"action": "respond" | "complete" | "escalate",
 "response": "next instruction for the session (for respond)",
 "reasoning": "one sentence"}
Use "complete" when the original task is finished, "respond" to keep the session working, "escalate" when a human must decide.`)

	return b.String()
}

func writeTaskSummary(b *strings.Builder, task *swarm.TaskContext) {
	fmt.Fprintf(b, "Session %q (%s) in %s.\nOriginal task: %s\n\n",
		task.Label, task.AgentType, task.Workdir,
		swarm.Truncate(task.OriginalTask, maxPromptChars))
}

func writeHistory(b *strings.Builder, history []swarm.Decision) {
	if len(history) == 0 {
		return
	}
	b.WriteString("Previous coordination decisions, oldest first:\n")
	for _, d := range history {
		fmt.Fprintf(b, "- [%s] %s", d.Event, d.Decision)
		if d.Response != "" {
			fmt.Fprintf(b, " (%s)", swarm.Truncate(d.Response, 120))
		}
		if d.Reasoning != "" {
			fmt.Fprintf(b, ": %s", swarm.Truncate(d.Reasoning, 200))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

// Parse extracts a structured decision from the oracle's raw reply.
// Tolerates markdown code fences and surrounding prose. Returns nil when the
// reply cannot be parsed into a known action.
func Parse(raw string) *swarm.OracleDecision {
	content := extractJSON(raw)
	if content == "" {
		return nil
	}

	var d swarm.OracleDecision
	if err := json.Unmarshal([]byte(content), &d); err != nil {
		return nil
	}
	if !d.Action.Valid() {
		return nil
	}
	if d.UseKeys && len(d.Keys) == 0 {
		d.UseKeys = false
	}
	return &d
}

// extractJSON strips markdown fences and surrounding prose from an LLM reply,
// returning the first top-level JSON object found.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return ""
}
