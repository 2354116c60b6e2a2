package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Strob0t/SwarmPilot/internal/domain/swarm"
)

// executeDecision carries out an oracle (or human-approved) decision against
// the session host. Host failures are logged; the decision is already part of
// history either way.
func (c *Coordinator) executeDecision(ctx context.Context, sessionID string, dec *swarm.OracleDecision) {
	c.mu.RLock()
	host := c.host
	var label string
	if task, ok := c.tasks[sessionID]; ok {
		label = task.Label
	}
	c.mu.RUnlock()

	switch dec.Action {
	case swarm.ActionRespond:
		if host == nil {
			slog.Warn("no session host, cannot respond", "session_id", sessionID)
			return
		}
		if dec.UseKeys && len(dec.Keys) > 0 {
			if err := host.SendKeys(ctx, sessionID, dec.Keys); err != nil {
				slog.Error("send keys failed", "session_id", sessionID, "error", err)
			}
			return
		}
		if dec.Response == nil {
			slog.Warn("respond decision without response text", "session_id", sessionID)
			return
		}
		// An empty response is a valid answer: it submits the session's
		// default choice.
		if err := host.SendText(ctx, sessionID, *dec.Response); err != nil {
			slog.Error("send text failed", "session_id", sessionID, "error", err)
		}

	case swarm.ActionComplete:
		c.setStatus(sessionID, swarm.TaskStatusCompleted)
		c.broadcastEvent(swarm.EventTaskComplete, sessionID, map[string]any{
			"label":     label,
			"reasoning": dec.Reasoning,
		})

		msg := fmt.Sprintf("Finished %q.", label)
		if out := c.recentOutput(sessionID); out != "" {
			if summary := swarm.ExtractSummary(out); summary != "" {
				msg += "\n" + summary
			}
		}
		c.notice(msg, "success", swarm.EventTaskComplete)

		if host != nil {
			if err := host.Stop(ctx, sessionID); err != nil {
				slog.Warn("session stop failed", "session_id", sessionID, "error", err)
			}
		}

	case swarm.ActionEscalate:
		c.broadcastEvent(swarm.EventEscalation, sessionID, map[string]any{
			"reasoning": dec.Reasoning,
		})

	case swarm.ActionIgnore:
		slog.Debug("ignoring event per decision", "session_id", sessionID, "reasoning", dec.Reasoning)
	}
}
