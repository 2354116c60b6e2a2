package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Strob0t/SwarmPilot/internal/adapter/otel"
	"github.com/Strob0t/SwarmPilot/internal/domain/prompt"
	"github.com/Strob0t/SwarmPilot/internal/domain/swarm"
	"github.com/Strob0t/SwarmPilot/internal/port/sessionhost"
)

// handleBlocked routes a blocked event through the decision policy.
// Runs on the session's drain goroutine; anything slow is handed off.
func (c *Coordinator) handleBlocked(sessionID string, data map[string]any, level swarm.SupervisionLevel) {
	promptText := promptTextFrom(data)
	autoResponded, _ := data["auto_responded"].(bool)

	c.mu.Lock()
	task, ok := c.tasks[sessionID]
	if !ok {
		c.mu.Unlock()
		return
	}
	label := task.Label
	if autoResponded {
		task.AutoResolvedCount++
	}
	streak := task.AutoResolvedCount
	c.mu.Unlock()

	if autoResponded {
		c.appendDecision(sessionID, swarm.Decision{
			Timestamp:  time.Now().UTC(),
			Event:      sessionhost.EventBlocked,
			PromptText: swarm.Truncate(promptText, 500),
			Decision:   swarm.ActionAutoResolved,
			Reasoning:  "answered by the rule-based auto-responder",
		})
		if c.metrics != nil {
			c.metrics.AutoResolved.Add(c.ctx, 1)
		}
		c.broadcastEvent(swarm.EventBlockedAutoResolved, sessionID, map[string]any{
			"prompt": swarm.Truncate(promptText, 500),
			"streak": streak,
		})
		if streak == 1 || streak == 2 || streak%5 == 0 {
			c.notice(fmt.Sprintf("Auto-approved a routine prompt for %q (%d in a row).", label, streak),
				"info", swarm.EventBlockedAutoResolved)
		}
		return
	}

	c.broadcastEvent(swarm.EventBlocked, sessionID, map[string]any{
		"prompt": swarm.Truncate(promptText, 500),
	})

	// Safety valve: a long unbroken run of auto-resolutions means the
	// rule-based responder is probably rubber-stamping something it should
	// not. Force a human in without asking the oracle.
	if streak >= c.cfg.AutoResolveCeiling {
		reasoning := fmt.Sprintf("exceeded %d consecutive auto-responses, forcing human review", c.cfg.AutoResolveCeiling)
		c.appendDecision(sessionID, swarm.Decision{
			Timestamp:  time.Now().UTC(),
			Event:      sessionhost.EventBlocked,
			PromptText: swarm.Truncate(promptText, 500),
			Decision:   swarm.ActionEscalate,
			Reasoning:  reasoning,
		})
		c.broadcastEvent(swarm.EventEscalation, sessionID, map[string]any{
			"prompt":    swarm.Truncate(promptText, 500),
			"reasoning": reasoning,
		})
		c.notice(fmt.Sprintf("%q needs your attention: %s", label, reasoning),
			"warning", swarm.EventEscalation)
		return
	}

	switch level {
	case swarm.SupervisionAutonomous:
		go c.handleAutonomousDecision(sessionID, promptText)
	case swarm.SupervisionConfirm:
		go c.handleConfirmSuggestion(sessionID, promptText)
	case swarm.SupervisionNotify:
		c.appendDecision(sessionID, swarm.Decision{
			Timestamp:  time.Now().UTC(),
			Event:      sessionhost.EventBlocked,
			PromptText: swarm.Truncate(promptText, 500),
			Decision:   swarm.ActionEscalate,
			Reasoning:  "notify mode, broadcast only",
		})
	}
}

// handleAutonomousDecision consults the oracle for a blocked session and
// executes the result immediately.
func (c *Coordinator) handleAutonomousDecision(sessionID, promptText string) {
	if !c.tryAcquire(sessionID) {
		return
	}
	defer c.release(sessionID)

	ctx, span := otel.StartDecisionSpan(c.ctx, sessionID, "blocked")
	defer span.End()

	recentOutput := c.recentOutput(sessionID)
	dec := c.consultOracle(ctx, sessionID, sessionhost.EventBlocked, promptText, recentOutput)
	if dec == nil {
		c.appendDecision(sessionID, swarm.Decision{
			Timestamp:  time.Now().UTC(),
			Event:      sessionhost.EventBlocked,
			PromptText: swarm.Truncate(promptText, 500),
			Decision:   swarm.ActionEscalate,
			Reasoning:  "invalid oracle response",
		})
		c.broadcastEvent(swarm.EventEscalation, sessionID, map[string]any{
			"reasoning": "invalid oracle response",
		})
		return
	}

	c.appendDecision(sessionID, swarm.Decision{
		Timestamp:  time.Now().UTC(),
		Event:      sessionhost.EventBlocked,
		PromptText: swarm.Truncate(promptText, 500),
		Decision:   dec.Action,
		Response:   dec.EncodeResponse(),
		Reasoning:  dec.Reasoning,
	})
	c.resetAutoResolveStreak(sessionID)

	c.broadcastEvent(swarm.EventCoordinationDecision, sessionID, map[string]any{
		"action":    string(dec.Action),
		"response":  dec.EncodeResponse(),
		"reasoning": dec.Reasoning,
		"prompt":    swarm.Truncate(promptText, 500),
	})
	c.decisionNotice(sessionID, dec)
	c.executeDecision(ctx, sessionID, dec)
}

// handleConfirmSuggestion consults the oracle and parks the suggestion for
// human approval instead of executing it.
func (c *Coordinator) handleConfirmSuggestion(sessionID, promptText string) {
	if !c.tryAcquire(sessionID) {
		return
	}
	defer c.release(sessionID)

	ctx, span := otel.StartDecisionSpan(c.ctx, sessionID, "blocked_confirm")
	defer span.End()

	recentOutput := c.recentOutput(sessionID)
	dec := c.consultOracle(ctx, sessionID, sessionhost.EventBlocked, promptText, recentOutput)
	if dec == nil {
		dec = &swarm.OracleDecision{
			Action:    swarm.ActionEscalate,
			Reasoning: "invalid oracle response",
		}
	}

	c.mu.Lock()
	task := c.tasks[sessionID]
	if task == nil {
		c.mu.Unlock()
		return
	}
	c.pending[sessionID] = &swarm.PendingDecision{
		SessionID:    sessionID,
		Event:        sessionhost.EventBlocked,
		PromptText:   promptText,
		RecentOutput: recentOutput,
		Suggested:    dec,
		Task:         task,
		CreatedAt:    time.Now().UTC(),
	}
	label := task.Label
	c.mu.Unlock()

	c.broadcastEvent(swarm.EventPendingConfirmation, sessionID, map[string]any{
		"action":    string(dec.Action),
		"response":  dec.EncodeResponse(),
		"reasoning": dec.Reasoning,
		"prompt":    swarm.Truncate(promptText, 500),
	})
	c.notice(fmt.Sprintf("%q is waiting for your approval: %s (%s).", label, dec.Action, dec.Reasoning),
		"warning", swarm.EventPendingConfirmation)
}

// handleTurnComplete asks the oracle whether the task is done after a turn.
// When the oracle cannot answer, the turn counts as complete rather than
// leaving the session running unattended.
func (c *Coordinator) handleTurnComplete(sessionID string, data map[string]any) {
	if !c.tryAcquire(sessionID) {
		return
	}
	defer c.release(sessionID)

	ctx, span := otel.StartDecisionSpan(c.ctx, sessionID, "turn_complete")
	defer span.End()

	turnOutput, _ := data["response"].(string)
	if turnOutput == "" {
		turnOutput = c.recentOutput(sessionID)
	} else {
		turnOutput = swarm.CleanTerminal(turnOutput)
	}

	dec := c.consultOracle(ctx, sessionID, sessionhost.EventTaskComplete, "", turnOutput)
	if dec == nil {
		dec = &swarm.OracleDecision{
			Action:    swarm.ActionComplete,
			Reasoning: "oracle unavailable, defaulting to complete",
		}
	}

	c.appendDecision(sessionID, swarm.Decision{
		Timestamp: time.Now().UTC(),
		Event:     swarm.EventTurnComplete,
		Decision:  dec.Action,
		Response:  dec.EncodeResponse(),
		Reasoning: dec.Reasoning,
	})
	c.resetAutoResolveStreak(sessionID)

	c.broadcastEvent(swarm.EventTurnAssessment, sessionID, map[string]any{
		"action":    string(dec.Action),
		"response":  dec.EncodeResponse(),
		"reasoning": dec.Reasoning,
	})
	c.decisionNotice(sessionID, dec)
	c.executeDecision(ctx, sessionID, dec)
}

// decisionNotice tells the user about decisions that change or stall a
// session. Quiet outcomes (ignore, completion handled by executeDecision)
// send nothing.
func (c *Coordinator) decisionNotice(sessionID string, dec *swarm.OracleDecision) {
	c.mu.RLock()
	task, ok := c.tasks[sessionID]
	var label string
	if ok {
		label = task.Label
	}
	c.mu.RUnlock()
	if !ok {
		return
	}

	switch dec.Action {
	case swarm.ActionRespond:
		c.notice(fmt.Sprintf("Nudged %q: %s", label, swarm.Truncate(dec.Reasoning, 300)),
			"info", swarm.EventCoordinationDecision)
	case swarm.ActionEscalate:
		c.notice(fmt.Sprintf("%q needs your attention: %s", label, swarm.Truncate(dec.Reasoning, 300)),
			"warning", swarm.EventEscalation)
	}
}

// consultOracle assembles the prompt for the trigger, calls the oracle under
// the process-wide concurrency bound, and parses the reply. Returns nil on
// any failure; callers choose the fail-safe.
func (c *Coordinator) consultOracle(ctx context.Context, sessionID, trigger, promptText, output string) *swarm.OracleDecision {
	c.mu.RLock()
	task, ok := c.tasks[sessionID]
	if !ok {
		c.mu.RUnlock()
		return nil
	}
	taskCopy := snapshotTask(task)
	history := taskCopy.RecentDecisions(c.cfg.HistoryLimit)
	c.mu.RUnlock()

	var p string
	if trigger == sessionhost.EventTaskComplete {
		p = prompt.BuildTurnAssessment(&taskCopy, output, history)
	} else {
		p = prompt.BuildBlocked(&taskCopy, promptText, output, history)
	}

	if err := c.oracleSem.Acquire(ctx, 1); err != nil {
		slog.Warn("oracle slot acquire failed", "session_id", sessionID, "error", err)
		return nil
	}
	defer c.oracleSem.Release(1)

	oracleCtx, span := otel.StartOracleSpan(ctx, sessionID)
	start := time.Now()
	raw, err := c.oracle.Ask(oracleCtx, p)
	span.End()

	if c.metrics != nil {
		c.metrics.OracleLatency.Record(c.ctx, time.Since(start).Seconds())
	}
	if err != nil {
		if c.metrics != nil {
			c.metrics.OracleFailures.Add(c.ctx, 1)
		}
		slog.Warn("oracle call failed", "session_id", sessionID, "trigger", trigger, "error", err)
		return nil
	}

	dec := prompt.Parse(raw)
	if dec == nil {
		if c.metrics != nil {
			c.metrics.OracleFailures.Add(c.ctx, 1)
		}
		slog.Warn("unparsable oracle reply",
			"session_id", sessionID, "trigger", trigger, "reply", swarm.Truncate(raw, 200))
	}
	return dec
}

// tryAcquire claims the session's decision slot. At most one oracle-backed
// decision runs per session; a second trigger arriving mid-decision is
// dropped, since the decision in flight already sees the session's state.
func (c *Coordinator) tryAcquire(sessionID string) bool {
	c.inflightMu.Lock()
	defer c.inflightMu.Unlock()
	if _, busy := c.inflight[sessionID]; busy {
		if c.metrics != nil {
			c.metrics.DroppedInFlight.Add(c.ctx, 1)
		}
		slog.Info("decision already in flight, dropping trigger", "session_id", sessionID)
		return false
	}
	c.inflight[sessionID] = struct{}{}
	return true
}

func (c *Coordinator) release(sessionID string) {
	c.inflightMu.Lock()
	defer c.inflightMu.Unlock()
	delete(c.inflight, sessionID)
}

// promptTextFrom digs the session's question out of the event payload.
// Hosts send either a flat prompt string or a prompt_info object.
func promptTextFrom(data map[string]any) string {
	if p, ok := data["prompt"].(string); ok && p != "" {
		return p
	}
	info, ok := data["prompt_info"].(map[string]any)
	if !ok {
		return ""
	}
	p, _ := info["prompt"].(string)
	if instr, _ := info["instructions"].(string); instr != "" {
		if p != "" {
			p += "\n" + instr
		} else {
			p = instr
		}
	}
	return p
}
