package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Strob0t/SwarmPilot/internal/domain/swarm"
	"github.com/Strob0t/SwarmPilot/internal/port/sessionhost"
	"github.com/Strob0t/SwarmPilot/internal/service"
)

func confirmCoordinator(t *testing.T, orc *fakeOracle) (*service.Coordinator, *fakeHost) {
	t.Helper()
	cfg := testCfg()
	cfg.SupervisionLevel = "confirm"
	c, host, _ := newTestCoordinator(t, cfg, orc)
	c.RegisterTask("s1", "claude", "task", "do the task", "/work")
	return c, host
}

func awaitPending(t *testing.T, c *service.Coordinator) swarm.PendingDecision {
	t.Helper()
	waitFor(t, "pending confirmation", func() bool {
		return len(c.PendingDecisions()) == 1
	})
	return c.PendingDecisions()[0]
}

func TestConfirmModeParksSuggestion(t *testing.T) {
	orc := &fakeOracle{reply: `{"action": "respond", "response": "yes", "reasoning": "safe"}`}
	c, host := confirmCoordinator(t, orc)

	host.handler("s1", sessionhost.EventBlocked, map[string]any{"prompt": "overwrite?"})

	p := awaitPending(t, c)
	if p.SessionID != "s1" || p.Suggested.Action != swarm.ActionRespond {
		t.Errorf("unexpected pending decision: %+v", p)
	}
	// Nothing executed, nothing recorded until a human answers.
	if host.textCount() != 0 {
		t.Error("confirm mode must not act before approval")
	}
	if n := decisionCount(c, "s1"); n != 0 {
		t.Errorf("expected no decisions before approval, got %d", n)
	}
}

func TestConfirmApproveExecutesOnce(t *testing.T) {
	orc := &fakeOracle{reply: `{"action": "respond", "response": "yes", "reasoning": "safe"}`}
	c, host := confirmCoordinator(t, orc)

	host.handler("s1", sessionhost.EventBlocked, map[string]any{"prompt": "overwrite?"})
	awaitPending(t, c)

	if err := c.ConfirmDecision(context.Background(), "s1", true, nil); err != nil {
		t.Fatalf("ConfirmDecision: %v", err)
	}

	if host.textCount() != 1 || host.sentTexts[0] != "yes" {
		t.Errorf("expected exactly one approved send, got %v", host.sentTexts)
	}
	if n := decisionCount(c, "s1"); n != 1 {
		t.Fatalf("expected exactly one decision, got %d", n)
	}
	task, _ := c.GetTaskContext("s1")
	d := task.Decisions[0]
	if d.Decision != swarm.ActionRespond || !strings.Contains(d.Reasoning, "human-approved") {
		t.Errorf("unexpected decision: %+v", d)
	}
	if len(c.PendingDecisions()) != 0 {
		t.Error("approved decision must be removed from pending")
	}
}

func TestConfirmApproveWithOverride(t *testing.T) {
	orc := &fakeOracle{reply: `{"action": "complete", "reasoning": "looks done"}`}
	c, host := confirmCoordinator(t, orc)

	host.handler("s1", sessionhost.EventBlocked, map[string]any{"prompt": "done?"})
	awaitPending(t, c)

	override := "keep going, run the linter first"
	if err := c.ConfirmDecision(context.Background(), "s1", true, &override); err != nil {
		t.Fatalf("ConfirmDecision: %v", err)
	}

	// The override replaces the suggestion entirely: a respond, not a complete.
	if host.textCount() != 1 || host.sentTexts[0] != override {
		t.Errorf("expected override text sent, got %v", host.sentTexts)
	}
	if host.stopCount() != 0 {
		t.Error("override must suppress the suggested complete")
	}
	task, _ := c.GetTaskContext("s1")
	if task.Decisions[0].Decision != swarm.ActionRespond {
		t.Errorf("expected respond, got %s", task.Decisions[0].Decision)
	}
}

func TestConfirmReject(t *testing.T) {
	orc := &fakeOracle{reply: `{"action": "respond", "response": "yes", "reasoning": "safe"}`}
	c, host := confirmCoordinator(t, orc)

	host.handler("s1", sessionhost.EventBlocked, map[string]any{"prompt": "overwrite?"})
	awaitPending(t, c)

	if err := c.ConfirmDecision(context.Background(), "s1", false, nil); err != nil {
		t.Fatalf("ConfirmDecision: %v", err)
	}

	if host.textCount() != 0 {
		t.Error("rejected suggestion must not be executed")
	}
	task, _ := c.GetTaskContext("s1")
	if len(task.Decisions) != 1 || task.Decisions[0].Decision != swarm.ActionEscalate {
		t.Errorf("expected a single escalate entry, got %+v", task.Decisions)
	}
	if len(c.PendingDecisions()) != 0 {
		t.Error("rejected decision must be removed from pending")
	}
}

func TestConfirmWithoutPendingFails(t *testing.T) {
	c, _ := confirmCoordinator(t, &fakeOracle{})

	err := c.ConfirmDecision(context.Background(), "s1", true, nil)
	if !errors.Is(err, service.ErrNoPendingDecision) {
		t.Errorf("expected ErrNoPendingDecision, got %v", err)
	}
}

func TestConfirmOracleFailureSuggestsEscalate(t *testing.T) {
	orc := &fakeOracle{err: errors.New("proxy down")}
	c, host := confirmCoordinator(t, orc)

	host.handler("s1", sessionhost.EventBlocked, map[string]any{"prompt": "overwrite?"})

	p := awaitPending(t, c)
	if p.Suggested.Action != swarm.ActionEscalate {
		t.Errorf("expected escalate suggestion on oracle failure, got %s", p.Suggested.Action)
	}
	// A newer suggestion replaces the older one after release.
	orc.mu.Lock()
	orc.err = nil
	orc.reply = `{"action": "respond", "response": "yes", "reasoning": "safe"}`
	orc.mu.Unlock()

	host.handler("s1", sessionhost.EventBlocked, map[string]any{"prompt": "again?"})
	waitFor(t, "pending replacement", func() bool {
		pds := c.PendingDecisions()
		return len(pds) == 1 && pds[0].Suggested.Action == swarm.ActionRespond
	})
}

func TestConfirmPendingSurvivesLevelChange(t *testing.T) {
	orc := &fakeOracle{reply: `{"action": "respond", "response": "yes", "reasoning": "safe"}`}
	c, host := confirmCoordinator(t, orc)

	host.handler("s1", sessionhost.EventBlocked, map[string]any{"prompt": "overwrite?"})
	awaitPending(t, c)

	if err := c.SetSupervisionLevel(swarm.SupervisionAutonomous); err != nil {
		t.Fatalf("SetSupervisionLevel: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if len(c.PendingDecisions()) != 1 {
		t.Error("pending confirmation must survive a level change")
	}
	if err := c.ConfirmDecision(context.Background(), "s1", true, nil); err != nil {
		t.Fatalf("ConfirmDecision after level change: %v", err)
	}
}
