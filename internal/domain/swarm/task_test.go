package swarm_test

import (
	"testing"

	"github.com/Strob0t/SwarmPilot/internal/domain/swarm"
)

func decisionsFixture() []swarm.Decision {
	return []swarm.Decision{
		{Event: "blocked", Decision: swarm.ActionRespond, Response: "d1"},
		{Event: "blocked", Decision: swarm.ActionAutoResolved, Response: "a1"},
		{Event: "blocked", Decision: swarm.ActionRespond, Response: "d2"},
		{Event: "turn_complete", Decision: swarm.ActionComplete, Response: "d3"},
		{Event: "blocked", Decision: swarm.ActionAutoResolved, Response: "a2"},
		{Event: "blocked", Decision: swarm.ActionIgnore, Response: "d4"},
		{Event: "blocked", Decision: swarm.ActionRespond, Response: "d5"},
		{Event: "blocked", Decision: swarm.ActionAutoResolved, Response: "a3"},
		{Event: "blocked", Decision: swarm.ActionEscalate, Response: "d6"},
		{Event: "blocked", Decision: swarm.ActionRespond, Response: "d7"},
	}
}

func TestRecentDecisionsFiltersAndCaps(t *testing.T) {
	task := &swarm.TaskContext{Decisions: decisionsFixture()}

	got := task.RecentDecisions(5)
	if len(got) != 5 {
		t.Fatalf("got %d decisions, want 5", len(got))
	}
	want := []string{"d3", "d4", "d5", "d6", "d7"}
	for i, d := range got {
		if d.Decision == swarm.ActionAutoResolved {
			t.Fatalf("auto-resolved entry leaked at %d: %+v", i, d)
		}
		if d.Response != want[i] {
			t.Fatalf("decision %d = %q, want %q (chronological order)", i, d.Response, want[i])
		}
	}
}

func TestRecentDecisionsFewerThanLimit(t *testing.T) {
	task := &swarm.TaskContext{Decisions: []swarm.Decision{
		{Decision: swarm.ActionAutoResolved, Response: "a1"},
		{Decision: swarm.ActionRespond, Response: "d1"},
		{Decision: swarm.ActionAutoResolved, Response: "a2"},
	}}

	got := task.RecentDecisions(5)
	if len(got) != 1 || got[0].Response != "d1" {
		t.Fatalf("got %+v, want just d1", got)
	}
}

func TestRecentDecisionsEmptyAndZero(t *testing.T) {
	task := &swarm.TaskContext{}
	if got := task.RecentDecisions(5); len(got) != 0 {
		t.Fatalf("empty history returned %+v", got)
	}

	task.Decisions = decisionsFixture()
	if got := task.RecentDecisions(0); got != nil {
		t.Fatalf("n=0 returned %+v", got)
	}
	if got := task.RecentDecisions(-1); got != nil {
		t.Fatalf("n=-1 returned %+v", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := swarm.Truncate("hello", 10); got != "hello" {
		t.Fatalf("short string changed: %q", got)
	}
	if got := swarm.Truncate("hello world", 5); got != "hello..." {
		t.Fatalf("truncated = %q", got)
	}
	if got := swarm.Truncate("héllo wörld", 5); got != "héllo..." {
		t.Fatalf("rune truncation = %q", got)
	}
	if got := swarm.Truncate("anything", 0); got != "" {
		t.Fatalf("n=0 = %q", got)
	}
}

func TestSupervisionLevelValid(t *testing.T) {
	for _, l := range []swarm.SupervisionLevel{
		swarm.SupervisionAutonomous, swarm.SupervisionConfirm, swarm.SupervisionNotify,
	} {
		if !l.Valid() {
			t.Fatalf("%q should be valid", l)
		}
	}
	if swarm.SupervisionLevel("manual").Valid() {
		t.Fatal("unknown level accepted")
	}
	if swarm.SupervisionLevel("").Valid() {
		t.Fatal("empty level accepted")
	}
}
