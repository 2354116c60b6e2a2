package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/Strob0t/SwarmPilot/internal/config"
	"github.com/Strob0t/SwarmPilot/internal/domain/swarm"
	"github.com/Strob0t/SwarmPilot/internal/port/auditstore"
)

// Compile-time interface check.
var _ auditstore.Store = (*AuditStore)(nil)

// testStore connects to Postgres or skips the test if DATABASE_URL is not set.
func testStore(t *testing.T) *AuditStore {
	t.Helper()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("requires DATABASE_URL")
	}

	ctx := context.Background()
	if err := RunMigrations(ctx, dsn); err != nil {
		t.Fatalf("migrations: %v", err)
	}

	cfg := config.Defaults().Postgres
	cfg.DSN = dsn
	pool, err := NewPool(ctx, cfg)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	t.Cleanup(pool.Close)

	return NewAuditStore(pool)
}

func TestAuditStore_AppendAndList(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	sessionID := "audit-test-" + t.Name()

	decisions := []swarm.Decision{
		{Timestamp: time.Now().Add(-2 * time.Minute).UTC(), Event: "blocked", Decision: swarm.ActionRespond, Response: "yes", Reasoning: "safe prompt"},
		{Timestamp: time.Now().Add(-time.Minute).UTC(), Event: "turn_complete", Decision: swarm.ActionComplete, Reasoning: "task finished"},
	}
	for _, d := range decisions {
		if err := store.AppendDecision(ctx, sessionID, d); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	got, err := store.ListDecisions(ctx, sessionID, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 decisions, got %d", len(got))
	}
	// Newest first.
	if got[0].Decision != swarm.ActionComplete {
		t.Errorf("expected newest decision complete, got %s", got[0].Decision)
	}
	if got[1].Response != "yes" {
		t.Errorf("expected response %q, got %q", "yes", got[1].Response)
	}
}
