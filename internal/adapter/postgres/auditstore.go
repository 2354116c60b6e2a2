package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Strob0t/SwarmPilot/internal/domain/swarm"
)

// AuditStore implements auditstore.Store using PostgreSQL (append-only).
type AuditStore struct {
	pool *pgxpool.Pool
}

// NewAuditStore creates an AuditStore backed by the given connection pool.
func NewAuditStore(pool *pgxpool.Pool) *AuditStore {
	return &AuditStore{pool: pool}
}

// AppendDecision inserts one decision into the swarm_decisions table.
func (s *AuditStore) AppendDecision(ctx context.Context, sessionID string, d swarm.Decision) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO swarm_decisions (session_id, event, prompt_text, decision, response, reasoning, decided_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		sessionID, d.Event, d.PromptText, string(d.Decision), d.Response, d.Reasoning, d.Timestamp)
	if err != nil {
		return fmt.Errorf("append decision: %w", err)
	}
	return nil
}

// ListDecisions returns up to limit decisions for a session, newest first.
func (s *AuditStore) ListDecisions(ctx context.Context, sessionID string, limit int) ([]swarm.Decision, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx,
		`SELECT event, prompt_text, decision, response, reasoning, decided_at
		 FROM swarm_decisions WHERE session_id = $1
		 ORDER BY decided_at DESC, id DESC LIMIT $2`,
		sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("list decisions for %s: %w", sessionID, err)
	}
	defer rows.Close()

	var out []swarm.Decision
	for rows.Next() {
		var d swarm.Decision
		var action string
		if err := rows.Scan(&d.Event, &d.PromptText, &action, &d.Response, &d.Reasoning, &d.Timestamp); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		d.Decision = swarm.Action(action)
		out = append(out, d)
	}
	return out, rows.Err()
}
