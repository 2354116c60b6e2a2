package service

import (
	"fmt"
	"time"

	"github.com/Strob0t/SwarmPilot/internal/domain/swarm"
)

// runIdleWatchdog periodically flags active sessions that have gone quiet.
// A session is idle when nothing has arrived for the configured threshold;
// after enough consecutive idle scans the user gets one warning.
func (c *Coordinator) runIdleWatchdog() {
	ticker := time.NewTicker(c.cfg.IdleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.scanIdleSessions()
		}
	}
}

type idleHit struct {
	sessionID string
	label     string
	checks    int
	idleFor   time.Duration
}

func (c *Coordinator) scanIdleSessions() {
	now := time.Now().UTC()

	c.mu.Lock()
	var hits []idleHit
	for id, task := range c.tasks {
		if task.Status != swarm.TaskStatusActive {
			continue
		}
		idleFor := now.Sub(task.LastActivityAt)
		if idleFor < c.cfg.IdleThreshold {
			continue
		}
		task.IdleCheckCount++
		hits = append(hits, idleHit{
			sessionID: id,
			label:     task.Label,
			checks:    task.IdleCheckCount,
			idleFor:   idleFor,
		})
	}
	c.mu.Unlock()

	for _, h := range hits {
		c.broadcastEvent(swarm.EventSessionIdle, h.sessionID, map[string]any{
			"idle_for_seconds": int(h.idleFor.Seconds()),
			"checks":           h.checks,
		})
		if h.checks == c.cfg.IdleMaxChecks {
			c.notice(fmt.Sprintf("%q has been quiet for %s. It may be stuck.",
				h.label, h.idleFor.Round(time.Minute)),
				"warning", swarm.EventSessionIdle)
		}
	}
}
