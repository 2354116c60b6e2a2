package service_test

import (
	"testing"
	"time"

	"github.com/Strob0t/SwarmPilot/internal/domain/swarm"
	"github.com/Strob0t/SwarmPilot/internal/port/sessionhost"
)

func TestIdleWatchdogFlagsQuietSessions(t *testing.T) {
	cfg := testCfg()
	cfg.IdleInterval = 20 * time.Millisecond
	cfg.IdleThreshold = 10 * time.Millisecond
	cfg.IdleMaxChecks = 2
	c, _, fn := newTestCoordinator(t, cfg, &fakeOracle{})
	c.RegisterTask("s1", "claude", "sleepy task", "do the task", "/work")

	sub := c.Subscribe()
	defer sub.Close()
	<-sub.C // snapshot

	waitFor(t, "session_idle event", func() bool {
		select {
		case ev := <-sub.C:
			return ev.Type == swarm.EventSessionIdle && ev.SessionID == "s1"
		default:
			return false
		}
	})
	waitFor(t, "idle warning notice", func() bool {
		return len(fn.bySource(swarm.EventSessionIdle)) == 1
	})
}

func TestActivityResetsIdleCounter(t *testing.T) {
	cfg := testCfg()
	cfg.IdleInterval = 20 * time.Millisecond
	cfg.IdleThreshold = 10 * time.Millisecond
	cfg.IdleMaxChecks = 1000 // keep the notice out of this test
	c, host, _ := newTestCoordinator(t, cfg, &fakeOracle{})
	c.RegisterTask("s1", "claude", "task", "do the task", "/work")

	waitFor(t, "idle checks to accumulate", func() bool {
		task, _ := c.GetTaskContext("s1")
		return task.IdleCheckCount >= 2
	})

	host.handler("s1", sessionhost.EventReady, nil)

	waitFor(t, "idle counter reset", func() bool {
		task, _ := c.GetTaskContext("s1")
		return task.IdleCheckCount <= 1
	})
}
