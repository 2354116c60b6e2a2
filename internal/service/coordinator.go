package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/Strob0t/SwarmPilot/internal/adapter/otel"
	"github.com/Strob0t/SwarmPilot/internal/config"
	"github.com/Strob0t/SwarmPilot/internal/domain/swarm"
	"github.com/Strob0t/SwarmPilot/internal/port/auditstore"
	"github.com/Strob0t/SwarmPilot/internal/port/broadcast"
	"github.com/Strob0t/SwarmPilot/internal/port/cache"
	"github.com/Strob0t/SwarmPilot/internal/port/notifier"
	"github.com/Strob0t/SwarmPilot/internal/port/oracle"
	"github.com/Strob0t/SwarmPilot/internal/port/sessionhost"
)

// ErrNoPendingDecision is returned by ConfirmDecision when the session has
// nothing waiting for approval.
var ErrNoPendingDecision = errors.New("no pending decision")

// sessionQueue serializes event intake for one session. A single drain
// goroutine pulls events in arrival order; slow oracle work is handed off so
// the queue never stalls behind a decision.
type sessionQueue struct {
	mu     sync.Mutex
	events []queuedEvent
	busy   bool
}

type queuedEvent struct {
	event string
	data  map[string]any
}

// bufferedSession holds events that arrived before RegisterTask, plus the
// timer that discards them if registration never comes.
type bufferedSession struct {
	events []queuedEvent
	timer  *time.Timer
}

// Coordinator is the session coordination engine: it registers tasks, routes
// session-host events through the decision policy, and fans resulting events
// out to subscribers and sinks.
type Coordinator struct {
	cfg      config.Coordinator
	oracle   oracle.Client
	notify   *NotificationService
	throttle cache.Cache
	sinks    []broadcast.Sink
	audit    auditstore.Store
	metrics  *otel.Metrics

	mu      sync.RWMutex
	host    sessionhost.Host
	tasks   map[string]*swarm.TaskContext
	pending map[string]*swarm.PendingDecision
	buffers map[string]*bufferedSession
	queues  map[string]*sessionQueue
	level   swarm.SupervisionLevel
	started bool

	inflightMu sync.Mutex
	inflight   map[string]struct{}

	oracleSem *semaphore.Weighted
	subs      *subscriberSet

	ctx         context.Context
	cancel      context.CancelFunc
	unsubscribe func()
}

// NewCoordinator creates a Coordinator. The oracle client and notification
// service are required; sinks, audit store and metrics are attached with
// setters before Start.
func NewCoordinator(cfg config.Coordinator, oracleClient oracle.Client, notify *NotificationService, throttle cache.Cache) *Coordinator {
	level := swarm.SupervisionLevel(cfg.SupervisionLevel)
	if !level.Valid() {
		level = swarm.SupervisionAutonomous
	}
	maxOracles := int64(cfg.MaxConcurrentOracles)
	if maxOracles <= 0 {
		maxOracles = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		cfg:       cfg,
		oracle:    oracleClient,
		notify:    notify,
		throttle:  throttle,
		tasks:     make(map[string]*swarm.TaskContext),
		pending:   make(map[string]*swarm.PendingDecision),
		buffers:   make(map[string]*bufferedSession),
		queues:    make(map[string]*sessionQueue),
		level:     level,
		inflight:  make(map[string]struct{}),
		oracleSem: semaphore.NewWeighted(maxOracles),
		subs:      newSubscriberSet(),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// AddSink attaches a broadcast sink. Must be called before Start.
func (c *Coordinator) AddSink(s broadcast.Sink) {
	c.sinks = append(c.sinks, s)
}

// SetAuditStore attaches the durable decision log. Must be called before Start.
func (c *Coordinator) SetAuditStore(s auditstore.Store) {
	c.audit = s
}

// SetMetrics attaches metric instruments. Must be called before Start.
func (c *Coordinator) SetMetrics(m *otel.Metrics) {
	c.metrics = m
}

// Start subscribes to the session host and begins routing its events.
func (c *Coordinator) Start(host sessionhost.Host) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return errors.New("coordinator already started")
	}
	unsub, err := host.Subscribe(c.HandleSessionEvent)
	if err != nil {
		return fmt.Errorf("subscribe to session host: %w", err)
	}
	c.host = host
	c.unsubscribe = unsub
	c.started = true

	if c.cfg.IdleInterval > 0 {
		go c.runIdleWatchdog()
	}

	slog.Info("coordinator started", "supervision_level", c.level)
	return nil
}

// Stop detaches from the session host and releases all subscribers.
// Idempotent; safe to call on a coordinator that never started.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return
	}
	c.started = false
	unsub := c.unsubscribe
	c.unsubscribe = nil
	for _, b := range c.buffers {
		b.timer.Stop()
	}
	c.tasks = make(map[string]*swarm.TaskContext)
	c.pending = make(map[string]*swarm.PendingDecision)
	c.buffers = make(map[string]*bufferedSession)
	c.queues = make(map[string]*sessionQueue)
	c.mu.Unlock()

	c.inflightMu.Lock()
	c.inflight = make(map[string]struct{})
	c.inflightMu.Unlock()

	if unsub != nil {
		unsub()
	}
	c.cancel()
	c.subs.closeAll()
	slog.Info("coordinator stopped")
}

// RegisterTask places a session under coordination. Events buffered for the
// session while it was unregistered are replayed in arrival order.
func (c *Coordinator) RegisterTask(sessionID, agentType, label, originalTask, workdir string) swarm.TaskContext {
	now := time.Now().UTC()
	task := &swarm.TaskContext{
		SessionID:      sessionID,
		AgentType:      agentType,
		Label:          label,
		OriginalTask:   originalTask,
		Workdir:        workdir,
		Status:         swarm.TaskStatusActive,
		RegisteredAt:   now,
		LastActivityAt: now,
	}

	c.mu.Lock()
	c.tasks[sessionID] = task
	var replay []queuedEvent
	if b, ok := c.buffers[sessionID]; ok {
		b.timer.Stop()
		replay = b.events
		delete(c.buffers, sessionID)
	}
	c.mu.Unlock()

	slog.Info("task registered",
		"session_id", sessionID, "agent_type", agentType, "label", label)
	c.broadcastEvent(swarm.EventTaskRegistered, sessionID, map[string]any{
		"agent_type": agentType,
		"label":      label,
		"workdir":    workdir,
	})

	for _, ev := range replay {
		slog.Debug("replaying buffered event",
			"session_id", sessionID, "event", ev.event)
		c.enqueue(sessionID, ev.event, ev.data)
	}
	return *task
}

// HandleSessionEvent is the entry point for all session-host events. Events
// for registered sessions are queued per session and processed in arrival
// order; actionable events for unregistered sessions are held briefly in case
// registration is racing the session's first output.
func (c *Coordinator) HandleSessionEvent(sessionID, event string, data map[string]any) {
	c.mu.Lock()
	if _, ok := c.tasks[sessionID]; !ok {
		if bufferable(event) {
			c.bufferLocked(sessionID, event, data)
		} else {
			slog.Debug("dropping event for unregistered session",
				"session_id", sessionID, "event", event)
		}
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	c.enqueue(sessionID, event, data)
}

// bufferable reports whether an event from an unregistered session is worth
// holding for a late RegisterTask. Lifecycle noise is not.
func bufferable(event string) bool {
	switch event {
	case sessionhost.EventBlocked, sessionhost.EventTaskComplete, sessionhost.EventError:
		return true
	}
	return false
}

// bufferLocked holds an event for an unregistered session. Each arrival
// restarts the discard timer, so a chatty unregistered session keeps its
// buffer alive until it goes quiet.
func (c *Coordinator) bufferLocked(sessionID, event string, data map[string]any) {
	b, ok := c.buffers[sessionID]
	if !ok {
		b = &bufferedSession{}
		c.buffers[sessionID] = b
	} else {
		b.timer.Stop()
	}
	b.events = append(b.events, queuedEvent{event: event, data: data})
	b.timer = time.AfterFunc(c.cfg.BufferWindow, func() {
		c.discardBuffer(sessionID)
	})
	slog.Debug("buffered event for unregistered session",
		"session_id", sessionID, "event", event, "buffered", len(b.events))
}

func (c *Coordinator) discardBuffer(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.buffers[sessionID]
	if !ok {
		return
	}
	delete(c.buffers, sessionID)
	slog.Warn("discarding events for session that never registered",
		"session_id", sessionID, "discarded", len(b.events))
}

// enqueue appends an event to the session's queue and starts a drain
// goroutine if one is not already running.
func (c *Coordinator) enqueue(sessionID, event string, data map[string]any) {
	c.mu.Lock()
	q, ok := c.queues[sessionID]
	if !ok {
		q = &sessionQueue{}
		c.queues[sessionID] = q
	}
	c.mu.Unlock()

	q.mu.Lock()
	q.events = append(q.events, queuedEvent{event: event, data: data})
	if q.busy {
		q.mu.Unlock()
		return
	}
	q.busy = true
	q.mu.Unlock()

	go c.drain(sessionID, q)
}

func (c *Coordinator) drain(sessionID string, q *sessionQueue) {
	for {
		q.mu.Lock()
		if len(q.events) == 0 {
			q.busy = false
			q.mu.Unlock()
			return
		}
		ev := q.events[0]
		q.events = q.events[1:]
		q.mu.Unlock()

		c.processEvent(sessionID, ev.event, ev.data)
	}
}

// processEvent dispatches one event for a registered session.
func (c *Coordinator) processEvent(sessionID, event string, data map[string]any) {
	c.mu.Lock()
	task, ok := c.tasks[sessionID]
	if !ok {
		c.mu.Unlock()
		return
	}
	task.LastActivityAt = time.Now().UTC()
	task.IdleCheckCount = 0
	level := c.level
	label := task.Label
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.EventsRouted.Add(c.ctx, 1)
	}
	slog.Debug("routing session event", "session_id", sessionID, "event", event)

	switch event {
	case sessionhost.EventBlocked:
		c.handleBlocked(sessionID, data, level)

	case sessionhost.EventTaskComplete:
		c.broadcastEvent(swarm.EventTurnComplete, sessionID, data)
		go c.handleTurnComplete(sessionID, data)

	case sessionhost.EventError:
		c.setStatus(sessionID, swarm.TaskStatusError)
		c.broadcastEvent(swarm.EventError, sessionID, data)
		msg, _ := data["message"].(string)
		c.notice(fmt.Sprintf("%q hit an error: %s", label, swarm.Truncate(msg, 300)),
			"error", swarm.EventError)

	case sessionhost.EventStopped:
		c.setStatus(sessionID, swarm.TaskStatusStopped)
		c.broadcastEvent(swarm.EventStopped, sessionID, data)

	case sessionhost.EventReady:
		c.broadcastEvent(swarm.EventReady, sessionID, data)

	case sessionhost.EventToolRunning:
		c.broadcastEvent(swarm.EventToolRunning, sessionID, data)
		c.toolRunningNotice(sessionID, label, data)

	default:
		// Unknown host events pass through so UIs can render them.
		c.broadcastEvent(event, sessionID, data)
	}
}

func (c *Coordinator) setStatus(sessionID string, status swarm.TaskStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if task, ok := c.tasks[sessionID]; ok {
		task.Status = status
	}
}

// toolRunningNotice sends at most one tool notice per session per throttle
// interval, with a dev server URL when one shows up in recent output.
func (c *Coordinator) toolRunningNotice(sessionID, label string, data map[string]any) {
	if c.throttle != nil {
		key := "tool_notice:" + sessionID
		if _, found, _ := c.throttle.Get(c.ctx, key); found {
			return
		}
		_ = c.throttle.Set(c.ctx, key, []byte("1"), c.cfg.ToolNoticeInterval)
	}

	tool, _ := data["tool"].(string)
	if tool == "" {
		tool = "a tool"
	}
	msg := fmt.Sprintf("%q is running %s.", label, tool)
	if out := c.recentOutput(sessionID); out != "" {
		if url := swarm.ExtractDevServerURL(out); url != "" {
			msg += " Dev server: " + url
		}
	}
	c.notice(msg, "info", swarm.EventToolRunning)
}

// ConfirmDecision resolves a pending confirmation for a session. When
// approved, the suggested decision (or the human override, as a respond) is
// recorded and executed; when rejected, an escalation is recorded instead.
func (c *Coordinator) ConfirmDecision(ctx context.Context, sessionID string, approved bool, override *string) error {
	c.mu.Lock()
	p, ok := c.pending[sessionID]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("session %s: %w", sessionID, ErrNoPendingDecision)
	}
	delete(c.pending, sessionID)
	c.mu.Unlock()

	if !approved {
		c.appendDecision(sessionID, swarm.Decision{
			Timestamp:  time.Now().UTC(),
			Event:      p.Event,
			PromptText: swarm.Truncate(p.PromptText, 500),
			Decision:   swarm.ActionEscalate,
			Reasoning:  "human rejected the suggested action",
		})
		c.broadcastEvent(swarm.EventConfirmationRejected, sessionID, map[string]any{
			"suggested_action": string(p.Suggested.Action),
		})
		return nil
	}

	dec := p.Suggested
	reasoning := "human-approved: " + dec.Reasoning
	if override != nil {
		dec = &swarm.OracleDecision{
			Action:   swarm.ActionRespond,
			Response: override,
		}
		reasoning = "human-approved with overridden response"
	}

	c.appendDecision(sessionID, swarm.Decision{
		Timestamp:  time.Now().UTC(),
		Event:      p.Event,
		PromptText: swarm.Truncate(p.PromptText, 500),
		Decision:   dec.Action,
		Response:   dec.EncodeResponse(),
		Reasoning:  reasoning,
	})
	c.resetAutoResolveStreak(sessionID)

	c.executeDecision(ctx, sessionID, dec)
	c.broadcastEvent(swarm.EventConfirmationApproved, sessionID, map[string]any{
		"action":    string(dec.Action),
		"reasoning": reasoning,
	})
	return nil
}

// SetSupervisionLevel changes the process-wide supervision level.
func (c *Coordinator) SetSupervisionLevel(level swarm.SupervisionLevel) error {
	if !level.Valid() {
		return fmt.Errorf("invalid supervision level %q", level)
	}
	c.mu.Lock()
	c.level = level
	c.mu.Unlock()

	slog.Info("supervision level changed", "level", level)
	c.broadcastEvent(swarm.EventSupervisionLevel, swarm.GlobalSession, map[string]any{
		"level": string(level),
	})
	return nil
}

// SupervisionLevel returns the current process-wide supervision level.
func (c *Coordinator) SupervisionLevel() swarm.SupervisionLevel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.level
}

// GetTaskContext returns a copy of the session's task context.
func (c *Coordinator) GetTaskContext(sessionID string) (swarm.TaskContext, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	task, ok := c.tasks[sessionID]
	if !ok {
		return swarm.TaskContext{}, false
	}
	return snapshotTask(task), true
}

// GetAllTaskContexts returns copies of every registered task context.
func (c *Coordinator) GetAllTaskContexts() []swarm.TaskContext {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]swarm.TaskContext, 0, len(c.tasks))
	for _, task := range c.tasks {
		out = append(out, snapshotTask(task))
	}
	return out
}

// PendingDecisions returns copies of all decisions waiting for confirmation.
func (c *Coordinator) PendingDecisions() []swarm.PendingDecision {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]swarm.PendingDecision, 0, len(c.pending))
	for _, p := range c.pending {
		out = append(out, *p)
	}
	return out
}

// Subscribe attaches an in-process consumer to the event stream. The first
// event delivered is a snapshot of current coordinator state.
func (c *Coordinator) Subscribe() *Subscription {
	// The snapshot is built inside the subscriber set's critical section so
	// no event broadcast can fall between the snapshot and registration.
	return c.subs.add(func() swarm.Event {
		c.mu.RLock()
		defer c.mu.RUnlock()
		tasks := make([]swarm.TaskContext, 0, len(c.tasks))
		for _, task := range c.tasks {
			tasks = append(tasks, snapshotTask(task))
		}
		return swarm.NewEvent(swarm.EventSnapshot, swarm.GlobalSession, map[string]any{
			"tasks":             tasks,
			"supervision_level": string(c.level),
			"pending_count":     len(c.pending),
		})
	}, c.cfg.SubscriberBuffer)
}

// SubscriberCount returns the number of live in-process subscribers.
func (c *Coordinator) SubscriberCount() int {
	return c.subs.count()
}

func snapshotTask(t *swarm.TaskContext) swarm.TaskContext {
	cp := *t
	cp.Decisions = append([]swarm.Decision(nil), t.Decisions...)
	return cp
}

// broadcastEvent fans one event out to in-process subscribers and all sinks.
func (c *Coordinator) broadcastEvent(eventType, sessionID string, data map[string]any) {
	ev := swarm.NewEvent(eventType, sessionID, data)
	c.subs.broadcast(ev)
	for _, sink := range c.sinks {
		sink.BroadcastEvent(c.ctx, ev)
	}
}

// appendDecision records a decision on the task's history and mirrors it to
// the audit store. Audit failures are logged, never surfaced.
func (c *Coordinator) appendDecision(sessionID string, d swarm.Decision) {
	c.mu.Lock()
	task, ok := c.tasks[sessionID]
	if ok {
		task.Decisions = append(task.Decisions, d)
	}
	c.mu.Unlock()
	if !ok {
		return
	}

	if c.metrics != nil {
		c.metrics.DecisionsMade.Add(c.ctx, 1)
		if d.Decision == swarm.ActionEscalate {
			c.metrics.Escalations.Add(c.ctx, 1)
		}
	}
	if c.audit != nil {
		if err := c.audit.AppendDecision(c.ctx, sessionID, d); err != nil {
			slog.Warn("audit store write failed", "session_id", sessionID, "error", err)
		}
	}
}

func (c *Coordinator) resetAutoResolveStreak(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if task, ok := c.tasks[sessionID]; ok {
		task.AutoResolvedCount = 0
	}
}

// recentOutput fetches cleaned recent terminal output, best effort.
func (c *Coordinator) recentOutput(sessionID string) string {
	c.mu.RLock()
	host := c.host
	c.mu.RUnlock()
	if host == nil {
		return ""
	}
	out, err := host.RecentOutput(c.ctx, sessionID, c.cfg.RecentOutputLines)
	if err != nil {
		slog.Debug("recent output fetch failed", "session_id", sessionID, "error", err)
		return ""
	}
	return swarm.CleanTerminal(out)
}

// notice sends a plain-language chat message, if a notification service is
// attached.
func (c *Coordinator) notice(message, level, source string) {
	if c.notify == nil {
		return
	}
	c.notify.Notify(c.ctx, notifier.Notification{
		Message: message,
		Level:   level,
		Source:  source,
	})
}
