package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Strob0t/SwarmPilot/internal/adapter/resthost"
	"github.com/Strob0t/SwarmPilot/internal/adapter/ws"
	"github.com/Strob0t/SwarmPilot/internal/domain/swarm"
	"github.com/Strob0t/SwarmPilot/internal/port/auditstore"
	"github.com/Strob0t/SwarmPilot/internal/service"
)

// Handlers bundles the dependencies of all API handlers. Audit, Hub and
// BreakerState are optional.
type Handlers struct {
	Coordinator  *service.Coordinator
	Host         *resthost.Bridge
	Audit        auditstore.Store
	Hub          *ws.Hub
	BreakerState func() string
}

type registerTaskRequest struct {
	SessionID    string `json:"session_id"`
	AgentType    string `json:"agent_type"`
	Label        string `json:"label"`
	OriginalTask string `json:"original_task"`
	Workdir      string `json:"workdir"`
}

// RegisterTask places a session under coordination.
func (h *Handlers) RegisterTask(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[registerTaskRequest](w, r)
	if !ok {
		return
	}
	if !requireField(w, req.SessionID, "session_id") {
		return
	}
	if !requireField(w, req.OriginalTask, "original_task") {
		return
	}
	if req.Label == "" {
		req.Label = swarm.Truncate(req.OriginalTask, 60)
	}

	task := h.Coordinator.RegisterTask(req.SessionID, req.AgentType, req.Label, req.OriginalTask, req.Workdir)
	writeJSON(w, http.StatusCreated, task)
}

// ListTasks returns all registered task contexts.
func (h *Handlers) ListTasks(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Coordinator.GetAllTaskContexts())
}

// GetTask returns one task context.
func (h *Handlers) GetTask(w http.ResponseWriter, r *http.Request) {
	sessionID := urlParam(r, "sessionID")
	task, ok := h.Coordinator.GetTaskContext(sessionID)
	if !ok {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// ListDecisions returns the decision history for a session, newest first.
// Served from the audit store when one is configured, so history survives
// restarts; otherwise from the in-memory task context.
func (h *Handlers) ListDecisions(w http.ResponseWriter, r *http.Request) {
	sessionID := urlParam(r, "sessionID")
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	if h.Audit != nil {
		decisions, err := h.Audit.ListDecisions(r.Context(), sessionID, limit)
		if err != nil {
			writeInternalError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, decisions)
		return
	}

	task, ok := h.Coordinator.GetTaskContext(sessionID)
	if !ok {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	decisions := task.Decisions
	if len(decisions) > limit {
		decisions = decisions[len(decisions)-limit:]
	}
	// Newest first, matching the audit store.
	out := make([]swarm.Decision, 0, len(decisions))
	for i := len(decisions) - 1; i >= 0; i-- {
		out = append(out, decisions[i])
	}
	writeJSON(w, http.StatusOK, out)
}

type supervisionResponse struct {
	Level string `json:"level"`
}

// GetSupervision returns the current supervision level.
func (h *Handlers) GetSupervision(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, supervisionResponse{Level: string(h.Coordinator.SupervisionLevel())})
}

// SetSupervision changes the supervision level.
func (h *Handlers) SetSupervision(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[supervisionResponse](w, r)
	if !ok {
		return
	}
	if err := h.Coordinator.SetSupervisionLevel(swarm.SupervisionLevel(req.Level)); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, supervisionResponse{Level: req.Level})
}

// ListConfirmations returns all decisions waiting for human approval.
func (h *Handlers) ListConfirmations(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Coordinator.PendingDecisions())
}

type confirmRequest struct {
	Approved bool    `json:"approved"`
	Response *string `json:"response,omitempty"`
}

// Confirm resolves a pending confirmation.
func (h *Handlers) Confirm(w http.ResponseWriter, r *http.Request) {
	sessionID := urlParam(r, "sessionID")
	req, ok := readJSON[confirmRequest](w, r)
	if !ok {
		return
	}

	err := h.Coordinator.ConfirmDecision(r.Context(), sessionID, req.Approved, req.Response)
	if errors.Is(err, service.ErrNoPendingDecision) {
		writeError(w, http.StatusNotFound, "no pending decision for session")
		return
	}
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"approved": req.Approved})
}

type hostEventRequest struct {
	SessionID string         `json:"session_id"`
	Event     string         `json:"event"`
	Data      map[string]any `json:"data"`
}

// IngestHostEvent receives one pushed event from the session host daemon.
func (h *Handlers) IngestHostEvent(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[hostEventRequest](w, r)
	if !ok {
		return
	}
	if !requireField(w, req.SessionID, "session_id") {
		return
	}
	if !requireField(w, req.Event, "event") {
		return
	}

	h.Host.Deliver(req.SessionID, req.Event, req.Data)
	w.WriteHeader(http.StatusAccepted)
}

// Health reports coordinator liveness and dependency state.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	body := map[string]any{
		"status":            "ok",
		"tasks":             len(h.Coordinator.GetAllTaskContexts()),
		"subscribers":       h.Coordinator.SubscriberCount(),
		"supervision_level": string(h.Coordinator.SupervisionLevel()),
	}
	if h.BreakerState != nil {
		body["oracle_breaker"] = h.BreakerState()
	}
	if h.Hub != nil {
		body["ws_connections"] = h.Hub.ConnectionCount()
	}
	writeJSON(w, http.StatusOK, body)
}
