package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all API routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Get("/healthz", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		// Version
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})

		// Tasks
		r.Post("/tasks", h.RegisterTask)
		r.Get("/tasks", h.ListTasks)
		r.Get("/tasks/{sessionID}", h.GetTask)
		r.Get("/tasks/{sessionID}/decisions", h.ListDecisions)

		// Supervision
		r.Get("/supervision", h.GetSupervision)
		r.Put("/supervision", h.SetSupervision)

		// Confirmations
		r.Get("/confirmations", h.ListConfirmations)
		r.Post("/confirmations/{sessionID}", h.Confirm)

		// Session host event ingress
		r.Post("/host/events", h.IngestHostEvent)

		// Live event stream (SSE)
		r.Get("/events/stream", h.StreamEvents)
	})

	// Live event stream (WebSocket)
	if h.Hub != nil {
		r.Get("/ws", h.Hub.HandleWS)
	}
}
