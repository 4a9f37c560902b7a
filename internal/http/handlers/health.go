package handlers

import (
	"net/http"
	"time"
)

// ReadinessChecker reports whether a dependency finished starting.
type ReadinessChecker interface {
	Ready() bool
}

// HealthHandler serves GET /health.
type HealthHandler struct {
	retrieval    ReadinessChecker
	voice        bool
	appointments bool
	now          func() time.Time
}

func NewHealthHandler(retrieval ReadinessChecker, voiceConfigured, appointmentsConfigured bool) *HealthHandler {
	return &HealthHandler{
		retrieval:    retrieval,
		voice:        voiceConfigured,
		appointments: appointmentsConfigured,
		now:          time.Now,
	}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	rag := h.retrieval != nil && h.retrieval.Ready()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": h.now().UTC().Format(time.RFC3339Nano),
		"services": map[string]bool{
			"rag":          rag,
			"vapi":         h.voice,
			"appointments": h.appointments,
		},
	})
}
