package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Pinger checks connectivity to a backing service.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves the health-check endpoint, probing the backing
// stores when they are wired.
type HealthHandler struct {
	logger *slog.Logger
	db     Pinger
	cache  Pinger
}

// NewHealthHandler creates a HealthHandler. db and cache may be nil when the
// service runs without the corresponding backend.
func NewHealthHandler(logger *slog.Logger, db, cache Pinger) *HealthHandler {
	return &HealthHandler{logger: logger, db: db, cache: cache}
}

// HealthCheck responds with the service liveness and per-dependency status.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	deps := map[string]string{}
	healthy := true

	if h.db != nil {
		if err := h.db.Ping(ctx); err != nil {
			deps["postgres"] = err.Error()
			healthy = false
		} else {
			deps["postgres"] = "ok"
		}
	}
	if h.cache != nil {
		if err := h.cache.Ping(ctx); err != nil {
			deps["redis"] = err.Error()
			healthy = false
		} else {
			deps["redis"] = "ok"
		}
	}

	status := http.StatusOK
	state := "ok"
	if !healthy {
		status = http.StatusServiceUnavailable
		state = "degraded"
	}

	writeJSON(w, status, map[string]any{
		"status":       state,
		"dependencies": deps,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	})
}
