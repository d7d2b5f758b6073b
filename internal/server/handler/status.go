package handler

import (
	"net/http"
	"time"

	"github.com/alethena/Draggable-ServiceHunter-Shares/internal/claims"
	"github.com/alethena/Draggable-ServiceHunter-Shares/internal/draggable"
)

// StatusHandler serves a one-call overview of the registry for dashboards.
type StatusHandler struct {
	Mode      string
	registry  *claims.Registry
	wrapper   *draggable.Token
	startedAt time.Time
}

// NewStatusHandler creates a StatusHandler.
func NewStatusHandler(mode string, registry *claims.Registry, wrapper *draggable.Token) *StatusHandler {
	return &StatusHandler{
		Mode:      mode,
		registry:  registry,
		wrapper:   wrapper,
		startedAt: time.Now().UTC(),
	}
}

// GetStatus responds with the service mode, uptime, and a summary of the
// live claim and acquisition state.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	out := map[string]any{
		"mode":           h.Mode,
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
	}
	if h.registry != nil {
		out["open_claims"] = len(h.registry.OpenClaims())
		out["claim_period_seconds"] = int64(h.registry.ClaimPeriod() / time.Second)
	}
	if h.wrapper != nil {
		out["acquired"] = h.wrapper.Acquired()
		_, pending := h.wrapper.Offer()
		out["pending_offer"] = pending
	}
	writeJSON(w, http.StatusOK, out)
}
