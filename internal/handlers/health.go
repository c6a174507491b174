package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/telhawk-systems/mirror-notify/common/httputil"
	"github.com/telhawk-systems/mirror-notify/common/logging"
)

// ReadinessCheck reports whether one dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

type HealthHandler struct {
	checks map[string]ReadinessCheck
	logger *logging.Logger
}

func NewHealthHandler(checks map[string]ReadinessCheck, logger *logging.Logger) *HealthHandler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &HealthHandler{checks: checks, logger: logger}
}

// Health reports liveness. It never touches dependencies.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	httputil.WriteStatus(w, "healthy")
}

// Ready runs every readiness check and answers 503 if any fails.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	failed := make(map[string]string)
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.logger.WithContext(ctx).Warn("readiness check failed", logging.Service(name), logging.Error(err))
			failed[name] = err.Error()
		}
	}

	if len(failed) > 0 {
		httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not ready",
			"checks": failed,
		})
		return
	}
	httputil.WriteStatus(w, "ready")
}
