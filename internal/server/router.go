package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/telhawk-systems/mirror-notify/common/httputil"
	"github.com/telhawk-systems/mirror-notify/common/logging"
	"github.com/telhawk-systems/mirror-notify/common/middleware"
	"github.com/telhawk-systems/mirror-notify/internal/handlers"
	"github.com/telhawk-systems/mirror-notify/internal/ratelimit"
)

type RouterConfig struct {
	Notify *handlers.NotifyHandler
	Health *handlers.HealthHandler
	Logger *logging.Logger

	// Limiter guards the notification routes. Nil disables rate limiting.
	Limiter         ratelimit.RateLimiter
	RateLimitWindow time.Duration

	// TrustProxyHeaders takes the client IP from X-Forwarded-For / X-Real-IP.
	TrustProxyHeaders bool
}

// NewRouter registers the notification callbacks, probes and metrics.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if cfg.TrustProxyHeaders {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(middleware.AccessLog(logger.Logger))
	r.Use(chimiddleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/healthz", cfg.Health.Health)
	r.Get("/readyz", cfg.Health.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if cfg.Limiter != nil {
			r.Use(ratelimit.Middleware(cfg.Limiter, cfg.RateLimitWindow, logger))
		}
		r.Post("/timeline_update", cfg.Notify.TimelineUpdate)
		r.Post("/locations_update", cfg.Notify.LocationsUpdate)
	})

	return r
}
