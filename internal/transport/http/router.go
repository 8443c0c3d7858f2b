package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"salespulse/internal/config"
	"salespulse/internal/middleware"
)

// RouterOptions carries the handlers mounted on the ops router
type RouterOptions struct {
	Health  *HealthHandler
	Metrics http.Handler
	// Limiter is optional; nil serves every request.
	Limiter *middleware.RateLimiter
}

// NewOpsRouter builds the router for the operational endpoint
func NewOpsRouter(opts RouterOptions, logger *slog.Logger) chi.Router {
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.StructuredLogger(logger))
	r.Use(middleware.Recoverer(logger))
	if opts.Limiter != nil {
		r.Use(opts.Limiter.Handler)
	}

	if opts.Health != nil {
		r.Get(config.HealthEndpoint, opts.Health.HealthCheck)
	}
	if opts.Metrics != nil {
		r.Method(http.MethodGet, config.MetricsEndpoint, opts.Metrics)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteProblem(w, r, http.StatusNotFound, "No route for "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteProblem(w, r, http.StatusMethodNotAllowed, r.Method+" is not supported on "+r.URL.Path)
	})

	return r
}
