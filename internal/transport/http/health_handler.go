package http

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/render"

	"salespulse/pkg/contracts"
)

// RunStatus describes the most recent pipeline run
type RunStatus struct {
	RunID       string    `json:"run_id"`
	Status      string    `json:"status"`
	Records     int       `json:"records"`
	Quarantined int       `json:"quarantined"`
	Cached      bool      `json:"cached"`
	Error       string    `json:"error,omitempty"`
	FinishedAt  time.Time `json:"finished_at"`
}

// HealthResponse is the body of GET /healthz
type HealthResponse struct {
	Status  string     `json:"status"`
	Version string     `json:"version"`
	Uptime  string     `json:"uptime"`
	LastRun *RunStatus `json:"last_run,omitempty"`
}

// HealthHandler reports liveness and the outcome of the latest run
type HealthHandler struct {
	mu      sync.RWMutex
	started time.Time
	lastRun *RunStatus
	logger  *slog.Logger
	now     func() time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(logger *slog.Logger) *HealthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthHandler{
		started: time.Now(),
		logger:  logger.With(slog.String("handler", "health")),
		now:     time.Now,
	}
}

// RecordRun stores the outcome of a run for later health checks
func (h *HealthHandler) RecordRun(status RunStatus) {
	if status.FinishedAt.IsZero() {
		status.FinishedAt = h.now()
	}
	h.mu.Lock()
	h.lastRun = &status
	h.mu.Unlock()
}

// LastRun returns a copy of the latest recorded run, or nil
func (h *HealthHandler) LastRun() *RunStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.lastRun == nil {
		return nil
	}
	run := *h.lastRun
	return &run
}

// HealthCheck handles GET /healthz. A failed last run is reported as
// degraded but still answers 200, since the process itself is alive.
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:  "ok",
		Version: contracts.Version,
		Uptime:  h.now().Sub(h.started).Truncate(time.Second).String(),
		LastRun: h.LastRun(),
	}
	if resp.LastRun != nil && resp.LastRun.Status == "failure" {
		resp.Status = "degraded"
	}

	h.logger.DebugContext(r.Context(), "health check", slog.String("status", resp.Status))
	render.JSON(w, r, resp)
}
