package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/PitokDf/express-app-useable/internal/api/shared"
	"github.com/PitokDf/express-app-useable/internal/platform/logger"
	"github.com/PitokDf/express-app-useable/internal/redact"
)

// APIVersion is the version of the HTTP contract, sent on every response.
const APIVersion = "v1"

// readinessTimeout bounds the whole readiness probe.
const readinessTimeout = 2 * time.Second

// Dependency is something the service needs in order to serve traffic.
type Dependency struct {
	Name string
	Ping func(ctx context.Context) error
}

// HealthHandler serves liveness, readiness and version endpoints.
type HealthHandler struct {
	version      string
	started      time.Time
	dependencies []Dependency
	now          func() time.Time
}

// NewHealthHandler creates a HealthHandler probing deps on readiness.
func NewHealthHandler(version string, deps ...Dependency) *HealthHandler {
	return &HealthHandler{
		version:      version,
		started:      time.Now(),
		dependencies: deps,
		now:          time.Now,
	}
}

// Health handles GET /health.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	shared.Success(w, r, HealthResponse{
		Status:    "ok",
		Uptime:    now.Sub(h.started).Seconds(),
		Version:   h.version,
		Timestamp: now.UTC().Format(time.RFC3339),
	}, shared.WithCode(shared.CodeHealthy))
}

// Live handles GET /health/live. It only proves the process is serving.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	shared.Success(w, r, map[string]string{"status": "alive"}, shared.WithCode(shared.CodeHealthy))
}

// Ready handles GET /health/ready, probing every dependency concurrently.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	results := make([]ReadinessCheck, len(h.dependencies))
	var g errgroup.Group
	for i, dep := range h.dependencies {
		g.Go(func() error {
			results[i] = ReadinessCheck{Status: "up"}
			if err := dep.Ping(ctx); err != nil {
				results[i] = ReadinessCheck{Status: "down", Error: redact.Error(err)}
			}
			return nil
		})
	}
	_ = g.Wait()

	checks := make(map[string]ReadinessCheck, len(results))
	ready := true
	for i, dep := range h.dependencies {
		checks[dep.Name] = results[i]
		if results[i].Status != "up" {
			ready = false
		}
	}

	if !ready {
		logger.FromContext(r.Context()).Warn("readiness check failed", slog.Any("checks", checks))
		shared.ServiceUnavailable(w, r, map[string]any{"status": "not_ready", "checks": checks})
		return
	}
	shared.Success(w, r, map[string]any{"status": "ready", "checks": checks}, shared.WithCode(shared.CodeHealthy))
}

// Version handles GET /api/version.
func (h *HealthHandler) Version(w http.ResponseWriter, r *http.Request) {
	shared.Success(w, r, VersionResponse{Version: h.version, APIVersion: APIVersion})
}
