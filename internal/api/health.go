package api

import (
	"context"
	"net/http"
	"time"

	"github.com/ashureev/coin-gallery/internal/health"
	"github.com/ashureev/coin-gallery/internal/metadata"
	"github.com/ashureev/coin-gallery/internal/store"
	"github.com/go-chi/chi/v5"
)

const healthCheckTimeout = 5 * time.Second

// Checks returns the dependency probes shared by the HTTP and gRPC health
// endpoints.
func Checks(repo store.Repository, md *metadata.Store) []health.Check {
	return []health.Check{
		{Name: "database", Failure: "unreachable", Fn: repo.Ping},
		{Name: "metadata", Failure: "unreadable", Fn: func(context.Context) error {
			_, err := md.Load()
			return err
		}},
	}
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	checks []health.Check
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(checks []health.Check) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// Health returns the health status of the API and its dependencies.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	report := health.Run(ctx, h.checks)
	statusCode := http.StatusOK
	if !report.Healthy() {
		statusCode = http.StatusServiceUnavailable
	}
	JSON(w, statusCode, report)
}

// RegisterHealth registers the health check route.
func (h *HealthHandler) RegisterHealth(r chi.Router) {
	r.Get("/health", h.Health)
}
