package handlers

import (
	"github.com/gofiber/fiber/v3"

	"metricbridge/internal/config"
	"metricbridge/internal/models"
	"metricbridge/internal/store"
)

// HealthHandler reports connector liveness.
type HealthHandler struct {
	store *store.Store
	cfg   *config.Config
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(s *store.Store, cfg *config.Config) *HealthHandler {
	return &HealthHandler{store: s, cfg: cfg}
}

// Health pings the store and reports its key count.
func (h *HealthHandler) Health(c fiber.Ctx) error {
	ctx, cancel := requestContext(c, h.cfg.RequestTimeout)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(models.HealthResponse{
			Status:    "error",
			Connected: false,
			Message:   "store unavailable: " + err.Error(),
		})
	}

	total, err := h.store.Size(ctx)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(models.HealthResponse{
			Status:    "error",
			Connected: true,
			Message:   err.Error(),
		})
	}

	return c.JSON(models.HealthResponse{
		Status:    "healthy",
		Connected: true,
		TotalKeys: total,
	})
}

// Liveness handles the /livez endpoint for Kubernetes liveness probes.
// Returns 200 OK if the application is running.
func (h *HealthHandler) Liveness(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
	})
}

// Readiness handles the /readyz endpoint for Kubernetes readiness probes.
// Returns 200 OK if the application can serve traffic (store is reachable).
func (h *HealthHandler) Readiness(c fiber.Ctx) error {
	ctx, cancel := requestContext(c, h.cfg.RequestTimeout)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "error",
			"error":  "store unavailable",
		})
	}

	return c.JSON(fiber.Map{
		"status": "ok",
	})
}
