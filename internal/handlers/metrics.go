package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"metricbridge/internal/config"
	"metricbridge/internal/metrics"
	"metricbridge/internal/models"
	"metricbridge/internal/store"
	"metricbridge/internal/validation"
)

// MetricsHandler resolves single (query, item) lookups.
type MetricsHandler struct {
	store *store.Store
	cfg   *config.Config
}

// NewMetricsHandler creates a new metrics handler.
func NewMetricsHandler(s *store.Store, cfg *config.Config) *MetricsHandler {
	return &MetricsHandler{store: s, cfg: cfg}
}

// Get returns the metrics for one composite key. A miss is a normal 404
// result with found=false; store failures are 500 with success=false.
func (h *MetricsHandler) Get(c fiber.Ctx) error {
	query := c.Params("query")
	itemID := c.Params("*")

	if ok, msg := validation.ValidateQuery(query); !ok {
		return jsonError(c, fiber.StatusBadRequest, msg)
	}
	if ok, msg := validation.ValidateItemID(itemID); !ok {
		return jsonError(c, fiber.StatusBadRequest, msg)
	}

	ctx, cancel := requestContext(c, h.cfg.RequestTimeout)
	defer cancel()

	res, err := h.store.ResolveMetrics(ctx, query, itemID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			metrics.RecordLookup(metrics.KindMetrics, metrics.OutcomeMiss)
			return c.Status(fiber.StatusNotFound).JSON(models.MetricsResponse{
				Success:   true,
				Found:     false,
				Query:     query,
				ItemID:    itemID,
				TriedKeys: store.CandidateKeys(query, itemID),
				Message:   "No data found for this combination",
			})
		}
		metrics.RecordLookup(metrics.KindMetrics, metrics.OutcomeError)
		slog.Error("metrics lookup failed", "query", query, "item_id", itemID, "error", err)
		return jsonError(c, fiber.StatusInternalServerError, err.Error())
	}

	outcome := metrics.OutcomeHit
	if res.Fallback {
		outcome = metrics.OutcomeFallback
	}
	metrics.RecordLookup(metrics.KindMetrics, outcome)

	return c.JSON(models.MetricsResponse{
		Success:    true,
		Found:      true,
		Query:      query,
		ItemID:     itemID,
		Metrics:    &res.Metrics,
		MatchedKey: res.MatchedKey,
		Fallback:   res.Fallback,
	})
}
