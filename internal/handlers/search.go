package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"metricbridge/internal/config"
	"metricbridge/internal/metrics"
	"metricbridge/internal/models"
	"metricbridge/internal/store"
	"metricbridge/internal/validation"
)

// SearchHandler assembles every record stored under a query.
type SearchHandler struct {
	store *store.Store
	cfg   *config.Config
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(s *store.Store, cfg *config.Config) *SearchHandler {
	return &SearchHandler{store: s, cfg: cfg}
}

// Search returns a map of item id to metrics for the query.
func (h *SearchHandler) Search(c fiber.Ctx) error {
	query := c.Params("query")
	if ok, msg := validation.ValidateQuery(query); !ok {
		return jsonError(c, fiber.StatusBadRequest, msg)
	}

	ctx, cancel := requestContext(c, h.cfg.RequestTimeout)
	defer cancel()

	res, err := h.store.SearchQuery(ctx, query, h.cfg.SearchMaxResults)
	if err != nil {
		metrics.RecordLookup(metrics.KindSearch, metrics.OutcomeError)
		slog.Error("search failed", "query", query, "error", err)
		return jsonError(c, fiber.StatusInternalServerError, err.Error())
	}

	switch {
	case len(res.Results) == 0:
		metrics.RecordLookup(metrics.KindSearch, metrics.OutcomeMiss)
	case res.MatchedQuery != query:
		metrics.RecordLookup(metrics.KindSearch, metrics.OutcomeFallback)
	default:
		metrics.RecordLookup(metrics.KindSearch, metrics.OutcomeHit)
	}

	return c.JSON(models.SearchResponse{
		Success:      true,
		Query:        query,
		MatchedQuery: res.MatchedQuery,
		Results:      res.Results,
		Count:        len(res.Results),
		Skipped:      res.Skipped,
		Truncated:    res.Truncated,
	})
}
