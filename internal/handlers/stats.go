package handlers

import (
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"metricbridge/internal/config"
	"metricbridge/internal/models"
	"metricbridge/internal/store"
)

// maxSampleQueries caps the example queries echoed by /stats.
const maxSampleQueries = 5

// StatsHandler reports the exact key count next to sampled estimates.
type StatsHandler struct {
	store *store.Store
	cfg   *config.Config
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(s *store.Store, cfg *config.Config) *StatsHandler {
	return &StatsHandler{store: s, cfg: cfg}
}

// Stats returns totalRecords (exact, cache entries included) and the
// sample-based counts, which are labeled approximate unless the whole
// keyspace fit in the sample.
func (h *StatsHandler) Stats(c fiber.Ctx) error {
	ctx, cancel := requestContext(c, h.cfg.RequestTimeout)
	defer cancel()

	total, err := h.store.TotalRecords(ctx)
	if err != nil {
		slog.Error("stats total failed", "error", err)
		return jsonError(c, fiber.StatusInternalServerError, err.Error())
	}

	sample, err := h.store.SampleUniqueQueries(ctx, h.cfg.StatsSampleSize)
	if err != nil {
		slog.Error("stats sample failed", "error", err)
		return jsonError(c, fiber.StatusInternalServerError, err.Error())
	}

	queries := sample.Queries
	if len(queries) > maxSampleQueries {
		queries = queries[:maxSampleQueries]
	}

	note := fmt.Sprintf("totalRecords is exact and includes cached explanations; sample fields cover %d scanned keys", sample.Size)
	if !sample.Complete {
		note += " and under-count the full keyspace"
	}

	return c.JSON(models.StatsResponse{
		Success:              true,
		TotalRecords:         total,
		TotalIncludesCache:   true,
		SampleSize:           sample.Size,
		SampleQueries:        queries,
		UniqueQueriesSample:  sample.UniqueQueries,
		UniqueProductsSample: sample.UniqueItems,
		CachedExplanations:   sample.Explanations,
		Approximate:          !sample.Complete,
		Note:                 note,
	})
}
