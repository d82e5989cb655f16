package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"metricbridge/internal/config"
	"metricbridge/internal/metrics"
	"metricbridge/internal/models"
	"metricbridge/internal/store"
	"metricbridge/internal/validation"
)

// ExplanationHandler serves the generated-explanation cache.
type ExplanationHandler struct {
	store *store.Store
	cfg   *config.Config
}

// NewExplanationHandler creates a new explanation handler.
func NewExplanationHandler(s *store.Store, cfg *config.Config) *ExplanationHandler {
	return &ExplanationHandler{store: s, cfg: cfg}
}

// Get returns a cached explanation verbatim.
func (h *ExplanationHandler) Get(c fiber.Ctx) error {
	id := c.Params("id")
	if ok, msg := validation.ValidateExplanationID(id); !ok {
		return jsonError(c, fiber.StatusBadRequest, msg)
	}

	ctx, cancel := requestContext(c, h.cfg.RequestTimeout)
	defer cancel()

	entry, err := h.store.GetExplanation(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrExplanationNotFound) {
			metrics.RecordLookup(metrics.KindExplanation, metrics.OutcomeMiss)
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "not found",
			})
		}
		metrics.RecordLookup(metrics.KindExplanation, metrics.OutcomeError)
		slog.Error("explanation lookup failed", "id", id, "error", err)
		return jsonError(c, fiber.StatusInternalServerError, err.Error())
	}

	metrics.RecordLookup(metrics.KindExplanation, metrics.OutcomeHit)
	return c.JSON(entry)
}

// Create writes a cache entry. Invalid bodies are rejected before any store
// round trip.
func (h *ExplanationHandler) Create(c fiber.Ctx) error {
	var body models.ExplanationWrite
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if ok, msg := validation.ValidateExplanationWrite(&body); !ok {
		return jsonError(c, fiber.StatusBadRequest, msg)
	}

	ctx, cancel := requestContext(c, h.cfg.RequestTimeout)
	defer cancel()

	id := body.CacheID()
	entry := &models.Explanation{
		Data:         body.Data,
		SourceQuery:  body.Query,
		SourceItemID: body.SourceItemID(),
		Title:        body.Title,
	}
	if err := h.store.PutExplanation(ctx, id, entry, h.cfg.ExplanationTTL); err != nil {
		slog.Error("explanation write failed", "id", id, "error", err)
		return jsonError(c, fiber.StatusInternalServerError, err.Error())
	}

	return c.JSON(models.ExplanationWriteResponse{
		Success: true,
		ID:      id,
		Message: "explanation cached successfully",
	})
}

// Delete removes one cache entry.
func (h *ExplanationHandler) Delete(c fiber.Ctx) error {
	id := c.Params("id")
	if ok, msg := validation.ValidateExplanationID(id); !ok {
		return jsonError(c, fiber.StatusBadRequest, msg)
	}

	ctx, cancel := requestContext(c, h.cfg.RequestTimeout)
	defer cancel()

	deleted, err := h.store.DeleteExplanation(ctx, id)
	if err != nil {
		slog.Error("explanation delete failed", "id", id, "error", err)
		return jsonError(c, fiber.StatusInternalServerError, err.Error())
	}
	if !deleted {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "not found",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"id":      id,
		"message": "explanation deleted",
	})
}

// Flush deletes every cached explanation. An empty cache is not an error.
func (h *ExplanationHandler) Flush(c fiber.Ctx) error {
	ctx, cancel := requestContext(c, h.cfg.RequestTimeout)
	defer cancel()

	n, err := h.store.FlushExplanations(ctx)
	if err != nil {
		slog.Error("explanation flush failed", "deleted", n, "error", err)
		return jsonError(c, fiber.StatusInternalServerError, err.Error())
	}

	slog.Info("explanation cache flushed", "deleted", n)
	return c.JSON(models.FlushResponse{
		Success:      true,
		DeletedCount: n,
		Message:      fmt.Sprintf("cleared %d cached explanations", n),
	})
}
