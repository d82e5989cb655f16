package server

import (
	"github.com/gofiber/fiber/v3/middleware/adaptor"

	"metricbridge/internal/handlers"
	"metricbridge/internal/metrics"
	"metricbridge/internal/store"
	"metricbridge/internal/validation"
)

// RegisterRoutes registers all application routes.
func (s *Server) RegisterRoutes(st *store.Store) {
	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(st, s.Cfg)
	metricsHandler := handlers.NewMetricsHandler(st, s.Cfg)
	searchHandler := handlers.NewSearchHandler(st, s.Cfg)
	statsHandler := handlers.NewStatsHandler(st, s.Cfg)
	explanationHandler := handlers.NewExplanationHandler(st, s.Cfg)

	// Health check endpoints (for Kubernetes probes)
	s.App.Get("/health", healthHandler.Health)
	s.App.Get("/livez", healthHandler.Liveness)
	s.App.Get("/readyz", healthHandler.Readiness)

	// Prometheus scrape endpoint
	if s.Cfg.MetricsPath != "" {
		s.App.Get(s.Cfg.MetricsPath, adaptor.HTTPHandler(metrics.Handler()))
	}

	// Metric lookups. The item id is the rest of the path so ids that
	// contain the separator or slashes survive routing.
	s.App.Get("/metrics/:query/*", metricsHandler.Get)
	s.App.Get("/search/:query", searchHandler.Search)
	s.App.Get("/stats", statsHandler.Stats)

	// Explanation cache. Flush is registered before the id routes so it is
	// never read as an id.
	flushPath := "/explanation/" + validation.ReservedExplanationID
	s.App.Get(flushPath, explanationHandler.Flush)
	s.App.Post(flushPath, explanationHandler.Flush)
	s.App.Post("/explanation", explanationHandler.Create)
	s.App.Get("/explanation/:id", explanationHandler.Get)
	s.App.Delete("/explanation/:id", explanationHandler.Delete)
}
