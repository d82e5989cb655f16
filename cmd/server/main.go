package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"metricbridge/internal/config"
	"metricbridge/internal/jobs"
	"metricbridge/internal/metrics"
	"metricbridge/internal/server"
	"metricbridge/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	setupLogging(cfg)

	// Connect to the store, waiting for it to come up
	st, err := store.Connect(ctx, store.Options{
		Addrs:             cfg.RedisAddrs,
		Cluster:           cfg.IsCluster(),
		Password:          cfg.RedisPassword,
		DB:                cfg.RedisDB,
		ScanBatchSize:     cfg.ScanBatchSize,
		ScanMaxIterations: cfg.ScanMaxIterations,
		SampleTimeout:     cfg.RequestTimeout,
		ExplanationTTL:    cfg.ExplanationTTL,
	}, cfg.StartupRetry)
	if err != nil {
		slog.Error("failed to connect to store; make sure Redis is running and REDIS_ADDRS points at it",
			"addrs", cfg.RedisAddrs, "error", err)
		os.Exit(1)
	}
	defer st.Close()

	metrics.Init(st, cfg.RequestTimeout)

	// Start the background store monitor
	monitor := jobs.NewStoreMonitor(st, cfg.MonitorInterval, cfg.RequestTimeout, metrics.SetStoreUp)
	go monitor.Start(ctx)

	srv := server.New(cfg)
	srv.RegisterRoutes(st)

	// Graceful shutdown
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	slog.Info("shutting down server")
	if err := srv.Shutdown(); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("server exited")
}

// setupLogging installs a text handler in development and JSON elsewhere.
func setupLogging(cfg *config.Config) {
	level := slog.LevelInfo
	if cfg.IsDev() {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, opts)
	if cfg.IsDev() {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
