// Command loader bulk-loads metric records from a CSV export into the store.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"metricbridge/internal/config"
	"metricbridge/internal/store"
)

func main() {
	file := flag.String("file", "", "CSV file to load (required)")
	batchSize := flag.Int("batch", 500, "records per pipelined write")
	flag.Parse()

	if *file == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	f, err := os.Open(*file)
	if err != nil {
		slog.Error("failed to open CSV", "file", *file, "error", err)
		os.Exit(1)
	}
	defer f.Close()

	st, err := store.Connect(ctx, store.Options{
		Addrs:    cfg.RedisAddrs,
		Cluster:  cfg.IsCluster(),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, cfg.StartupRetry)
	if err != nil {
		slog.Error("failed to connect to store; make sure Redis is running and REDIS_ADDRS points at it",
			"addrs", cfg.RedisAddrs, "error", err)
		os.Exit(1)
	}
	defer st.Close()

	res, err := Load(ctx, st, f, *batchSize)
	if err != nil {
		slog.Error("load failed", "file", *file, "written", res.Written, "error", err)
		os.Exit(1)
	}

	total, err := st.Size(ctx)
	if err != nil {
		slog.Warn("failed to read key count", "error", err)
	}
	slog.Info("load complete",
		"file", *file, "rows", res.Rows, "written", res.Written, "failed", res.Failed, "total_keys", total)
}
