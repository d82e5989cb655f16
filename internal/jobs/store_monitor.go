package jobs

import (
	"context"
	"log/slog"
	"time"
)

// Pinger is the liveness probe the monitor runs.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StoreMonitor periodically probes the store and reports transitions. It
// lives in the server process, outside request handling, and never retries
// or reconnects on behalf of requests.
type StoreMonitor struct {
	store    Pinger
	interval time.Duration
	timeout  time.Duration
	report   func(up bool)
	logger   *slog.Logger
}

// NewStoreMonitor creates a monitor that calls report after every probe.
func NewStoreMonitor(store Pinger, interval, timeout time.Duration, report func(up bool)) *StoreMonitor {
	return &StoreMonitor{
		store:    store,
		interval: interval,
		timeout:  timeout,
		report:   report,
		logger:   slog.Default().With("component", "store-monitor"),
	}
}

// Start runs the probe loop until ctx is cancelled.
func (m *StoreMonitor) Start(ctx context.Context) {
	m.logger.Info("store monitor started", "interval", m.interval)

	// Run immediately on start
	up := m.check(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("store monitor stopped")
			return
		case <-ticker.C:
			now := m.check(ctx)
			if now != up {
				if now {
					m.logger.Info("store reachable again")
				} else {
					m.logger.Warn("store unreachable")
				}
			}
			up = now
		}
	}
}

// check performs one probe and reports it.
func (m *StoreMonitor) check(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	err := m.store.Ping(probeCtx)
	if err != nil {
		m.logger.Debug("store probe failed", "error", err)
	}
	up := err == nil
	if m.report != nil {
		m.report(up)
	}
	return up
}
