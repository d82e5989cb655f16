// Package testutil provides test utilities and helpers.
package testutil

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"metricbridge/internal/models"
	"metricbridge/internal/store"
)

// TestStore starts an in-process Redis and returns a connected store.
// Both are torn down when the test ends.
func TestStore(t *testing.T) (*store.Store, *miniredis.Miniredis) {
	t.Helper()
	return TestStoreWithOptions(t, store.Options{})
}

// TestStoreWithOptions is TestStore with custom scan bounds or TTLs. Addrs is
// always replaced by the in-process server.
func TestStoreWithOptions(t *testing.T, opts store.Options) (*store.Store, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	opts.Addrs = []string{mr.Addr()}
	opts.DialTimeout = time.Second

	s := store.New(opts)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("failed to connect to test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	return s, mr
}

// SeedMetrics writes a metric record under key verbatim, bypassing the
// write-time normalization of the store. Use it to plant legacy mixed-case keys.
func SeedMetrics(t *testing.T, mr *miniredis.Miniredis, key string, m models.Metrics) {
	t.Helper()

	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("failed to encode metrics: %v", err)
	}
	SeedRaw(t, mr, key, string(data))
}

// SeedRaw writes value under key verbatim.
func SeedRaw(t *testing.T, mr *miniredis.Miniredis, key, value string) {
	t.Helper()

	if err := mr.Set(key, value); err != nil {
		t.Fatalf("failed to seed %s: %v", key, err)
	}
}
