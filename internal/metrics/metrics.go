package metrics

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Lookup kinds and outcomes recorded by RecordLookup.
const (
	KindMetrics     = "metrics"
	KindSearch      = "search"
	KindExplanation = "explanation"

	OutcomeHit      = "hit"
	OutcomeFallback = "fallback"
	OutcomeMiss     = "miss"
	OutcomeError    = "error"
)

var (
	storeKeysDesc = prometheus.NewDesc(
		"metricbridge_store_keys",
		"Keys reported by the backing store, cache entries included",
		nil,
		nil,
	)

	lookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "metricbridge_lookups_total",
		Help: "Store lookups by kind and outcome",
	}, []string{"kind", "outcome"})

	storeUp = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "metricbridge_store_up",
		Help: "1 when the last liveness probe of the store succeeded",
	})
)

// SizeReader reports the backend key count.
type SizeReader interface {
	Size(ctx context.Context) (int64, error)
}

// StoreCollector is a custom Prometheus collector that reads the store key
// count on each scrape.
type StoreCollector struct {
	store   SizeReader
	timeout time.Duration
}

// NewStoreCollector creates a collector bounded by timeout per scrape.
func NewStoreCollector(store SizeReader, timeout time.Duration) *StoreCollector {
	return &StoreCollector{store: store, timeout: timeout}
}

// Describe sends the metric descriptor to the channel.
func (c *StoreCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- storeKeysDesc
}

// Collect queries the store for its key count and emits it as a gauge.
func (c *StoreCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	n, err := c.store.Size(ctx)
	if err != nil {
		slog.Error("failed to collect store key count", "error", err)
		return
	}
	ch <- prometheus.MustNewConstMetric(storeKeysDesc, prometheus.GaugeValue, float64(n))
}

var registerOnce sync.Once

// Init registers the collectors with the default registry.
// Must be called once at startup.
func Init(store SizeReader, timeout time.Duration) {
	registerOnce.Do(func() {
		prometheus.MustRegister(NewStoreCollector(store, timeout), lookups, storeUp)
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordLookup counts one lookup outcome.
func RecordLookup(kind, outcome string) {
	lookups.WithLabelValues(kind, outcome).Inc()
}

// SetStoreUp records the result of a liveness probe.
func SetStoreUp(up bool) {
	if up {
		storeUp.Set(1)
		return
	}
	storeUp.Set(0)
}
