package server

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v3"

	"metricbridge/internal/config"
	"metricbridge/internal/metrics"
	"metricbridge/internal/models"
	"metricbridge/internal/testutil"
)

func testConfig() *config.Config {
	return &config.Config{
		Env:              "test",
		CORSOrigins:      "*",
		RequestTimeout:   5 * time.Second,
		SearchMaxResults: 1000,
		StatsSampleSize:  1000,
		ExplanationTTL:   time.Hour,
		MetricsPath:      "/internal/metrics",
	}
}

// newTestServer wires the full route table against an in-process store.
func newTestServer(t *testing.T) (*Server, *miniredis.Miniredis) {
	t.Helper()

	st, mr := testutil.TestStore(t)
	s := New(testConfig())
	s.RegisterRoutes(st)
	return s, mr
}

func do(t *testing.T, s *Server, method, path, body string) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, _ := http.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.App.Test(req, fiber.TestConfig{Timeout: 10 * time.Second})
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	return resp.StatusCode, data
}

func decode(t *testing.T, data []byte, v any) {
	t.Helper()
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("failed to decode %s: %v", data, err)
	}
}

func TestHealth(t *testing.T) {
	s, mr := newTestServer(t)
	testutil.SeedMetrics(t, mr, "ai:p1", models.Metrics{Viewers: 1})

	status, body := do(t, s, "GET", "/health", "")
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}

	var resp models.HealthResponse
	decode(t, body, &resp)
	if resp.Status != "healthy" || !resp.Connected || resp.TotalKeys != 1 {
		t.Errorf("unexpected health response: %+v", resp)
	}
}

func TestHealth_StoreDown(t *testing.T) {
	s, mr := newTestServer(t)
	mr.Close()

	status, body := do(t, s, "GET", "/health", "")
	if status != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d: %s", status, body)
	}

	var resp models.HealthResponse
	decode(t, body, &resp)
	if resp.Status != "error" || resp.Connected || resp.Message == "" {
		t.Errorf("unexpected health response: %+v", resp)
	}

	status, _ = do(t, s, "GET", "/readyz", "")
	if status != http.StatusServiceUnavailable {
		t.Errorf("readyz: expected 503, got %d", status)
	}
	status, _ = do(t, s, "GET", "/livez", "")
	if status != http.StatusOK {
		t.Errorf("livez: expected 200, got %d", status)
	}
}

func TestGetMetrics(t *testing.T) {
	s, mr := newTestServer(t)
	testutil.SeedMetrics(t, mr, "ai:p1", models.Metrics{Viewers: 100, CTR: 5.0})
	testutil.SeedMetrics(t, mr, "ai:course:v2", models.Metrics{Viewers: 3})

	tests := []struct {
		name         string
		path         string
		wantStatus   int
		wantFound    bool
		wantKey      string
		wantFallback bool
	}{
		{name: "exact hit", path: "/metrics/ai/p1", wantStatus: 200, wantFound: true, wantKey: "ai:p1"},
		{name: "case fallback", path: "/metrics/AI/p1", wantStatus: 200, wantFound: true, wantKey: "ai:p1", wantFallback: true},
		{name: "item id with separator", path: "/metrics/ai/course:v2", wantStatus: 200, wantFound: true, wantKey: "ai:course:v2"},
		{name: "miss", path: "/metrics/ai/p2", wantStatus: 404},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := do(t, s, "GET", tt.path, "")
			if status != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, status, body)
			}

			var resp models.MetricsResponse
			decode(t, body, &resp)
			if resp.Found != tt.wantFound {
				t.Errorf("found = %v, want %v", resp.Found, tt.wantFound)
			}
			if resp.MatchedKey != tt.wantKey {
				t.Errorf("matchedKey = %q, want %q", resp.MatchedKey, tt.wantKey)
			}
			if resp.Fallback != tt.wantFallback {
				t.Errorf("fallback = %v, want %v", resp.Fallback, tt.wantFallback)
			}
			if !tt.wantFound {
				if resp.Metrics != nil {
					t.Errorf("miss should carry null metrics, got %+v", resp.Metrics)
				}
				if len(resp.TriedKeys) == 0 {
					t.Error("miss should list the keys tried")
				}
			}
		})
	}
}

func TestGetMetrics_Values(t *testing.T) {
	s, mr := newTestServer(t)
	testutil.SeedMetrics(t, mr, "ai:p1", models.Metrics{Viewers: 100, CTR: 5.0})

	_, body := do(t, s, "GET", "/metrics/ai/p1", "")
	var resp models.MetricsResponse
	decode(t, body, &resp)
	if resp.Metrics == nil || resp.Metrics.Viewers != 100 || resp.Metrics.CTR != 5.0 {
		t.Errorf("unexpected metrics: %+v", resp.Metrics)
	}
}

func TestGetMetrics_InvalidQuery(t *testing.T) {
	s, _ := newTestServer(t)

	status, body := do(t, s, "GET", "/metrics/a:b/p1", "")
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", status, body)
	}
}

func TestSearch(t *testing.T) {
	s, mr := newTestServer(t)
	testutil.SeedMetrics(t, mr, "ai:p1", models.Metrics{Viewers: 1})
	testutil.SeedMetrics(t, mr, "ai:p2", models.Metrics{Viewers: 2})
	testutil.SeedMetrics(t, mr, "ml:p1", models.Metrics{Viewers: 3})

	status, body := do(t, s, "GET", "/search/ai", "")
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}

	var resp models.SearchResponse
	decode(t, body, &resp)
	if resp.Count != 2 {
		t.Fatalf("count = %d, want 2", resp.Count)
	}
	for _, item := range []string{"p1", "p2"} {
		if _, ok := resp.Results[item]; !ok {
			t.Errorf("results missing %q: %v", item, resp.Results)
		}
	}
}

func TestStats(t *testing.T) {
	s, mr := newTestServer(t)
	testutil.SeedMetrics(t, mr, "ai:p1", models.Metrics{Viewers: 1})
	testutil.SeedMetrics(t, mr, "ml:p2", models.Metrics{Viewers: 2})
	testutil.SeedRaw(t, mr, "explanation:p1", `{"data":{}}`)

	status, body := do(t, s, "GET", "/stats", "")
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}

	var resp models.StatsResponse
	decode(t, body, &resp)
	if resp.TotalRecords != 3 || !resp.TotalIncludesCache {
		t.Errorf("totalRecords = %d (includes cache %v), want 3 including cache", resp.TotalRecords, resp.TotalIncludesCache)
	}
	if resp.UniqueQueriesSample != 2 || resp.UniqueProductsSample != 2 || resp.CachedExplanations != 1 {
		t.Errorf("unexpected sample counts: %+v", resp)
	}
	if resp.Approximate {
		t.Error("a keyspace that fits in the sample should not be marked approximate")
	}
	if resp.Note == "" {
		t.Error("stats should explain what the counts cover")
	}
}

func TestExplanationLifecycle(t *testing.T) {
	s, mr := newTestServer(t)
	testutil.SeedMetrics(t, mr, "ai:p1", models.Metrics{Viewers: 1})

	status, body := do(t, s, "POST", "/explanation", `{"id":"p1","data":{"text":"why p1"},"query":"ai","title":"Intro"}`)
	if status != http.StatusOK {
		t.Fatalf("create: expected 200, got %d: %s", status, body)
	}
	var created models.ExplanationWriteResponse
	decode(t, body, &created)
	if !created.Success || created.ID != "p1" {
		t.Errorf("unexpected create response: %+v", created)
	}

	status, body = do(t, s, "GET", "/explanation/p1", "")
	if status != http.StatusOK {
		t.Fatalf("get: expected 200, got %d: %s", status, body)
	}
	var entry struct {
		Data     struct{ Text string } `json:"data"`
		CachedAt string                `json:"cachedAt"`
	}
	decode(t, body, &entry)
	if entry.Data.Text != "why p1" || entry.CachedAt == "" {
		t.Errorf("unexpected entry: %s", body)
	}

	status, body = do(t, s, "GET", "/explanation/flush", "")
	if status != http.StatusOK {
		t.Fatalf("flush: expected 200, got %d: %s", status, body)
	}
	var flushed models.FlushResponse
	decode(t, body, &flushed)
	if flushed.DeletedCount != 1 {
		t.Errorf("deletedCount = %d, want 1", flushed.DeletedCount)
	}

	status, _ = do(t, s, "GET", "/explanation/p1", "")
	if status != http.StatusNotFound {
		t.Errorf("after flush: expected 404, got %d", status)
	}
	if !mr.Exists("ai:p1") {
		t.Error("flush removed a metric record")
	}
}

func TestExplanation_FlushEmpty(t *testing.T) {
	s, _ := newTestServer(t)

	status, body := do(t, s, "POST", "/explanation/flush", "")
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	var flushed models.FlushResponse
	decode(t, body, &flushed)
	if !flushed.Success || flushed.DeletedCount != 0 {
		t.Errorf("unexpected flush response: %+v", flushed)
	}
}

func TestExplanation_Delete(t *testing.T) {
	s, _ := newTestServer(t)

	do(t, s, "POST", "/explanation", `{"id":"p1","data":{"text":"x"}}`)

	status, _ := do(t, s, "DELETE", "/explanation/p1", "")
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	status, _ = do(t, s, "DELETE", "/explanation/p1", "")
	if status != http.StatusNotFound {
		t.Errorf("second delete: expected 404, got %d", status)
	}
}

func TestExplanation_InvalidBody(t *testing.T) {
	s, mr := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"not json", `{`},
		{"missing id", `{"data":{"text":"x"}}`},
		{"missing data", `{"id":"p1"}`},
		{"data not an object", `{"id":"p1","data":"text"}`},
		{"reserved flush id", `{"id":"flush","data":{"text":"x"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := do(t, s, "POST", "/explanation", tt.body)
			if status != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", status, body)
			}
			var resp map[string]any
			decode(t, body, &resp)
			if resp["error"] == nil {
				t.Errorf("400 response should carry an error: %s", body)
			}
		})
	}

	if len(mr.Keys()) != 0 {
		t.Errorf("invalid writes reached the store: %v", mr.Keys())
	}
}

func TestPrometheusEndpoint(t *testing.T) {
	st, _ := testutil.TestStore(t)
	metrics.Init(st, time.Second)
	s := New(testConfig())
	s.RegisterRoutes(st)

	do(t, s, "GET", "/metrics/ai/missing", "")

	status, body := do(t, s, "GET", "/internal/metrics", "")
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if !strings.Contains(string(body), "metricbridge_lookups_total") {
		t.Errorf("lookup counter not exposed:\n%s", body)
	}
}

func TestErrorHandler_JSON(t *testing.T) {
	s, _ := newTestServer(t)

	status, body := do(t, s, "GET", "/no/such/route", "")
	if status != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", status)
	}
	var resp map[string]any
	decode(t, body, &resp)
	if resp["success"] != false || resp["error"] == nil {
		t.Errorf("unexpected error body: %s", body)
	}
}

func TestRateLimit(t *testing.T) {
	st, _ := testutil.TestStore(t)
	cfg := testConfig()
	cfg.RateLimitMax = 2
	s := New(cfg)
	s.RegisterRoutes(st)

	for i := 0; i < 2; i++ {
		if status, _ := do(t, s, "GET", "/livez", ""); status != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, status)
		}
	}
	if status, _ := do(t, s, "GET", "/livez", ""); status != http.StatusTooManyRequests {
		t.Errorf("expected 429 once the limit is reached, got %d", status)
	}
}

func TestBuildTLSConfig(t *testing.T) {
	cfg := &config.Config{TLSEnabled: true}
	tlsConfig, err := buildTLSConfig(cfg)
	if err != nil {
		t.Fatalf("buildTLSConfig() error = %v", err)
	}
	if tlsConfig.ClientCAs != nil {
		t.Error("client CAs should be unset without a CA file")
	}

	cfg.TLSCAFile = filepath.Join(t.TempDir(), "missing.pem")
	if _, err := buildTLSConfig(cfg); err == nil {
		t.Error("expected an error for a missing CA file")
	}

	bad := filepath.Join(t.TempDir(), "bad.pem")
	if err := os.WriteFile(bad, []byte("not a certificate"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg.TLSCAFile = bad
	if _, err := buildTLSConfig(cfg); err == nil {
		t.Error("expected an error for an unparsable CA file")
	}
}

func TestRateLimit_SharedStorage(t *testing.T) {
	st, _ := testutil.TestStore(t)
	limiterRedis := miniredis.RunT(t)

	cfg := testConfig()
	cfg.RateLimitMax = 1
	cfg.RateLimitRedisURL = "redis://" + limiterRedis.Addr()
	s := New(cfg)
	s.RegisterRoutes(st)
	t.Cleanup(func() { s.Shutdown() })

	if status, _ := do(t, s, "GET", "/livez", ""); status != http.StatusOK {
		t.Fatalf("first request: expected 200, got %d", status)
	}
	if status, _ := do(t, s, "GET", "/livez", ""); status != http.StatusTooManyRequests {
		t.Errorf("second request: expected 429, got %d", status)
	}
	if len(limiterRedis.Keys()) == 0 {
		t.Error("limiter state was not written to the shared storage")
	}
}
