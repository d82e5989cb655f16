package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.ServerAddr != ":8080" {
		t.Errorf("ServerAddr = %q, want :8080", cfg.ServerAddr)
	}
	if len(cfg.RedisAddrs) != 1 || cfg.RedisAddrs[0] != "localhost:6379" {
		t.Errorf("RedisAddrs = %v", cfg.RedisAddrs)
	}
	if cfg.IsCluster() {
		t.Error("single default address should not select cluster mode")
	}
	if cfg.StartupRetry.MaxAttempts != 30 || cfg.StartupRetry.Delay != 5*time.Second {
		t.Errorf("StartupRetry = %+v, want 30 attempts / 5s", cfg.StartupRetry)
	}
	if cfg.ExplanationTTL != 30*24*time.Hour {
		t.Errorf("ExplanationTTL = %v, want 720h", cfg.ExplanationTTL)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("REDIS_ADDRS", "node-1:6379, node-2:6379 ,node-3:6379")
	t.Setenv("STARTUP_RETRY_ATTEMPTS", "5")
	t.Setenv("STARTUP_RETRY_DELAY", "250ms")
	t.Setenv("SEARCH_MAX_RESULTS", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(cfg.RedisAddrs) != 3 || cfg.RedisAddrs[1] != "node-2:6379" {
		t.Errorf("RedisAddrs = %v", cfg.RedisAddrs)
	}
	if !cfg.IsCluster() {
		t.Error("several addresses should select cluster mode")
	}
	if cfg.StartupRetry.MaxAttempts != 5 || cfg.StartupRetry.Delay != 250*time.Millisecond {
		t.Errorf("StartupRetry = %+v", cfg.StartupRetry)
	}
	if cfg.SearchMaxResults != 1000 {
		t.Errorf("invalid SEARCH_MAX_RESULTS should fall back to 1000, got %d", cfg.SearchMaxResults)
	}
}

func TestLoad_NonPositiveBoundsFallBack(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("SEARCH_MAX_RESULTS", "0")
	t.Setenv("STATS_SAMPLE_SIZE", "-5")
	t.Setenv("SCAN_BATCH_SIZE", "0")
	t.Setenv("SCAN_MAX_ITERATIONS", "-1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tests := []struct {
		name string
		got  int64
		want int64
	}{
		{"SearchMaxResults", int64(cfg.SearchMaxResults), 1000},
		{"StatsSampleSize", int64(cfg.StatsSampleSize), 1000},
		{"ScanBatchSize", cfg.ScanBatchSize, 100},
		{"ScanMaxIterations", int64(cfg.ScanMaxIterations), 10000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %d, want %d", tt.name, tt.got, tt.want)
			}
		})
	}
}

func TestLoad_YAMLOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
redis:
  addrs: ["redis-node-1:6379"]
  cluster: true
startup_retry:
  attempts: 12
  delay: 2s
  multiplier: 2
  max_delay: 20s
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if !cfg.IsCluster() {
		t.Error("cluster: true should select cluster mode")
	}
	if cfg.RedisAddrs[0] != "redis-node-1:6379" {
		t.Errorf("RedisAddrs = %v", cfg.RedisAddrs)
	}
	want := cfg.StartupRetry
	if want.MaxAttempts != 12 || want.Delay != 2*time.Second || want.Multiplier != 2 || want.MaxDelay != 20*time.Second {
		t.Errorf("StartupRetry = %+v", want)
	}
}

func TestParseYAMLConfig_InvalidDuration(t *testing.T) {
	if _, err := ParseYAMLConfig([]byte("startup_retry:\n  delay: soon\n")); err == nil {
		t.Error("expected error for invalid delay")
	}
}

func TestYAMLConfig_ApplyNil(t *testing.T) {
	cfg := &Config{ServerAddr: ":1"}
	var overlay *YAMLConfig
	overlay.Apply(cfg)
	if cfg.ServerAddr != ":1" {
		t.Error("nil overlay modified config")
	}
}
