package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"metricbridge/internal/retry"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Environment
	Env string // "development", "production", etc.

	// Server
	ServerAddr     string
	CORSOrigins    string // Comma-separated allowed origins, "*" for any
	RequestTimeout time.Duration

	// Store
	RedisAddrs    []string
	RedisCluster  bool // Force cluster topology even with a single seed address
	RedisPassword string
	RedisDB       int

	// Startup connection policy
	StartupRetry retry.Policy

	// Scanning bounds
	ScanBatchSize     int64 // SCAN COUNT hint per round trip
	ScanMaxIterations int   // Cursor round trips per scan, per node
	SearchMaxResults  int
	StatsSampleSize   int

	// Explanation cache
	ExplanationTTL time.Duration

	// TLS/mTLS
	TLSEnabled  bool
	TLSCertFile string
	TLSKeyFile  string
	TLSCAFile   string // CA for verifying client certs (mTLS)

	// Rate limiting
	RateLimitMax      int
	RateLimitRedisURL string // Optional shared limiter storage, separate from the metric keyspace

	// Observability
	MetricsPath     string
	MonitorInterval time.Duration
}

// Load reads configuration from environment variables with sensible defaults,
// then applies the optional YAML overlay named by CONFIG_FILE.
func Load() (*Config, error) {
	cfg := &Config{
		Env:            getEnv("ENV", "development"),
		ServerAddr:     getEnv("SERVER_ADDR", ":8080"),
		CORSOrigins:    getEnv("CORS_ORIGINS", "*"),
		RequestTimeout: getDuration("REQUEST_TIMEOUT", 10*time.Second),

		RedisAddrs:    splitList(getEnv("REDIS_ADDRS", "localhost:6379")),
		RedisCluster:  getEnv("REDIS_CLUSTER", "") != "",
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getInt("REDIS_DB", 0),

		StartupRetry: retry.Policy{
			MaxAttempts: getInt("STARTUP_RETRY_ATTEMPTS", 30),
			Delay:       getDuration("STARTUP_RETRY_DELAY", 5*time.Second),
			Multiplier:  getFloat("STARTUP_RETRY_MULTIPLIER", 1.0),
			MaxDelay:    getDuration("STARTUP_RETRY_MAX_DELAY", 30*time.Second),
		},

		ScanBatchSize:     int64(getPositiveInt("SCAN_BATCH_SIZE", 100)),
		ScanMaxIterations: getPositiveInt("SCAN_MAX_ITERATIONS", 10000),
		SearchMaxResults:  getPositiveInt("SEARCH_MAX_RESULTS", 1000),
		StatsSampleSize:   getPositiveInt("STATS_SAMPLE_SIZE", 1000),

		ExplanationTTL: getDuration("EXPLANATION_TTL", 30*24*time.Hour),

		TLSEnabled:  getEnv("TLS_ENABLED", "") != "",
		TLSCertFile: getEnv("TLS_CERT_FILE", ""),
		TLSKeyFile:  getEnv("TLS_KEY_FILE", ""),
		TLSCAFile:   getEnv("TLS_CA_FILE", ""),

		RateLimitMax:      getInt("RATE_LIMIT_MAX", 100),
		RateLimitRedisURL: getEnv("RATE_LIMIT_REDIS_URL", ""),

		MetricsPath:     getEnv("METRICS_PATH", "/internal/metrics"),
		MonitorInterval: getDuration("MONITOR_INTERVAL", 30*time.Second),
	}

	overlay, err := LoadYAMLConfig()
	if err != nil {
		return nil, err
	}
	overlay.Apply(cfg)

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		slog.Warn("invalid integer in environment, using default", "key", key, "value", raw, "default", fallback)
		return fallback
	}
	return v
}

// getPositiveInt is getInt for bounds that must be at least 1.
func getPositiveInt(key string, fallback int) int {
	v := getInt(key, fallback)
	if v <= 0 {
		slog.Warn("non-positive value in environment, using default", "key", key, "value", v, "default", fallback)
		return fallback
	}
	return v
}

func getFloat(key string, fallback float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		slog.Warn("invalid number in environment, using default", "key", key, "value", raw, "default", fallback)
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		slog.Warn("invalid duration in environment, using default", "key", key, "value", raw, "default", fallback)
		return fallback
	}
	return v
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// IsDev returns true if the environment is set to development.
func (c *Config) IsDev() bool {
	return c.Env == "development" || c.Env == "dev"
}

// IsCluster reports whether the store should be reached through the cluster
// protocol: forced by REDIS_CLUSTER or implied by several seed addresses.
func (c *Config) IsCluster() bool {
	return c.RedisCluster || len(c.RedisAddrs) > 1
}

// IsMTLSEnabled returns true if mTLS is configured with a CA file.
func (c *Config) IsMTLSEnabled() bool {
	return c.TLSEnabled && c.TLSCAFile != ""
}
