package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// YAMLConfig represents the structure of the config.yaml file.
// Cluster topologies with many seed nodes are easier to manage in YAML than env vars.
type YAMLConfig struct {
	Redis        RedisConfig        `yaml:"redis"`
	StartupRetry StartupRetryConfig `yaml:"startup_retry"`
}

// RedisConfig defines the store topology in the YAML config.
type RedisConfig struct {
	Addrs    []string `yaml:"addrs"`
	Cluster  *bool    `yaml:"cluster,omitempty"`
	Password string   `yaml:"password,omitempty"`
}

// StartupRetryConfig defines the connection backoff applied at process start.
type StartupRetryConfig struct {
	Attempts   int     `yaml:"attempts,omitempty"`
	Delay      string  `yaml:"delay,omitempty"`     // Go duration, e.g. "5s"
	Multiplier float64 `yaml:"multiplier,omitempty"`
	MaxDelay   string  `yaml:"max_delay,omitempty"` // Go duration
}

// LoadYAMLConfig loads the YAML configuration file.
// Path is determined by CONFIG_FILE env var, defaulting to "config.yaml".
// Returns nil without error if the config file doesn't exist.
func LoadYAMLConfig() (*YAMLConfig, error) {
	path := getEnv("CONFIG_FILE", "config.yaml")

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Config file is optional
			return nil, nil
		}
		return nil, err
	}

	return ParseYAMLConfig(data)
}

// ParseYAMLConfig decodes and validates a YAML overlay.
func ParseYAMLConfig(data []byte) (*YAMLConfig, error) {
	var cfg YAMLConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	for name, raw := range map[string]string{"delay": cfg.StartupRetry.Delay, "max_delay": cfg.StartupRetry.MaxDelay} {
		if raw == "" {
			continue
		}
		if _, err := time.ParseDuration(raw); err != nil {
			return nil, fmt.Errorf("startup_retry.%s: %w", name, err)
		}
	}

	return &cfg, nil
}

// Apply overrides cfg with every value set in the overlay. A nil overlay is a no-op.
func (y *YAMLConfig) Apply(cfg *Config) {
	if y == nil {
		return
	}

	if len(y.Redis.Addrs) > 0 {
		cfg.RedisAddrs = y.Redis.Addrs
	}
	if y.Redis.Cluster != nil {
		cfg.RedisCluster = *y.Redis.Cluster
	}
	if y.Redis.Password != "" {
		cfg.RedisPassword = y.Redis.Password
	}

	r := y.StartupRetry
	if r.Attempts > 0 {
		cfg.StartupRetry.MaxAttempts = r.Attempts
	}
	if d, err := time.ParseDuration(r.Delay); err == nil {
		cfg.StartupRetry.Delay = d
	}
	if r.Multiplier > 0 {
		cfg.StartupRetry.Multiplier = r.Multiplier
	}
	if d, err := time.ParseDuration(r.MaxDelay); err == nil {
		cfg.StartupRetry.MaxDelay = d
	}
}
