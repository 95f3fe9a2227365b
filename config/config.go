// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gabrielgadea/kazuba-saas-api/domain/tier"
)

// Config is the root configuration structure.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Redis   RedisConfig   `yaml:"redis"`
	Quota   QuotaConfig   `yaml:"quota"`
	Tiers   []TierConfig  `yaml:"tiers"`
	Convert ConvertConfig `yaml:"convert"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// RedisConfig configures the shared counter store.
type RedisConfig struct {
	URL     string        `yaml:"url"`     // redis://host:port/db
	Timeout time.Duration `yaml:"timeout"` // per-operation bound
}

// QuotaConfig configures quota enforcement behavior.
type QuotaConfig struct {
	// Fallback is the store-failure policy: "open" admits uncounted,
	// "closed" rejects with a retryable degraded response.
	Fallback string `yaml:"fallback"`
}

// TierConfig overrides the quota limits for one tier.
type TierConfig struct {
	ID             string `yaml:"id"`
	RequestsPerDay int64  `yaml:"requests_per_day"`
	DocsPerMonth   int64  `yaml:"docs_per_month"`
}

// ConvertConfig configures the document converter boundary.
type ConvertConfig struct {
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"` // default: /metrics
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadFromEnv creates configuration entirely from environment variables.
// Useful for Docker deployments where no config file is mounted.
//
// Environment variables:
//
//	KAZUBA_SERVER_HOST     - Server host (default: 0.0.0.0)
//	KAZUBA_SERVER_PORT     - Server port (default: 8080)
//	KAZUBA_REDIS_URL       - Redis URL (default: redis://localhost:6379/0)
//	KAZUBA_REDIS_TIMEOUT   - Per-operation store timeout (default: 500ms)
//	KAZUBA_QUOTA_FALLBACK  - Store-failure policy: open or closed (default: open)
//	KAZUBA_LOG_LEVEL       - Log level: debug, info, warn, error (default: info)
//	KAZUBA_LOG_FORMAT      - Log format: json or console (default: json)
//	KAZUBA_METRICS_ENABLED - Enable /metrics endpoint (default: true)
func LoadFromEnv() (*Config, error) {
	var cfg Config

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadWithFallback tries to load from file, falls back to environment
// variables. This is the recommended entry point for deployments.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return LoadFromEnv()
}

// Policy builds the tier policy table: the built-in defaults overridden
// by any configured tiers.
func (c *Config) Policy() (tier.Policy, error) {
	limits := map[tier.Tier]tier.Limits{
		tier.Free:  {RequestsPerDay: 50, DocsPerMonth: 100},
		tier.Hobby: {RequestsPerDay: 500, DocsPerMonth: 5000},
		tier.Pro:   {RequestsPerDay: 5000, DocsPerMonth: 50000},
	}

	for _, tc := range c.Tiers {
		t, ok := tier.Parse(tc.ID)
		if !ok {
			return tier.Policy{}, fmt.Errorf("unknown tier %q in config", tc.ID)
		}
		l := limits[t]
		if tc.RequestsPerDay > 0 {
			l.RequestsPerDay = tc.RequestsPerDay
		}
		if tc.DocsPerMonth > 0 {
			l.DocsPerMonth = tc.DocsPerMonth
		}
		limits[t] = l
	}

	p := tier.NewPolicy(limits)
	if err := p.Validate(); err != nil {
		return tier.Policy{}, err
	}
	return p, nil
}

// applyEnvOverrides applies KAZUBA_* environment variables to the config.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("KAZUBA_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("KAZUBA_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("KAZUBA_SERVER_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if v := os.Getenv("KAZUBA_SERVER_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}

	if v := os.Getenv("KAZUBA_REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("KAZUBA_REDIS_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Redis.Timeout = d
		}
	}

	if v := os.Getenv("KAZUBA_QUOTA_FALLBACK"); v != "" {
		cfg.Quota.Fallback = v
	}

	if v := os.Getenv("KAZUBA_CONVERT_MAX_UPLOAD_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Convert.MaxUploadBytes = n
		}
	}

	if v := os.Getenv("KAZUBA_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("KAZUBA_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	if v := os.Getenv("KAZUBA_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv("KAZUBA_METRICS_PATH"); v != "" {
		cfg.Metrics.Path = v
	}
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}

	if cfg.Redis.URL == "" {
		cfg.Redis.URL = "redis://localhost:6379/0"
	}
	if cfg.Redis.Timeout == 0 {
		cfg.Redis.Timeout = 500 * time.Millisecond
	}

	if cfg.Quota.Fallback == "" {
		cfg.Quota.Fallback = "open"
	}

	if cfg.Convert.MaxUploadBytes == 0 {
		cfg.Convert.MaxUploadBytes = 10 << 20 // 10MB
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if !cfg.Metrics.Enabled && os.Getenv("KAZUBA_METRICS_ENABLED") == "" {
		cfg.Metrics.Enabled = true
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

func validate(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", cfg.Server.Port)
	}

	switch cfg.Quota.Fallback {
	case "open", "closed":
	default:
		return fmt.Errorf("quota fallback must be \"open\" or \"closed\", got %q", cfg.Quota.Fallback)
	}

	switch cfg.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log format must be \"json\" or \"console\", got %q", cfg.Logging.Format)
	}

	if cfg.Convert.MaxUploadBytes < 0 {
		return fmt.Errorf("max upload bytes must be positive")
	}

	if _, err := cfg.Policy(); err != nil {
		return err
	}

	return nil
}
