package config

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Hermes   HermesConfig   `yaml:"hermes"`
	Scoring  ScoringConfig  `yaml:"scoring"`
	Export   ExportConfig   `yaml:"export"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Port         int    `yaml:"port"`
	MetricsPort  int    `yaml:"metrics_port"`
	AdminToken   string `yaml:"admin_token"`
	RateLimitRPM int    `yaml:"rate_limit_rpm"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type HermesConfig struct {
	URL             string `yaml:"url"`
	ClientName      string `yaml:"client_name"`
	Stream          string `yaml:"stream"`
	StreamMaxAgeH   int    `yaml:"stream_max_age_hours"`
	MaxReconnects   int    `yaml:"max_reconnects"`
	ReconnectWaitMs int    `yaml:"reconnect_wait_ms"`
}

func (h HermesConfig) StreamMaxAge() time.Duration {
	return time.Duration(h.StreamMaxAgeH) * time.Hour
}

func (h HermesConfig) ReconnectWait() time.Duration {
	return time.Duration(h.ReconnectWaitMs) * time.Millisecond
}

type ScoringConfig struct {
	InstitutionalWeights InstitutionalWeights `yaml:"institutional_weights"`
	WeightTolerance      float64              `yaml:"weight_tolerance"`
	RescoreEnabled       bool                 `yaml:"rescore_enabled"`
	RescoreIntervalMs    int                  `yaml:"rescore_interval_ms"`
}

type InstitutionalWeights struct {
	Depreciation   float64 `yaml:"depreciation"`
	Component      float64 `yaml:"component"`
	Serviceability float64 `yaml:"serviceability"`
}

type ExportConfig struct {
	Title string `yaml:"title"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func (c *Config) RescoreInterval() time.Duration {
	return time.Duration(c.Scoring.RescoreIntervalMs) * time.Millisecond
}

// SlogLevel maps logging.level to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.Logging.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func Load(path string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:         8700,
			MetricsPort:  8701,
			RateLimitRPM: 120,
		},
		Hermes: HermesConfig{
			URL:             "nats://localhost:4222",
			ClientName:      "prioritize",
			Stream:          "PRIORITIZATION_EVENTS",
			StreamMaxAgeH:   720,
			MaxReconnects:   60,
			ReconnectWaitMs: 2000,
		},
		Scoring: ScoringConfig{
			InstitutionalWeights: InstitutionalWeights{
				Depreciation:   5,
				Component:      10,
				Serviceability: 20,
			},
			WeightTolerance:   0.001,
			RescoreEnabled:    true,
			RescoreIntervalMs: 10000,
		},
		Export: ExportConfig{
			Title: "Project Prioritization Ranking",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	w := c.Scoring.InstitutionalWeights
	for name, v := range map[string]float64{
		"depreciation":   w.Depreciation,
		"component":      w.Component,
		"serviceability": w.Serviceability,
	} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("scoring.institutional_weights.%s must be finite and not negative: %f", name, v)
		}
	}
	if c.Scoring.WeightTolerance <= 0 {
		return fmt.Errorf("scoring.weight_tolerance must be positive: %f", c.Scoring.WeightTolerance)
	}
	if c.Server.RateLimitRPM <= 0 {
		return fmt.Errorf("server.rate_limit_rpm must be positive: %d", c.Server.RateLimitRPM)
	}
	if c.Scoring.RescoreEnabled && c.Scoring.RescoreIntervalMs <= 0 {
		return fmt.Errorf("scoring.rescore_interval_ms must be positive: %d", c.Scoring.RescoreIntervalMs)
	}
	if c.Hermes.URL != "" {
		if c.Hermes.Stream == "" {
			return fmt.Errorf("hermes.stream is required when hermes.url is set")
		}
		if c.Hermes.StreamMaxAgeH <= 0 {
			return fmt.Errorf("hermes.stream_max_age_hours must be positive: %d", c.Hermes.StreamMaxAgeH)
		}
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PRIORITIZE_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	}
	if v := os.Getenv("PRIORITIZE_METRICS_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.MetricsPort = n
		}
	}
	if v := os.Getenv("PRIORITIZE_ADMIN_TOKEN"); v != "" {
		cfg.Server.AdminToken = v
	}
	if v := os.Getenv("PRIORITIZE_DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("PRIORITIZE_HERMES_URL"); v != "" {
		cfg.Hermes.URL = v
	}
	if v := os.Getenv("PRIORITIZE_HERMES_STREAM"); v != "" {
		cfg.Hermes.Stream = v
	}
	if v := os.Getenv("PRIORITIZE_RESCORE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Scoring.RescoreEnabled = b
		}
	}
	if v := os.Getenv("PRIORITIZE_RESCORE_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Scoring.RescoreIntervalMs = n
		}
	}
	if v := os.Getenv("PRIORITIZE_WEIGHT_TOLERANCE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Scoring.WeightTolerance = f
		}
	}
	if v := os.Getenv("PRIORITIZE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}
