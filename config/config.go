// Package config loads service settings from defaults, an optional YAML file
// and APPEALS_* environment variables, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"appealdesk/appeal"
)

const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

type Config struct {
	HTTPAddr        string        `yaml:"http_addr" env:"APPEALS_HTTP_ADDR"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"APPEALS_SHUTDOWN_TIMEOUT"`

	Backend       string `yaml:"backend" env:"APPEALS_BACKEND"`
	DatabaseURL   string `yaml:"database_url" env:"DATABASE_URL"`
	DBMaxConns    int32  `yaml:"db_max_conns" env:"APPEALS_DB_MAX_CONNS"`
	RedisAddr     string `yaml:"redis_addr" env:"APPEALS_REDIS_ADDR"`
	RedisPassword string `yaml:"redis_password" env:"APPEALS_REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redis_db" env:"APPEALS_REDIS_DB"`
	RedisPrefix   string `yaml:"redis_prefix" env:"APPEALS_REDIS_PREFIX"`

	// SlotKey names the cache slot holding the appeal collection.
	SlotKey string `yaml:"slot_key" env:"APPEALS_SLOT_KEY"`
	// SlotTTL expires the slot after the last write; zero keeps it forever.
	SlotTTL time.Duration `yaml:"slot_ttl" env:"APPEALS_SLOT_TTL"`

	IgnoreMissing bool   `yaml:"ignore_missing" env:"APPEALS_IGNORE_MISSING"`
	ListOrder     string `yaml:"list_order" env:"APPEALS_LIST_ORDER"`
	TimeZone      string `yaml:"time_zone" env:"APPEALS_TIME_ZONE"`

	LogLevel  string `yaml:"log_level" env:"APPEALS_LOG_LEVEL"`
	LogFormat string `yaml:"log_format" env:"APPEALS_LOG_FORMAT"`

	// RateLimit is requests per second per client; zero disables limiting.
	RateLimit float64 `yaml:"rate_limit" env:"APPEALS_RATE_LIMIT"`
	RateBurst int     `yaml:"rate_burst" env:"APPEALS_RATE_BURST"`
}

// Default returns the settings used when nothing overrides them.
func Default() Config {
	return Config{
		HTTPAddr:        ":8080",
		ShutdownTimeout: 10 * time.Second,
		Backend:         BackendMemory,
		SlotKey:         "ActiveAppeals",
		IgnoreMissing:   true,
		ListOrder:       "latest_first",
		TimeZone:        "UTC",
		LogLevel:        "info",
		LogFormat:       "json",
		RateBurst:       20,
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and the environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first inconsistent setting.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("config: redis backend requires APPEALS_REDIS_ADDR")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("config: postgres backend requires DATABASE_URL")
		}
	default:
		return fmt.Errorf("config: unknown backend %q", c.Backend)
	}

	if c.SlotTTL < 0 {
		return fmt.Errorf("config: slot ttl must not be negative")
	}
	if c.RateLimit < 0 || c.RateBurst < 0 {
		return fmt.Errorf("config: rate limit settings must not be negative")
	}
	if _, err := appeal.ParseListOrder(c.ListOrder); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves TimeZone for parsing form-style deadlines.
func (c Config) Location() (*time.Location, error) {
	if c.TimeZone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("config: time zone %q: %w", c.TimeZone, err)
	}
	return loc, nil
}
