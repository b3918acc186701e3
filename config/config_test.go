package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Backend != BackendMemory || cfg.SlotKey != "ActiveAppeals" || !cfg.IgnoreMissing {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.SlotTTL != 0 {
		t.Fatalf("expected no retention by default, got %s", cfg.SlotTTL)
	}
	if cfg.ListOrder != "latest_first" {
		t.Fatalf("expected latest_first by default, got %q", cfg.ListOrder)
	}
}

func TestLoad_RejectsUnknownListOrderFromEnv(t *testing.T) {
	t.Setenv("APPEALS_LIST_ORDER", "alphabetical")

	if _, err := Load(""); err == nil {
		t.Fatal("expected load to fail on an unknown list order")
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "appeals.yaml")
	body := []byte("backend: redis\nredis_addr: localhost:6379\nslot_ttl: 2h\nlist_order: nearest_first\nignore_missing: false\n")
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("APPEALS_SLOT_KEY", "TenantAppeals")
	t.Setenv("APPEALS_REDIS_ADDR", "redis:6380")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Backend != BackendRedis {
		t.Fatalf("expected redis backend from file, got %q", cfg.Backend)
	}
	if cfg.RedisAddr != "redis:6380" {
		t.Fatalf("expected env to override file, got %q", cfg.RedisAddr)
	}
	if cfg.SlotKey != "TenantAppeals" {
		t.Fatalf("expected slot key from env, got %q", cfg.SlotKey)
	}
	if cfg.SlotTTL != 2*time.Hour {
		t.Fatalf("expected 2h ttl, got %s", cfg.SlotTTL)
	}
	if cfg.IgnoreMissing {
		t.Fatal("expected ignore_missing=false from file")
	}
	if cfg.ListOrder != "nearest_first" {
		t.Fatalf("expected list order from file, got %q", cfg.ListOrder)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("expected default addr to survive, got %q", cfg.HTTPAddr)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		mod  func(*Config)
	}{
		{name: "unknown backend", mod: func(c *Config) { c.Backend = "sqlite" }},
		{name: "redis without addr", mod: func(c *Config) { c.Backend = BackendRedis }},
		{name: "postgres without dsn", mod: func(c *Config) { c.Backend = BackendPostgres }},
		{name: "negative ttl", mod: func(c *Config) { c.SlotTTL = -time.Second }},
		{name: "bad time zone", mod: func(c *Config) { c.TimeZone = "Mars/Olympus" }},
		{name: "unknown list order", mod: func(c *Config) { c.ListOrder = "sideways" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mod(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
