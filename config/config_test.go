package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.PageSize != 18 {
		t.Errorf("PageSize: got %d, want 18", cfg.PageSize)
	}
	if cfg.MaxConcurrency != 1 {
		t.Errorf("MaxConcurrency: got %d, want 1", cfg.MaxConcurrency)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("TIME_LIMIT_MIN", "1.5")
	t.Setenv("MAX_CONCURRENCY", "9")
	t.Setenv("NAV_TIMEOUT", "12")
	t.Setenv("ITEM_TIMEOUT", "2m")
	t.Setenv("HOST_ENRICHMENT", "false")
	t.Setenv("CHECKPOINT_BACKEND", "Redis")

	cfg := Load()
	if cfg.TimeLimit() != 90*time.Second {
		t.Errorf("TimeLimit: got %v, want 1m30s", cfg.TimeLimit())
	}
	if cfg.MaxConcurrency != 4 {
		t.Errorf("MaxConcurrency should clamp to 4, got %d", cfg.MaxConcurrency)
	}
	if cfg.NavTimeout != 12*time.Second {
		t.Errorf("NavTimeout: got %v, want 12s", cfg.NavTimeout)
	}
	if cfg.ItemTimeout != 2*time.Minute {
		t.Errorf("ItemTimeout: got %v, want 2m", cfg.ItemTimeout)
	}
	if cfg.HostEnrichment {
		t.Error("HostEnrichment should be false")
	}
	if cfg.CheckpointBackend != "redis" {
		t.Errorf("CheckpointBackend: got %q, want redis", cfg.CheckpointBackend)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"relative origin", func(c *Config) { c.SiteOrigin = "/rooms" }, false},
		{"empty search", func(c *Config) { c.SearchURL = " " }, false},
		{"zero page size", func(c *Config) { c.PageSize = 0 }, false},
		{"negative quota", func(c *Config) { c.MaxNewListings = -1 }, false},
		{"zero time limit", func(c *Config) { c.TimeLimitMinutes = 0 }, true},
		{"bad backend", func(c *Config) { c.CheckpointBackend = "s3" }, false},
	}

	for _, tt := range tests {
		cfg := Load()
		tt.mutate(cfg)
		err := cfg.Validate()
		if (err == nil) != tt.ok {
			t.Errorf("%s: Validate() = %v; want ok=%v", tt.name, err, tt.ok)
		}
	}
}
