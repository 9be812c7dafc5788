package config

import (
	"testing"
	"time"
)

func TestLoadRateLimitConfigDefaults(t *testing.T) {
	cfg := LoadRateLimitConfig()
	if !cfg.Enabled {
		t.Error("expected limiter enabled by default")
	}
	if cfg.Capacity != 60 {
		t.Errorf("capacity = %d, want 60", cfg.Capacity)
	}
	if cfg.RefillInterval != time.Second {
		t.Errorf("refill interval = %v, want 1s", cfg.RefillInterval)
	}
}

func TestLoadRateLimitConfigFloors(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_TOKENS", "-3")
	t.Setenv("RATE_LIMIT_TTL", "1s")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")

	cfg := LoadRateLimitConfig()
	if cfg.Capacity != 1 {
		t.Errorf("capacity floor = %d, want 1", cfg.Capacity)
	}
	if cfg.RefillTokens != 1 {
		t.Errorf("refill tokens floor = %d, want 1", cfg.RefillTokens)
	}
	if cfg.TTL < 5*cfg.RefillInterval {
		t.Errorf("ttl %v below minimum %v", cfg.TTL, 5*cfg.RefillInterval)
	}
}

func TestParseMethods(t *testing.T) {
	m := parseMethods("get, Post ,")
	if !m["GET"] || !m["POST"] {
		t.Errorf("unexpected methods map: %v", m)
	}
	if len(m) != 2 {
		t.Errorf("expected 2 methods, got %v", m)
	}
}
