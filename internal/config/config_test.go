package config

import (
	"testing"
	"time"
)

func TestParseMethods(t *testing.T) {
	m := parseMethods("get, POST ,,head")
	for _, want := range []string{"GET", "POST", "HEAD"} {
		if !m[want] {
			t.Fatalf("missing %s in %v", want, m)
		}
	}
	if len(m) != 3 {
		t.Fatalf("got %v, want 3 methods", m)
	}
}

func TestParseDurFallback(t *testing.T) {
	if d := parseDur("250ms"); d != 250*time.Millisecond {
		t.Fatalf("parseDur(250ms) = %v", d)
	}
	if d := parseDur("garbage"); d != time.Second {
		t.Fatalf("parseDur(garbage) = %v, want 1s fallback", d)
	}
}

func TestLoadCacheConfigDefaults(t *testing.T) {
	cfg := LoadCacheConfig()
	if !cfg.Enabled {
		t.Fatal("cache disabled by default")
	}
	if cfg.TTL != 5*time.Second {
		t.Fatalf("TTL = %v, want 5s", cfg.TTL)
	}
	if !cfg.Methods["GET"] {
		t.Fatalf("GET not cached by default: %v", cfg.Methods)
	}
}

func TestLoadRateLimitConfigNormalization(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_TOKENS", "-3")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "-1s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	cfg := LoadRateLimitConfig()
	if cfg.Capacity != 1 {
		t.Fatalf("Capacity = %d, want 1", cfg.Capacity)
	}
	if cfg.RefillTokens != 1 {
		t.Fatalf("RefillTokens = %d, want 1", cfg.RefillTokens)
	}
	if cfg.RefillInterval != time.Second {
		t.Fatalf("RefillInterval = %v, want 1s", cfg.RefillInterval)
	}
	if cfg.TTL != 5*time.Second {
		t.Fatalf("TTL = %v, want 5s (5x refill interval)", cfg.TTL)
	}
}

func TestLoadRateLimitConfigBurstAlias(t *testing.T) {
	t.Setenv("RATE_LIMIT_BURST", "10")
	t.Setenv("RATE_LIMIT_REFILL_EVERY", "2s")

	cfg := LoadRateLimitConfig()
	if cfg.Capacity != 10 {
		t.Fatalf("Capacity = %d, want 10", cfg.Capacity)
	}
	if cfg.RefillTokens != 1 || cfg.RefillInterval != 2*time.Second {
		t.Fatalf("refill = %d per %v, want 1 per 2s", cfg.RefillTokens, cfg.RefillInterval)
	}
}
