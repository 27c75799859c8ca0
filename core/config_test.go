package core

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig_Values(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.TTLDays != 30 {
		t.Fatalf("expected default ttl of 30 days, got %d", cfg.TTLDays)
	}
	if cfg.MinRemainingThreshold != 100 {
		t.Fatalf("expected default quota threshold of 100, got %d", cfg.MinRemainingThreshold)
	}
	if cfg.HTTP.TimeoutMS != 30000 {
		t.Fatalf("expected default timeout of 30000ms, got %d", cfg.HTTP.TimeoutMS)
	}
	if cfg.HTTP.Retries != 0 {
		t.Fatalf("expected default retries of 0, got %d", cfg.HTTP.Retries)
	}
	if cfg.HTTP.Timeout() != 30*time.Second {
		t.Fatalf("expected timeout duration of 30s, got %s", cfg.HTTP.Timeout())
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestConfig_ValidateRejectsEachBound(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero ttl", func(c *Config) { c.TTLDays = 0 }, "ttl_days"},
		{"negative ttl", func(c *Config) { c.TTLDays = -3 }, "ttl_days"},
		{"negative threshold", func(c *Config) { c.MinRemainingThreshold = -1 }, "min_remaining_threshold"},
		{"blank login info url", func(c *Config) { c.LoginInfoURL = "  " }, "login_info_url"},
		{"zero timeout", func(c *Config) { c.HTTP.TimeoutMS = 0 }, "timeout_ms"},
		{"negative timeout", func(c *Config) { c.HTTP.TimeoutMS = -5 }, "timeout_ms"},
		{"negative retries", func(c *Config) { c.HTTP.Retries = -1 }, "retries"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error naming %q, got %v", tc.want, err)
			}
		})
	}
}

func TestConfig_ZeroThresholdIsValid(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinRemainingThreshold = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("threshold of zero should validate: %v", err)
	}
}

func TestResolveConfig_LayerPrecedence(t *testing.T) {
	defaults := DefaultConfig()
	environment := Config{
		TTLDays: 7,
		HTTP:    HTTPConfig{Retries: 2},
	}
	runtime := Config{
		TTLDays: 14,
	}

	resolved, err := ResolveConfig(defaults, environment, runtime)
	if err != nil {
		t.Fatalf("resolve config: %v", err)
	}
	if resolved.TTLDays != 14 {
		t.Fatalf("runtime layer should win for ttl, got %d", resolved.TTLDays)
	}
	if resolved.HTTP.Retries != 2 {
		t.Fatalf("environment layer should fill retries, got %d", resolved.HTTP.Retries)
	}
	if resolved.HTTP.TimeoutMS != 30000 {
		t.Fatalf("defaults should fill timeout, got %d", resolved.HTTP.TimeoutMS)
	}
	if resolved.MinRemainingThreshold != 100 {
		t.Fatalf("defaults should fill threshold, got %d", resolved.MinRemainingThreshold)
	}
	if resolved.LoginInfoURL != DefaultLoginInfoURL {
		t.Fatalf("defaults should fill login info url, got %q", resolved.LoginInfoURL)
	}
}

func TestResolveConfig_RejectsInvalidMerge(t *testing.T) {
	defaults := DefaultConfig()
	runtime := Config{TTLDays: -1}

	if _, err := ResolveConfig(defaults, Config{}, runtime); err == nil {
		// TTLDays=-1 is not a zero value, so the runtime layer carries it
		// into the merge where validation must reject it.
		t.Fatalf("expected validation failure for negative ttl")
	}
}
