package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	DefaultTimeoutMS             = 30000
	DefaultRetries               = 0
	DefaultMinRemainingThreshold = 100
	DefaultSessionTTLDays        = 30
	DefaultLoginInfoURL          = "https://rest.bullhornstaffing.com/rest-services/loginInfo"
	DefaultUserAgent             = "go-bullhorn-auth"
)

// HTTPConfig governs every transport call made during one acquisition.
type HTTPConfig struct {
	TimeoutMS int    `koanf:"timeout_ms" mapstructure:"timeout_ms"`
	Retries   int    `koanf:"retries" mapstructure:"retries"`
	UserAgent string `koanf:"user_agent" mapstructure:"user_agent"`
}

func (c HTTPConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// Config controls freshness policy, requested session lifetime, and the
// transport policy for one acquisition attempt. Immutable once resolved;
// validated before any network activity.
type Config struct {
	TTLDays               int        `koanf:"ttl_days" mapstructure:"ttl_days"`
	MinRemainingThreshold int        `koanf:"min_remaining_threshold" mapstructure:"min_remaining_threshold"`
	LoginInfoURL          string     `koanf:"login_info_url" mapstructure:"login_info_url"`
	HTTP                  HTTPConfig `koanf:"http" mapstructure:"http"`
}

func DefaultConfig() Config {
	return Config{
		TTLDays:               DefaultSessionTTLDays,
		MinRemainingThreshold: DefaultMinRemainingThreshold,
		LoginInfoURL:          DefaultLoginInfoURL,
		HTTP: HTTPConfig{
			TimeoutMS: DefaultTimeoutMS,
			Retries:   DefaultRetries,
			UserAgent: DefaultUserAgent,
		},
	}
}

func (c Config) Validate() error {
	if c.TTLDays <= 0 {
		return fmt.Errorf("core: ttl_days must be positive, got %d", c.TTLDays)
	}
	if c.MinRemainingThreshold < 0 {
		return fmt.Errorf("core: min_remaining_threshold must not be negative, got %d", c.MinRemainingThreshold)
	}
	if strings.TrimSpace(c.LoginInfoURL) == "" {
		return fmt.Errorf("core: login_info_url is required")
	}
	if c.HTTP.TimeoutMS <= 0 {
		return fmt.Errorf("core: http timeout_ms must be positive, got %d", c.HTTP.TimeoutMS)
	}
	if c.HTTP.Retries < 0 {
		return fmt.Errorf("core: http retries must not be negative, got %d", c.HTTP.Retries)
	}
	return nil
}
