package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-config/cfgx"
	opts "github.com/goliatone/go-options"
)

// ConfigProvider loads a Config from an external source on top of defaults.
type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

// RawConfigLoader yields an untyped configuration map for cfgx to build from.
type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type staticRawConfigLoader struct {
	Values map[string]any
}

func (l staticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = staticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ResolveConfig merges three configuration layers with fixed precedence:
// hardcoded defaults, then environment-sourced values, then runtime values
// supplied by the caller. Unset (zero) fields in the environment and runtime
// layers never shadow lower layers. The merged result is validated before it
// is returned.
func ResolveConfig(defaults Config, environment Config, runtime Config) (Config, error) {
	defaultLayer := configToLayerMap(defaults, true)
	envLayer := configToLayerMap(environment, false)
	runtimeLayer := configToLayerMap(runtime, false)

	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			defaultLayer,
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("environment", 10),
			envLayer,
			opts.WithSnapshotID[map[string]any]("environment"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			runtimeLayer,
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	if includeZero || cfg.TTLDays != 0 {
		layer["ttl_days"] = cfg.TTLDays
	}
	if includeZero || cfg.MinRemainingThreshold != 0 {
		layer["min_remaining_threshold"] = cfg.MinRemainingThreshold
	}
	if includeZero || strings.TrimSpace(cfg.LoginInfoURL) != "" {
		layer["login_info_url"] = cfg.LoginInfoURL
	}

	http := map[string]any{}
	if includeZero || cfg.HTTP.TimeoutMS != 0 {
		http["timeout_ms"] = cfg.HTTP.TimeoutMS
	}
	if includeZero || cfg.HTTP.Retries != 0 {
		http["retries"] = cfg.HTTP.Retries
	}
	if includeZero || strings.TrimSpace(cfg.HTTP.UserAgent) != "" {
		http["user_agent"] = cfg.HTTP.UserAgent
	}
	if len(http) > 0 {
		layer["http"] = http
	}
	return layer
}
