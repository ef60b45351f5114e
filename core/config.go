package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-config/cfgx"
	opts "github.com/goliatone/go-options"
)

const DefaultExpirySeconds = 600

type Config struct {
	ServiceName   string `koanf:"service_name" mapstructure:"service_name"`
	ExpirySeconds int    `koanf:"expiry_seconds" mapstructure:"expiry_seconds"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName:   "integrations",
		ExpirySeconds: DefaultExpirySeconds,
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.ExpirySeconds <= 0 {
		return fmt.Errorf("core: expiry_seconds must be positive, got %d", c.ExpirySeconds)
	}
	return nil
}

// TTL is the lifetime applied to states, verifiers and credentials.
func (c Config) TTL() time.Duration {
	if c.ExpirySeconds <= 0 {
		return DefaultExpirySeconds * time.Second
	}
	return time.Duration(c.ExpirySeconds) * time.Second
}

// RawConfigLoader supplies the service section as a raw map keyed by the
// mapstructure tags of Config.
type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

// RawConfigFunc adapts a function to RawConfigLoader.
type RawConfigFunc func(ctx context.Context) (map[string]any, error)

func (f RawConfigFunc) LoadRaw(ctx context.Context) (map[string]any, error) {
	return f(ctx)
}

// ResolveConfig layers defaults < loaded < runtime, where loaded comes from
// loader and runtime is the Config passed to NewService. Zero runtime fields
// do not override.
func ResolveConfig(ctx context.Context, loader RawConfigLoader, runtime Config) (Config, error) {
	defaults := DefaultConfig()
	loaded := Config{}
	if loader != nil {
		raw, err := loader.LoadRaw(ctx)
		if err != nil {
			return Config{}, fmt.Errorf("core: load config: %w", err)
		}
		if loaded, err = buildConfig(raw, defaults); err != nil {
			return Config{}, err
		}
	}

	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			configLayer(defaults),
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("loaded", 10),
			configLayer(loaded),
			opts.WithSnapshotID[map[string]any]("loaded"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			configLayer(runtime),
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: config layers: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: merge config layers: %w", err)
	}
	return buildConfig(merged.Value, defaults)
}

func buildConfig(raw map[string]any, defaults Config) (Config, error) {
	return cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
}

// configLayer keeps only set fields so an empty layer never masks a lower
// one.
func configLayer(cfg Config) map[string]any {
	layer := map[string]any{}
	if name := strings.TrimSpace(cfg.ServiceName); name != "" {
		layer["service_name"] = name
	}
	if cfg.ExpirySeconds != 0 {
		layer["expiry_seconds"] = cfg.ExpirySeconds
	}
	return layer
}
