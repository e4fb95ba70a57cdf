// Package config loads and validates the service configuration from a yaml
// file. Secrets (database URL, routing API key) stay in the environment and
// are resolved by the composition root.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ServerConfig contains the HTTP listener configuration.
type ServerConfig struct {
	Port int `yaml:"port" validate:"gt=0"`
}

// RoutingConfig contains the routing/optimization service configuration.
type RoutingConfig struct {
	BaseURL   string `yaml:"baseURL" validate:"omitempty,url"`
	TimeoutMS int    `yaml:"timeoutMS" validate:"gte=0"`
}

// RedisConfig contains the live-position reporter configuration.
type RedisConfig struct {
	Addr       string `yaml:"addr"`
	TTLSeconds int    `yaml:"ttlSeconds" validate:"gte=0"`
}

// TrackingConfig contains the recalculation and sampling policy. The defaults
// keep routing-API usage and device battery drain low.
type TrackingConfig struct {
	OffRouteThresholdMeters float64 `yaml:"offRouteThresholdMeters" validate:"gte=0"`
	DebounceSeconds         int     `yaml:"debounceSeconds" validate:"gte=0"`
	SampleIntervalSeconds   int     `yaml:"sampleIntervalSeconds" validate:"gte=0"`
	MinDisplacementMeters   float64 `yaml:"minDisplacementMeters" validate:"gte=0"`
}

// AppConfig is the root configuration structure.
type AppConfig struct {
	Server   ServerConfig   `yaml:"server"`
	Routing  RoutingConfig  `yaml:"routing"`
	Redis    RedisConfig    `yaml:"redis"`
	Tracking TrackingConfig `yaml:"tracking"`
}

// RoutingTimeout returns the bound on a single route computation.
func (c AppConfig) RoutingTimeout() time.Duration {
	return time.Duration(c.Routing.TimeoutMS) * time.Millisecond
}

// Debounce returns the minimum time between two recalculation attempts.
func (c AppConfig) Debounce() time.Duration {
	return time.Duration(c.Tracking.DebounceSeconds) * time.Second
}

// SampleInterval returns the minimum time between delivered location samples.
func (c AppConfig) SampleInterval() time.Duration {
	return time.Duration(c.Tracking.SampleIntervalSeconds) * time.Second
}

// Default returns the built-in configuration used when no file is present.
func Default() AppConfig {
	return AppConfig{
		Server:  ServerConfig{Port: 8080},
		Routing: RoutingConfig{TimeoutMS: 15000},
		Redis:   RedisConfig{TTLSeconds: 120},
		Tracking: TrackingConfig{
			OffRouteThresholdMeters: 150,
			DebounceSeconds:         10,
			SampleIntervalSeconds:   15,
			MinDisplacementMeters:   20,
		},
	}
}

// Load reads the configuration file at path, applies defaults for omitted
// fields and validates the result. A missing file yields the defaults.
func Load(path string) (AppConfig, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return AppConfig{}, fmt.Errorf("load config: read %q: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return AppConfig{}, fmt.Errorf("load config: parse %q: %w", path, err)
	}

	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return AppConfig{}, fmt.Errorf("load config: validate %q: %w", path, err)
	}

	return cfg, nil
}
