// Package config loads the daemon's YAML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the daemon configuration.
type Config struct {
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	API     APIConfig     `yaml:"api"`
	Events  EventsConfig  `yaml:"events"`
	Gateway GatewayConfig `yaml:"gateway"`
}

// APIConfig configures the local ingest/observe HTTP server.
type APIConfig struct {
	Listen string `yaml:"listen"`
	// APIKey is an optional bearer token. Empty disables auth; intended for
	// loopback-only development use.
	APIKey string `yaml:"api_key"`
}

// EventsConfig configures the trace event hub.
type EventsConfig struct {
	// Buffer is the ring capacity for late subscribers.
	Buffer int `yaml:"buffer"`
}

// GatewayConfig configures the ApiGateway capability.
type GatewayConfig struct {
	// Default is the gateway URL used until a SetGateway directive arrives.
	Default string `yaml:"default"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		API: APIConfig{
			Listen: "127.0.0.1:8265",
		},
		Events: EventsConfig{
			Buffer: 256,
		},
		Gateway: GatewayConfig{
			Default: "https://api.voxwire.invalid",
		},
	}
}

// Load reads and parses configuration from a YAML file, applying defaults
// for anything unset.
func Load(configPath string) (*Config, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path %q: %w", configPath, err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("config file not found: %s", absPath)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg = applyDefaults(cfg)
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) *Config {
	def := Default()
	if cfg.LogLevel == "" {
		cfg.LogLevel = def.LogLevel
	}
	if cfg.API.Listen == "" {
		cfg.API.Listen = def.API.Listen
	}
	if cfg.Events.Buffer <= 0 {
		cfg.Events.Buffer = def.Events.Buffer
	}
	if cfg.Gateway.Default == "" {
		cfg.Gateway.Default = def.Gateway.Default
	}
	return cfg
}

func validate(cfg *Config) error {
	switch strings.ToLower(cfg.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of debug, info, warn, error; got %q", cfg.LogLevel)
	}
	if !strings.Contains(cfg.API.Listen, ":") {
		return fmt.Errorf("api.listen must be a host:port address; got %q", cfg.API.Listen)
	}
	return nil
}
