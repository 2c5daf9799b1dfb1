// Copyright 2026 © The Selfimprove Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the demo configuration.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// SELFIMPROVE_* environment variables, then key=value overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/jllopis/selfimprove/pkg/service"
	"github.com/jllopis/selfimprove/pkg/telemetry"
	"github.com/jllopis/selfimprove/pkg/transform"
)

// EnvPrefix is the prefix of environment overrides.
// SELFIMPROVE_DEMO_ITERATIONS maps to demo.iterations and
// SELFIMPROVE_SERVICE_BASE_URL maps to service.base_url.
const EnvPrefix = "SELFIMPROVE_"

type Config struct {
	Log       LogConfig       `koanf:"log" yaml:"log"`
	Demo      DemoConfig      `koanf:"demo" yaml:"demo"`
	Service   ServiceConfig   `koanf:"service" yaml:"service"`
	Telemetry TelemetryConfig `koanf:"telemetry" yaml:"telemetry"`
}

type LogConfig struct {
	Level  string `koanf:"level" yaml:"level"`
	Format string `koanf:"format" yaml:"format"` // json, text
}

type DemoConfig struct {
	Input      string        `koanf:"input" yaml:"input"`
	Iterations int           `koanf:"iterations" yaml:"iterations"`
	Delay      time.Duration `koanf:"delay" yaml:"delay"`
}

type ServiceConfig struct {
	Provider string        `koanf:"provider" yaml:"provider"` // none, ollama
	BaseURL  string        `koanf:"base_url" yaml:"base_url"`
	Model    string        `koanf:"model" yaml:"model"`
	Timeout  time.Duration `koanf:"timeout" yaml:"timeout"`
}

type TelemetryConfig struct {
	Exporter     string `koanf:"exporter" yaml:"exporter"` // none, stdout, otlp
	OTLPEndpoint string `koanf:"otlp_endpoint" yaml:"otlp_endpoint"`
	OTLPInsecure bool   `koanf:"otlp_insecure" yaml:"otlp_insecure"`
}

var defaults = map[string]interface{}{
	"log.level":  "warn",
	"log.format": "text",

	"demo.input":      "2",
	"demo.iterations": 3,
	"demo.delay":      "2s",

	"service.provider": "none",
	"service.base_url": service.DefaultOllamaURL,
	"service.model":    "llama3.1",
	"service.timeout":  "2s",

	"telemetry.exporter":      telemetry.ExporterNone,
	"telemetry.otlp_endpoint": "",
	"telemetry.otlp_insecure": false,
}

// Load reads configuration from path (optional) and the environment, then
// applies overrides of the form key=value.
func Load(path string, overrides ...string) (*Config, error) {
	k := koanf.New(".")

	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return nil, err
		}
	}

	// 1. Load from file
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
	}

	// 2. Load from ENV
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, err
	}

	// 3. key=value overrides
	for _, o := range overrides {
		key, value, ok := strings.Cut(o, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid override %q, expected key=value", o)
		}
		if err := k.Set(key, strings.TrimSpace(value)); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps SELFIMPROVE_SECTION_SOME_KEY to section.some_key.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, key, ok := strings.Cut(s, "_")
	if !ok {
		return s
	}
	return section + "." + key
}

// Validate checks values that would otherwise fail later in the run.
func (c *Config) Validate() error {
	if c.Demo.Iterations < 0 {
		return fmt.Errorf("demo.iterations must be >= 0, got %d", c.Demo.Iterations)
	}
	if c.Demo.Delay < 0 {
		return fmt.Errorf("demo.delay must be >= 0, got %s", c.Demo.Delay)
	}
	if _, err := transform.ParseNumber(c.Demo.Input); err != nil {
		return fmt.Errorf("demo.input: %w", err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	switch c.Telemetry.Exporter {
	case telemetry.ExporterNone, telemetry.ExporterStdout:
	case telemetry.ExporterOTLP:
		if c.Telemetry.OTLPEndpoint == "" {
			return fmt.Errorf("telemetry.otlp_endpoint is required for the otlp exporter")
		}
	default:
		return fmt.Errorf("unknown telemetry exporter %q", c.Telemetry.Exporter)
	}
	return nil
}

// ServiceOptions returns the agent service selection.
func (c *Config) ServiceOptions() service.Config {
	return service.Config{
		Provider: c.Service.Provider,
		BaseURL:  c.Service.BaseURL,
		Model:    c.Service.Model,
		Timeout:  c.Service.Timeout,
	}
}

// TelemetryOptions returns the telemetry exporter settings.
func (c *Config) TelemetryOptions() telemetry.Config {
	return telemetry.Config{
		Exporter:     c.Telemetry.Exporter,
		OTLPEndpoint: c.Telemetry.OTLPEndpoint,
		OTLPInsecure: c.Telemetry.OTLPInsecure,
	}
}
