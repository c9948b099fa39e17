// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the opgraph CLI configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/opgraph/services/telemetry"
)

// ErrPrometheusUnsupported is returned when the config selects the
// Prometheus metric exporter. The CLI exits after one run and serves no
// /metrics endpoint, so nothing could scrape the registry. Programs that
// embed services/telemetry mount telemetry.MetricsHandler themselves.
var ErrPrometheusUnsupported = errors.New("metric exporter prometheus needs a /metrics endpoint; the CLI supports stdout or none")

// Config is the CLI configuration file layout.
type Config struct {
	Logging   LoggingConfig    `yaml:"logging"`
	Telemetry telemetry.Config `yaml:"telemetry"`
	Linker    LinkerConfig     `yaml:"linker"`
}

// LoggingConfig maps onto logging.Config.
type LoggingConfig struct {
	Level   string `yaml:"level" validate:"oneof=debug info warn warning error"`
	JSON    bool   `yaml:"json"`
	Service string `yaml:"service" validate:"required"`
	LogDir  string `yaml:"log_dir"`
}

// LinkerConfig holds defaults for `opgraph run`.
type LinkerConfig struct {
	// InPlace runs against the loaded graph's own slots.
	InPlace bool `yaml:"in_place"`

	// UnpackSingle returns a lone output as a bare value.
	UnpackSingle bool `yaml:"unpack_single"`
}

var validate = validator.New()

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Logging: LoggingConfig{
			Level:   "warn",
			Service: "opgraph",
		},
		Telemetry: telemetry.DefaultConfig(),
		Linker: LinkerConfig{
			UnpackSingle: true,
		},
	}
}

// DefaultPath returns ~/.opgraph/opgraph.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not find the user's home directory: %w", err)
	}
	return filepath.Join(home, ".opgraph", "opgraph.yaml"), nil
}

// Load reads a YAML file over the defaults and validates the result.
//
// Inputs:
//
//	path - File to read. Empty means defaults only.
//	required - If false, a missing file also means defaults only.
//
// Outputs:
//
//	Config - The configuration.
//	error - Read, parse or validation failure.
func Load(path string, required bool) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, Validate(cfg)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !required && errors.Is(err, os.ErrNotExist) {
			return cfg, Validate(cfg)
		}
		return Config{}, fmt.Errorf("failed to read the config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse the config file %s: %w", path, err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the struct tags on cfg and rejects exporters the CLI
// cannot serve.
func Validate(cfg Config) error {
	if err := validate.Struct(cfg); err != nil {
		return err
	}
	if cfg.Telemetry.MetricExporter == "prometheus" {
		return ErrPrometheusUnsupported
	}
	return nil
}

// WriteDefault writes the default configuration to path, creating parent
// directories. An existing file is left alone.
//
// Outputs:
//
//	bool - True if the file was written.
//	error - Non-nil on failure.
func WriteDefault(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, fmt.Errorf("failed to create the config directory %w", err)
	}
	data, err := yaml.Marshal(Default())
	if err != nil {
		return false, err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return false, err
	}
	return true, nil
}
