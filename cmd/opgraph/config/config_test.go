// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "opgraph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefault(t *testing.T) {
	t.Setenv("OTEL_TRACES_EXPORTER", "")
	t.Setenv("OTEL_METRICS_EXPORTER", "")

	cfg := Default()
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.True(t, cfg.Linker.UnpackSingle)
	assert.False(t, cfg.Linker.InPlace)
	assert.NoError(t, Validate(cfg))
}

func TestLoad_Empty(t *testing.T) {
	cfg, err := Load("", true)
	require.NoError(t, err)
	assert.Equal(t, Default().Logging, cfg.Logging)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeFile(t, `
logging:
  level: debug
  json: true
linker:
  in_place: true
telemetry:
  trace_exporter: stdout
`)

	cfg, err := Load(path, true)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.JSON)
	assert.Equal(t, "opgraph", cfg.Logging.Service, "unset fields keep defaults")
	assert.True(t, cfg.Linker.InPlace)
	assert.True(t, cfg.Linker.UnpackSingle)
	assert.Equal(t, "stdout", cfg.Telemetry.TraceExporter)
}

func TestLoad_Invalid(t *testing.T) {
	testCases := []struct {
		name    string
		content string
	}{
		{"bad level", "logging:\n  level: loud\n"},
		{"bad exporter", "telemetry:\n  metric_exporter: graphite\n"},
		{"empty service", "logging:\n  service: \"\"\n"},
		{"otlp without endpoint", "telemetry:\n  trace_exporter: otlp\n  otlp_endpoint: \"\"\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tc.content), true)
			require.Error(t, err)

			var verrs validator.ValidationErrors
			assert.ErrorAs(t, err, &verrs)
		})
	}
}

func TestLoad_PrometheusRejected(t *testing.T) {
	_, err := Load(writeFile(t, "telemetry:\n  metric_exporter: prometheus\n"), true)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPrometheusUnsupported)

	cfg := Default()
	cfg.Telemetry.MetricExporter = "stdout"
	assert.NoError(t, Validate(cfg))
}

func TestLoad_Malformed(t *testing.T) {
	_, err := Load(writeFile(t, "logging: [unclosed"), true)
	assert.Error(t, err)
}

func TestLoad_Missing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.yaml")

	_, err := Load(path, true)
	assert.Error(t, err)

	cfg, err := Load(path, false)
	require.NoError(t, err)
	assert.Equal(t, Default().Linker, cfg.Linker)
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "opgraph.yaml")

	written, err := WriteDefault(path)
	require.NoError(t, err)
	assert.True(t, written)

	cfg, err := Load(path, true)
	require.NoError(t, err)
	assert.Equal(t, Default().Logging, cfg.Logging)

	written, err = WriteDefault(path)
	require.NoError(t, err)
	assert.False(t, written, "existing file must not be overwritten")
}
