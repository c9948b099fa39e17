// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// =============================================================================
// Level Tests
// =============================================================================

func TestLevel_String(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{Level(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.level.String(); got != tt.want {
				t.Errorf("Level.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLevel_toSlogLevel(t *testing.T) {
	tests := []struct {
		level Level
		want  slog.Level
	}{
		{LevelDebug, slog.LevelDebug},
		{LevelInfo, slog.LevelInfo},
		{LevelWarn, slog.LevelWarn},
		{LevelError, slog.LevelError},
		{Level(99), slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			if got := tt.level.toSlogLevel(); got != tt.want {
				t.Errorf("toSlogLevel() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{" warn ", LevelWarn, false},
		{"warning", LevelWarn, false},
		{"Error", LevelError, false},
		{"verbose", LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

// =============================================================================
// Logger Tests
// =============================================================================

func TestNew_WriterText(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelInfo, Service: "test", Writer: &buf})

	logger.Debug("hidden")
	logger.Info("shown", "graph", "sum")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug message should be filtered: %s", out)
	}
	if !strings.Contains(out, "msg=shown") || !strings.Contains(out, "graph=sum") {
		t.Errorf("missing info entry: %s", out)
	}
	if !strings.Contains(out, "service=test") {
		t.Errorf("missing service attribute: %s", out)
	}
}

func TestNew_WriterJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelDebug, JSON: true, Writer: &buf})

	logger.Debug("thunk produced", "ops", 3)

	if !strings.Contains(buf.String(), `"msg":"thunk produced"`) {
		t.Errorf("expected JSON output, got: %s", buf.String())
	}
	if !strings.Contains(buf.String(), `"ops":3`) {
		t.Errorf("expected ops attribute, got: %s", buf.String())
	}
}

func TestNew_Quiet(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Quiet: true, Writer: &buf})

	logger.Error("nobody hears this")
	if buf.Len() != 0 {
		t.Errorf("quiet logger wrote to console: %s", buf.String())
	}
}

func TestNew_FileLogging(t *testing.T) {
	var buf bytes.Buffer
	dir := filepath.Join(t.TempDir(), "logs")

	logger := New(Config{Level: LevelInfo, Service: "opgraph-test", LogDir: dir, Writer: &buf})
	logger.Warn("to both", "op", "div")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	matches, err := filepath.Glob(filepath.Join(dir, "opgraph-test_*.log"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("expected one log file, got %v (err %v)", matches, err)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"to both"`) {
		t.Errorf("file log missing entry: %s", data)
	}
	if !strings.Contains(buf.String(), "to both") {
		t.Errorf("console missing entry: %s", buf.String())
	}

	if err := logger.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestWith_ChildAfterParentClose(t *testing.T) {
	var buf bytes.Buffer
	dir := filepath.Join(t.TempDir(), "logs")

	logger := New(Config{Level: LevelInfo, Service: "opgraph-test", LogDir: dir, Writer: &buf})
	child := logger.With("invocation_id", "abc123")
	child.Info("before close")

	if err := logger.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	child.Info("after close")
	if err := child.Close(); err != nil {
		t.Errorf("child Close after parent Close: %v", err)
	}

	matches, err := filepath.Glob(filepath.Join(dir, "opgraph-test_*.log"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("expected one log file, got %v (err %v)", matches, err)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"before close"`) {
		t.Errorf("file log missing entry: %s", data)
	}
	if strings.Contains(string(data), "after close") {
		t.Errorf("entry written after Close: %s", data)
	}
	if !strings.Contains(buf.String(), "after close") {
		t.Errorf("console should still receive entries after Close: %s", buf.String())
	}
}

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Writer: &buf})

	child := logger.With("invocation_id", "abc123")
	child.Info("child entry")
	logger.Info("parent entry")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %s", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "invocation_id=abc123") {
		t.Errorf("child entry missing attribute: %s", lines[0])
	}
	if strings.Contains(lines[1], "invocation_id") {
		t.Errorf("parent entry should not carry child attribute: %s", lines[1])
	}
}

func TestSlog(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Writer: &buf})

	logger.Slog().Info("via slog")
	if !strings.Contains(buf.String(), "via slog") {
		t.Errorf("Slog() should share handlers: %s", buf.String())
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	if got := expandPath("~/logs"); got != filepath.Join(home, "logs") {
		t.Errorf("expandPath(~/logs) = %q", got)
	}
	if got := expandPath("/var/log"); got != "/var/log" {
		t.Errorf("expandPath(/var/log) = %q", got)
	}
}

func TestMultiHandler_WithGroup(t *testing.T) {
	var a, b bytes.Buffer
	h := &multiHandler{handlers: []slog.Handler{
		slog.NewJSONHandler(&a, nil),
		slog.NewJSONHandler(&b, nil),
	}}

	slog.New(h.WithGroup("run")).Info("grouped", "op", "add")

	for name, buf := range map[string]*bytes.Buffer{"a": &a, "b": &b} {
		if !strings.Contains(buf.String(), `"run":{"op":"add"}`) {
			t.Errorf("handler %s missing group: %s", name, buf.String())
		}
	}
}
