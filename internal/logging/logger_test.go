// Homography Backend - Point Annotation and Homography Bridge Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homography-backend

package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf})
	t.Cleanup(func() { Init(defaultConfig()) })
	return &buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	line := strings.TrimSpace(buf.String())
	if i := strings.LastIndex(line, "\n"); i >= 0 {
		line = line[i+1:]
	}
	var out map[string]interface{}
	if err := json.Unmarshal([]byte(line), &out); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, line)
	}
	return out
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{" error ", zerolog.ErrorLevel},
		{"disabled", zerolog.Disabled},
		{"bogus", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestValidLevel(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"warn", true},
		{"Warning", true},
		{" trace ", true},
		{"disabled", true},
		{"verbose", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := ValidLevel(tt.in); got != tt.want {
			t.Errorf("ValidLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestInitJSONOutput(t *testing.T) {
	buf := captureLogs(t)
	Info().Str("mode", "compute_homography").Msg("bridge invoked")

	out := decodeLine(t, buf)
	if out["message"] != "bridge invoked" {
		t.Errorf("message = %v", out["message"])
	}
	if out["mode"] != "compute_homography" {
		t.Errorf("mode = %v", out["mode"])
	}
	if out["level"] != "info" {
		t.Errorf("level = %v", out["level"])
	}
}

func TestCtxAddsIdentifiers(t *testing.T) {
	buf := captureLogs(t)

	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithCorrelationID(ctx, "corr-1")
	ctx = ContextWithTaskID(ctx, "task-1")
	Ctx(ctx).Info().Msg("hello")

	out := decodeLine(t, buf)
	for key, want := range map[string]string{
		"request_id":     "req-1",
		"correlation_id": "corr-1",
		"task_id":        "task-1",
	} {
		if out[key] != want {
			t.Errorf("%s = %v, want %s", key, out[key], want)
		}
	}
}

func TestCtxWithoutIdentifiers(t *testing.T) {
	buf := captureLogs(t)
	Ctx(context.Background()).Info().Msg("plain")
	out := decodeLine(t, buf)
	if _, ok := out["request_id"]; ok {
		t.Error("request_id should be absent")
	}
}

func TestGeneratedIDs(t *testing.T) {
	if got := len(generateCorrelationID()); got != 8 {
		t.Errorf("correlation id length = %d, want 8", got)
	}
	if GenerateRequestID() == GenerateRequestID() {
		t.Error("request ids should be unique")
	}
}

func TestSlogHandlerWritesThroughZerolog(t *testing.T) {
	buf := captureLogs(t)

	logger := NewSlogLogger().With("service", "http")
	logger.Warn("slow request", slog.Group("req", "ms", 1200))

	out := decodeLine(t, buf)
	if out["level"] != "warn" {
		t.Errorf("level = %v, want warn", out["level"])
	}
	if out["service"] != "http" {
		t.Errorf("service = %v", out["service"])
	}
	if out["req.ms"] != float64(1200) {
		t.Errorf("req.ms = %v", out["req.ms"])
	}
}

func TestWatermillLoggerTagsComponent(t *testing.T) {
	buf := captureLogs(t)

	NewWatermillLogger("task-bus").Info("subscriber started", nil)

	out := decodeLine(t, buf)
	if out["component"] != "task-bus" {
		t.Errorf("component = %v, want task-bus", out["component"])
	}
	if out["message"] != "subscriber started" {
		t.Errorf("message = %v", out["message"])
	}
}

func TestSanitizeValue(t *testing.T) {
	got := SanitizeValue("line1\nline2\r")
	if got != `line1\x0aline2\x0d` {
		t.Errorf("SanitizeValue = %q", got)
	}
	long := strings.Repeat("a", maxSanitizedLength+10)
	if got := SanitizeValue(long); !strings.HasSuffix(got, "...") || len(got) != maxSanitizedLength+3 {
		t.Errorf("long value not truncated: len=%d", len(got))
	}
}

func TestTail(t *testing.T) {
	if got := Tail("abcdef", 3); got != "...def" {
		t.Errorf("Tail = %q", got)
	}
	if got := Tail("abc", 10); got != "abc" {
		t.Errorf("Tail = %q", got)
	}
}
