// Itemsim - Incremental Item Similarity and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itemsim

package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// captureLogs swaps the global logger for one writing to a buffer.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := Logger()
	prevLevel := zerolog.GlobalLevel()
	SetLogger(NewTestLogger(&buf))
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	t.Cleanup(func() {
		SetLogger(prev)
		zerolog.SetGlobalLevel(prevLevel)
	})
	return &buf
}

func decodeLine(t *testing.T, line string) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal([]byte(line), &out); err != nil {
		t.Fatalf("log line is not JSON: %q: %v", line, err)
	}
	return out
}

func TestInit_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Timestamp: true, Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	Info().Str("key", "value").Msg("hello")

	entry := decodeLine(t, strings.TrimSpace(buf.String()))
	if entry["message"] != "hello" {
		t.Errorf("message = %v, want hello", entry["message"])
	}
	if entry["level"] != "info" {
		t.Errorf("level = %v, want info", entry["level"])
	}
	if _, ok := entry["time"]; !ok {
		t.Error("expected time field")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"off", zerolog.Disabled},
		{"bogus", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := parseLevel(tt.in); got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}

	if ValidLevel("bogus") {
		t.Error("ValidLevel(bogus) = true, want false")
	}
	if !ValidLevel("Warn") {
		t.Error("ValidLevel(Warn) = false, want true")
	}
}

func TestCtx_AddsIDs(t *testing.T) {
	buf := captureLogs(t)

	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithCorrelationID(ctx, "corr-1")
	Ctx(ctx).Info().Msg("with ids")

	entry := decodeLine(t, strings.TrimSpace(buf.String()))
	if entry["request_id"] != "req-1" {
		t.Errorf("request_id = %v, want req-1", entry["request_id"])
	}
	if entry["correlation_id"] != "corr-1" {
		t.Errorf("correlation_id = %v, want corr-1", entry["correlation_id"])
	}

	if RequestIDFromContext(context.Background()) != "" {
		t.Error("empty context should have no request id")
	}
	if len(GenerateCorrelationID()) != 8 {
		t.Error("correlation id should be 8 characters")
	}
}

func TestSlogHandler(t *testing.T) {
	buf := captureLogs(t)

	logger := NewSlogLogger().With("service", "shards").WithGroup("grp")
	logger.Warn("service restarted", "attempt", 3, "err", errors.New("boom"))

	entry := decodeLine(t, strings.TrimSpace(buf.String()))
	if entry["level"] != "warn" {
		t.Errorf("level = %v, want warn", entry["level"])
	}
	if entry["message"] != "service restarted" {
		t.Errorf("message = %v", entry["message"])
	}
	if entry["grp.service"] != "shards" {
		t.Errorf("grp.service = %v, want shards", entry["grp.service"])
	}
	if entry["grp.attempt"] != float64(3) {
		t.Errorf("grp.attempt = %v, want 3", entry["grp.attempt"])
	}
	if entry["grp.err"] != "boom" {
		t.Errorf("grp.err = %v, want boom", entry["grp.err"])
	}
}

func TestSlogHandler_Enabled(t *testing.T) {
	captureLogs(t)
	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	h := NewSlogHandler(Logger())
	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info should be disabled at warn level")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Error("error should be enabled at warn level")
	}
}

func TestWatermillLogger(t *testing.T) {
	buf := captureLogs(t)

	var adapter watermill.LoggerAdapter = NewWatermillLoggerWith(Logger())
	adapter = adapter.With(watermill.LogFields{"topic": "similarity.updates"})
	adapter.Error("publish failed", errors.New("nats down"), watermill.LogFields{"uuid": "abc"})

	entry := decodeLine(t, strings.TrimSpace(buf.String()))
	if entry["level"] != "error" {
		t.Errorf("level = %v, want error", entry["level"])
	}
	if entry["topic"] != "similarity.updates" {
		t.Errorf("topic = %v", entry["topic"])
	}
	if entry["uuid"] != "abc" {
		t.Errorf("uuid = %v", entry["uuid"])
	}
	if entry["error"] != "nats down" {
		t.Errorf("error = %v", entry["error"])
	}
}
