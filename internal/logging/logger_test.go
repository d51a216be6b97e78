package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"loud", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "info", "json")

	logger.Debug("hidden")
	logger.Info("row added", "row_id", "abc")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1: %q", len(lines), buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("not JSON: %v", err)
	}
	if entry["msg"] != "row added" || entry["row_id"] != "abc" {
		t.Errorf("unexpected entry: %v", entry)
	}
}

func TestNew_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "debug", "text").Debug("visible", "k", "v")

	if got := buf.String(); !strings.Contains(got, "msg=visible") || !strings.Contains(got, "k=v") {
		t.Errorf("unexpected text output: %q", got)
	}
}

func TestFromContext_RequestID(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(New(&buf, "info", "text"))
	defer slog.SetDefault(prev)

	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-42")
	WithFields(ctx, "file", "people.csv").Info("import started")

	got := buf.String()
	for _, want := range []string{"request_id=req-42", "file=people.csv"} {
		if !strings.Contains(got, want) {
			t.Errorf("log line %q missing %q", got, want)
		}
	}
}
