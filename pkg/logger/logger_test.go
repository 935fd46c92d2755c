package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestInitJSON(t *testing.T) {
	var buf bytes.Buffer
	Init("info", &buf)

	Info("generator tick", Int("due", 2), Err(errors.New("boom")))
	Debug("hidden")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %q", len(lines), buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if entry["msg"] != "generator tick" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["due"] != float64(2) {
		t.Errorf("due = %v", entry["due"])
	}
	if entry["error"] != "boom" {
		t.Errorf("error = %v", entry["error"])
	}
}

func TestInitText(t *testing.T) {
	var buf bytes.Buffer
	InitWithFormat("debug", FormatText, &buf)

	Debug("vote recorded", String("type", "like"))

	if !strings.Contains(buf.String(), "type=like") {
		t.Errorf("unexpected text output: %q", buf.String())
	}
}

func TestWithCarriesAttrs(t *testing.T) {
	var buf bytes.Buffer
	Init("info", &buf)

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	With(Int64("generator_id", 7)).Info("joke generated", Time("last_run", at))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if entry["generator_id"] != float64(7) {
		t.Errorf("generator_id = %v", entry["generator_id"])
	}
	if entry["last_run"] != "2026-03-01T12:00:00Z" {
		t.Errorf("last_run = %v", entry["last_run"])
	}
}
