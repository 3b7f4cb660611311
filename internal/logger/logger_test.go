package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"invalid", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			if got := ParseLevel(tt.level); got != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.level, got, tt.expected)
			}
		})
	}
}

func debugf(l *slog.Logger, msg string) { l.Debug(msg) }
func infof(l *slog.Logger, msg string)  { l.Info(msg) }
func warnf(l *slog.Logger, msg string)  { l.Warn(msg) }

func TestLogLevels(t *testing.T) {
	tests := []struct {
		name     string
		logLevel string
		log      func(*slog.Logger, string)
		msg      string
		expected bool
	}{
		{"debug when debug level", "debug", debugf, "debug message", true},
		{"debug when info level", "info", debugf, "debug message", false},
		{"warn when info level", "info", warnf, "warn message", true},
		{"info when error level", "error", infof, "info message", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.log(New(tt.logLevel, &buf), tt.msg)
			output := buf.String()

			if tt.expected && !strings.Contains(output, tt.msg) {
				t.Errorf("expected output to contain %q, got: %s", tt.msg, output)
			}
			if !tt.expected && strings.Contains(output, tt.msg) {
				t.Errorf("expected output NOT to contain %q, got: %s", tt.msg, output)
			}
		})
	}
}

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	New("info", &buf).Info("system built", "atoms", 3, "backend", "cpu")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON log output: %v", err)
	}
	if entry["msg"] != "system built" {
		t.Errorf("expected msg 'system built', got %v", entry["msg"])
	}
	if entry["atoms"] != float64(3) {
		t.Errorf("expected atoms 3, got %v", entry["atoms"])
	}
}

func TestNewFormat(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewFormat("text", "info", &buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	l.Info("hello", "k", "v")
	if !strings.Contains(buf.String(), "k=v") {
		t.Errorf("expected text output, got: %s", buf.String())
	}

	if _, err := NewFormat("xml", "info", &buf); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestDiscard(t *testing.T) {
	l := Discard()
	if l.Enabled(context.Background(), slog.LevelError) {
		t.Error("discard logger should not enable error level")
	}
}
