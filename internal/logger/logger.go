// Package logger builds the slog loggers used by the bondkit CLI.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// ParseLevel maps a level name to a slog level. Unknown names fall back to
// info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New creates a JSON logger.
func New(level string, output io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(output, &slog.HandlerOptions{Level: ParseLevel(level)}))
}

// NewText creates a text logger for interactive use.
func NewText(level string, output io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{Level: ParseLevel(level)}))
}

// NewFormat picks New or NewText by name ("json" or "text").
func NewFormat(format, level string, output io.Writer) (*slog.Logger, error) {
	switch strings.ToLower(format) {
	case "json":
		return New(level, output), nil
	case "text", "":
		return NewText(level, output), nil
	default:
		return nil, fmt.Errorf("logger: unknown format %q", format)
	}
}

// Discard drops everything. Used where a run must stay quiet, such as the
// live terminal view.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// SetDefault installs l as the process-wide slog default.
func SetDefault(l *slog.Logger) {
	slog.SetDefault(l)
}
