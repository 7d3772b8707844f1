// Package logging builds the slog loggers used by priosim.
//
// Logs always go to stderr unless a writer is given; stdout carries the
// simulation trace and reports.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Formats accepted by NewLogger.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// NewLogger returns a logger writing to stderr in the given format.
func NewLogger(level slog.Level, format string) *slog.Logger {
	return NewLoggerWithWriter(level, format, os.Stderr)
}

// NewLoggerWithWriter returns a logger writing to w. Unknown formats fall
// back to text.
func NewLoggerWithWriter(level slog.Level, format string, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, FormatJSON) {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// ParseLevel maps debug, info, warn (or warning) and error to a level,
// ignoring case. Anything else is Info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// CheckFormat returns an error for a format NewLogger would not honor.
func CheckFormat(format string) error {
	switch strings.ToLower(format) {
	case "", FormatText, FormatJSON:
		return nil
	}
	return fmt.Errorf("unknown log format %q (want %s or %s)", format, FormatText, FormatJSON)
}

// Setup builds the CLI logger. debug forces the Debug level regardless of
// levelName.
func Setup(w io.Writer, levelName, format string, debug bool) (*slog.Logger, error) {
	if err := CheckFormat(format); err != nil {
		return nil, err
	}
	level := ParseLevel(levelName)
	if debug {
		level = slog.LevelDebug
	}
	return NewLoggerWithWriter(level, format, w), nil
}
