package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNewLoggerWithWriter_Formats(t *testing.T) {
	tests := []struct {
		format string
		want   []string
	}{
		{"text", []string{"msg=dispatched", "pid=3"}},
		{"", []string{"msg=dispatched", "pid=3"}},
		{"JSON", []string{`"msg":"dispatched"`, `"pid":3`}},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		NewLoggerWithWriter(slog.LevelInfo, tt.format, &buf).Info("dispatched", "pid", 3)
		for _, w := range tt.want {
			if !strings.Contains(buf.String(), w) {
				t.Errorf("format %q: expected %q in output, got: %s", tt.format, w, buf.String())
			}
		}
	}
}

func TestNewLoggerWithWriter_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(slog.LevelWarn, "text", &buf)

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("INFO message should be filtered at WARN level, got: %s", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("WARN message missing, got: %s", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{" info ", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"Warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestCheckFormat(t *testing.T) {
	for _, ok := range []string{"", "text", "json", "JSON"} {
		if err := CheckFormat(ok); err != nil {
			t.Errorf("CheckFormat(%q) = %v", ok, err)
		}
	}
	if err := CheckFormat("xml"); err == nil {
		t.Error("CheckFormat(xml) should fail")
	}
}

func TestSetup_DebugOverridesLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := Setup(&buf, "error", "text", true)
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	logger.Debug("aged", "boosted", 2)
	if !strings.Contains(buf.String(), "boosted=2") {
		t.Errorf("debug record missing, got: %s", buf.String())
	}

	if _, err := Setup(&buf, "info", "yaml", false); err == nil {
		t.Error("Setup with unknown format should fail")
	}
}
