package main

import (
	"log/slog"
	"testing"

	"github.com/studyloop/tutor-backend/internal/platform/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewLogger(t *testing.T) {
	for _, format := range []string{"json", "text", ""} {
		logger := newLogger(config.LogConfig{Level: "debug", Format: format})
		if logger == nil {
			t.Fatalf("newLogger(%q) returned nil", format)
		}
		if !logger.Enabled(nil, slog.LevelDebug) {
			t.Errorf("format %q: debug level should be enabled", format)
		}
	}
}
