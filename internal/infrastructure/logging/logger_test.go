package logging

import (
	"context"
	"log/slog"
	"testing"

	"github.com/casaluce/netatmo2mqtt/internal/infrastructure/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestNew(t *testing.T) {
	log := New(config.LoggingConfig{Level: "debug", Format: "text", Output: "stderr"}, "test")
	if log == nil || log.Logger == nil {
		t.Fatal("New() returned nil logger")
	}
	if !log.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug level not enabled for level=debug config")
	}
}

func TestWith(t *testing.T) {
	log := Default()
	child := log.With("component", "poller")
	if child == nil || child.Logger == log.Logger {
		t.Error("With() should return a new logger")
	}
}
