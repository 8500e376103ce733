package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		name   string
		level  string
		enable slog.Level
	}{
		{"debug level", "debug", slog.LevelDebug},
		{"warn level", "warn", slog.LevelWarn},
		{"warning alias", "WARNING", slog.LevelWarn},
		{"default info", "", slog.LevelInfo},
	}

	ctx := context.Background()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := New(tt.level)
			if !logger.Enabled(ctx, tt.enable) {
				t.Fatalf("expected level %s to be enabled", tt.enable)
			}
		})
	}
}

func TestNewWithWriterText(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter("info", "text", &buf)
	logger.Info("turn completed", "session_id", "abc")

	out := buf.String()
	if !strings.Contains(out, "msg=\"turn completed\"") {
		t.Fatalf("expected text output, got %q", out)
	}
	if !strings.Contains(out, "session_id=abc") {
		t.Fatalf("expected attribute in output, got %q", out)
	}
}

func TestNewWithWriterJSONFallback(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter("debug", "yaml", &buf)
	logger.Debug("hello")
	if !strings.HasPrefix(strings.TrimSpace(buf.String()), "{") {
		t.Fatalf("expected json output for unknown format, got %q", buf.String())
	}
}

func TestWithKeepsWrapper(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter("info", "json", &buf).With("component", "recording")
	logger.Info("armed")
	if !strings.Contains(buf.String(), `"component":"recording"`) {
		t.Fatalf("expected child attribute, got %q", buf.String())
	}
}

func TestDefaultLogger(t *testing.T) {
	logger := Default()

	ctx := context.Background()
	if !logger.Enabled(ctx, slog.LevelInfo) {
		t.Error("Default() should enable info level")
	}
	if logger.Enabled(ctx, slog.LevelDebug) {
		t.Error("Default() should not enable debug level (info is higher)")
	}

	logger2 := Default()
	if logger == logger2 {
		t.Error("Default() returned the same instance twice - expected new instances")
	}
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	logger.Error("dropped")
	if logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("Discard() should not enable info")
	}
}
