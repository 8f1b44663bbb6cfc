package devslog

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_WritesToWriter(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, slog.LevelInfo)
	require.NotNil(t, l)

	l.Info("dev message", "to", "ops@example.com")

	assert.Contains(t, buf.String(), "dev message")
	assert.Contains(t, buf.String(), "ops@example.com")
}

func TestNew_LevelFiltering(t *testing.T) {
	tests := []struct {
		name    string
		level   slog.Level
		check   slog.Level
		enabled bool
	}{
		{"debug-debug", slog.LevelDebug, slog.LevelDebug, true},
		{"info-debug", slog.LevelInfo, slog.LevelDebug, false},
		{"info-error", slog.LevelInfo, slog.LevelError, true},
		{"warn-info", slog.LevelWarn, slog.LevelInfo, false},
		{"error-warn", slog.LevelError, slog.LevelWarn, false},
		{"error-error", slog.LevelError, slog.LevelError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New(&bytes.Buffer{}, tt.level).Handler()
			assert.Equal(t, tt.enabled, h.Enabled(context.Background(), tt.check))
		})
	}
}

func TestNew_SuppressedRecord(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, slog.LevelWarn)

	l.Info("hidden")
	assert.Zero(t, buf.Len())
}
