package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertLevel(t *testing.T) {
	tests := []struct {
		in   Level
		want slog.Level
	}{
		{INFO, slog.LevelInfo},
		{ERROR, slog.LevelError},
		{WARN, slog.LevelWarn},
		{DEBUG, slog.LevelDebug},
		{Level("trace"), slog.LevelInfo},
		{Level(""), slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(string(tt.in), func(t *testing.T) {
			assert.Equal(t, tt.want, convertLevel(tt.in))
		})
	}
}

func TestWriterFor(t *testing.T) {
	assert.Equal(t, os.Stdout, writerFor(OutputStdout))
	assert.Equal(t, os.Stderr, writerFor(OutputStderr))
	assert.Equal(t, os.Stderr, writerFor(Output("")))
}

func TestNew_Providers(t *testing.T) {
	tests := []struct {
		name     string
		provider Provider
		written  bool
	}{
		{"std_json", ProviderStdJson, true},
		{"dev", ProviderDevSlog, true},
		{"noop", ProviderNoop, false},
		{"unknown falls back to json", Provider("other"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l := New(Config{Provider: tt.provider, Level: INFO}, &buf)
			require.NotNil(t, l)

			l.Info("hello", "key", "value")
			assert.Equal(t, tt.written, buf.Len() > 0)
		})
	}
}

func TestNew_JSONLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Provider: ProviderStdJson, Level: WARN}, &buf)

	l.Info("dropped")
	assert.Zero(t, buf.Len())

	l.Warn("kept", "smtp.host", "mail.example.com")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "kept", rec["msg"])
	assert.Equal(t, "mail.example.com", rec["smtp.host"])
}

func TestNewDefault(t *testing.T) {
	l := NewDefault(Config{Provider: ProviderNoop, Level: DEBUG, Output: OutputStdout})
	assert.NotNil(t, l)
}

func TestInitDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() {
		slog.SetDefault(prev)
	})

	InitDefault(Config{Provider: ProviderNoop})
	assert.NotSame(t, prev, slog.Default())
}

func TestFromContext(t *testing.T) {
	t.Run("empty context returns default", func(t *testing.T) {
		assert.Same(t, slog.Default(), FromContext(context.Background()))
	})

	t.Run("stored logger is returned", func(t *testing.T) {
		l := slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))
		ctx := NewContext(context.Background(), l)
		assert.Same(t, l, FromContext(ctx))
	})

	t.Run("wrong type under key is ignored", func(t *testing.T) {
		ctx := context.WithValue(context.Background(), contextKey, "not a logger")
		assert.Same(t, slog.Default(), FromContext(ctx))
	})
}

func TestFromContextWithErr(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewJSONHandler(&buf, nil))
	ctx := NewContext(context.Background(), l)

	FromContextWithErr(ctx, errors.New("dial failed")).Error("send failed")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "dial failed", rec["error"])
	assert.Contains(t, rec, "stack")
}

func TestWithErr_PlainError(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() {
		slog.SetDefault(prev)
	})

	WithErr(context.Canceled).Warn("stopped")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "context canceled", rec["error"])
	assert.NotContains(t, rec, "stack")
}
