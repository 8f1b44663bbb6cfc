package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func restoreGlobals(t *testing.T) {
	t.Helper()
	provider := otel.GetTracerProvider()
	propagator := otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(provider)
		otel.SetTextMapPropagator(propagator)
	})
}

func TestInit_SetsGlobalProvider(t *testing.T) {
	restoreGlobals(t)

	recorder := tracetest.NewSpanRecorder()
	tp := &testProvider{TracerProvider: tracesdk.NewTracerProvider(tracesdk.WithSpanProcessor(recorder))}

	provider, err := Init(func() (Provider, error) { return tp, nil })
	require.NoError(t, err)
	assert.Same(t, tp, provider)

	_, span := otel.Tracer("test").Start(context.Background(), "SMTP.Send")
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "SMTP.Send", spans[0].Name())
	assert.Contains(t, otel.GetTextMapPropagator().Fields(), "traceparent")
	assert.NoError(t, provider.Close())
}

func TestInit_BuilderError(t *testing.T) {
	restoreGlobals(t)
	before := otel.GetTracerProvider()

	provider, err := Init(func() (Provider, error) { return nil, assert.AnError })
	require.Error(t, err)
	assert.ErrorContains(t, err, "failed to load tracing provider")
	assert.ErrorIs(t, err, assert.AnError)
	assert.IsType(t, &NoopProvider{}, provider)
	assert.Equal(t, before, otel.GetTracerProvider())
}

func TestNoopProvider(t *testing.T) {
	var p Provider = &NoopProvider{}

	_, span := p.Tracer("test").Start(context.Background(), "noop")
	span.End()

	assert.False(t, span.SpanContext().IsValid())
	assert.NoError(t, p.Close())
}

type testProvider struct {
	*tracesdk.TracerProvider
}

func (t *testProvider) Close() error {
	return t.TracerProvider.Shutdown(context.Background())
}
