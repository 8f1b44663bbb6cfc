package smtp

import (
	"context"
	"io"
	"testing"

	gosmtp "github.com/emersion/go-smtp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

var refusedReply = &gosmtp.SMTPError{Code: 553, EnhancedCode: gosmtp.EnhancedCode{5, 7, 1}, Message: "sender not allowed"}

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := tracesdk.NewTracerProvider(tracesdk.WithSpanProcessor(recorder))

	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return recorder
}

func attrs(kvs []attribute.KeyValue) map[attribute.Key]attribute.Value {
	m := make(map[attribute.Key]attribute.Value, len(kvs))
	for _, kv := range kvs {
		m[kv.Key] = kv.Value
	}
	return m
}

func TestDispatch_Span(t *testing.T) {
	recorder := recordSpans(t)
	s, _ := newFakeSender(t, remote("starttls", 587))

	require.NoError(t, s.Send(context.Background(), hello))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "SMTP.Send", span.Name())
	assert.Equal(t, codes.Ok, span.Status().Code)

	a := attrs(span.Attributes())
	assert.Equal(t, "smtp.example.com", a["smtp.host"].AsString())
	assert.Equal(t, "smtp.example.com:587", a["smtp.address"].AsString())
	assert.Equal(t, "starttls", a["smtp.encryption"].AsString())
	assert.Equal(t, int64(587), a["smtp.port"].AsInt64())
	assert.False(t, a["smtp.local"].AsBool())

	var events []string
	for _, e := range span.Events() {
		events = append(events, e.Name)
	}
	assert.Equal(t, []string{"smtp.starttls", "smtp.auth", "smtp.mail", "smtp.rcpt", "smtp.data"}, events)
}

func TestDispatch_SpanError(t *testing.T) {
	recorder := recordSpans(t)
	s, d := newFakeSender(t, remote("ssl", 465))
	d.session.fail = map[string]error{"rcpt": io.EOF}

	require.Error(t, s.Send(context.Background(), hello))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "ServerDisconnected", attrs(spans[0].Attributes())["mail.error.kind"].AsString())
}

func TestDispatch_Metrics(t *testing.T) {
	ok := sentTotal.WithLabelValues("ssl", statusOK)
	refused := sentTotal.WithLabelValues("ssl", "SenderRefused")
	okBefore := testutil.ToFloat64(ok)
	refusedBefore := testutil.ToFloat64(refused)

	s, _ := newFakeSender(t, remote("ssl", 465))
	require.NoError(t, s.Send(context.Background(), hello))
	assert.Equal(t, okBefore+1, testutil.ToFloat64(ok))

	s, d := newFakeSender(t, remote("ssl", 465))
	d.session.fail = map[string]error{"mail": refusedReply}
	require.Error(t, s.Send(context.Background(), hello))
	assert.Equal(t, refusedBefore+1, testutil.ToFloat64(refused))
}
