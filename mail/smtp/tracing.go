package smtp

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pure-golang/mailer/mail"
)

const tracerName = "github.com/pure-golang/mailer/mail/smtp"

// startSpan opens the client span for one dispatch.
func startSpan(ctx context.Context, cfg *mail.Config, addr string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("smtp.host", cfg.Server()),
		attribute.String("smtp.address", addr),
		attribute.String("smtp.encryption", cfg.Encryption().String()),
		attribute.Bool("smtp.local", cfg.IsLocal()),
	}
	if port, ok := cfg.Port(); ok {
		attrs = append(attrs, attribute.Int("smtp.port", int(port)))
	}
	return otel.Tracer(tracerName).Start(ctx, "SMTP.Send",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
}

// recordError sets the span status from err.
func recordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if kind := mail.KindOf(err); kind != "" {
			span.SetAttributes(attribute.String("mail.error.kind", string(kind)))
		}
	} else {
		span.SetStatus(codes.Ok, "")
	}
}
