package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/xraph/filer"

// Tracer provides OpenTelemetry tracing for submissions and status polls.
// A nil *Tracer starts no spans.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer creates a tracer from the global provider.
func NewTracer() *Tracer {
	return &Tracer{
		tracer: otel.Tracer(tracerName),
	}
}

// StartSubmitSpan starts a span for one submission attempt.
func (t *Tracer) StartSubmitSpan(ctx context.Context, eventID, eventType, mode string) (context.Context, trace.Span) {
	if t == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return t.tracer.Start(ctx, "filer.submit",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("filer.event_id", eventID),
			attribute.String("filer.event_type", eventType),
			attribute.String("filer.backend_mode", mode),
		),
	)
}

// StartPollSpan starts a span for one status query.
func (t *Tracer) StartPollSpan(ctx context.Context, protocol string) (context.Context, trace.Span) {
	if t == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return t.tracer.Start(ctx, "filer.query_status",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("filer.protocol", protocol)),
	)
}

// EndSpan ends a span with the resulting status and error.
func (t *Tracer) EndSpan(span trace.Span, status string, err error) {
	if t == nil {
		return
	}
	if status != "" {
		span.SetAttributes(attribute.String("filer.status", status))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
