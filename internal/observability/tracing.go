package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope for triage spans.
const TracerName = "helpdesk-triage"

// Span attribute keys.
const (
	AttrTicketID   = "ticket_id"
	AttrTraceID    = "trace_id"
	AttrStage      = "stage"
	AttrCategory   = "category"
	AttrConfidence = "confidence"
	AttrAction     = "action"
)

// Tracer wraps an OpenTelemetry tracer with triage span helpers.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer uses the globally registered provider; without one spans are no-ops.
func NewTracer() *Tracer {
	return &Tracer{tracer: otel.Tracer(TracerName)}
}

// StartRunSpan starts the root span of one triage run.
func (t *Tracer) StartRunSpan(ctx context.Context, ticketID, traceID string) (context.Context, trace.Span) {
	if t == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return t.tracer.Start(ctx, "triage.run",
		trace.WithAttributes(
			attribute.String(AttrTicketID, ticketID),
			attribute.String(AttrTraceID, traceID),
		),
	)
}

// StartStageSpan starts a child span for one stage.
func (t *Tracer) StartStageSpan(ctx context.Context, stage string) (context.Context, trace.Span) {
	if t == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return t.tracer.Start(ctx, "triage.stage."+stage,
		trace.WithAttributes(attribute.String(AttrStage, stage)),
	)
}

// EndSpan records err on span (if any) and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
