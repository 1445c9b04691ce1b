package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Op describes one unit of insights work for telemetry purposes.
type Op struct {
	Name     string // run, generate, lookup, save (required)
	Category string // post category (optional)
	Key      string // cache key (optional)
}

// SpanName returns the deterministic span name for this operation.
// Format: insights.<name>
func (o Op) SpanName() string {
	return "insights." + o.Name
}

func (o Op) attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("insights.op", o.Name),
	}
	if o.Category != "" {
		attrs = append(attrs, attribute.String("insights.category", o.Category))
	}
	if o.Key != "" {
		attrs = append(attrs, attribute.String("insights.cache_key", o.Key))
	}
	return attrs
}

// Tracer wraps OpenTelemetry tracing with operation-scoped span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new span for op.
	StartSpan(ctx context.Context, op Op) (context.Context, trace.Span)

	// EndSpan ends the span, recording any error.
	EndSpan(span trace.Span, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

func newTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

func (t *tracerImpl) StartSpan(ctx context.Context, op Op) (context.Context, trace.Span) {
	attrs := append(op.attributes(), attribute.Bool("insights.error", false))
	return t.tracer.Start(ctx, op.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("insights.error", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

type noopTracer struct {
	noop trace.Tracer
}

func newNoopTracer() Tracer {
	return &noopTracer{noop: tracenoop.NewTracerProvider().Tracer("noop")}
}

func (t *noopTracer) StartSpan(ctx context.Context, op Op) (context.Context, trace.Span) {
	return t.noop.Start(ctx, op.SpanName())
}

func (t *noopTracer) EndSpan(span trace.Span, _ error) {
	span.End()
}
