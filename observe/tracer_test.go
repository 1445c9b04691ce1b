package observe

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func newRecordingTracer() (*tracerImpl, *tracetest.SpanRecorder) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	return &tracerImpl{tracer: tp.Tracer("test")}, recorder
}

func spanAttrs(s sdktrace.ReadOnlySpan) map[string]attribute.Value {
	out := make(map[string]attribute.Value)
	for _, a := range s.Attributes() {
		out[string(a.Key)] = a.Value
	}
	return out
}

func TestOp_SpanName(t *testing.T) {
	if got := (Op{Name: "run", Category: "Sales"}).SpanName(); got != "insights.run" {
		t.Errorf("SpanName() = %q, want insights.run", got)
	}
}

func TestTracer_SpanAttributes(t *testing.T) {
	tr, recorder := newRecordingTracer()

	_, span := tr.StartSpan(context.Background(), Op{Name: "run", Category: "Sales", Key: "0123"})
	tr.EndSpan(span, nil)

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	s := spans[0]
	if s.Name() != "insights.run" {
		t.Errorf("span name = %q", s.Name())
	}
	if s.SpanKind() != trace.SpanKindInternal {
		t.Errorf("span kind = %v", s.SpanKind())
	}
	attrs := spanAttrs(s)
	if attrs["insights.category"].AsString() != "Sales" {
		t.Errorf("insights.category = %v", attrs["insights.category"])
	}
	if attrs["insights.cache_key"].AsString() != "0123" {
		t.Errorf("insights.cache_key = %v", attrs["insights.cache_key"])
	}
	if attrs["insights.error"].AsBool() {
		t.Error("insights.error = true on success")
	}
	if s.Status().Code != codes.Ok {
		t.Errorf("status = %v, want Ok", s.Status().Code)
	}
}

func TestTracer_MinimalOpOmitsOptionalAttributes(t *testing.T) {
	tr, recorder := newRecordingTracer()

	_, span := tr.StartSpan(context.Background(), Op{Name: "lookup"})
	tr.EndSpan(span, nil)

	attrs := spanAttrs(recorder.Ended()[0])
	if _, ok := attrs["insights.category"]; ok {
		t.Error("unexpected insights.category")
	}
	if _, ok := attrs["insights.cache_key"]; ok {
		t.Error("unexpected insights.cache_key")
	}
}

func TestTracer_ErrorRecording(t *testing.T) {
	tr, recorder := newRecordingTracer()

	_, span := tr.StartSpan(context.Background(), Op{Name: "generate"})
	tr.EndSpan(span, errors.New("model unavailable"))

	s := recorder.Ended()[0]
	if s.Status().Code != codes.Error || s.Status().Description != "model unavailable" {
		t.Errorf("status = %+v", s.Status())
	}
	if !spanAttrs(s)["insights.error"].AsBool() {
		t.Error("insights.error = false on failure")
	}
	if len(s.Events()) == 0 {
		t.Error("expected recorded error event")
	}
}

func TestTracer_ContextPropagation(t *testing.T) {
	tr, recorder := newRecordingTracer()

	ctx, parent := tr.StartSpan(context.Background(), Op{Name: "run"})
	_, child := tr.StartSpan(ctx, Op{Name: "generate"})
	tr.EndSpan(child, nil)
	tr.EndSpan(parent, nil)

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("got %d spans, want 2", len(spans))
	}
	if spans[0].Parent().SpanID() != spans[1].SpanContext().SpanID() {
		t.Error("child span is not parented to run span")
	}
}
