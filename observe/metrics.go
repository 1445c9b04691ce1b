package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Cache lookup results recorded by RecordCacheLookup.
const (
	LookupHit     = "hit"
	LookupMiss    = "miss"
	LookupCorrupt = "corrupt"
)

// Metrics records pipeline metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordRun records one operation with its duration and error status.
	RecordRun(ctx context.Context, op Op, duration time.Duration, err error)

	// RecordCacheLookup counts a cache lookup by result (hit, miss, corrupt).
	RecordCacheLookup(ctx context.Context, op Op, result string)
}

type metricsImpl struct {
	totalCount   metric.Int64Counter
	errorCount   metric.Int64Counter
	durationHist metric.Float64Histogram
	lookupCount  metric.Int64Counter
}

func newMetrics(meter metric.Meter) (*metricsImpl, error) {
	totalCount, err := meter.Int64Counter(
		"insights.run.total",
		metric.WithDescription("Total number of insights operations"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"insights.run.errors",
		metric.WithDescription("Total number of failed insights operations"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"insights.run.duration_ms",
		metric.WithDescription("Insights operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	lookupCount, err := meter.Int64Counter(
		"insights.cache.lookups",
		metric.WithDescription("Cache lookups by result"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		totalCount:   totalCount,
		errorCount:   errorCount,
		durationHist: durationHist,
		lookupCount:  lookupCount,
	}, nil
}

func (m *metricsImpl) RecordRun(ctx context.Context, op Op, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{attribute.String("insights.op", op.Name)}
	if op.Category != "" {
		attrs = append(attrs, attribute.String("insights.category", op.Category))
	}
	opt := metric.WithAttributes(attrs...)

	m.totalCount.Add(ctx, 1, opt)
	if err != nil {
		m.errorCount.Add(ctx, 1, opt)
	}
	m.durationHist.Record(ctx, float64(duration.Milliseconds()), opt)
}

func (m *metricsImpl) RecordCacheLookup(ctx context.Context, op Op, result string) {
	attrs := []attribute.KeyValue{attribute.String("result", result)}
	if op.Category != "" {
		attrs = append(attrs, attribute.String("insights.category", op.Category))
	}
	m.lookupCount.Add(ctx, 1, metric.WithAttributes(attrs...))
}

type noopMetrics struct{}

func (noopMetrics) RecordRun(context.Context, Op, time.Duration, error) {}

func (noopMetrics) RecordCacheLookup(context.Context, Op, string) {}
