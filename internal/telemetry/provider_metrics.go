package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/ai4care/ai4care/internal/telemetry"

// ProviderMetrics records outbound calls to the language model and maps
// providers.
type ProviderMetrics struct {
	requestDuration metric.Float64Histogram
	requestTotal    metric.Int64Counter
	cacheHit        metric.Int64Counter
	cacheMiss       metric.Int64Counter
	verdictTotal    metric.Int64Counter
	estimateTotal   metric.Int64Counter
}

// NewProviderMetrics creates the instruments on mp, or on the global meter
// provider when mp is nil.
func NewProviderMetrics(mp metric.MeterProvider) (*ProviderMetrics, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(meterName)

	requestDuration, err := meter.Float64Histogram(
		"provider.request.duration",
		metric.WithDescription("Duration of provider requests in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	requestTotal, err := meter.Int64Counter(
		"provider.request.total",
		metric.WithDescription("Total number of provider requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	cacheHit, err := meter.Int64Counter(
		"provider.cache.hit",
		metric.WithDescription("Number of cache hits"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return nil, err
	}

	cacheMiss, err := meter.Int64Counter(
		"provider.cache.miss",
		metric.WithDescription("Number of cache misses"),
		metric.WithUnit("{miss}"),
	)
	if err != nil {
		return nil, err
	}

	verdictTotal, err := meter.Int64Counter(
		"triage.verdict.total",
		metric.WithDescription("Triage verdicts by urgency level"),
		metric.WithUnit("{verdict}"),
	)
	if err != nil {
		return nil, err
	}

	estimateTotal, err := meter.Int64Counter(
		"facility.distance.estimated",
		metric.WithDescription("Facilities whose distance fell back to a straight-line estimate"),
		metric.WithUnit("{facility}"),
	)
	if err != nil {
		return nil, err
	}

	return &ProviderMetrics{
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheHit:        cacheHit,
		cacheMiss:       cacheMiss,
		verdictTotal:    verdictTotal,
		estimateTotal:   estimateTotal,
	}, nil
}

// RecordRequest records one provider call.
func (m *ProviderMetrics) RecordRequest(provider, operation string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("provider.name", provider),
		attribute.String("provider.operation", operation),
	}
	if err != nil {
		attrs = append(attrs, attribute.Bool("error", true))
	}

	// the request context may already be cancelled
	ctx := context.Background()
	m.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	m.requestTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordCacheHit records a cache hit.
func (m *ProviderMetrics) RecordCacheHit(provider, operation string) {
	m.cacheHit.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("provider.name", provider),
		attribute.String("provider.operation", operation),
	))
}

// RecordCacheMiss records a cache miss.
func (m *ProviderMetrics) RecordCacheMiss(provider, operation string) {
	m.cacheMiss.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("provider.name", provider),
		attribute.String("provider.operation", operation),
	))
}

// RecordVerdict counts one triage verdict.
func (m *ProviderMetrics) RecordVerdict(level string) {
	m.verdictTotal.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("urgency", level),
	))
}

// RecordDistanceEstimate counts facilities annotated with an estimate.
func (m *ProviderMetrics) RecordDistanceEstimate(n int) {
	if n <= 0 {
		return
	}
	m.estimateTotal.Add(context.Background(), int64(n))
}
