// Package observe provides observability primitives for dubpipe:
// OpenTelemetry metric instruments and a Prometheus exporter bridge so the
// pipeline can be scraped via the standard /metrics endpoint.
//
// A package-level default [Metrics] instance ([DefaultMetrics]) is provided
// for convenience; tests should use [NewMetrics] with a custom
// [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all dubpipe metrics.
const meterName = "github.com/bekzodm/dubpipe"

// Metrics holds all OpenTelemetry metric instruments for the pipeline.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// SynthesisDuration tracks end-to-end synthesis latency per segment.
	// Use with attribute.String("provider", ...).
	SynthesisDuration metric.Float64Histogram

	// PostProcessDuration tracks the mastering and humanization passes.
	PostProcessDuration metric.Float64Histogram

	// ClipDuration tracks per-segment video mux latency.
	ClipDuration metric.Float64Histogram

	// LockWaitDuration tracks how long callers busy-wait on a peer's
	// generation lock.
	LockWaitDuration metric.Float64Histogram

	// ProviderRequests counts TTS backend calls. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("status", ...)
	ProviderRequests metric.Int64Counter

	// ProviderErrors counts TTS backend failures by provider.
	ProviderErrors metric.Int64Counter

	// ClipsGenerated counts clip generations. Use with attribute:
	//   attribute.String("status", ...)
	ClipsGenerated metric.Int64Counter
}

// latencyBuckets covers both quick CLI synthesis and long GPU renders.
var latencyBuckets = []float64{
	0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.SynthesisDuration, err = m.Float64Histogram("dubpipe.synthesis.duration",
		metric.WithDescription("End-to-end synthesis latency per segment."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.PostProcessDuration, err = m.Float64Histogram("dubpipe.postprocess.duration",
		metric.WithDescription("Latency of the audio mastering passes."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ClipDuration, err = m.Float64Histogram("dubpipe.clip.duration",
		metric.WithDescription("Latency of per-segment clip generation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.LockWaitDuration, err = m.Float64Histogram("dubpipe.lock.wait",
		metric.WithDescription("Time spent waiting on a peer's generation lock."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ProviderRequests, err = m.Int64Counter("dubpipe.provider.requests",
		metric.WithDescription("Total TTS backend requests by provider and status."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("dubpipe.provider.errors",
		metric.WithDescription("Total TTS backend failures by provider."),
	); err != nil {
		return nil, err
	}
	if met.ClipsGenerated, err = m.Int64Counter("dubpipe.clips.generated",
		metric.WithDescription("Total clip generations by status."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the process-wide [Metrics] instance backed by the
// global OTel meter provider. Instruments are created lazily on first use.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		met, err := NewMetrics(otel.GetMeterProvider())
		if err != nil {
			// The no-op provider never fails; a real provider failing to
			// create instruments is a programming error.
			panic(err)
		}
		defaultMetrics = met
	})
	return defaultMetrics
}

// RecordSynthesis records one synthesis attempt.
func (m *Metrics) RecordSynthesis(ctx context.Context, provider string, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
		m.ProviderErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("provider", provider)))
	}
	m.ProviderRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("status", status),
	))
	m.SynthesisDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("provider", provider),
	))
}

// RecordClip records one clip generation attempt.
func (m *Metrics) RecordClip(ctx context.Context, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.ClipsGenerated.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	m.ClipDuration.Record(ctx, d.Seconds())
}
