// Package observe provides the observability primitives for debatescribe:
// OpenTelemetry metrics, tracing, trace-aware logging and HTTP middleware.
//
// Metrics go through the OpenTelemetry Metrics API and are exposed for
// Prometheus scraping via [InitProvider]. [DefaultMetrics] is a lazily built
// package-level instance; tests should use [NewMetrics] with their own
// [metric.MeterProvider].
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/MrWong99/debatescribe"

// Outcome labels shared by several instruments.
const (
	OutcomeSuccess      = "success"
	OutcomeNoTranscript = "no_transcript"
	OutcomeUnavailable  = "unavailable"
	OutcomeError        = "error"
	OutcomeSkipped      = "skipped"
)

// Metrics holds all metric instruments. All fields are safe for concurrent
// use.
type Metrics struct {
	// AcquisitionDuration is end-to-end AcquireTranscript latency.
	// Attributes: platform, outcome.
	AcquisitionDuration metric.Float64Histogram

	// StrategyDuration is the latency of a single strategy run.
	// Attributes: strategy, outcome.
	StrategyDuration metric.Float64Histogram

	// FetchDuration is the latency of outbound HTTP fetches.
	// Attributes: host, status.
	FetchDuration metric.Float64Histogram

	// STTDuration and LLMDuration track provider latency.
	STTDuration metric.Float64Histogram
	LLMDuration metric.Float64Histogram

	// StrategyAttempts counts strategy runs.
	// Attributes: strategy, platform, outcome.
	StrategyAttempts metric.Int64Counter

	// Acquisitions counts finished requests.
	// Attributes: platform, outcome, verified.
	Acquisitions metric.Int64Counter

	// SecondaryLookups counts secondary transcript lookups.
	// Attributes: platform, outcome (found, absent, failed).
	SecondaryLookups metric.Int64Counter

	// Verifications counts cross-verification results.
	// Attributes: outcome (verified, unverified, degraded).
	Verifications metric.Int64Counter

	// ProviderRequests counts provider API calls.
	// Attributes: provider, kind, status.
	ProviderRequests metric.Int64Counter

	// ProviderErrors counts provider errors. Attributes: provider, kind.
	ProviderErrors metric.Int64Counter

	// BreakerTransitions counts circuit breaker state changes.
	// Attributes: breaker, to.
	BreakerTransitions metric.Int64Counter

	// ActiveAcquisitions is the number of in-flight requests.
	ActiveAcquisitions metric.Int64UpDownCounter

	// HTTPRequestDuration tracks inbound HTTP handling time.
	// Attributes: method, path.
	HTTPRequestDuration metric.Float64Histogram
}

// providerBuckets fit single API calls; acquisitionBuckets fit whole requests
// that may download and transcribe an hour of audio.
var (
	providerBuckets    = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120}
	acquisitionBuckets = []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600}
)

// NewMetrics creates all instruments on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	met := &Metrics{}

	hist := func(dst *metric.Float64Histogram, name, desc string, buckets []float64) error {
		opts := []metric.Float64HistogramOption{metric.WithDescription(desc), metric.WithUnit("s")}
		if buckets != nil {
			opts = append(opts, metric.WithExplicitBucketBoundaries(buckets...))
		}
		h, err := m.Float64Histogram(name, opts...)
		*dst = h
		return err
	}
	counter := func(dst *metric.Int64Counter, name, desc string) error {
		c, err := m.Int64Counter(name, metric.WithDescription(desc))
		*dst = c
		return err
	}

	steps := []func() error{
		func() error {
			return hist(&met.AcquisitionDuration, "debatescribe.acquisition.duration",
				"End-to-end transcript acquisition latency.", acquisitionBuckets)
		},
		func() error {
			return hist(&met.StrategyDuration, "debatescribe.strategy.duration",
				"Latency of a single acquisition strategy run.", acquisitionBuckets)
		},
		func() error {
			return hist(&met.FetchDuration, "debatescribe.fetch.duration",
				"Latency of outbound HTTP fetches.", providerBuckets)
		},
		func() error {
			return hist(&met.STTDuration, "debatescribe.stt.duration",
				"Latency of speech-to-text transcription.", acquisitionBuckets)
		},
		func() error {
			return hist(&met.LLMDuration, "debatescribe.llm.duration",
				"Latency of LLM reconciliation calls.", providerBuckets)
		},
		func() error {
			return counter(&met.StrategyAttempts, "debatescribe.strategy.attempts",
				"Acquisition strategy runs by strategy, platform and outcome.")
		},
		func() error {
			return counter(&met.Acquisitions, "debatescribe.acquisitions",
				"Finished acquisition requests by platform, outcome and verification.")
		},
		func() error {
			return counter(&met.SecondaryLookups, "debatescribe.secondary.lookups",
				"Secondary transcript lookups by platform and outcome.")
		},
		func() error {
			return counter(&met.Verifications, "debatescribe.verifications",
				"Cross-verification results by outcome.")
		},
		func() error {
			return counter(&met.ProviderRequests, "debatescribe.provider.requests",
				"Provider API requests by provider, kind and status.")
		},
		func() error {
			return counter(&met.ProviderErrors, "debatescribe.provider.errors",
				"Provider errors by provider and kind.")
		},
		func() error {
			return counter(&met.BreakerTransitions, "debatescribe.breaker.transitions",
				"Circuit breaker state changes by breaker and target state.")
		},
		func() error {
			var err error
			met.ActiveAcquisitions, err = m.Int64UpDownCounter("debatescribe.active_acquisitions",
				metric.WithDescription("Number of in-flight acquisition requests."))
			return err
		},
		func() error {
			return hist(&met.HTTPRequestDuration, "debatescribe.http.request.duration",
				"HTTP request latency by method and path.", nil)
		},
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}
	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics], created on first call
// from [otel.GetMeterProvider]. Call it after [InitProvider] so the
// instruments bind to the exporting provider.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is shorthand for [attribute.String].
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordStrategy records one strategy run.
func (m *Metrics) RecordStrategy(ctx context.Context, strategy, platform, outcome string, d time.Duration) {
	m.StrategyAttempts.Add(ctx, 1, metric.WithAttributes(
		Attr("strategy", strategy), Attr("platform", platform), Attr("outcome", outcome)))
	m.StrategyDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		Attr("strategy", strategy), Attr("outcome", outcome)))
}

// RecordAcquisition records one finished request.
func (m *Metrics) RecordAcquisition(ctx context.Context, platform, outcome string, verified bool, d time.Duration) {
	m.Acquisitions.Add(ctx, 1, metric.WithAttributes(
		Attr("platform", platform), Attr("outcome", outcome), attribute.Bool("verified", verified)))
	m.AcquisitionDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		Attr("platform", platform), Attr("outcome", outcome)))
}

// RecordSecondary records a secondary lookup outcome.
func (m *Metrics) RecordSecondary(ctx context.Context, platform, outcome string) {
	m.SecondaryLookups.Add(ctx, 1, metric.WithAttributes(Attr("platform", platform), Attr("outcome", outcome)))
}

// RecordVerification records a verification outcome.
func (m *Metrics) RecordVerification(ctx context.Context, outcome string) {
	m.Verifications.Add(ctx, 1, metric.WithAttributes(Attr("outcome", outcome)))
}

// RecordFetch records one outbound HTTP fetch. status is the HTTP status
// code as text, or "error" when no response arrived.
func (m *Metrics) RecordFetch(ctx context.Context, host, status string, d time.Duration) {
	m.FetchDuration.Record(ctx, d.Seconds(), metric.WithAttributes(Attr("host", host), Attr("status", status)))
}

// RecordProviderRequest records a provider request with its status.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, kind, status string) {
	m.ProviderRequests.Add(ctx, 1, metric.WithAttributes(
		Attr("provider", provider), Attr("kind", kind), Attr("status", status)))
}

// RecordProviderError records a provider error.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1, metric.WithAttributes(Attr("provider", provider), Attr("kind", kind)))
}

// RecordBreakerTransition records a circuit breaker state change.
func (m *Metrics) RecordBreakerTransition(ctx context.Context, breaker, to string) {
	m.BreakerTransitions.Add(ctx, 1, metric.WithAttributes(Attr("breaker", breaker), Attr("to", to)))
}
