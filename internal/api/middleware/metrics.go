package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/saferoute/saferoute/internal/provider/resilience"
)

const meterName = "github.com/saferoute/saferoute/internal/api/middleware"

func meterOrGlobal(meter metric.Meter) metric.Meter {
	if meter == nil {
		return otel.Meter(meterName)
	}
	return meter
}

// Metrics holds the HTTP server instruments.
type Metrics struct {
	requestDuration  metric.Float64Histogram
	requestsInFlight metric.Int64UpDownCounter
	responseSize     metric.Int64Histogram
}

// NewMetrics creates the HTTP server instruments on meter, or on the global
// meter provider when meter is nil.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	meter = meterOrGlobal(meter)

	requestDuration, err := meter.Float64Histogram(
		"http.server.request.duration",
		metric.WithDescription("Duration of HTTP server requests"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, err
	}

	requestsInFlight, err := meter.Int64UpDownCounter(
		"http.server.active_requests",
		metric.WithDescription("Number of HTTP requests currently being served"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	responseSize, err := meter.Int64Histogram(
		"http.server.response.body.size",
		metric.WithDescription("Size of HTTP response bodies"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		requestDuration:  requestDuration,
		requestsInFlight: requestsInFlight,
		responseSize:     responseSize,
	}, nil
}

// Middleware records duration, body size and in-flight count per request.
// The duration histogram's count doubles as the request total.
func (m *Metrics) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			method := metric.WithAttributes(attribute.String("http.request.method", r.Method))
			m.requestsInFlight.Add(ctx, 1, method)
			defer m.requestsInFlight.Add(ctx, -1, method)

			captured := serveCaptured(next, w, r)

			attrs := metric.WithAttributes(
				attribute.String("http.request.method", r.Method),
				attribute.String("http.route", routePattern(r)),
				attribute.Int("http.response.status_code", captured.Code),
				attribute.String("http.response.status_class", statusClass(captured.Code)),
			)
			m.requestDuration.Record(ctx, captured.Duration.Seconds(), attrs)
			m.responseSize.Record(ctx, captured.Written, attrs)
		})
	}
}

func statusClass(code int) string {
	return strconv.Itoa(code/100) + "xx"
}

var _ resilience.Metrics = (*ProviderMetrics)(nil)

// ProviderMetrics records directions, places and imagery calls and their
// cache outcomes.
type ProviderMetrics struct {
	requestDuration metric.Float64Histogram
	cacheLookups    metric.Int64Counter
}

// NewProviderMetrics creates the outbound provider instruments on meter, or
// on the global meter provider when meter is nil.
func NewProviderMetrics(meter metric.Meter) (*ProviderMetrics, error) {
	meter = meterOrGlobal(meter)

	requestDuration, err := meter.Float64Histogram(
		"provider.request.duration",
		metric.WithDescription("Duration of upstream provider requests"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	cacheLookups, err := meter.Int64Counter(
		"provider.cache.lookups",
		metric.WithDescription("Provider cache lookups by outcome"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	return &ProviderMetrics{
		requestDuration: requestDuration,
		cacheLookups:    cacheLookups,
	}, nil
}

// RecordRequest records one upstream call. Calls finish after the inbound
// request may have been cancelled, so recording never uses its context.
func (m *ProviderMetrics) RecordRequest(provider, operation string, duration time.Duration, err error) {
	m.requestDuration.Record(context.Background(), duration.Seconds(), metric.WithAttributes(
		attribute.String("provider.name", provider),
		attribute.String("provider.operation", operation),
		attribute.Bool("error", err != nil),
	))
}

// RecordCacheHit counts a lookup served from cache.
func (m *ProviderMetrics) RecordCacheHit(provider, operation string) {
	m.recordLookup(provider, operation, true)
}

// RecordCacheMiss counts a lookup that went upstream.
func (m *ProviderMetrics) RecordCacheMiss(provider, operation string) {
	m.recordLookup(provider, operation, false)
}

func (m *ProviderMetrics) recordLookup(provider, operation string, hit bool) {
	m.cacheLookups.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("provider.name", provider),
		attribute.String("provider.operation", operation),
		attribute.Bool("cache.hit", hit),
	))
}
