// Package observability provides OpenTelemetry metrics exported for Prometheus.
package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/statio/backend"

// Metrics holds the API and broadcast instruments.
type Metrics struct {
	RequestsTotal   metric.Int64Counter
	RequestDuration metric.Float64Histogram
	ActiveRequests  metric.Int64UpDownCounter

	BroadcastsTotal    metric.Int64Counter
	SubscribersDropped metric.Int64Counter
	ActiveSubscribers  metric.Int64UpDownCounter

	NotificationsTotal metric.Int64Counter
}

// NewMetrics creates a new Metrics instance with all instruments registered.
func NewMetrics(meterProvider metric.MeterProvider) (*Metrics, error) {
	if meterProvider == nil {
		meterProvider = otel.GetMeterProvider()
	}
	meter := meterProvider.Meter(instrumentationName)
	m := &Metrics{}

	var err error
	m.RequestsTotal, err = meter.Int64Counter(
		"statio.http.requests.total",
		metric.WithDescription("Total number of HTTP requests served"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	m.RequestDuration, err = meter.Float64Histogram(
		"statio.http.request.duration",
		metric.WithDescription("Request duration in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000),
	)
	if err != nil {
		return nil, err
	}

	m.ActiveRequests, err = meter.Int64UpDownCounter(
		"statio.http.requests.active",
		metric.WithDescription("Number of requests currently being processed"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	m.BroadcastsTotal, err = meter.Int64Counter(
		"statio.realtime.broadcasts.total",
		metric.WithDescription("Events published to realtime topics"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, err
	}

	m.SubscribersDropped, err = meter.Int64Counter(
		"statio.realtime.subscribers.dropped",
		metric.WithDescription("Subscribers removed after a failed or blocked delivery"),
		metric.WithUnit("{subscriber}"),
	)
	if err != nil {
		return nil, err
	}

	m.ActiveSubscribers, err = meter.Int64UpDownCounter(
		"statio.realtime.subscribers.active",
		metric.WithDescription("Number of connected realtime subscribers"),
		metric.WithUnit("{subscriber}"),
	)
	if err != nil {
		return nil, err
	}

	m.NotificationsTotal, err = meter.Int64Counter(
		"statio.notifications.total",
		metric.WithDescription("Notification events emitted"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordRequest records metrics for a completed request.
func (m *Metrics) RecordRequest(ctx context.Context, method, route string, statusCode int, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.Int("status_code", statusCode),
		attribute.String("status_class", statusClass(statusCode)),
	)
	m.RequestsTotal.Add(ctx, 1, attrs)
	m.RequestDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
}

// RequestStart should be called when a request starts.
func (m *Metrics) RequestStart(ctx context.Context) {
	m.ActiveRequests.Add(ctx, 1)
}

// RequestEnd should be called when a request ends.
func (m *Metrics) RequestEnd(ctx context.Context) {
	m.ActiveRequests.Add(ctx, -1)
}

// BroadcastSent records an event published on topic.
func (m *Metrics) BroadcastSent(topic string) {
	m.BroadcastsTotal.Add(context.Background(), 1, metric.WithAttributes(attribute.String("topic", topic)))
}

// SubscriberAdded records a new subscriber on topic.
func (m *Metrics) SubscriberAdded(topic string) {
	m.ActiveSubscribers.Add(context.Background(), 1, metric.WithAttributes(attribute.String("topic", topic)))
}

// SubscriberRemoved records a subscriber leaving topic; dropped marks a forced removal.
func (m *Metrics) SubscriberRemoved(topic string, dropped bool) {
	attrs := metric.WithAttributes(attribute.String("topic", topic))
	m.ActiveSubscribers.Add(context.Background(), -1, attrs)
	if dropped {
		m.SubscribersDropped.Add(context.Background(), 1, attrs)
	}
}

// NotificationEmitted records a notification event by name.
func (m *Metrics) NotificationEmitted(ctx context.Context, event string) {
	m.NotificationsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("event", event)))
}

func statusClass(code int) string {
	switch {
	case code >= 100 && code < 200:
		return "1xx"
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500 && code < 600:
		return "5xx"
	default:
		return "unknown"
	}
}
