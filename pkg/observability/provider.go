package observability

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Provider holds the meter provider and its instruments.
type Provider struct {
	MeterProvider *sdkmetric.MeterProvider
	Metrics       *Metrics
	prometheus    bool
}

// NewProvider creates a meter provider. With enablePrometheus the metrics are
// exposed through the default Prometheus registry.
func NewProvider(enablePrometheus bool) (*Provider, error) {
	p := &Provider{prometheus: enablePrometheus}

	if enablePrometheus {
		exporter, err := prometheus.New()
		if err != nil {
			return nil, err
		}
		p.MeterProvider = sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	} else {
		p.MeterProvider = sdkmetric.NewMeterProvider()
	}
	otel.SetMeterProvider(p.MeterProvider)

	metrics, err := NewMetrics(p.MeterProvider)
	if err != nil {
		return nil, err
	}
	p.Metrics = metrics
	return p, nil
}

// PrometheusHandler returns an http.Handler for the /metrics endpoint.
func (p *Provider) PrometheusHandler() http.Handler {
	if !p.prometheus {
		return http.NotFoundHandler()
	}
	return promhttp.Handler()
}

// Shutdown flushes and stops the meter provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.MeterProvider != nil {
		return p.MeterProvider.Shutdown(ctx)
	}
	return nil
}
