package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

func serviceResource(serviceName string) *resource.Resource {
	res, _ := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(semconv.ServiceName(serviceName)),
	)
	return res
}

// SetupTracing installs a global tracer provider exporting spans to stdout.
// The returned function flushes and stops the provider.
func SetupTracing(serviceName string) (func(context.Context) error, error) {
	exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize stdouttrace exporter: %w", err)
	}
	provider := trace.NewTracerProvider(
		trace.WithBatcher(exp),
		trace.WithResource(serviceResource(serviceName)),
	)
	otel.SetTracerProvider(provider)
	return provider.Shutdown, nil
}

// SetupPrometheusMetrics installs a global meter provider backed by the
// Prometheus exporter. Metrics are served by promhttp.Handler on the router.
func SetupPrometheusMetrics(serviceName string) (*metric.MeterProvider, error) {
	exp, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize prometheus exporter: %w", err)
	}
	mp := metric.NewMeterProvider(
		metric.WithReader(exp),
		metric.WithResource(serviceResource(serviceName)),
	)
	otel.SetMeterProvider(mp)
	return mp, nil
}
