package observability

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/restkit/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	ServiceName    string        `yaml:"service_name" mapstructure:"service_name"`
	ServiceVersion string        `yaml:"service_version" mapstructure:"service_version"`
	Environment    string        `yaml:"environment" mapstructure:"environment"`
	Endpoint       string        `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure       bool          `yaml:"insecure" mapstructure:"insecure"`
	Interval       time.Duration `yaml:"interval" mapstructure:"interval"`
}

// DefaultMeterConfig returns defaults for a local collector.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "dev",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter installs a global meter provider exporting over OTLP/HTTP.
// Shut the provider down on exit.
func InitMeter(ctx context.Context, config MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(config.Endpoint)}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	logger.Get("observability").Info("meter initialized", logger.Fields(
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))
	return mp, nil
}

// Meter returns the restkit meter from the global provider.
func Meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// ClientMetrics holds the instruments recorded for outbound requests.
type ClientMetrics struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
	inFlight metric.Int64UpDownCounter
	queued   metric.Int64Counter
}

// NewClientMetrics creates the client instruments on meter.
func NewClientMetrics(meter metric.Meter) (*ClientMetrics, error) {
	requests, err := meter.Int64Counter("restkit.client.requests",
		metric.WithDescription("Completed outbound requests by method, outcome and status"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating restkit.client.requests counter: %w", err)
	}

	duration, err := meter.Float64Histogram("restkit.client.duration",
		metric.WithDescription("Duration of outbound requests in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating restkit.client.duration histogram: %w", err)
	}

	inFlight, err := meter.Int64UpDownCounter("restkit.client.in_flight",
		metric.WithDescription("Outbound requests currently in flight"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating restkit.client.in_flight counter: %w", err)
	}

	queued, err := meter.Int64Counter("restkit.client.queued",
		metric.WithDescription("Requests submitted to a queued connection"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating restkit.client.queued counter: %w", err)
	}

	return &ClientMetrics{
		requests: requests,
		duration: duration,
		inFlight: inFlight,
		queued:   queued,
	}, nil
}

// RecordStart marks a request as in flight. Safe on a nil receiver.
func (m *ClientMetrics) RecordStart(ctx context.Context) {
	if m == nil {
		return
	}
	m.inFlight.Add(ctx, 1)
}

// RecordQueued counts a request submitted for a later Run.
func (m *ClientMetrics) RecordQueued(ctx context.Context, method string) {
	if m == nil {
		return
	}
	m.queued.Add(ctx, 1, metric.WithAttributes(attribute.String("method", method)))
}

// RecordEnd records a finished request. statusCode is 0 for transport
// failures.
func (m *ClientMetrics) RecordEnd(ctx context.Context, method, host, outcome string, statusCode int, d time.Duration) {
	if m == nil {
		return
	}
	m.inFlight.Add(ctx, -1)
	m.requests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("host", host),
		attribute.String("outcome", outcome),
		attribute.String("status", strconv.Itoa(statusCode)),
	))
	m.duration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("host", host),
	))
}
