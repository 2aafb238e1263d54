package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys set on client spans besides the semconv ones.
const (
	AttrURL       = "http.url"
	AttrOutcome   = "restkit.outcome"
	AttrRequestID = "restkit.request_id"
)

// StartClientSpan starts a client span for one outbound request and
// injects the trace context into headers.
func StartClientSpan(ctx context.Context, tracer trace.Tracer, method, url string, headers map[string]string) (context.Context, trace.Span) {
	if tracer == nil {
		tracer = Tracer()
	}
	ctx, span := tracer.Start(ctx, "HTTP "+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			semconv.HTTPMethodKey.String(method),
			attribute.String(AttrURL, url),
		),
	)
	if headers != nil {
		otel.GetTextMapPropagator().Inject(ctx, propagation.MapCarrier(headers))
	}
	return ctx, span
}

// EndClientSpan records the exchange result and ends span. statusCode is 0
// when no response was received.
func EndClientSpan(span trace.Span, statusCode int, outcome string, err error) {
	if statusCode > 0 {
		span.SetAttributes(semconv.HTTPStatusCodeKey.Int(statusCode))
	}
	span.SetAttributes(attribute.String(AttrOutcome, outcome))
	switch {
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	case statusCode >= 400 || statusCode == 0:
		span.SetStatus(codes.Error, outcome)
	}
	span.End()
}
