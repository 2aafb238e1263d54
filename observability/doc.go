// Package observability wires restkit into OpenTelemetry.
//
// Every request made through a Connection gets a client span (with the
// trace context injected into the outgoing headers) and is counted in the
// ClientMetrics instruments. Without InitTracer/InitMeter the global no-op
// providers make both free.
//
//	tp, err := observability.InitTracer(ctx, observability.DefaultTracerConfig("restkit"))
//	defer tp.Shutdown(ctx)
//
//	metrics, err := observability.NewClientMetrics(observability.Meter())
//	conn, err := httpclient.NewConnection(site, httpclient.WithMetrics(metrics))
package observability
