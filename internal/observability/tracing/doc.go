// Package tracing provides OpenTelemetry tracing integration.
//
// It provides an HTTP middleware that starts a server span per request and a
// package-wide tracer for creating spans by hand. Spans go to whichever tracer
// provider and propagator are installed globally through otel; this package
// does not configure an exporter itself.
//
// Features:
//   - HTTP request tracing (Middleware), with the trace ID in the X-Trace-Id response header
//   - Incoming trace context extracted through the global text-map propagator
//   - A shared tracer (GetTracer)
//
// Example usage:
//
//	import "newsflow-bridge/internal/observability/tracing"
//
//	handler := tracing.Middleware(mux)
//
//	func processRequest(ctx context.Context) {
//	    ctx, span := tracing.GetTracer().Start(ctx, "process-request")
//	    defer span.End()
//	    // ... process request ...
//	}
package tracing
