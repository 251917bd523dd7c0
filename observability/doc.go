// Package observability wires OpenTelemetry tracing into the service: a
// component owning the OTLP tracer provider, a gin middleware that opens a
// server span per request, and a gorm plugin that adds a span per
// statement.
//
//	tp, err := observability.InitTracer(ctx, cfg)
//	defer tp.Shutdown(ctx)
//
//	ctx, span := observability.StartSpan(ctx, "music.create_band")
//	defer span.End()
package observability
