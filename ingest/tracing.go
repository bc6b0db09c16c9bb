package ingest

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/signalsfoundry/orbital-scope/ingest"

// startLoadSpan opens a span for one feed load. Feed loads are the only scope
// operations slow and rare enough to be worth tracing; the frame and tick
// paths stay span-free.
func startLoadSpan(ctx context.Context, source string) (context.Context, trace.Span) {
	tracer := otel.Tracer(tracerName)
	return tracer.Start(ctx, "ingest/"+source,
		trace.WithAttributes(attribute.String("feed.source", source)))
}

// endLoadSpan records per-record outcome counts before closing the span.
func endLoadSpan(span trace.Span, accepted, skipped int, err error) {
	if err != nil {
		span.RecordError(err)
	}
	span.SetAttributes(
		attribute.Int("feed.accepted", accepted),
		attribute.Int("feed.skipped", skipped),
	)
	span.End()
}
