package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// OtelTracer implements ports.Tracer over a real OpenTelemetry tracer,
// obtained from the global TracerProvider under instrumentationName.
type OtelTracer struct {
	tracer trace.Tracer
}

// NewOtelTracer builds an OtelTracer. Wire a real TracerProvider with
// otel.SetTracerProvider before constructing one, or spans are discarded by
// the SDK's default no-op provider.
func NewOtelTracer(instrumentationName string) *OtelTracer {
	return &OtelTracer{tracer: otel.Tracer(instrumentationName)}
}

// StartSpan starts a span named name carrying attrs as string attributes,
// returning the span's context and an end function.
func (t *OtelTracer) StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, func()) {
	kv := make([]attribute.KeyValue, 0, len(attrs))
	for k, v := range attrs {
		kv = append(kv, attribute.String(k, v))
	}
	spanCtx, span := t.tracer.Start(ctx, name, trace.WithAttributes(kv...))
	return spanCtx, func() { span.End() }
}
