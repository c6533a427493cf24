package observability

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope prefix for laph spans.
const TracerName = "laph"

// Tracer returns a named tracer from the global provider. Until
// SetupTracing installs a provider, spans are no-ops.
func Tracer(component string) trace.Tracer {
	return otel.Tracer(TracerName + "/" + component)
}

// SetupTracing installs a global tracer provider that writes spans as JSON
// to w. The returned function flushes and stops the provider.
func SetupTracing(w io.Writer) (func(context.Context) error, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("creating stdout trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}
