package sandbox

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/rhuss/laph/pkg/observability"
)

// Instrument wraps r so every execution is counted, timed and traced.
func Instrument(r Runner) Runner {
	return &instrumented{next: r, tracer: observability.Tracer("sandbox")}
}

type instrumented struct {
	next   Runner
	tracer trace.Tracer
}

func (i *instrumented) Run(ctx context.Context, payload string) Result {
	return i.observe(ctx, ModeBatch, func(ctx context.Context) Result {
		return i.next.Run(ctx, payload)
	})
}

func (i *instrumented) RunInteractive(ctx context.Context, code string, inputs []string) Result {
	return i.observe(ctx, ModeInteractive, func(ctx context.Context) Result {
		return i.next.RunInteractive(ctx, code, inputs)
	}, attribute.Int("sandbox.inputs", len(inputs)))
}

func (i *instrumented) observe(ctx context.Context, mode Mode, run func(context.Context) Result, attrs ...attribute.KeyValue) Result {
	ctx, span := i.tracer.Start(ctx, "sandbox."+string(mode), trace.WithAttributes(attrs...))
	defer span.End()

	start := time.Now()
	res := run(ctx)
	observability.SandboxDuration.WithLabelValues(string(mode)).Observe(time.Since(start).Seconds())

	outcome := Outcome(res)
	observability.SandboxExecutionsTotal.WithLabelValues(string(mode), outcome).Inc()

	span.SetAttributes(attribute.Int("sandbox.exit_code", res.ExitCode), attribute.String("sandbox.outcome", outcome))
	if !res.OK() {
		span.SetStatus(codes.Error, outcome)
	}
	return res
}

// Outcome classifies a result as success, failure, timeout or error.
func Outcome(r Result) string {
	switch {
	case r.OK():
		return "success"
	case r.Stderr == InteractiveTimeout:
		return "timeout"
	case IsHarnessFailure(r):
		return "error"
	default:
		return "failure"
	}
}
