package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/rhuss/laph/pkg/api"
	"github.com/rhuss/laph/pkg/debug"
	"github.com/rhuss/laph/pkg/observability"
)

// Middleware wraps a Client with extra behavior.
type Middleware func(Client) Client

// Wrap applies mws to c. The first middleware is the outermost.
func Wrap(c Client, mws ...Middleware) Client {
	for i := len(mws) - 1; i >= 0; i-- {
		c = mws[i](c)
	}
	return c
}

// ClientFunc adapts a function to the Client interface.
type ClientFunc func(ctx context.Context, prompt string) (<-chan Chunk, error)

// Submit implements Client.
func (f ClientFunc) Submit(ctx context.Context, prompt string) (<-chan Chunk, error) {
	return f(ctx, prompt)
}

// named keeps the backend name visible through middleware layers.
type named struct {
	Client
	backend string
}

func (n named) Backend() string { return n.backend }

func keepName(inner, outer Client) Client {
	return named{Client: outer, backend: BackendName(inner)}
}

// WithRateLimit limits Submit calls to rps per second with the given
// burst. Waiting honors ctx.
func WithRateLimit(rps float64, burst int) Middleware {
	return func(next Client) Client {
		if rps <= 0 {
			return next
		}
		if burst < 1 {
			burst = 1
		}
		lim := rate.NewLimiter(rate.Limit(rps), burst)
		return keepName(next, ClientFunc(func(ctx context.Context, prompt string) (<-chan Chunk, error) {
			if err := lim.Wait(ctx); err != nil {
				return nil, fmt.Errorf("rate limit: %w", err)
			}
			return next.Submit(ctx, prompt)
		}))
	}
}

// WithRetry retries Submit errors up to attempts times in total, waiting
// baseDelay, 2*baseDelay, ... between tries. Only failures to start a
// generation are retried; errors that arrive on the stream are final.
// Invalid request and authentication errors are not retried.
func WithRetry(attempts int, baseDelay time.Duration) Middleware {
	return func(next Client) Client {
		if attempts <= 1 {
			return next
		}
		return keepName(next, ClientFunc(func(ctx context.Context, prompt string) (<-chan Chunk, error) {
			var lastErr error
			delay := baseDelay
			for i := range attempts {
				ch, err := next.Submit(ctx, prompt)
				if err == nil {
					return ch, nil
				}
				lastErr = err
				if !retryable(err) || i == attempts-1 {
					break
				}
				slog.Debug("generator submit failed, retrying",
					"attempt", i+1, "error", err, "delay", delay)
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(delay):
				}
				delay *= 2
			}
			return nil, lastErr
		}))
	}
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Type {
		case api.ErrorTypeInvalidRequest, api.ErrorTypeUnauthorized, api.ErrorTypeNotFound:
			return false
		}
	}
	return true
}

// Instrument records request, duration and chunk metrics for role and
// wraps every generation in a span that ends when the stream closes.
func Instrument(role api.Role) Middleware {
	tracer := observability.Tracer("generator")
	return func(next Client) Client {
		backend := BackendName(next)
		return keepName(next, ClientFunc(func(ctx context.Context, prompt string) (<-chan Chunk, error) {
			ctx, span := tracer.Start(ctx, "generator.submit", trace.WithAttributes(
				attribute.String("laph.role", string(role)),
				attribute.String("laph.backend", backend),
				attribute.Int("laph.prompt_bytes", len(prompt)),
			))
			start := time.Now()
			debug.Log("generator", "submit", "role", role, "backend", backend,
				"prompt", debug.Preview(prompt, 120))

			in, err := next.Submit(ctx, prompt)
			if err != nil {
				finish(span, role, backend, start, 0, err)
				return nil, err
			}

			out := make(chan Chunk)
			go func() {
				defer close(out)
				var chunks int
				var streamErr error
				for c := range in {
					if c.Err != nil {
						streamErr = c.Err
					} else {
						chunks++
					}
					if !Send(ctx, out, c) {
						streamErr = ctx.Err()
						for range in {
						}
						break
					}
				}
				finish(span, role, backend, start, chunks, streamErr)
			}()
			return out, nil
		}))
	}
}

func finish(span trace.Span, role api.Role, backend string, start time.Time, chunks int, err error) {
	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.SetAttributes(attribute.Int("laph.chunks", chunks))
	span.End()

	elapsed := time.Since(start)
	observability.GeneratorRequestsTotal.WithLabelValues(string(role), backend, status).Inc()
	observability.GeneratorDuration.WithLabelValues(string(role), backend).Observe(elapsed.Seconds())
	observability.GeneratorChunksTotal.WithLabelValues(string(role)).Add(float64(chunks))
	debug.Log("generator", "generation finished", "role", role, "backend", backend,
		"status", status, "chunks", chunks, "elapsed", elapsed)
}
