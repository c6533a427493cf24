package repair

import (
	"context"
	"log/slog"
	"time"

	"github.com/rhuss/laph/pkg/eventlog"
	"github.com/rhuss/laph/pkg/prompt"
)

// DefaultBackoff is the pause between failed iterations.
const DefaultBackoff = 2 * time.Second

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithPrompts sets the prompt builder. The embedded templates are used
// by default.
func WithPrompts(b *prompt.Builder) Option {
	return func(o *Orchestrator) { o.prompts = b }
}

// WithEventLog sets the sink receiving the run's progress log.
func WithEventLog(s eventlog.Sink) Option {
	return func(o *Orchestrator) { o.events = s }
}

// WithBackoff sets the fixed pause between failed iterations.
func WithBackoff(d time.Duration) Option {
	return func(o *Orchestrator) { o.backoff = d }
}

// WithSleep replaces the backoff wait, mainly for tests.
func WithSleep(fn SleepFunc) Option {
	return func(o *Orchestrator) { o.sleep = fn }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
