// Package eventlog records the human-readable progress log of repair runs.
//
// Every message is tagged with the run it belongs to. Sinks can be
// combined: the CLI writes to a file, the server keeps a bounded
// in-memory copy per run for the HTTP API and optionally persists to
// PostgreSQL.
package eventlog

import (
	"context"
	"errors"
	"time"
)

// TimeLayout is the timestamp format used in rendered log lines.
const TimeLayout = "2006-01-02 15:04:05"

// ErrNotFound is returned by readers for an unknown run.
var ErrNotFound = errors.New("run log not found")

// Sink receives log messages.
type Sink interface {
	Log(ctx context.Context, runID, message string) error
}

// Reader returns the rendered log lines of a run, oldest first.
type Reader interface {
	Lines(ctx context.Context, runID string) ([]string, error)
}

// Entry is one stored log message.
type Entry struct {
	RunID   string
	Time    time.Time
	Message string
}

// Format renders a message as a log line without the trailing newline.
func Format(t time.Time, message string) string {
	return "[" + t.Format(TimeLayout) + "] " + message
}

// Func adapts a function to the Sink interface. It is the hook UIs use
// to mirror log lines as they are written.
type Func func(ctx context.Context, runID, message string) error

// Log implements Sink.
func (f Func) Log(ctx context.Context, runID, message string) error {
	return f(ctx, runID, message)
}

// Multi fans a message out to every sink. All sinks are attempted; their
// errors are joined.
func Multi(sinks ...Sink) Sink {
	var flat []Sink
	for _, s := range sinks {
		if s != nil {
			flat = append(flat, s)
		}
	}
	return multi(flat)
}

type multi []Sink

func (m multi) Log(ctx context.Context, runID, message string) error {
	var errs []error
	for _, s := range m {
		if err := s.Log(ctx, runID, message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops every message.
var Discard Sink = Func(func(context.Context, string, string) error { return nil })

// Fallback returns a Reader that asks each reader in turn and returns the
// first answer that is not ErrNotFound. Nil readers are skipped.
func Fallback(readers ...Reader) Reader {
	var flat []Reader
	for _, r := range readers {
		if r != nil {
			flat = append(flat, r)
		}
	}
	return fallback(flat)
}

type fallback []Reader

func (f fallback) Lines(ctx context.Context, runID string) ([]string, error) {
	for _, r := range f {
		lines, err := r.Lines(ctx, runID)
		if !errors.Is(err, ErrNotFound) {
			return lines, err
		}
	}
	return nil, ErrNotFound
}
