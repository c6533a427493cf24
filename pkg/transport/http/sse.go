package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/rhuss/laph/pkg/api"
	"github.com/rhuss/laph/pkg/transport"
)

// writerState tracks the state of an SSE EventWriter.
type writerState int

const (
	writerIdle      writerState = iota // Initial state, no writes yet
	writerStreaming                    // WriteEvent has been called at least once
	writerCompleted                    // Terminal event sent or WriteRun called
)

// terminalEvents are the event types that end a run stream.
var terminalEvents = map[api.RunEventType]bool{
	api.EventRunCompleted: true,
	api.EventRunExhausted: true,
	api.EventRunCancelled: true,
	api.EventError:        true,
}

// sseEventWriter implements transport.EventWriter for HTTP responses.
// Streaming requests get server-sent events, others a single JSON run.
type sseEventWriter struct {
	w  http.ResponseWriter
	rc *http.ResponseController

	mu    sync.Mutex
	state writerState
}

var _ transport.EventWriter = (*sseEventWriter)(nil)

func newSSEEventWriter(w http.ResponseWriter) *sseEventWriter {
	return &sseEventWriter{
		w:  w,
		rc: http.NewResponseController(w),
	}
}

// WriteEvent sends a single SSE event. The event is formatted as:
//
//	event: {type}\n
//	data: {json}\n
//	\n
//
// After a terminal event, it also sends:
//
//	data: [DONE]\n
//	\n
func (s *sseEventWriter) WriteEvent(_ context.Context, event api.RunEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == writerCompleted {
		return errors.New("cannot write event: writer is completed")
	}

	if s.state == writerIdle {
		s.w.Header().Set("Content-Type", "text/event-stream")
		s.w.Header().Set("Cache-Control", "no-cache")
		s.w.Header().Set("Connection", "keep-alive")
		s.state = writerStreaming
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event.Type, data); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	if err := s.rc.Flush(); err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}

	if terminalEvents[event.Type] {
		if _, err := fmt.Fprint(s.w, "data: [DONE]\n\n"); err != nil {
			return fmt.Errorf("failed to write [DONE]: %w", err)
		}
		if err := s.rc.Flush(); err != nil {
			return fmt.Errorf("failed to flush [DONE]: %w", err)
		}
		s.state = writerCompleted
	}
	return nil
}

// WriteRun sends the finished run as JSON. It is mutually exclusive
// with WriteEvent.
func (s *sseEventWriter) WriteRun(_ context.Context, run *api.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case writerStreaming:
		return errors.New("cannot write run: streaming has already started")
	case writerCompleted:
		return errors.New("cannot write run: writer is completed")
	}

	s.w.Header().Set("Content-Type", "application/json")
	s.state = writerCompleted
	if err := json.NewEncoder(s.w).Encode(run); err != nil {
		return fmt.Errorf("failed to encode run: %w", err)
	}
	return nil
}

// Flush ensures buffered data is sent to the client.
func (s *sseEventWriter) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != writerStreaming {
		return nil
	}
	return s.rc.Flush()
}

// hasStartedStreaming reports whether at least one SSE event was written.
func (s *sseEventWriter) hasStartedStreaming() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == writerStreaming ||
		(s.state == writerCompleted && s.w.Header().Get("Content-Type") == "text/event-stream")
}

// completed reports whether the response has been fully written.
func (s *sseEventWriter) completed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == writerCompleted
}
