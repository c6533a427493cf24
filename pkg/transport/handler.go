package transport

import (
	"context"

	"github.com/rhuss/laph/pkg/api"
)

// RunCreator starts a repair run and blocks until it finishes. Progress
// goes to w: streaming requests receive run events, others a single run
// object at the end.
type RunCreator interface {
	CreateRun(ctx context.Context, req *api.RunRequest, w EventWriter) error
}

// RunCreatorFunc adapts a function to RunCreator.
type RunCreatorFunc func(ctx context.Context, req *api.RunRequest, w EventWriter) error

// CreateRun implements RunCreator.
func (f RunCreatorFunc) CreateRun(ctx context.Context, req *api.RunRequest, w EventWriter) error {
	return f(ctx, req, w)
}

// RunStore gives access to runs after they were created.
type RunStore interface {
	// GetRun returns a run by ID, in flight or finished.
	GetRun(ctx context.Context, id string) (*api.Run, error)

	// RunEvents returns the run's event log lines, oldest first.
	RunEvents(ctx context.Context, id string) ([]string, error)

	// CancelRun cancels the run in flight with the given ID.
	CancelRun(ctx context.Context, id string) error
}

// EventWriter receives the output of a run.
type EventWriter interface {
	// WriteEvent sends one streaming event.
	WriteEvent(ctx context.Context, event api.RunEvent) error

	// WriteRun sends the final run object of a non-streaming request.
	WriteRun(ctx context.Context, run *api.Run) error

	Flush() error
}

// EventList is the response body of GET /v1/runs/{id}/events.
type EventList struct {
	Object string   `json:"object"`
	RunID  string   `json:"run_id"`
	Data   []string `json:"data"`
}
