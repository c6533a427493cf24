package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rhuss/laph/pkg/api"
	"github.com/rhuss/laph/pkg/eventlog"
	"github.com/rhuss/laph/pkg/repair"
	"github.com/rhuss/laph/pkg/transport"
)

// Repairer runs the generate, execute and repair loop for one task.
// *repair.Orchestrator implements it.
type Repairer interface {
	Run(ctx context.Context, task string, maxIterations int, obs repair.Observer) (string, bool)
}

// RunRecorder persists run records beyond the in-memory history.
// *postgres.Store implements it.
type RunRecorder interface {
	SaveRun(ctx context.Context, run *api.Run) error
	GetRun(ctx context.Context, id string) (*api.Run, error)
}

// Engine bridges the transport layer and the repair orchestrator.
type Engine struct {
	repairer Repairer
	events   eventlog.Reader
	recorder RunRecorder
	inflight *transport.InFlightRegistry
	history  *history
	cfg      Config
	now      func() time.Time
}

var (
	_ transport.RunCreator = (*Engine)(nil)
	_ transport.RunStore   = (*Engine)(nil)
)

// New creates an Engine. The repairer must not be nil; events and
// recorder may be nil.
func New(r Repairer, events eventlog.Reader, recorder RunRecorder, cfg Config) (*Engine, error) {
	if r == nil {
		return nil, fmt.Errorf("engine: repairer must not be nil")
	}
	return &Engine{
		repairer: r,
		events:   events,
		recorder: recorder,
		inflight: transport.NewInFlightRegistry(cfg.maxConcurrent()),
		history:  newHistory(cfg.historySize()),
		cfg:      cfg,
		now:      time.Now,
	}, nil
}

// InFlight returns the number of runs currently executing.
func (e *Engine) InFlight() int {
	return e.inflight.Len()
}

// CreateRun validates req, runs the repair loop and reports the outcome
// to w. It returns an error only when the run could not be started;
// exhausted and cancelled runs are reported through w.
func (e *Engine) CreateRun(ctx context.Context, req *api.RunRequest, w transport.EventWriter) error {
	if apiErr := api.ValidateRunRequest(req, e.cfg.validation()); apiErr != nil {
		return apiErr
	}
	iterations := e.cfg.defaultIterations()
	if req.MaxIterations != nil {
		iterations = *req.MaxIterations
	}

	run := api.Run{
		ID:            api.NewRunID(),
		Task:          req.Task,
		MaxIterations: repair.ClampBudget(iterations),
		Status:        api.RunStatusRunning,
		CreatedAt:     e.now().UTC(),
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if !e.inflight.TryRegister(run.ID, cancel) {
		return api.NewConflictError("a run is already in progress")
	}
	defer e.inflight.Remove(run.ID)

	e.record(ctx, run)
	slog.Info("run started", "run_id", run.ID, "max_iterations", run.MaxIterations, "stream", req.Stream)

	var (
		state streamState
		obs   repair.Observer
	)
	if req.Stream {
		snapshot := run
		if err := w.WriteEvent(ctx, api.RunEvent{
			Type:           api.EventRunCreated,
			SequenceNumber: state.nextSeq(),
			Run:            &snapshot,
		}); err != nil {
			return err
		}
		if err := w.Flush(); err != nil {
			return err
		}
		obs = &streamObserver{ctx: runCtx, w: w, state: &state}
	}

	code, ok := e.repairer.Run(repair.ContextWithRunID(runCtx, run.ID), run.Task, run.MaxIterations, obs)

	final := api.RunStatusExhausted
	switch {
	case ok:
		final = api.RunStatusSucceeded
		run.Code = code
	case runCtx.Err() != nil:
		final = api.RunStatusCancelled
	}
	if apiErr := api.ValidateRunTransition(run.Status, final); apiErr != nil {
		return apiErr
	}
	run.Status = final
	run.CompletedAt = e.now().UTC()

	// The request context may already be gone when the run was cancelled.
	e.record(context.WithoutCancel(ctx), run)
	slog.Info("run finished", "run_id", run.ID, "status", run.Status,
		"duration", run.CompletedAt.Sub(run.CreatedAt))

	if !req.Stream {
		return w.WriteRun(ctx, &run)
	}
	if ctx.Err() != nil {
		return nil
	}
	if err := w.WriteEvent(ctx, api.RunEvent{
		Type:           terminalEventType(run.Status),
		SequenceNumber: state.nextSeq(),
		Run:            &run,
	}); err != nil {
		return err
	}
	return w.Flush()
}

func (e *Engine) record(ctx context.Context, run api.Run) {
	e.history.put(run)
	if e.recorder == nil {
		return
	}
	if err := e.recorder.SaveRun(ctx, &run); err != nil {
		slog.Warn("saving run failed", "run_id", run.ID, "error", err)
	}
}

// GetRun implements transport.RunStore.
func (e *Engine) GetRun(ctx context.Context, id string) (*api.Run, error) {
	if !api.ValidateRunID(id) {
		return nil, api.NewInvalidRequestError("id", "invalid run ID format")
	}
	if run, ok := e.history.get(id); ok {
		return &run, nil
	}
	if e.recorder != nil {
		run, err := e.recorder.GetRun(ctx, id)
		if err == nil {
			return run, nil
		}
		if !errors.Is(err, eventlog.ErrNotFound) {
			return nil, api.NewServerError(err.Error())
		}
	}
	return nil, api.NewNotFoundError(fmt.Sprintf("run %q not found", id))
}

// RunEvents implements transport.RunStore. A known run that has not
// logged anything yet has an empty event list.
func (e *Engine) RunEvents(ctx context.Context, id string) ([]string, error) {
	if _, err := e.GetRun(ctx, id); err != nil {
		return nil, err
	}
	if e.events == nil {
		return []string{}, nil
	}
	lines, err := e.events.Lines(ctx, id)
	if errors.Is(err, eventlog.ErrNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, api.NewServerError(err.Error())
	}
	return lines, nil
}

// CancelRun implements transport.RunStore. The run finishes with status
// cancelled once the orchestrator notices.
func (e *Engine) CancelRun(ctx context.Context, id string) error {
	if !api.ValidateRunID(id) {
		return api.NewInvalidRequestError("id", "invalid run ID format")
	}
	if e.inflight.Cancel(id) {
		slog.Info("run cancellation requested", "run_id", id)
		return nil
	}
	if _, err := e.GetRun(ctx, id); err != nil {
		return err
	}
	return api.NewInvalidRequestError("id", fmt.Sprintf("run %s is not in progress", id))
}
