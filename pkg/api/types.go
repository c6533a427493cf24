package api

import "time"

// RunStatus is the lifecycle status of a repair run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusExhausted RunStatus = "exhausted"
	RunStatusCancelled RunStatus = "cancelled"
)

// RunRequest asks the agent to produce a working program for Task.
type RunRequest struct {
	Task          string `json:"task"`
	MaxIterations *int   `json:"max_iterations,omitempty"`
	Stream        bool   `json:"stream,omitempty"`
}

// Run describes a repair run and, once terminal, its outcome.
// Code is only set when Status is RunStatusSucceeded.
type Run struct {
	ID            string    `json:"id"`
	Task          string    `json:"task"`
	MaxIterations int       `json:"max_iterations"`
	Status        RunStatus `json:"status"`
	Code          string    `json:"code,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	CompletedAt   time.Time `json:"completed_at,omitzero"`
}

// Terminal reports whether the run has finished.
func (r *Run) Terminal() bool {
	return r.Status != "" && r.Status != RunStatusRunning
}
