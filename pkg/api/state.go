package api

import (
	"fmt"
	"slices"
)

// ValidateRunTransition checks whether a run status transition is valid.
// An empty "from" status represents a run that has not started yet.
// Terminal states (succeeded, exhausted, cancelled) do not allow outgoing transitions.
func ValidateRunTransition(from, to RunStatus) *APIError {
	valid := map[RunStatus][]RunStatus{
		"":               {RunStatusRunning},
		RunStatusRunning: {RunStatusSucceeded, RunStatusExhausted, RunStatusCancelled},
	}

	allowed, exists := valid[from]
	if !exists || !slices.Contains(allowed, to) {
		return NewInvalidRequestError("status",
			fmt.Sprintf("invalid transition from %s to %s", from, to))
	}
	return nil
}
