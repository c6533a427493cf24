package api

import (
	"fmt"
	"strings"
)

// ValidationConfig holds configurable limits for request validation.
type ValidationConfig struct {
	MaxTaskSize   int
	MaxIterations int
}

// DefaultValidationConfig returns a ValidationConfig with sensible defaults.
func DefaultValidationConfig() ValidationConfig {
	return ValidationConfig{
		MaxTaskSize:   64 * 1024,
		MaxIterations: 60,
	}
}

// ValidateRunRequest checks a RunRequest for validity. It returns an
// *APIError describing the first validation failure, or nil if the request is valid.
// Iteration counts above the maximum are rejected here rather than clamped,
// so HTTP clients learn about the limit.
func ValidateRunRequest(req *RunRequest, cfg ValidationConfig) *APIError {
	if strings.TrimSpace(req.Task) == "" {
		return NewInvalidRequestError("task", "task is required")
	}

	if cfg.MaxTaskSize > 0 && len(req.Task) > cfg.MaxTaskSize {
		return NewInvalidRequestError("task",
			fmt.Sprintf("task exceeds maximum size of %d bytes", cfg.MaxTaskSize))
	}

	if req.MaxIterations != nil {
		n := *req.MaxIterations
		if n < 0 || (cfg.MaxIterations > 0 && n > cfg.MaxIterations) {
			return NewInvalidRequestError("max_iterations",
				fmt.Sprintf("max_iterations must be between 0 and %d", cfg.MaxIterations))
		}
	}

	return nil
}
