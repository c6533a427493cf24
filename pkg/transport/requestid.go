package transport

import (
	"context"

	"github.com/google/uuid"

	"github.com/rhuss/laph/pkg/api"
)

// RequestID returns middleware that makes sure every request carries an
// ID. An ID already in the context (from the X-Request-ID header) is kept.
func RequestID() Middleware {
	return func(next RunCreator) RunCreator {
		return RunCreatorFunc(func(ctx context.Context, req *api.RunRequest, w EventWriter) error {
			if RequestIDFromContext(ctx) == "" {
				ctx = ContextWithRequestID(ctx, NewRequestID())
			}
			return next.CreateRun(ctx, req, w)
		})
	}
}

// NewRequestID returns a random request ID.
func NewRequestID() string {
	return uuid.NewString()
}
