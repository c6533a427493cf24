package transport

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/rhuss/laph/pkg/api"
)

// Recovery returns middleware that converts panics in the handler into
// server errors. The server keeps accepting requests afterwards.
func Recovery() Middleware {
	return func(next RunCreator) RunCreator {
		return RunCreatorFunc(func(ctx context.Context, req *api.RunRequest, w EventWriter) (retErr error) {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("panic in run handler",
						"request_id", RequestIDFromContext(ctx),
						"panic", r,
						"stack", string(debug.Stack()),
					)
					retErr = api.NewServerError(fmt.Sprintf("internal server error: %v", r))
				}
			}()
			return next.CreateRun(ctx, req, w)
		})
	}
}
