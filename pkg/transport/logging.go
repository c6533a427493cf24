package transport

import (
	"context"
	"log/slog"
	"time"

	"github.com/rhuss/laph/pkg/api"
	"github.com/rhuss/laph/pkg/debug"
)

// Logging returns middleware that emits one structured log entry per run
// request. HTTP status codes are recorded by the metrics middleware.
func Logging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next RunCreator) RunCreator {
		return RunCreatorFunc(func(ctx context.Context, req *api.RunRequest, w EventWriter) error {
			start := time.Now()
			err := next.CreateRun(ctx, req, w)

			attrs := []slog.Attr{
				slog.String("request_id", RequestIDFromContext(ctx)),
				slog.String("task", debug.Preview(req.Task, 80)),
				slog.Bool("stream", req.Stream),
				slog.Duration("duration", time.Since(start)),
			}
			if err != nil {
				attrs = append(attrs, slog.String("error", err.Error()))
				logger.LogAttrs(ctx, slog.LevelError, "run request failed", attrs...)
			} else {
				logger.LogAttrs(ctx, slog.LevelInfo, "run request completed", attrs...)
			}
			return err
		})
	}
}
