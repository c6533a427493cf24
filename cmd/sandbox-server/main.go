// Command sandbox-server runs an HTTP server inside sandbox pods that
// executes generated programs under the same limits as laph's local
// runner.
//
// Configuration:
//
//	SANDBOX_PORT           - Listen port (default: 8080)
//	SANDBOX_INTERPRETER    - Interpreter for payloads (default: python3)
//	SANDBOX_MAX_CONCURRENT - Max concurrent executions (default: 3)
//	SANDBOX_CPU_SECONDS    - RLIMIT_CPU per execution (default: 5)
//	SANDBOX_MEMORY_MB      - RLIMIT_AS per execution (default: 256)
//	SANDBOX_MAX_TIMEOUT    - Upper bound for timeout_seconds (default: 60)
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rhuss/laph/pkg/debug"
	"github.com/rhuss/laph/pkg/sandbox"
)

func main() {
	sandbox.Init()
	debug.Init("", "")

	port := envOr("SANDBOX_PORT", "8080")
	interpreter := envOr("SANDBOX_INTERPRETER", "python3")

	limits := sandbox.DefaultLimits()
	limits.CPUTime = time.Duration(envOrInt("SANDBOX_CPU_SECONDS", 5)) * time.Second
	limits.MemoryBytes = uint64(envOrInt("SANDBOX_MEMORY_MB", 256)) << 20

	srv := newSandboxServer(interpreter, limits, envOrInt("SANDBOX_MAX_CONCURRENT", 3),
		time.Duration(envOrInt("SANDBOX_MAX_TIMEOUT", 60))*time.Second)

	httpSrv := &http.Server{
		Addr:              ":" + port,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      srv.maxTimeout + 30*time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("sandbox server starting", "port", port, "interpreter", interpreter,
			"max_concurrent", srv.maxConcurrent, "cpu", limits.CPUTime, "memory_bytes", limits.MemoryBytes)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	httpSrv.Shutdown(shutdownCtx)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		slog.Warn("ignoring invalid value", "key", key, "value", v)
		return def
	}
	return n
}
