// Command mock-backend serves the deterministic generator backend from
// package mockserver, for trying laph without a model server.
//
// Configuration:
//
//	MOCK_PORT     - Listen port (default: 9090)
//	MOCK_CHUNK_MS - Delay between streamed chunks in milliseconds (default: 0)
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rhuss/laph/pkg/generator/mockserver"
)

func main() {
	port := os.Getenv("MOCK_PORT")
	if port == "" {
		port = "9090"
	}
	var delay time.Duration
	if ms, err := strconv.Atoi(os.Getenv("MOCK_CHUNK_MS")); err == nil && ms > 0 {
		delay = time.Duration(ms) * time.Millisecond
	}

	srv := &http.Server{Addr: ":" + port, Handler: mockserver.NewHandler(delay)}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("mock backend starting", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("mock backend failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("mock backend shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
}
