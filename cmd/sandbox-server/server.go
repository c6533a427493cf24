package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rhuss/laph/pkg/debug"
	"github.com/rhuss/laph/pkg/sandbox"
)

const maxRequestBody = 10 << 20

type sandboxServer struct {
	interpreter   string
	limits        sandbox.Limits
	maxConcurrent int32
	maxTimeout    time.Duration
	currentLoad   atomic.Int32
	startTime     time.Time

	// newRunner builds the runner for one execution.
	newRunner func(limits sandbox.Limits) sandbox.Runner
}

func newSandboxServer(interpreter string, limits sandbox.Limits, maxConcurrent int, maxTimeout time.Duration) *sandboxServer {
	s := &sandboxServer{
		interpreter:   interpreter,
		limits:        limits,
		maxConcurrent: int32(maxConcurrent),
		maxTimeout:    maxTimeout,
		startTime:     time.Now(),
	}
	s.newRunner = func(l sandbox.Limits) sandbox.Runner {
		return sandbox.Instrument(sandbox.NewLocal(s.interpreter, l))
	}
	return s
}

func (s *sandboxServer) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /execute", s.handleExecute)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return mux
}

// limitsFor applies the requested timeout, capped at maxTimeout.
func (s *sandboxServer) limitsFor(timeoutSeconds int) sandbox.Limits {
	l := s.limits
	if timeoutSeconds > 0 {
		// Compare in seconds; multiplying first overflows for huge values.
		d := s.maxTimeout
		if secs := time.Duration(timeoutSeconds); secs <= s.maxTimeout/time.Second {
			d = secs * time.Second
		}
		l.Timeout = d
		l.InteractiveTimeout = d
	}
	return l
}

func (s *sandboxServer) handleExecute(w http.ResponseWriter, r *http.Request) {
	current := s.currentLoad.Add(1)
	defer s.currentLoad.Add(-1)

	if current > s.maxConcurrent {
		writeError(w, http.StatusTooManyRequests,
			fmt.Sprintf("at capacity (%d/%d concurrent executions)", current, s.maxConcurrent))
		return
	}

	var req sandbox.ExecuteRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	if req.Code == "" {
		writeError(w, http.StatusBadRequest, "code is required")
		return
	}

	debug.Log("sandbox", "execute request",
		"code", debug.Preview(req.Code, 120),
		"interactive", req.Interactive,
		"stdin_lines", len(req.Stdin),
		"timeout", req.TimeoutSeconds,
	)

	runner := s.newRunner(s.limitsFor(req.TimeoutSeconds))
	start := time.Now()
	var res sandbox.Result
	if req.Interactive {
		res = runner.RunInteractive(r.Context(), req.Code, req.Stdin)
	} else {
		res = runner.Run(r.Context(), req.Code)
	}
	duration := time.Since(start)

	status := "success"
	if !res.OK() {
		status = "error"
	}
	slog.Info("execute complete",
		"status", status,
		"exit_code", res.ExitCode,
		"duration_ms", duration.Milliseconds(),
		"stdout_len", len(res.Stdout),
	)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sandbox.ExecuteResponse{
		Status:          status,
		Stdout:          res.Stdout,
		Stderr:          res.Stderr,
		ExitCode:        res.ExitCode,
		ExecutionTimeMs: duration.Milliseconds(),
	})
}

type healthResponse struct {
	Status      string `json:"status"`
	Interpreter string `json:"interpreter"`
	Capacity    int    `json:"capacity"`
	CurrentLoad int    `json:"current_load"`
	UptimeSecs  int64  `json:"uptime_seconds"`
}

func (s *sandboxServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(healthResponse{
		Status:      "healthy",
		Interpreter: s.interpreter,
		Capacity:    int(s.maxConcurrent),
		CurrentLoad: int(s.currentLoad.Load()),
		UptimeSecs:  int64(time.Since(s.startTime).Seconds()),
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
