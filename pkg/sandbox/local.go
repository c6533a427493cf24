package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rhuss/laph/pkg/debug"
)

// Local runs programs as child processes of the current binary.
type Local struct {
	// Interpreter is the program used to run payload files (default python3).
	Interpreter string

	// Limits bounds each execution.
	Limits Limits

	// TempDir holds payload files. Empty means os.TempDir().
	TempDir string
}

var _ Runner = (*Local)(nil)

// NewLocal creates a Local runner.
func NewLocal(interpreter string, limits Limits) *Local {
	if interpreter == "" {
		interpreter = "python3"
	}
	return &Local{Interpreter: interpreter, Limits: limits}
}

// Run executes payload in batch mode.
func (l *Local) Run(ctx context.Context, payload string) Result {
	return l.execute(ctx, ModeBatch, payload, nil)
}

// RunInteractive executes code with scripted standard input. The same
// resource ceilings as batch mode apply.
func (l *Local) RunInteractive(ctx context.Context, code string, inputs []string) Result {
	return l.execute(ctx, ModeInteractive, code, inputs)
}

func (l *Local) execute(ctx context.Context, mode Mode, source string, inputs []string) Result {
	path, err := writePayload(l.TempDir, source)
	if err != nil {
		return ExecutionError(err)
	}
	defer os.Remove(path)

	interpreter, err := exec.LookPath(l.Interpreter)
	if err != nil {
		return ExecutionError(err)
	}

	timeout := l.Limits.Timeout
	if mode == ModeInteractive {
		timeout = l.Limits.InteractiveTimeout
	}
	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd, err := limitedCommand(runCtx, interpreter, path, l.Limits)
	if err != nil {
		return ExecutionError(err)
	}
	if mode == ModeInteractive {
		cmd.Stdin = strings.NewReader(strings.Join(inputs, "\n"))
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	debug.Log("sandbox", "executing", "mode", mode, "file", path, "timeout", timeout)
	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	res := l.mapResult(ctx, runCtx, mode, timeout, runErr, stdout.String(), stderr.String())
	slog.Debug("sandbox execution finished",
		"mode", mode,
		"exit_code", res.ExitCode,
		"duration_ms", elapsed.Milliseconds(),
		"stderr", debug.Preview(res.Stderr, 200),
	)
	return res
}

func (l *Local) mapResult(parent, runCtx context.Context, mode Mode, timeout time.Duration, runErr error, stdout, stderr string) Result {
	if runErr == nil {
		return Result{Stdout: stdout, Stderr: stderr}
	}

	// The caller's cancellation wins over the watchdog.
	if parent.Err() != nil {
		return ExecutionError(parent.Err())
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		if mode == ModeInteractive {
			return TimeoutResult()
		}
		return ExecutionError(fmt.Errorf("timed out after %s", timeout))
	}

	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		if note := signalNote(exitErr); note != "" {
			stderr += note
		}
		return Result{Stdout: stdout, Stderr: stderr, ExitCode: exitErr.ExitCode()}
	}
	return ExecutionError(runErr)
}

func writePayload(dir, source string) (string, error) {
	f, err := os.CreateTemp(dir, "laph-*.py")
	if err != nil {
		return "", fmt.Errorf("creating payload file: %w", err)
	}
	if _, err := f.WriteString(source); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("writing payload file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("closing payload file: %w", err)
	}
	return f.Name(), nil
}
