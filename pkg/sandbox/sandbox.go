// Package sandbox runs generated programs in isolated child processes.
//
// A [Runner] offers two modes. Batch mode ([Runner.Run]) executes a
// sanitized payload under CPU-time, address-space and wall-clock limits.
// Interactive mode ([Runner.RunInteractive]) executes unsanitized code with
// scripted standard input to observe how it behaves when fed data.
//
// Runners never return Go errors. Every harness failure is folded into a
// [Result] with exit code -1 and a sentinel stderr, so callers treat it like
// any other failed execution.
package sandbox

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Sentinel stderr values for harness-level failures.
const (
	ExecutionErrorPrefix = "[Execution Error]"
	InteractiveTimeout   = "[Interactive Timeout]"
)

// Result is the captured outcome of one execution. ExitCode 0 means
// success; -1 marks a harness failure (launch error, timeout).
type Result struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exit_code"`
}

// OK reports whether the execution succeeded.
func (r Result) OK() bool {
	return r.ExitCode == 0
}

// ExecutionError maps a harness error to its sentinel result.
func ExecutionError(err error) Result {
	return Result{Stderr: fmt.Sprintf("%s %v", ExecutionErrorPrefix, err), ExitCode: -1}
}

// TimeoutResult is the sentinel result of an interactive run that did not
// finish in time.
func TimeoutResult() Result {
	return Result{Stderr: InteractiveTimeout, ExitCode: -1}
}

// IsHarnessFailure reports whether r was produced by the harness rather
// than by the program itself.
func IsHarnessFailure(r Result) bool {
	return r.ExitCode == -1 && (r.Stderr == InteractiveTimeout || strings.HasPrefix(r.Stderr, ExecutionErrorPrefix))
}

// Runner executes programs in isolation.
type Runner interface {
	// Run executes payload in batch mode.
	Run(ctx context.Context, payload string) Result

	// RunInteractive executes code with inputs joined by newlines and
	// written to standard input in a single write.
	RunInteractive(ctx context.Context, code string, inputs []string) Result
}

// Limits bounds a single execution.
type Limits struct {
	// CPUTime is the RLIMIT_CPU ceiling, rounded up to whole seconds.
	CPUTime time.Duration

	// MemoryBytes is the RLIMIT_AS ceiling.
	MemoryBytes uint64

	// Timeout is the wall-clock ceiling for batch runs.
	Timeout time.Duration

	// InteractiveTimeout is the wall-clock ceiling for interactive runs.
	InteractiveTimeout time.Duration
}

// DefaultLimits returns 5s of CPU, 256 MiB of address space, an 8s batch
// timeout and a 10s interactive timeout.
func DefaultLimits() Limits {
	return Limits{
		CPUTime:            5 * time.Second,
		MemoryBytes:        256 << 20,
		Timeout:            8 * time.Second,
		InteractiveTimeout: 10 * time.Second,
	}
}

func (l Limits) cpuSeconds() uint64 {
	if l.CPUTime <= 0 {
		return 0
	}
	return uint64((l.CPUTime + time.Second - 1) / time.Second)
}

// Mode labels an execution for logs and metrics.
type Mode string

const (
	ModeBatch       Mode = "batch"
	ModeInteractive Mode = "interactive"
)
