//go:build linux

package sandbox

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

var warnUnlimited sync.Once

// limitedCommand builds the command for one execution. When the trampoline
// is available the current binary is re-executed as a sandbox child which
// sets RLIMIT_CPU and RLIMIT_AS and then execs the interpreter, so the
// limits are in force before the program's first instruction.
// The child leads its own process group so the watchdog can kill any
// processes the program spawned.
func limitedCommand(ctx context.Context, interpreter, path string, limits Limits) (*exec.Cmd, error) {
	var cmd *exec.Cmd
	if trampolineReady.Load() {
		self, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("resolving executable for sandbox child: %w", err)
		}
		cmd = exec.CommandContext(ctx, self, interpreter, path)
		cmd.Env = append(childEnv(os.Environ()),
			envChild+"=1",
			envCPU+"="+strconv.FormatUint(limits.cpuSeconds(), 10),
			envMemory+"="+strconv.FormatUint(limits.MemoryBytes, 10),
		)
	} else {
		warnUnlimited.Do(func() {
			slog.Warn("sandbox.Init was not called; running programs without CPU and memory limits")
		})
		cmd = exec.CommandContext(ctx, interpreter, path)
	}

	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = 2 * time.Second
	return cmd, nil
}

// runChild is the sandbox child entry point: args[0] is the interpreter
// path and the rest are its arguments.
func runChild(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "sandbox: missing interpreter")
		os.Exit(126)
	}
	cpu, _ := strconv.ParseUint(os.Getenv(envCPU), 10, 64)
	mem, _ := strconv.ParseUint(os.Getenv(envMemory), 10, 64)
	env := childEnv(os.Environ())

	if cpu > 0 {
		if err := unix.Setrlimit(unix.RLIMIT_CPU, &unix.Rlimit{Cur: cpu, Max: cpu}); err != nil {
			fmt.Fprintf(os.Stderr, "sandbox: setting CPU limit: %v\n", err)
			os.Exit(126)
		}
	}
	if mem > 0 {
		if err := unix.Setrlimit(unix.RLIMIT_AS, &unix.Rlimit{Cur: mem, Max: mem}); err != nil {
			fmt.Fprintf(os.Stderr, "sandbox: setting memory limit: %v\n", err)
			os.Exit(126)
		}
	}

	err := unix.Exec(args[0], args, env)
	fmt.Fprintf(os.Stderr, "sandbox: exec %s: %v\n", args[0], err)
	os.Exit(126)
}

// signalNote describes a program that was terminated by a signal, most
// often a resource limit.
func signalNote(err *exec.ExitError) string {
	ws, ok := err.Sys().(syscall.WaitStatus)
	if !ok || !ws.Signaled() {
		return ""
	}
	switch ws.Signal() {
	case syscall.SIGXCPU:
		return "\n[Resource Limit] CPU time limit exceeded"
	case syscall.SIGKILL:
		return "\n[Resource Limit] process killed"
	default:
		return fmt.Sprintf("\n[Signal] %s", ws.Signal())
	}
}
