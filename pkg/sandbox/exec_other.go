//go:build !linux

package sandbox

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"
)

var warnUnlimited sync.Once

// limitedCommand runs the interpreter directly. Resource ceilings are
// only implemented on Linux; elsewhere the wall-clock timeout is the sole
// bound.
func limitedCommand(ctx context.Context, interpreter, path string, _ Limits) (*exec.Cmd, error) {
	warnUnlimited.Do(func() {
		slog.Warn("sandbox resource limits are not supported on this platform; only timeouts apply")
	})
	cmd := exec.CommandContext(ctx, interpreter, path)
	cmd.WaitDelay = 2 * time.Second
	return cmd, nil
}

func runChild(_ []string) {
	fmt.Fprintln(os.Stderr, "sandbox: child mode is only supported on linux")
	os.Exit(126)
}

func signalNote(_ *exec.ExitError) string { return "" }
