package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rhuss/laph/pkg/api"
	"github.com/rhuss/laph/pkg/debug"
	"github.com/rhuss/laph/pkg/repair"
)

var (
	runTask       string
	runIterations int
	runOut        string
	runQuiet      bool
)

func runRun(cmd *cobra.Command, args []string) error {
	task, err := readTask(runTask, args, cmd.InOrStdin())
	if err != nil {
		return err
	}
	// An explicit -n 0 is a valid budget and must not fall back.
	iterations := cfg.Repair.MaxIterations
	if cmd.Flags().Changed("iterations") {
		iterations = runIterations
	}
	validation := api.DefaultValidationConfig()
	if err := api.ValidateRunRequest(&api.RunRequest{Task: task, MaxIterations: &iterations}, validation); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	flush, err := setupTracing(cfg.Observability.Tracing)
	if err != nil {
		return err
	}
	defer flush()

	s, err := buildStack(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	var obs repair.Observer
	r := newRenderer(cmd.ErrOrStderr(), isTerminal(os.Stderr), debug.Enabled("prompt"))
	if !runQuiet {
		obs = r
	}

	runID := api.NewRunID()
	ctx = repair.ContextWithRunID(ctx, runID)
	fmt.Fprintln(cmd.ErrOrStderr(), r.st.muted.Render("run "+runID))

	code, ok := s.orchestrator.Run(ctx, task, iterations, obs)
	r.Result(ok, ctx.Err() != nil, repair.ClampBudget(iterations))
	if !ok {
		return errExhausted
	}

	if runOut != "" {
		if err := os.WriteFile(runOut, []byte(code), 0o644); err != nil {
			return fmt.Errorf("writing program: %w", err)
		}
		return nil
	}
	_, err = io.WriteString(cmd.OutOrStdout(), ensureNewline(code))
	return err
}

// readTask takes the task from the flag, the positional argument or a
// piped stdin, in that order.
func readTask(flag string, args []string, stdin io.Reader) (string, error) {
	task := flag
	if task == "" && len(args) > 0 {
		task = args[0]
	}
	if task == "" {
		if f, ok := stdin.(*os.File); !ok || !isTerminal(f) {
			b, err := io.ReadAll(stdin)
			if err != nil {
				return "", fmt.Errorf("reading task from stdin: %w", err)
			}
			task = string(b)
		}
	}
	task = strings.TrimSpace(task)
	if task == "" {
		return "", fmt.Errorf("no task given: use --task, an argument or stdin")
	}
	return task, nil
}

func ensureNewline(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}

