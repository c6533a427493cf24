package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/rhuss/laph/pkg/config"
	"github.com/rhuss/laph/pkg/debug"
	"github.com/rhuss/laph/pkg/observability"
)

// Set at build time with -ldflags "-X main.version=...".
var version = "dev"

// errExhausted is returned by the run command when no working program was
// produced. main exits 1 without printing it again.
var errExhausted = errors.New("iteration budget exhausted")

var (
	configPath string
	debugFlag  string
	cfg        *config.Config

	rootCmd = &cobra.Command{
		Use:   "laph",
		Short: "Generate, run and repair Python programs with local language models",
		Long: `laph turns a task description into a working Python program. A thinker
model writes a specification, a coder model writes the program, and the
program is executed in a sandbox. Failures are fed back until a run exits
cleanly or the iteration budget is spent.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: loadConfig,
	}

	runCmd = &cobra.Command{
		Use:   "run [task]",
		Short: "Run the repair loop for one task and print the resulting program",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runRun, // Defined in cmd_run.go
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve the run API over HTTP",
		Args:  cobra.NoArgs,
		RunE:  runServe, // Defined in cmd_serve.go
	}

	mcpCmd = &cobra.Command{
		Use:   "mcp",
		Short: "Expose the repair loop as an MCP tool over stdio",
		Args:  cobra.NoArgs,
		RunE:  runMCP, // Defined in cmd_mcp.go
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the laph version",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "laph", version)
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.yaml (default: $LAPH_CONFIG, ./config.yaml, /etc/laph/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&debugFlag, "debug", "", "comma-separated debug categories (generator, repair, sandbox, prompt, eventlog, auth, transport, config, all)")

	runCmd.Flags().StringVarP(&runTask, "task", "t", "", "task description (or pass it as the argument, or pipe it on stdin)")
	runCmd.Flags().IntVarP(&runIterations, "iterations", "n", 0, "iteration budget (default from config)")
	runCmd.Flags().StringVarP(&runOut, "out", "o", "", "write the final program to this file")
	runCmd.Flags().BoolVarP(&runQuiet, "quiet", "q", false, "do not stream model output")

	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "listen port (default from config)")

	rootCmd.AddCommand(runCmd, serveCmd, mcpCmd, versionCmd)
}

// loadConfig reads .env, loads the layered configuration and installs
// the logger. Logs go to stderr so stdout stays clean for programs and
// protocol traffic.
func loadConfig(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	c, err := config.Load(configPath)
	if err != nil {
		return err
	}
	cats := c.Log.Debug
	if debugFlag != "" {
		cats = debugFlag
	}
	debug.InitWriter(cmd.ErrOrStderr(), cats, c.Log.Level)
	cfg = c
	return nil
}

// setupTracing installs the span exporter when tracing is enabled. The
// returned function flushes pending spans.
func setupTracing(tc config.TracingConfig) (func(), error) {
	if !tc.Enabled {
		return func() {}, nil
	}
	var w io.Writer = os.Stderr
	if tc.Exporter == "stdout" {
		w = os.Stdout
	}
	shutdown, err := observability.SetupTracing(w)
	if err != nil {
		return nil, err
	}
	return func() {
		if err := shutdown(context.Background()); err != nil {
			slog.Warn("flushing traces failed", "error", err)
		}
	}, nil
}
