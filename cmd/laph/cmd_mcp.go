package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/rhuss/laph/pkg/api"
	"github.com/rhuss/laph/pkg/engine"
	"github.com/rhuss/laph/pkg/transport"
)

var mcpHTTPAddr string

func init() {
	mcpCmd.Flags().StringVar(&mcpHTTPAddr, "http", "", "serve streamable HTTP on this address instead of stdio, e.g. :8081")
}

func runMCP(cmd *cobra.Command, _ []string) error {
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

	eng, err := s.engine(cfg)
	if err != nil {
		return err
	}
	server := newMCPServer(eng)

	if mcpHTTPAddr == "" {
		return server.Run(ctx, &mcp.StdioTransport{})
	}

	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return server
	}, nil)
	mux := http.NewServeMux()
	mux.Handle("/mcp", handler)
	srv := &http.Server{Addr: mcpHTTPAddr, Handler: mux}
	go func() {
		<-ctx.Done()
		srv.Shutdown(context.WithoutCancel(ctx))
	}()
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type generateInput struct {
	Task          string `json:"task" jsonschema:"natural-language description of the program to write"`
	MaxIterations *int   `json:"max_iterations,omitempty" jsonschema:"iteration budget, 0 to 60"`
}

type generateOutput struct {
	RunID  string        `json:"run_id"`
	Status api.RunStatus `json:"status"`
	Code   string        `json:"code,omitempty"`
}

type eventsInput struct {
	RunID string `json:"run_id" jsonschema:"run identifier returned by generate_program"`
}

type eventsOutput struct {
	Lines []string `json:"lines"`
}

// newMCPServer exposes the run engine as MCP tools.
func newMCPServer(eng *engine.Engine) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "laph", Version: version}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name: "generate_program",
		Description: "Write a Python program for the task, run it in a sandbox and repair it " +
			"until it exits cleanly. Returns the program, or an error when the budget runs out.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in generateInput) (*mcp.CallToolResult, generateOutput, error) {
		var w runCollector
		if err := eng.CreateRun(ctx, &api.RunRequest{Task: in.Task, MaxIterations: in.MaxIterations}, &w); err != nil {
			return toolError(err), generateOutput{}, nil
		}
		run := w.run
		if run == nil {
			return toolError(fmt.Errorf("run produced no result")), generateOutput{}, nil
		}
		out := generateOutput{RunID: run.ID, Status: run.Status, Code: run.Code}
		if run.Status != api.RunStatusSucceeded {
			return &mcp.CallToolResult{
				IsError: true,
				Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("run %s %s without a working program", run.ID, run.Status)}},
			}, out, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: run.Code}},
		}, out, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_run_events",
		Description: "Return the event log lines of a run, oldest first.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in eventsInput) (*mcp.CallToolResult, eventsOutput, error) {
		lines, err := eng.RunEvents(ctx, in.RunID)
		if err != nil {
			return toolError(err), eventsOutput{}, nil
		}
		b, _ := json.Marshal(lines)
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(b)}},
		}, eventsOutput{Lines: lines}, nil
	})

	return server
}

func toolError(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
	}
}

// runCollector keeps the final run of a non-streaming request.
type runCollector struct {
	run *api.Run
}

var _ transport.EventWriter = (*runCollector)(nil)

func (c *runCollector) WriteEvent(context.Context, api.RunEvent) error { return nil }

func (c *runCollector) WriteRun(_ context.Context, run *api.Run) error {
	c.run = run
	return nil
}

func (c *runCollector) Flush() error { return nil }
