package main

import (
	"context"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rhuss/laph/pkg/engine"
	"github.com/rhuss/laph/pkg/eventlog"
	"github.com/rhuss/laph/pkg/repair"
)

type fakeRepairer struct {
	code string
	ok   bool
	log  *eventlog.Memory
}

func (f *fakeRepairer) Run(ctx context.Context, task string, _ int, _ repair.Observer) (string, bool) {
	if id, ok := repair.RunIDFromContext(ctx); ok && f.log != nil {
		f.log.Log(ctx, id, "Task: "+task)
	}
	return f.code, f.ok
}

func connectMCP(t *testing.T, rep engine.Repairer, events eventlog.Reader) *mcp.ClientSession {
	t.Helper()
	eng, err := engine.New(rep, events, nil, engine.Config{})
	if err != nil {
		t.Fatal(err)
	}
	server := newMCPServer(eng)

	ctx := context.Background()
	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	go func() {
		_ = server.Run(ctx, serverTransport)
	}()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func toolText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) != 1 {
		t.Fatalf("content = %d items, want 1", len(res.Content))
	}
	tc, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("content = %T, want *mcp.TextContent", res.Content[0])
	}
	return tc.Text
}

func TestMCPListTools(t *testing.T) {
	session := connectMCP(t, &fakeRepairer{}, nil)

	res, err := session.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	names := map[string]bool{}
	for _, tool := range res.Tools {
		names[tool.Name] = true
	}
	for _, want := range []string{"generate_program", "get_run_events"} {
		if !names[want] {
			t.Errorf("tool %q not listed", want)
		}
	}
}

func TestMCPGenerateProgram(t *testing.T) {
	session := connectMCP(t, &fakeRepairer{code: "print('hi')", ok: true}, nil)

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "generate_program",
		Arguments: map[string]any{"task": "say hi", "max_iterations": 2},
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("IsError = true: %s", toolText(t, res))
	}
	if got := toolText(t, res); got != "print('hi')" {
		t.Errorf("text = %q, want print('hi')", got)
	}
}

func TestMCPGenerateProgramExhausted(t *testing.T) {
	session := connectMCP(t, &fakeRepairer{}, nil)

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "generate_program",
		Arguments: map[string]any{"task": "impossible"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Error("IsError = false, want true")
	}
	if got := toolText(t, res); !strings.Contains(got, "exhausted") {
		t.Errorf("text = %q, want exhausted", got)
	}
}

func TestMCPGenerateProgramInvalid(t *testing.T) {
	session := connectMCP(t, &fakeRepairer{}, nil)

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "generate_program",
		Arguments: map[string]any{"task": "x", "max_iterations": 61},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Error("IsError = false, want true for an out-of-range budget")
	}
}

func TestMCPRunEvents(t *testing.T) {
	log := eventlog.NewMemory(0, 0)
	session := connectMCP(t, &fakeRepairer{code: "pass", ok: true, log: log}, log)
	ctx := context.Background()

	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "generate_program",
		Arguments: map[string]any{"task": "do nothing"},
	})
	if err != nil {
		t.Fatal(err)
	}
	out, ok := res.StructuredContent.(map[string]any)
	if !ok {
		t.Fatalf("StructuredContent = %T, want map", res.StructuredContent)
	}
	runID, _ := out["run_id"].(string)
	if runID == "" {
		t.Fatal("run_id missing from structured output")
	}

	res, err = session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "get_run_events",
		Arguments: map[string]any{"run_id": runID},
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("IsError = true: %s", toolText(t, res))
	}
	if got := toolText(t, res); !strings.Contains(got, "Task: do nothing") {
		t.Errorf("events = %q, want task line", got)
	}
}

func TestMCPRunEventsUnknownRun(t *testing.T) {
	session := connectMCP(t, &fakeRepairer{}, nil)

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "get_run_events",
		Arguments: map[string]any{"run_id": "run_0123456789abcdef0123456789abcdef"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Error("IsError = false, want true for an unknown run")
	}
}
