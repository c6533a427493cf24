package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ExecuteRequest is the request body for POST /execute on the sandbox server.
type ExecuteRequest struct {
	Code           string   `json:"code"`
	Interactive    bool     `json:"interactive,omitempty"`
	Stdin          []string `json:"stdin,omitempty"`
	TimeoutSeconds int      `json:"timeout_seconds,omitempty"`
}

// ExecuteResponse is the response from POST /execute on the sandbox server.
type ExecuteResponse struct {
	Status          string `json:"status"`
	Stdout          string `json:"stdout"`
	Stderr          string `json:"stderr"`
	ExitCode        int    `json:"exit_code"`
	ExecutionTimeMs int64  `json:"execution_time_ms"`
}

// Acquirer hands out the base URL of a sandbox server. The release
// function must be called once the caller is done with the sandbox.
type Acquirer interface {
	Acquire(ctx context.Context) (url string, release func(), err error)
}

// StaticAcquirer always returns the same sandbox server URL.
type StaticAcquirer struct {
	URL string
}

// Acquire implements Acquirer.
func (a StaticAcquirer) Acquire(_ context.Context) (string, func(), error) {
	if a.URL == "" {
		return "", nil, fmt.Errorf("no sandbox URL configured")
	}
	return a.URL, func() {}, nil
}

// Client calls the sandbox server's REST API.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a sandbox HTTP client. The overall HTTP timeout is a
// safety net; execution timeouts are enforced by the server.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Execute sends an execution request to the sandbox server at baseURL.
func (c *Client) Execute(ctx context.Context, baseURL string, req *ExecuteRequest) (*ExecuteResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(baseURL, "/")+"/execute", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sandbox request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("sandbox at capacity (HTTP 429)")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sandbox returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var out ExecuteResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

// Remote runs programs on a sandbox server obtained from an Acquirer.
// Each execution acquires and releases its own sandbox.
type Remote struct {
	acquirer Acquirer
	client   *Client
}

var _ Runner = (*Remote)(nil)

// NewRemote creates a Remote runner.
func NewRemote(acquirer Acquirer, client *Client) *Remote {
	if client == nil {
		client = NewClient()
	}
	return &Remote{acquirer: acquirer, client: client}
}

// Run executes payload in batch mode on a remote sandbox.
func (r *Remote) Run(ctx context.Context, payload string) Result {
	return r.execute(ctx, &ExecuteRequest{Code: payload})
}

// RunInteractive executes code with scripted stdin on a remote sandbox.
func (r *Remote) RunInteractive(ctx context.Context, code string, inputs []string) Result {
	return r.execute(ctx, &ExecuteRequest{Code: code, Interactive: true, Stdin: inputs})
}

func (r *Remote) execute(ctx context.Context, req *ExecuteRequest) Result {
	url, release, err := r.acquirer.Acquire(ctx)
	if err != nil {
		return ExecutionError(fmt.Errorf("acquiring sandbox: %w", err))
	}
	defer release()

	resp, err := r.client.Execute(ctx, url, req)
	if err != nil {
		return ExecutionError(err)
	}
	return Result{Stdout: resp.Stdout, Stderr: resp.Stderr, ExitCode: resp.ExitCode}
}
