package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rhuss/laph/pkg/api"
	"github.com/rhuss/laph/pkg/generator"
)

// Config configures a Client.
type Config struct {
	// BaseURL is the server root, without the /v1 suffix.
	BaseURL string
	APIKey  string
	Model   string

	// Temperature is sent only when non-nil.
	Temperature *float64
	MaxTokens   *int

	// Timeout applies to non-streaming calls such as ListModels.
	// Default: 120s.
	Timeout time.Duration
}

// Client streams generations from an OpenAI-compatible Chat Completions
// backend.
type Client struct {
	httpClient *http.Client
	cfg        Config
}

var _ generator.Client = (*Client)(nil)

// New creates a Client.
func New(cfg Config) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
	}
}

// Backend implements generator.Named.
func (c *Client) Backend() string { return "openaicompat" }

// Submit sends prompt as a single user message and streams the reply.
//
// The HTTP client timeout is not applied to the stream because a
// generation can legitimately outlast any fixed timeout. Lifecycle
// control relies on context cancellation instead.
func (c *Client) Submit(ctx context.Context, prompt string) (<-chan generator.Chunk, error) {
	body, err := json.Marshal(ChatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    []ChatMessage{{Role: "user", Content: prompt}},
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
		Stream:      true,
	})
	if err != nil {
		return nil, api.NewServerError(fmt.Sprintf("failed to marshal request: %s", err.Error()))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, api.NewServerError(fmt.Sprintf("failed to create HTTP request: %s", err.Error()))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	c.authorize(httpReq)

	streamClient := &http.Client{Transport: c.httpClient.Transport}
	httpResp, err := streamClient.Do(httpReq)
	if err != nil {
		return nil, MapNetworkError(err)
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		defer httpResp.Body.Close()
		return nil, MapHTTPError(httpResp)
	}

	ch := make(chan generator.Chunk, 16)
	go func() {
		defer close(ch)
		defer httpResp.Body.Close()
		ParseSSEStream(ctx, httpResp.Body, ch)
	}()
	return ch, nil
}

// ListModels returns the model IDs the backend serves. It doubles as a
// readiness probe.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/v1/models", nil)
	if err != nil {
		return nil, api.NewServerError(fmt.Sprintf("failed to create HTTP request: %s", err.Error()))
	}
	c.authorize(httpReq)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, MapNetworkError(err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, MapHTTPError(httpResp)
	}

	var modelsResp ChatModelsResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&modelsResp); err != nil {
		return nil, api.NewServerError(fmt.Sprintf("failed to parse models response: %s", err.Error()))
	}
	ids := make([]string, 0, len(modelsResp.Data))
	for _, m := range modelsResp.Data {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

func (c *Client) authorize(r *http.Request) {
	if c.cfg.APIKey != "" {
		r.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
}
