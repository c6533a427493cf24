// Package ollama streams generations from an Ollama server's /api/chat
// endpoint, which answers with newline-delimited JSON objects.
package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rhuss/laph/pkg/api"
	"github.com/rhuss/laph/pkg/generator"
)

// DefaultBaseURL is where a local Ollama listens.
const DefaultBaseURL = "http://localhost:11434"

// Config configures a Client.
type Config struct {
	BaseURL     string
	Model       string
	Temperature *float64

	// KeepAlive is passed through to Ollama, e.g. "5m". Empty leaves the
	// server default.
	KeepAlive string

	// Timeout bounds connecting and receiving response headers.
	// Default: 120s.
	Timeout time.Duration
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string         `json:"model"`
	Messages  []chatMessage  `json:"messages"`
	Stream    bool           `json:"stream"`
	KeepAlive string         `json:"keep_alive,omitempty"`
	Options   map[string]any `json:"options,omitempty"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
	Error   string      `json:"error,omitempty"`
}

// Client is a generator.Client for Ollama.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

var _ generator.Client = (*Client)(nil)

// New creates a Client.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Transport: &http.Transport{ResponseHeaderTimeout: cfg.Timeout},
		},
	}
}

// Backend implements generator.Named.
func (c *Client) Backend() string { return "ollama" }

// Submit implements generator.Client.
func (c *Client) Submit(ctx context.Context, prompt string) (<-chan generator.Chunk, error) {
	req := chatRequest{
		Model:     c.cfg.Model,
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
		Stream:    true,
		KeepAlive: c.cfg.KeepAlive,
	}
	if c.cfg.Temperature != nil {
		req.Options = map[string]any{"temperature": *c.cfg.Temperature}
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal ollama request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create ollama request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, api.NewServerError(fmt.Sprintf("ollama connection error: %s", err.Error()))
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, statusError(resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	ch := make(chan generator.Chunk, 16)
	go func() {
		defer close(ch)
		defer resp.Body.Close()
		readStream(ctx, resp.Body, ch)
	}()
	return ch, nil
}

func readStream(ctx context.Context, body io.Reader, ch chan<- generator.Chunk) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var r chatResponse
		if err := json.Unmarshal(line, &r); err != nil {
			generator.Send(ctx, ch, generator.Chunk{Err: fmt.Errorf("decode ollama stream: %w", err)})
			return
		}
		if r.Error != "" {
			generator.Send(ctx, ch, generator.Chunk{Err: fmt.Errorf("ollama: %s", r.Error)})
			return
		}
		if r.Message.Content != "" {
			if !generator.Send(ctx, ch, generator.Chunk{Text: r.Message.Content}) {
				return
			}
		}
		if r.Done {
			return
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		generator.Send(ctx, ch, generator.Chunk{Err: fmt.Errorf("reading ollama stream: %w", err)})
	}
}

func statusError(status int, msg string) error {
	if msg == "" {
		msg = http.StatusText(status)
	}
	switch status {
	case http.StatusBadRequest:
		return api.NewInvalidRequestError("", msg)
	case http.StatusNotFound:
		return api.NewNotFoundError(msg)
	default:
		return api.NewServerError(fmt.Sprintf("ollama returned %d: %s", status, msg))
	}
}
