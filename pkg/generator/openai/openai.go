// Package openai streams generations from the OpenAI API through the
// go-openai client. Any server that go-openai can talk to (Azure OpenAI,
// proxies) works by setting BaseURL.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/rhuss/laph/pkg/api"
	"github.com/rhuss/laph/pkg/generator"
)

// DefaultModel is used when Config.Model is empty.
const DefaultModel = "gpt-4o-mini"

// Config configures a Client.
type Config struct {
	APIKey string
	Model  string

	// BaseURL overrides the API root, including the /v1 suffix.
	BaseURL     string
	Temperature *float64
	MaxTokens   *int
}

// Client is a generator.Client backed by go-openai.
type Client struct {
	client *goopenai.Client
	cfg    Config
}

var _ generator.Client = (*Client)(nil)

// New creates a Client.
func New(cfg Config) *Client {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	oc := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	return &Client{client: goopenai.NewClientWithConfig(oc), cfg: cfg}
}

// Backend implements generator.Named.
func (c *Client) Backend() string { return "openai" }

// Submit implements generator.Client.
func (c *Client) Submit(ctx context.Context, prompt string) (<-chan generator.Chunk, error) {
	req := goopenai.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, Content: prompt},
		},
		Stream: true,
	}
	if c.cfg.Temperature != nil {
		req.Temperature = float32(*c.cfg.Temperature)
	}
	if c.cfg.MaxTokens != nil {
		req.MaxCompletionTokens = *c.cfg.MaxTokens
	}

	stream, err := c.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, mapError(err)
	}

	ch := make(chan generator.Chunk, 16)
	go func() {
		defer close(ch)
		defer stream.Close()
		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				if ctx.Err() == nil {
					generator.Send(ctx, ch, generator.Chunk{Err: mapError(err)})
				}
				return
			}
			for _, choice := range resp.Choices {
				if choice.Delta.Content == "" {
					continue
				}
				if !generator.Send(ctx, ch, generator.Chunk{Text: choice.Delta.Content}) {
					return
				}
			}
		}
	}()
	return ch, nil
}

// mapError converts go-openai errors into APIErrors so retry and the
// HTTP layer can classify them.
func mapError(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusBadRequest:
			return api.NewInvalidRequestError("", apiErr.Message)
		case http.StatusUnauthorized, http.StatusForbidden:
			return api.NewUnauthorizedError(apiErr.Message)
		case http.StatusNotFound:
			return api.NewNotFoundError(apiErr.Message)
		case http.StatusTooManyRequests:
			return api.NewTooManyRequestsError(apiErr.Message)
		}
		return api.NewServerError(apiErr.Message)
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return api.NewServerError(fmt.Sprintf("openai request failed (HTTP %d): %v", reqErr.HTTPStatusCode, reqErr.Err))
	}
	return fmt.Errorf("openai: %w", err)
}
