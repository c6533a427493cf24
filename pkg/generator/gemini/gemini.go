// Package gemini streams generations from Google's Gemini API through the
// google.golang.org/genai SDK.
package gemini

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"google.golang.org/genai"

	"github.com/rhuss/laph/pkg/generator"
)

// DefaultModel is used when Config.Model is empty.
const DefaultModel = "gemini-2.5-flash"

// Config configures a Client.
type Config struct {
	// APIKey falls back to GEMINI_API_KEY / GOOGLE_API_KEY when empty,
	// which the SDK reads itself.
	APIKey      string
	Model       string
	BaseURL     string
	Temperature *float64
	MaxTokens   *int
}

// streamFunc matches genai's Models.GenerateContentStream.
type streamFunc func(ctx context.Context, model string, contents []*genai.Content,
	config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error]

// Client is a generator.Client backed by genai.
type Client struct {
	model  string
	config *genai.GenerateContentConfig
	stream streamFunc
}

var _ generator.Client = (*Client)(nil)

// New creates a Client. It does not contact the API.
func New(ctx context.Context, cfg Config) (*Client, error) {
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions.BaseURL = cfg.BaseURL
	}
	cli, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return newWithStream(cfg, cli.Models.GenerateContentStream), nil
}

func newWithStream(cfg Config, fn streamFunc) *Client {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	gc := &genai.GenerateContentConfig{}
	if cfg.Temperature != nil {
		t := float32(*cfg.Temperature)
		gc.Temperature = &t
	}
	if cfg.MaxTokens != nil {
		gc.MaxOutputTokens = int32(*cfg.MaxTokens)
	}
	return &Client{model: cfg.Model, config: gc, stream: fn}
}

// Backend implements generator.Named.
func (c *Client) Backend() string { return "gemini" }

// Submit implements generator.Client. The SDK call is lazy, so request
// errors surface as the stream's error chunk.
func (c *Client) Submit(ctx context.Context, prompt string) (<-chan generator.Chunk, error) {
	contents := []*genai.Content{{Role: genai.RoleUser, Parts: []*genai.Part{{Text: prompt}}}}

	ch := make(chan generator.Chunk, 16)
	go func() {
		defer close(ch)
		for resp, err := range c.stream(ctx, c.model, contents, c.config) {
			if err != nil {
				if ctx.Err() == nil {
					generator.Send(ctx, ch, generator.Chunk{Err: fmt.Errorf("gemini: %w", err)})
				}
				return
			}
			if text := responseText(resp); text != "" {
				if !generator.Send(ctx, ch, generator.Chunk{Text: text}) {
					return
				}
			}
		}
	}()
	return ch, nil
}

// responseText joins the text parts of the first candidate, skipping
// thought parts.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	content := resp.Candidates[0].Content
	if content == nil {
		return ""
	}
	var sb strings.Builder
	for _, p := range content.Parts {
		if p == nil || p.Thought {
			continue
		}
		sb.WriteString(p.Text)
	}
	return sb.String()
}
