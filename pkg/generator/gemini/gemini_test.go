package gemini

import (
	"context"
	"errors"
	"iter"
	"testing"
	"time"

	"google.golang.org/genai"

	"github.com/rhuss/laph/pkg/generator"
)

func textResponse(parts ...*genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Role: "model", Parts: parts}}},
	}
}

func fakeStream(responses []*genai.GenerateContentResponse, final error, gotModel *string) streamFunc {
	return func(ctx context.Context, model string, contents []*genai.Content,
		config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error] {
		*gotModel = model
		return func(yield func(*genai.GenerateContentResponse, error) bool) {
			for _, r := range responses {
				if !yield(r, nil) {
					return
				}
			}
			if final != nil {
				yield(nil, final)
			}
		}
	}
}

func TestSubmitStreamsText(t *testing.T) {
	var model string
	c := newWithStream(Config{}, fakeStream([]*genai.GenerateContentResponse{
		textResponse(&genai.Part{Text: "thinking", Thought: true}, &genai.Part{Text: "print("}),
		textResponse(&genai.Part{Text: "1)"}),
		{},
	}, nil, &model))

	ch, err := c.Submit(context.Background(), "p")
	if err != nil {
		t.Fatal(err)
	}
	text, err := generator.Drain(ch, nil)
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if text != "print(1)" {
		t.Errorf("text = %q", text)
	}
	if model != DefaultModel {
		t.Errorf("model = %q, want %q", model, DefaultModel)
	}
}

func TestSubmitStreamError(t *testing.T) {
	var model string
	c := newWithStream(Config{Model: "m"}, fakeStream(
		[]*genai.GenerateContentResponse{textResponse(&genai.Part{Text: "a"})},
		errors.New("quota"), &model))

	ch, _ := c.Submit(context.Background(), "p")
	_, err := generator.Drain(ch, nil)
	if err == nil || err.Error() != "gemini: quota" {
		t.Errorf("err = %v", err)
	}
}

func TestSubmitCancel(t *testing.T) {
	endless := func(ctx context.Context, model string, contents []*genai.Content,
		config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error] {
		return func(yield func(*genai.GenerateContentResponse, error) bool) {
			for {
				if !yield(textResponse(&genai.Part{Text: "x"}), nil) {
					return
				}
			}
		}
	}
	ctx, cancel := context.WithCancel(context.Background())
	ch, _ := newWithStream(Config{}, endless).Submit(ctx, "p")
	<-ch
	cancel()

	done := make(chan struct{})
	go func() {
		for range ch {
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not stop after cancel")
	}
}

func TestConfigMapping(t *testing.T) {
	temp, maxTokens := 0.3, 512
	c := newWithStream(Config{Temperature: &temp, MaxTokens: &maxTokens}, nil)
	if c.config.Temperature == nil || *c.config.Temperature != float32(0.3) {
		t.Errorf("temperature = %v", c.config.Temperature)
	}
	if c.config.MaxOutputTokens != 512 {
		t.Errorf("max tokens = %d", c.config.MaxOutputTokens)
	}
}

func TestResponseTextEmpty(t *testing.T) {
	if got := responseText(nil); got != "" {
		t.Errorf("responseText(nil) = %q", got)
	}
	if got := responseText(&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}}); got != "" {
		t.Errorf("responseText(no content) = %q", got)
	}
}
