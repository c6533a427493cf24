// Package generator defines the streaming text generator abstraction used
// by the repair loop, plus the role registry and client middleware.
//
// A [Client] turns a prompt into a lazy, cancellable stream of text
// [Chunk] values. Backend adapters live in subpackages (openaicompat,
// ollama, openai, gemini); [Scripted] replays fixed replies for tests and
// offline runs.
package generator

import (
	"context"
	"fmt"
	"strings"

	"github.com/rhuss/laph/pkg/api"
)

// ErrorMarker prefixes the single chunk that reports a failed generation
// to observers. Text carrying it is never treated as model output.
const ErrorMarker = "[LLM ERROR]"

// Chunk is one element of a generation stream. A chunk with a non-nil
// Err is always the last one sent.
type Chunk struct {
	Text string
	Err  error
}

// Client submits prompts to a text generator.
type Client interface {
	// Submit starts a generation. The returned channel yields text chunks
	// and is closed by the producer when the generation completes, fails,
	// or ctx is cancelled. An error return means nothing was started.
	Submit(ctx context.Context, prompt string) (<-chan Chunk, error)
}

// Named is implemented by clients that can report their backend name
// for logs and metrics.
type Named interface {
	Backend() string
}

// BackendName returns c's backend name, or "unknown".
func BackendName(c Client) string {
	if n, ok := c.(Named); ok {
		return n.Backend()
	}
	return "unknown"
}

// ErrorText renders err as an error-marker chunk text.
func ErrorText(err error) string {
	return ErrorMarker + " " + err.Error()
}

// IsErrorText reports whether s is an error-marker text.
func IsErrorText(s string) bool {
	return strings.HasPrefix(strings.TrimSpace(s), ErrorMarker)
}

// Drain reads ch, calling onText for every text chunk, and returns the
// concatenated text. If the stream ends with an error chunk, Drain
// returns the error and the text gathered so far.
func Drain(ch <-chan Chunk, onText func(string)) (string, error) {
	var sb strings.Builder
	for c := range ch {
		if c.Err != nil {
			// Keep draining so the producer can exit.
			for range ch {
			}
			return sb.String(), c.Err
		}
		if c.Text == "" {
			continue
		}
		sb.WriteString(c.Text)
		if onText != nil {
			onText(c.Text)
		}
	}
	return sb.String(), nil
}

// Send delivers c on ch unless ctx is done first. Producers use it so a
// cancelled consumer never leaves them blocked.
func Send(ctx context.Context, ch chan<- Chunk, c Chunk) bool {
	select {
	case ch <- c:
		return true
	case <-ctx.Done():
		return false
	}
}

// Registry maps generator roles to their clients. It is built once when
// the application is wired and handed to the repair orchestrator.
type Registry map[api.Role]Client

// Get returns the client for role.
func (r Registry) Get(role api.Role) (Client, error) {
	c, ok := r[role]
	if !ok || c == nil {
		return nil, fmt.Errorf("no generator configured for role %q", role)
	}
	return c, nil
}

// Require checks that every given role has a client.
func (r Registry) Require(roles ...api.Role) error {
	for _, role := range roles {
		if _, err := r.Get(role); err != nil {
			return err
		}
	}
	return nil
}
