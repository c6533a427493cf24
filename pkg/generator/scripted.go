package generator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Scripted replays a fixed list of replies, one per Submit call. Once the
// list is exhausted the last reply is repeated. A reply starting with
// ErrorMarker is delivered as an error chunk instead of text.
//
// Replies are streamed line by line so observers see several chunks.
type Scripted struct {
	mu      sync.Mutex
	replies []string
	next    int
	prompts []string
}

var _ Client = (*Scripted)(nil)

// NewScripted creates a Scripted client.
func NewScripted(replies ...string) *Scripted {
	return &Scripted{replies: replies}
}

// ScriptFile is the on-disk form of a scripted reply list.
type ScriptFile struct {
	Replies []string `yaml:"replies"`
}

// LoadScripted reads a YAML reply file and returns a Scripted client
// replaying it.
func LoadScripted(path string) (*Scripted, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading script %s: %w", path, err)
	}
	var f ScriptFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing script %s: %w", path, err)
	}
	if len(f.Replies) == 0 {
		return nil, fmt.Errorf("script %s has no replies", path)
	}
	return NewScripted(f.Replies...), nil
}

// Backend implements Named.
func (s *Scripted) Backend() string { return "scripted" }

// Submit implements Client.
func (s *Scripted) Submit(ctx context.Context, prompt string) (<-chan Chunk, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	if len(s.replies) == 0 {
		s.mu.Unlock()
		return nil, errors.New("scripted generator has no replies")
	}
	idx := min(s.next, len(s.replies)-1)
	s.next++
	reply := s.replies[idx]
	s.mu.Unlock()

	ch := make(chan Chunk)
	go func() {
		defer close(ch)
		if IsErrorText(reply) {
			cause := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(reply), ErrorMarker))
			Send(ctx, ch, Chunk{Err: errors.New(cause)})
			return
		}
		for _, line := range strings.SplitAfter(reply, "\n") {
			if line == "" {
				continue
			}
			if !Send(ctx, ch, Chunk{Text: line}) {
				return
			}
		}
	}()
	return ch, nil
}

// Prompts returns every prompt submitted so far.
func (s *Scripted) Prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.prompts...)
}

// Calls returns the number of Submit calls.
func (s *Scripted) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}
