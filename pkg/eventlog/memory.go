package eventlog

import (
	"context"
	"sync"
	"time"
)

// Memory keeps the most recent entries of the most recent runs.
type Memory struct {
	maxPerRun int
	maxRuns   int
	now       func() time.Time

	mu    sync.RWMutex
	runs  map[string][]Entry
	order []string // run IDs, oldest first
}

var (
	_ Sink   = (*Memory)(nil)
	_ Reader = (*Memory)(nil)
)

// NewMemory creates a Memory log. Non-positive limits default to 2000
// entries per run and 32 runs.
func NewMemory(maxPerRun, maxRuns int) *Memory {
	if maxPerRun <= 0 {
		maxPerRun = 2000
	}
	if maxRuns <= 0 {
		maxRuns = 32
	}
	return &Memory{
		maxPerRun: maxPerRun,
		maxRuns:   maxRuns,
		now:       time.Now,
		runs:      make(map[string][]Entry),
	}
}

// Log implements Sink.
func (m *Memory) Log(_ context.Context, runID, message string) error {
	e := Entry{RunID: runID, Time: m.now(), Message: message}

	m.mu.Lock()
	defer m.mu.Unlock()

	entries, ok := m.runs[runID]
	if !ok {
		m.order = append(m.order, runID)
		for len(m.order) > m.maxRuns {
			delete(m.runs, m.order[0])
			m.order = m.order[1:]
		}
	}
	entries = append(entries, e)
	if over := len(entries) - m.maxPerRun; over > 0 {
		entries = append(entries[:0:0], entries[over:]...)
	}
	m.runs[runID] = entries
	return nil
}

// Entries returns a copy of the stored entries of a run.
func (m *Memory) Entries(runID string) ([]Entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries, ok := m.runs[runID]
	if !ok {
		return nil, false
	}
	return append([]Entry(nil), entries...), true
}

// Lines implements Reader.
func (m *Memory) Lines(_ context.Context, runID string) ([]string, error) {
	entries, ok := m.Entries(runID)
	if !ok {
		return nil, ErrNotFound
	}
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = Format(e.Time, e.Message)
	}
	return lines, nil
}
