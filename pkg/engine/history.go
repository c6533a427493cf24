package engine

import (
	"sync"

	"github.com/rhuss/laph/pkg/api"
)

// history keeps the most recent runs by ID. Runs are stored by value so
// readers never observe a run being updated.
type history struct {
	size int

	mu    sync.Mutex
	runs  map[string]api.Run
	order []string
}

func newHistory(size int) *history {
	return &history{size: size, runs: make(map[string]api.Run)}
}

// put inserts or replaces a run. When full, the oldest finished run is
// evicted; runs still in flight are never dropped.
func (h *history) put(run api.Run) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.runs[run.ID]; !ok {
		h.order = append(h.order, run.ID)
	}
	h.runs[run.ID] = run

	for len(h.order) > h.size {
		evicted := false
		for i, id := range h.order {
			if r := h.runs[id]; r.Terminal() {
				delete(h.runs, id)
				h.order = append(h.order[:i], h.order[i+1:]...)
				evicted = true
				break
			}
		}
		if !evicted {
			return
		}
	}
}

func (h *history) get(id string) (api.Run, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.runs[id]
	return r, ok
}

func (h *history) len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.runs)
}
