package engine

import (
	"testing"

	"github.com/rhuss/laph/pkg/api"
)

func TestHistoryEvictsOldestFinished(t *testing.T) {
	h := newHistory(2)
	h.put(api.Run{ID: "a", Status: api.RunStatusRunning})
	h.put(api.Run{ID: "b", Status: api.RunStatusSucceeded})
	h.put(api.Run{ID: "c", Status: api.RunStatusExhausted})

	if _, ok := h.get("a"); !ok {
		t.Error("running run a was evicted")
	}
	if _, ok := h.get("b"); ok {
		t.Error("oldest finished run b should be evicted")
	}
	if _, ok := h.get("c"); !ok {
		t.Error("newest run c missing")
	}
}

func TestHistoryUpdateInPlace(t *testing.T) {
	h := newHistory(1)
	h.put(api.Run{ID: "a", Status: api.RunStatusRunning})
	h.put(api.Run{ID: "a", Status: api.RunStatusSucceeded})

	if h.len() != 1 {
		t.Errorf("len = %d, want 1", h.len())
	}
	if r, _ := h.get("a"); r.Status != api.RunStatusSucceeded {
		t.Errorf("Status = %q, want succeeded", r.Status)
	}
}

func TestHistoryKeepsRunningBeyondSize(t *testing.T) {
	h := newHistory(1)
	h.put(api.Run{ID: "a", Status: api.RunStatusRunning})
	h.put(api.Run{ID: "b", Status: api.RunStatusRunning})

	if h.len() != 2 {
		t.Errorf("len = %d, want 2", h.len())
	}
}
