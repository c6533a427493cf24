package transport

import (
	"context"
	"sync"
)

// InFlightRegistry tracks cancellable runs and caps how many may run at
// once. A limit of zero or less means unlimited.
type InFlightRegistry struct {
	limit int

	mu      sync.Mutex
	entries map[string]context.CancelFunc
}

// NewInFlightRegistry creates a registry admitting at most limit entries.
func NewInFlightRegistry(limit int) *InFlightRegistry {
	return &InFlightRegistry{
		limit:   limit,
		entries: make(map[string]context.CancelFunc),
	}
}

// TryRegister records cancel under id. It returns false without recording
// anything when the registry is full or id is already registered.
func (r *InFlightRegistry) TryRegister(id string, cancel context.CancelFunc) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.entries[id]; dup {
		return false
	}
	if r.limit > 0 && len(r.entries) >= r.limit {
		return false
	}
	r.entries[id] = cancel
	return true
}

// Cancel cancels and removes the entry for id. It reports whether an
// entry existed.
func (r *InFlightRegistry) Cancel(id string) bool {
	r.mu.Lock()
	cancel, ok := r.entries[id]
	delete(r.entries, id)
	r.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// Remove drops the entry for id without cancelling it.
func (r *InFlightRegistry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
}

// Len returns the number of registered entries.
func (r *InFlightRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
