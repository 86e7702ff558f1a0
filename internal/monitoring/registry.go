package monitoring

import (
	"context"
	"sync"
)

// handle is the bookkeeping kept for one orchestrator's running stall-check
// loop: cancel stops the loop's goroutine, done closes once it has returned.
type handle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// registry is the orchestrator_id -> handle map guarded by a single mutex,
// mirroring the Rust service's RwLock<HashMap<...>> + Mutex<()> pair
// collapsed into one lock: this package has no read-heavy hot path that
// would benefit from a separate RWMutex.
type registry struct {
	mu     sync.Mutex
	active map[string]*handle
}

func newRegistry() *registry {
	return &registry{active: make(map[string]*handle)}
}

// start registers a handle for orchestratorID, stopping and replacing
// anything already running for it. Returns true if a replace happened.
func (r *registry) start(orchestratorID string, h *handle) (replaced bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.active[orchestratorID]; ok {
		existing.cancel()
		<-existing.done
		replaced = true
	}
	r.active[orchestratorID] = h
	return replaced
}

// stop cancels and removes the handle for orchestratorID, if any.
func (r *registry) stop(orchestratorID string) {
	r.mu.Lock()
	h, ok := r.active[orchestratorID]
	if ok {
		delete(r.active, orchestratorID)
	}
	r.mu.Unlock()
	if ok {
		h.cancel()
		<-h.done
	}
}

// stopAll cancels and removes every active handle.
func (r *registry) stopAll() {
	r.mu.Lock()
	all := r.active
	r.active = make(map[string]*handle)
	r.mu.Unlock()
	for _, h := range all {
		h.cancel()
	}
	for _, h := range all {
		<-h.done
	}
}

// isActive reports whether orchestratorID currently has a running loop.
func (r *registry) isActive(orchestratorID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.active[orchestratorID]
	return ok
}

// activeIDs returns every orchestrator_id with a running loop.
func (r *registry) activeIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.active))
	for id := range r.active {
		out = append(out, id)
	}
	return out
}
