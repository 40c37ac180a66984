package pool

import "sync"

// Registry tracks the pools owned by a composition root so shutdown can
// destroy them all in one call. It replaces any notion of a process-global
// pool; callers construct pools explicitly and register them.
type Registry struct {
	mu    sync.Mutex
	pools []*Pool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add registers a pool and returns it, so construction and registration
// compose in one expression.
func (r *Registry) Add(p *Pool) *Pool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pools = append(r.pools, p)
	return p
}

// DestroyAll destroys every registered pool and empties the registry.
func (r *Registry) DestroyAll() {
	r.mu.Lock()
	pools := r.pools
	r.pools = nil
	r.mu.Unlock()

	for _, p := range pools {
		p.DestroyAll()
	}
}
