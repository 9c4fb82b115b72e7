package core

import "sync"

// Registry is the ordered set of services known to an Orchestrator, keyed by
// service id. It is safe for concurrent use.
type Registry struct {
	mu       sync.Mutex
	services []Service
	ids      map[string]Service
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{ids: make(map[string]Service)}
}

// Add appends svc and reports whether it was new. A service whose id is
// already registered is ignored.
func (r *Registry) Add(svc Service) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := svc.ID()
	if _, ok := r.ids[id]; ok {
		return false
	}
	r.ids[id] = svc
	r.services = append(r.services, svc)
	return true
}

// Lookup returns the service registered under id.
func (r *Registry) Lookup(id string) (Service, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	svc, ok := r.ids[id]
	return svc, ok
}

// Services returns the registered services in registration order.
func (r *Registry) Services() []Service {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Service, len(r.services))
	copy(out, r.services)
	return out
}

// Len returns the number of registered services.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.services)
}

// WithScope returns, in registration order, the services whose current
// scope is scope.
func (r *Registry) WithScope(scope Scope) []Service {
	var out []Service
	for _, svc := range r.Services() {
		if svc.Scope() == scope {
			out = append(out, svc)
		}
	}
	return out
}

// ForEachWithScope calls fn for every service whose current scope is scope.
// The registry lock is not held while fn runs.
func (r *Registry) ForEachWithScope(scope Scope, fn func(Service)) {
	for _, svc := range r.WithScope(scope) {
		fn(svc)
	}
}
