package plugin

import "sync"

// Registry holds registered plugins partitioned by stage. Partitions are
// maintained at registration time so each flush reads a cached slice
// instead of re-filtering the full plugin list.
//
// Registration order is preserved, both overall and within each stage.
// Plugins are never removed.
type Registry struct {
	mu      sync.RWMutex
	all     []Plugin
	byStage map[Stage][]Plugin
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byStage: make(map[Stage][]Plugin),
	}
}

// Add appends a plugin to the registry and its stage partition.
func (r *Registry) Add(p Plugin) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.all = append(r.all, p)
	r.byStage[p.Stage()] = append(r.byStage[p.Stage()], p)
}

// All returns a snapshot of every registered plugin in registration order.
func (r *Registry) All() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Plugin, len(r.all))
	copy(out, r.all)
	return out
}

// Stage returns a snapshot of the plugins registered for stage s, in
// registration order.
func (r *Registry) Stage(s Stage) []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	partition := r.byStage[s]
	out := make([]Plugin, len(partition))
	copy(out, partition)
	return out
}

// Len returns the number of registered plugins.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.all)
}

// AllReady reports whether every registered plugin is ready. An empty
// registry is ready. Plugin readiness checks run on a snapshot, outside
// the registry lock.
func (r *Registry) AllReady() bool {
	for _, p := range r.All() {
		if !p.Ready() {
			return false
		}
	}
	return true
}
