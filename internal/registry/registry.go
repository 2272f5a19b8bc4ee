// Package registry implements the coarse-mutex input/output registries
// (§5: "input and output registries use a single coarse mutex for
// registration/lookup; the hot path (frame handoff) uses lock-free bounded
// channels").
//
// Grounded on the teacher's Service.tgSessions map[int64]*endpoints.TgEndpoint
// guarded by one sync.Mutex (bridge/service.go: ensureTGSession/
// getTGSession/removeTGSession), generalized from one hardcoded session map
// keyed by Telegram chat id to any comparable id type and any entry value,
// so the same type serves both the input registry (keyed by ids.InputId)
// and the output registry (keyed by ids.OutputId).
package registry

import "sync"

// Registry is a map of id to entry protected by a single mutex.
type Registry[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]V
}

// New creates an empty registry.
func New[K comparable, V any]() *Registry[K, V] {
	return &Registry[K, V]{entries: map[K]V{}}
}

// Register stores v under id, returning any entry it replaced so the
// caller can tear down a stale registration (re-registering an id does not
// implicitly unregister the old entry).
func (r *Registry[K, V]) Register(id K, v V) (prev V, existed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev, existed = r.entries[id]
	r.entries[id] = v
	return prev, existed
}

// Unregister removes id's entry, if any, and returns it. Round-tripping
// Register then Unregister leaves the registry identical to before
// (§8 property 5).
func (r *Registry[K, V]) Unregister(id K) (V, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.entries[id]
	delete(r.entries, id)
	return v, ok
}

// Get looks up id's entry.
func (r *Registry[K, V]) Get(id K) (V, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.entries[id]
	return v, ok
}

// Len reports how many entries are currently registered.
func (r *Registry[K, V]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Ids returns a snapshot of currently registered ids.
func (r *Registry[K, V]) Ids() []K {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]K, 0, len(r.entries))
	for k := range r.entries {
		out = append(out, k)
	}
	return out
}

// Each calls fn for every entry under the registry's lock. fn must not
// call back into the registry.
func (r *Registry[K, V]) Each(fn func(K, V)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, v := range r.entries {
		fn(k, v)
	}
}
