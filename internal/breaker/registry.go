package breaker

import "sync"

// Registry holds one breaker per provider identity, created lazily on
// first use and never evicted. Reads of unrelated keys only contend on
// the map lock, not on each other's breaker mutex.
type Registry struct {
	mu       sync.RWMutex
	breakers map[string]*Breaker
	defaults Config
}

func NewRegistry(defaults Config) *Registry {
	return &Registry{
		breakers: make(map[string]*Breaker),
		defaults: defaults,
	}
}

func (r *Registry) Get(key string) *Breaker {
	r.mu.RLock()
	b, exists := r.breakers[key]
	r.mu.RUnlock()

	if exists {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if b, exists = r.breakers[key]; exists {
		return b
	}

	b = New(r.defaults)
	r.breakers[key] = b
	return b
}

// ResetAll forces every known breaker back to closed. Operator recovery
// after a known-resolved outage.
func (r *Registry) ResetAll() {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, b := range r.breakers {
		b.Reset()
	}
}

func (r *Registry) Snapshots() map[string]Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snaps := make(map[string]Snapshot, len(r.breakers))
	for key, b := range r.breakers {
		snaps[key] = b.Snapshot()
	}
	return snaps
}
