package circuitbreaker

import (
	"sync"
)

// Registry lazily creates and caches one breaker per provider name. All
// breakers share the registry's thresholds.
type Registry struct {
	mutex    sync.RWMutex
	breakers map[string]*CircuitBreaker
	cfg      Config
}

func NewRegistry(cfg Config) *Registry {
	return &Registry{
		breakers: make(map[string]*CircuitBreaker),
		cfg:      cfg,
	}
}

// Breaker returns the breaker for a provider, creating it on first use.
func (r *Registry) Breaker(provider string) *CircuitBreaker {
	r.mutex.RLock()
	cb, exists := r.breakers[provider]
	r.mutex.RUnlock()

	if exists {
		return cb
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	// Double-check: another goroutine may have created it
	if cb, exists = r.breakers[provider]; exists {
		return cb
	}

	cb = New(provider, r.cfg)
	r.breakers[provider] = cb
	return cb
}

// Reset drops every cached breaker, returning all providers to CLOSED.
func (r *Registry) Reset() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.breakers = make(map[string]*CircuitBreaker)
}

// Stats returns the current state of every cached breaker.
func (r *Registry) Stats() map[string]State {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	stats := make(map[string]State, len(r.breakers))
	for provider, cb := range r.breakers {
		stats[provider] = cb.State()
	}
	return stats
}

// Statuses returns a full snapshot of every cached breaker, keyed by
// provider name.
func (r *Registry) Statuses() map[string]Status {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	statuses := make(map[string]Status, len(r.breakers))
	for provider, cb := range r.breakers {
		statuses[provider] = cb.Status()
	}
	return statuses
}
