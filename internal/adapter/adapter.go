// Package adapter contains the platform adapters that fetch raw content from
// external sources. Every adapter wraps one upstream platform behind the same
// capability surface: a rate-limited Fetch with a primary lightweight strategy
// and a scrape fallback, plus a Health snapshot. Concrete adapters are
// selected through a name-keyed registry.
package adapter

import (
	"context"
	"sync"

	"github.com/echolens/echolens/internal/domain"
)

// Adapter is the capability surface every platform variant exposes.
type Adapter interface {
	// Platform returns the source tag this adapter serves.
	Platform() domain.Platform

	// Fetch retrieves up to limit raw records for the given target (channel,
	// subreddit, site...). Single-item failures are skipped, not fatal.
	Fetch(ctx context.Context, target string, limit int) ([]domain.RawRecord, error)

	// Health reports the adapter's state, rate budget, and error streak.
	Health() domain.AdapterHealth
}

// Registry maps platform names to adapters.
type Registry struct {
	mu       sync.RWMutex
	adapters map[domain.Platform]Adapter
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[domain.Platform]Adapter)}
}

// Register adds an adapter, replacing any previous one for the platform.
func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.Platform()] = a
}

// Get returns the adapter for a platform.
func (r *Registry) Get(platform domain.Platform) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.adapters[platform]
	if !ok {
		return nil, domain.ErrAdapterNotFound
	}
	return a, nil
}

// All returns every registered adapter.
func (r *Registry) All() []Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Adapter, 0, len(r.adapters))
	for _, a := range r.adapters {
		out = append(out, a)
	}
	return out
}

// HealthAll returns the health snapshot of every registered adapter.
func (r *Registry) HealthAll() []domain.AdapterHealth {
	all := r.All()
	out := make([]domain.AdapterHealth, 0, len(all))
	for _, a := range all {
		out = append(out, a.Health())
	}
	return out
}
