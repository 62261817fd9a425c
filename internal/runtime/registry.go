package runtime

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/custodia-labs/sercha-search/internal/core/domain"
	"github.com/custodia-labs/sercha-search/internal/core/ports/driven"
)

// Registry holds the configured indexes. The whole set is swapped
// atomically on reload, so a request sees either the old or the new set.
// Thread-safe for concurrent access.
type Registry struct {
	mu      sync.RWMutex
	indexes map[string]*domain.IndexConfig

	// cache is invalidated with every reload (may be nil)
	cache driven.ResultCache
}

// NewRegistry creates an empty Registry
func NewRegistry(cache driven.ResultCache) *Registry {
	return &Registry{
		indexes: make(map[string]*domain.IndexConfig),
		cache:   cache,
	}
}

// Get returns the config of the named index. The config must not be
// modified.
func (r *Registry) Get(name string) (*domain.IndexConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cfg, ok := r.indexes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrIndexNotFound, name)
	}
	return cfg, nil
}

// Names returns the index names, sorted
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.indexes))
}

// Infos describes every index, sorted by name
func (r *Registry) Infos() []domain.IndexInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := slices.Sorted(maps.Keys(r.indexes))
	infos := make([]domain.IndexInfo, len(names))
	for i, name := range names {
		infos[i] = r.indexes[name].Info()
	}
	return infos
}

// Len returns the number of indexes
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.indexes)
}

// Reload validates configs and replaces the whole set with them, then
// invalidates the result cache. An invalid set leaves the current one in
// place.
func (r *Registry) Reload(ctx context.Context, configs []*domain.IndexConfig) error {
	next := make(map[string]*domain.IndexConfig, len(configs))
	for _, cfg := range configs {
		if cfg == nil {
			return domain.NewValidationError("indexes", "nil index config")
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		if _, dup := next[cfg.Name]; dup {
			return domain.NewValidationError("indexes", "duplicate index %q", cfg.Name)
		}
		next[cfg.Name] = cfg.Clone()
	}

	r.mu.Lock()
	r.indexes = next
	r.mu.Unlock()

	if r.cache != nil {
		if err := r.cache.Invalidate(ctx); err != nil {
			return fmt.Errorf("invalidate result cache: %w", err)
		}
	}
	return nil
}
