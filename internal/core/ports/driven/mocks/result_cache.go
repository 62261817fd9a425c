package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-search/internal/core/domain"
	"github.com/custodia-labs/sercha-search/internal/core/ports/driven"
)

// Ensure MockResultCache implements ResultCache
var _ driven.ResultCache = (*MockResultCache)(nil)

// MockResultCache is a map-backed ResultCache without expiry
type MockResultCache struct {
	mu          sync.RWMutex
	entries     map[string]*domain.SearchResponse
	ttl         time.Duration
	err         error
	invalidated int
}

// NewMockResultCache creates a new MockResultCache
func NewMockResultCache(ttl time.Duration) *MockResultCache {
	return &MockResultCache{
		entries: make(map[string]*domain.SearchResponse),
		ttl:     ttl,
	}
}

func (m *MockResultCache) Get(ctx context.Context, key string) (*domain.SearchResponse, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, false, m.err
	}
	resp, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	return resp.Clone(), true, nil
}

func (m *MockResultCache) Set(ctx context.Context, key string, resp *domain.SearchResponse) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.entries[key] = resp.Clone()
	return nil
}

func (m *MockResultCache) Invalidate(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]*domain.SearchResponse)
	m.invalidated++
	return nil
}

func (m *MockResultCache) TTL() time.Duration {
	return m.ttl
}

// Helper methods for testing

func (m *MockResultCache) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *MockResultCache) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *MockResultCache) InvalidateCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.invalidated
}
