// Package memory provides an in-process result cache.
package memory

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/custodia-labs/sercha-search/internal/core/domain"
	"github.com/custodia-labs/sercha-search/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ResultCache = (*ResultCache)(nil)

// DefaultCacheSize is the entry limit used when none is configured
const DefaultCacheSize = 1000

// ResultCache is a size-bounded LRU whose entries expire after a fixed TTL.
// Entries are stored and returned as deep copies, so callers own every
// response they get.
type ResultCache struct {
	lru *expirable.LRU[string, *domain.SearchResponse]
	ttl time.Duration
}

// NewResultCache creates a ResultCache holding up to size entries for ttl.
// A non-positive size uses DefaultCacheSize.
func NewResultCache(size int, ttl time.Duration) *ResultCache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	return &ResultCache{
		lru: expirable.NewLRU[string, *domain.SearchResponse](size, nil, ttl),
		ttl: ttl,
	}
}

// Get returns a copy of the cached response for key
func (c *ResultCache) Get(_ context.Context, key string) (*domain.SearchResponse, bool, error) {
	resp, ok := c.lru.Get(key)
	if !ok {
		return nil, false, nil
	}
	return resp.Clone(), true, nil
}

// Set stores a copy of resp under key
func (c *ResultCache) Set(_ context.Context, key string, resp *domain.SearchResponse) error {
	if resp == nil {
		return nil
	}
	c.lru.Add(key, resp.Clone())
	return nil
}

// Invalidate drops every entry
func (c *ResultCache) Invalidate(context.Context) error {
	c.lru.Purge()
	return nil
}

// TTL returns the entry lifetime
func (c *ResultCache) TTL() time.Duration {
	return c.ttl
}

// Len returns the number of live entries
func (c *ResultCache) Len() int {
	return c.lru.Len()
}
