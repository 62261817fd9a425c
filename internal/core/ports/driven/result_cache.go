package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/sercha-search/internal/core/domain"
)

// ResultCache stores assembled search responses for a bounded time.
// Implementations must be safe for concurrent use, and a miss must never
// block other readers.
type ResultCache interface {
	// Get returns a response the caller owns, or false on a miss
	Get(ctx context.Context, key string) (*domain.SearchResponse, bool, error)

	// Set stores resp under key for TTL()
	Set(ctx context.Context, key string, resp *domain.SearchResponse) error

	// Invalidate drops every entry
	Invalidate(ctx context.Context) error

	// TTL is the lifetime of an entry
	TTL() time.Duration
}
