package driving

import (
	"context"

	"github.com/custodia-labs/sercha-search/internal/core/domain"
	"github.com/custodia-labs/sercha-search/internal/core/query"
)

// SearchService handles full-text search over configured indexes
type SearchService interface {
	// Search runs req against the named index
	Search(ctx context.Context, index string, req query.Request) (*domain.SearchResponse, error)

	// Autocomplete suggests completions of prefix from the index's suggest fields
	Autocomplete(ctx context.Context, index, prefix string, limit int) ([]domain.Suggestion, error)

	// Indexes describes the configured indexes, sorted by name
	Indexes() []domain.IndexInfo
}

// ConfigReloader reloads index configuration from its source
type ConfigReloader interface {
	// Reload swaps in the current configuration and invalidates cached results
	Reload(ctx context.Context) error
}
