package driven

import (
	"context"

	"github.com/custodia-labs/sercha-search/internal/core/domain"
	"github.com/custodia-labs/sercha-search/internal/core/query"
)

// QueryCompiler turns a search request into a backend statement.
// There is one implementation per backend dialect. Compile must be pure:
// the same request and config always yield an identical CompiledQuery.
type QueryCompiler interface {
	// Dialect names the backend the compiler targets (e.g. "postgres")
	Dialect() string

	// Compile builds the paginated search statement for req
	Compile(req query.Request, cfg *domain.IndexConfig) (*domain.CompiledQuery, error)

	// CompileSuggest builds an autocomplete statement over the index's
	// suggest fields. Result rows carry the suggestion text as their ID.
	CompileSuggest(prefix string, limit int, cfg *domain.IndexConfig) (*domain.CompiledQuery, error)
}

// SearchBackend executes compiled statements against storage
type SearchBackend interface {
	// Execute runs q under ctx. A fired ctx yields *domain.CancelledError,
	// never a partial result. Backend failures yield
	// *domain.SearchExecutionError. Execute never retries.
	Execute(ctx context.Context, q *domain.CompiledQuery) (*domain.RawResult, error)

	// Ping verifies the backend is reachable
	Ping(ctx context.Context) error
}
