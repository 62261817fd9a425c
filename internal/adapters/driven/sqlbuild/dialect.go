// Package sqlbuild compiles search requests into parameterized SQL and runs
// them over database/sql. Everything backend-specific is behind Dialect, so
// the boolean composition, filters, ordering and pagination are shared by
// every SQL backend.
package sqlbuild

import (
	"strings"

	"github.com/custodia-labs/sercha-search/internal/core/domain"
	"github.com/custodia-labs/sercha-search/internal/core/query"
)

// TableAlias is the alias of the searched table in every statement
const TableAlias = "t"

// Computed result columns. User columns can never start with an underscore.
const (
	ColID      = "_id"
	ColRank    = "_rank"
	ColAgeDays = "_age_days"
	ColTotal   = "_total"

	// ColScore is the rank with the recency boost applied. Results are
	// ordered by it so pages agree with the scores reported for them.
	ColScore = "_score"

	// ColFieldRankPrefix prefixes the per-field rank columns
	ColFieldRankPrefix = "_rank_"
)

// Leaf is a query leaf with its field and text already validated
type Leaf struct {
	Kind  query.Kind
	Field string
	Text  string

	// Distance is the resolved fuzzy edit distance
	Distance int
}

// Dialect renders the backend-specific fragments of a statement
type Dialect interface {
	// Name identifies the backend, e.g. "postgres"
	Name() string

	// Placeholder renders the n-th (1-based) bound parameter. Dialects must
	// allow the same placeholder to appear more than once.
	Placeholder(n int) string

	// QuoteIdent quotes a single identifier
	QuoteIdent(name string) string

	// ValidateIndex rejects configs the dialect cannot serve
	ValidateIndex(cfg *domain.IndexConfig) error

	// Leaf renders the predicate for leaf and the expression ranking it.
	// Every user value must go through b.
	Leaf(b *Binder, cfg *domain.IndexConfig, leaf Leaf) (pred, rank string, err error)

	// InList renders a membership predicate for column over values
	InList(b *Binder, column string, values []any) string

	// AgeDays renders the age in days of the timestamp in column, clamped
	// at zero for future timestamps
	AgeDays(column string) string

	// Float casts expr to a double precision float
	Float(expr string) string
}

// Binder collects bound parameters in placeholder order
type Binder struct {
	dialect Dialect
	params  []any
}

// NewBinder creates an empty Binder for d
func NewBinder(d Dialect) *Binder {
	return &Binder{dialect: d}
}

// Bind appends v and returns its placeholder
func (b *Binder) Bind(v any) string {
	b.params = append(b.params, v)
	return b.dialect.Placeholder(len(b.params))
}

// Params returns the bound values
func (b *Binder) Params() []any {
	return b.params
}

// Column renders a column of the searched table
func Column(d Dialect, name string) string {
	return TableAlias + "." + d.QuoteIdent(name)
}

// QuoteQualified quotes a possibly schema-qualified name part by part
func QuoteQualified(d Dialect, name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = d.QuoteIdent(p)
	}
	return strings.Join(parts, ".")
}
