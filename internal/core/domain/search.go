package domain

import (
	"errors"
	"maps"
	"time"
)

// ScoreField is the sort sentinel meaning "order by relevance"
const ScoreField = "_score"

// SortDirection is the direction of an ORDER BY term
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// Valid reports whether d is asc or desc
func (d SortDirection) Valid() bool {
	return d == SortAsc || d == SortDesc
}

// CompiledQuery is the backend-specific form of a search request. It is
// produced once per request and never mutated.
type CompiledQuery struct {
	// Index is the IndexConfig name the query was compiled against
	Index string `json:"index"`

	// Dialect names the backend the expression targets
	Dialect string `json:"dialect"`

	// Expression is the complete, paginated statement
	Expression string `json:"expression"`

	// CountExpression counts every match of Expression without pagination
	CountExpression string `json:"count_expression,omitempty"`

	// WhereClause is the predicate part of Expression
	WhereClause string `json:"where_clause"`

	// OrderBy is the ORDER BY list of Expression
	OrderBy string `json:"order_by,omitempty"`

	// Params are the bound values, in placeholder order
	Params []any `json:"params"`

	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// RawRow is one backend record with its raw relevance data
type RawRow struct {
	ID     string
	Fields map[string]any

	// Score is the backend's composite relevance for the row
	Score float64

	// FieldScores holds the per-field relevance when the backend reports it
	FieldScores map[string]float64

	// AgeDays is the document age used for recency boosting
	AgeDays float64
}

// RawResult is what a backend returns for one CompiledQuery
type RawResult struct {
	Rows    []RawRow
	Total   int
	Elapsed time.Duration
}

// ScoredDocument is a ranked, optionally highlighted search hit
type ScoredDocument struct {
	ID              string            `json:"id"`
	Fields          map[string]any    `json:"fields"`
	Score           float64           `json:"_raw_score"`
	NormalizedScore float64           `json:"_score"`
	Highlights      map[string]string `json:"_highlights,omitempty"`
}

// Pagination describes the requested page
type Pagination struct {
	Offset  int  `json:"offset"`
	Limit   int  `json:"limit"`
	HasNext bool `json:"hasNext"`
}

// SearchResponse is created fresh per request and owned by the caller
type SearchResponse struct {
	Results    []ScoredDocument `json:"results"`
	Total      int              `json:"total"`
	TookMs     int64            `json:"took"`
	Pagination Pagination       `json:"pagination"`
}

// Clone returns a deep copy so a cached response can be handed out safely
func (r *SearchResponse) Clone() *SearchResponse {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Results = make([]ScoredDocument, len(r.Results))
	for i, doc := range r.Results {
		doc.Fields = maps.Clone(doc.Fields)
		doc.Highlights = maps.Clone(doc.Highlights)
		cp.Results[i] = doc
	}
	return &cp
}

// Suggestion represents a search autocomplete suggestion
type Suggestion struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// SearchOutcome classifies how a search ended, for metrics and logs
type SearchOutcome string

const (
	OutcomeOK        SearchOutcome = "ok"
	OutcomeInvalid   SearchOutcome = "invalid"
	OutcomeNotFound  SearchOutcome = "not_found"
	OutcomeCancelled SearchOutcome = "cancelled"
	OutcomeTransient SearchOutcome = "transient"
	OutcomeFatal     SearchOutcome = "fatal"
)

// OutcomeOf maps a search error to its outcome
func OutcomeOf(err error) SearchOutcome {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrInvalidInput):
		return OutcomeInvalid
	case errors.Is(err, ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, ErrCancelled):
		return OutcomeCancelled
	case IsTransient(err):
		return OutcomeTransient
	default:
		return OutcomeFatal
	}
}
