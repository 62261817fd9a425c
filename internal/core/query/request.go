package query

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-search/internal/core/domain"
)

// Sort is one ORDER BY term. Field may be domain.ScoreField.
type Sort struct {
	Field     string               `json:"field"`
	Direction domain.SortDirection `json:"direction,omitempty"`
}

// Range is a filter value bounding a column. Nil bounds are open.
type Range struct {
	Gt  any `json:"gt,omitempty"`
	Gte any `json:"gte,omitempty"`
	Lt  any `json:"lt,omitempty"`
	Lte any `json:"lte,omitempty"`
}

// IsEmpty reports whether no bound is set
func (r Range) IsEmpty() bool {
	return r.Gt == nil && r.Gte == nil && r.Lt == nil && r.Lte == nil
}

// Request is a search request: a query tree plus filters, ordering,
// pagination and highlighting.
type Request struct {
	Query     Node
	Filters   map[string]any
	Sort      []Sort
	Limit     int
	Offset    int
	Highlight bool
}

// NewRequest wraps a query node in a Request with default pagination
func NewRequest(q Node) Request {
	return Request{Query: q}
}

// Filter returns a copy of req with filters merged in. Filter values must be
// nil, a scalar (string, bool, integer, float, time.Time), a slice of
// scalars, or a Range.
func Filter(req Request, filters map[string]any) (Request, error) {
	out := req.clone()
	if out.Filters == nil {
		out.Filters = make(map[string]any, len(filters))
	}
	for _, key := range slices.Sorted(maps.Keys(filters)) {
		field := strings.TrimSpace(key)
		if field == "" {
			return Request{}, domain.NewValidationError("filters", "filter field name is required")
		}
		value, err := normalizeFilterValue(field, filters[key])
		if err != nil {
			return Request{}, err
		}
		out.Filters[field] = value
	}
	return out, nil
}

// SortByRelevance returns a copy of req ordered by descending score
func SortByRelevance(req Request) Request {
	out := req.clone()
	out.Sort = append(out.Sort, Sort{Field: domain.ScoreField, Direction: domain.SortDesc})
	return out
}

// SortByField returns a copy of req with an additional ORDER BY term
func SortByField(req Request, field string, dir domain.SortDirection) (Request, error) {
	field = strings.TrimSpace(field)
	if field == "" {
		return Request{}, domain.NewValidationError("sort", "sort field is required")
	}
	if dir == "" {
		dir = domain.SortAsc
	}
	dir = domain.SortDirection(strings.ToLower(string(dir)))
	if !dir.Valid() {
		return Request{}, domain.NewValidationError(field, "sort direction must be asc or desc, got %q", dir)
	}
	out := req.clone()
	out.Sort = append(out.Sort, Sort{Field: field, Direction: dir})
	return out, nil
}

// Validate checks the request invariants that do not depend on an index
func (r Request) Validate() error {
	if r.Query == nil {
		return domain.NewValidationError("query", "query is required")
	}
	if r.Limit < 0 {
		return domain.NewValidationError("limit", "must not be negative, got %d", r.Limit)
	}
	if r.Offset < 0 {
		return domain.NewValidationError("offset", "must not be negative, got %d", r.Offset)
	}
	for _, s := range r.Sort {
		if s.Direction != "" && !s.Direction.Valid() {
			return domain.NewValidationError(s.Field, "sort direction must be asc or desc, got %q", s.Direction)
		}
	}
	return nil
}

// PrimarySort returns the first sort term, defaulting to relevance
func (r Request) PrimarySort() Sort {
	if len(r.Sort) == 0 {
		return Sort{Field: domain.ScoreField, Direction: domain.SortDesc}
	}
	return r.Sort[0]
}

// String renders the request canonically: equal requests render equally
func (r Request) String() string {
	var b strings.Builder
	if r.Query != nil {
		b.WriteString(r.Query.String())
	}
	b.WriteString(" filters{")
	for i, k := range slices.Sorted(maps.Keys(r.Filters)) {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(formatValue(r.Filters[k]))
	}
	b.WriteString("} sort[")
	for i, s := range r.Sort {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(s.Field + " " + string(s.Direction))
	}
	fmt.Fprintf(&b, "] limit=%d offset=%d highlight=%t", r.Limit, r.Offset, r.Highlight)
	return b.String()
}

func (r Request) clone() Request {
	out := r
	out.Filters = maps.Clone(r.Filters)
	out.Sort = slices.Clone(r.Sort)
	return out
}

func normalizeFilterValue(field string, v any) (any, error) {
	switch val := v.(type) {
	case nil, string, bool, int64, float64, time.Time:
		return val, nil
	case int:
		return int64(val), nil
	case int32:
		return int64(val), nil
	case float32:
		return float64(val), nil
	case Range:
		if val.IsEmpty() {
			return nil, domain.NewValidationError(field, "range filter needs at least one bound")
		}
		bounds := []*any{&val.Gt, &val.Gte, &val.Lt, &val.Lte}
		for _, b := range bounds {
			if *b == nil {
				continue
			}
			n, err := normalizeScalar(field, *b)
			if err != nil {
				return nil, err
			}
			*b = n
		}
		return val, nil
	case []string:
		return toAnySlice(field, val)
	case []int64:
		return toAnySlice(field, val)
	case []int:
		return toAnySlice(field, val)
	case []float64:
		return toAnySlice(field, val)
	case []any:
		return toAnySlice(field, val)
	default:
		return nil, domain.NewValidationError(field, "unsupported filter value type %T", v)
	}
}

func normalizeScalar(field string, v any) (any, error) {
	switch v.(type) {
	case nil, Range, []any, []string, []int64, []int, []float64:
		return nil, domain.NewValidationError(field, "expected a scalar value, got %T", v)
	}
	return normalizeFilterValue(field, v)
}

func toAnySlice[T any](field string, in []T) (any, error) {
	if len(in) == 0 {
		return nil, domain.NewValidationError(field, "filter list must not be empty")
	}
	out := make([]any, len(in))
	for i, item := range in {
		n, err := normalizeScalar(field, item)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(val)
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	case Range:
		return fmt.Sprintf("range(gt=%s,gte=%s,lt=%s,lte=%s)",
			formatValue(val.Gt), formatValue(val.Gte), formatValue(val.Lt), formatValue(val.Lte))
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = formatValue(item)
		}
		return "[" + strings.Join(parts, ",") + "]"
	default:
		return fmt.Sprintf("%T:%v", val, val)
	}
}
