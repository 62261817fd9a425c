package postgres

import (
	"strconv"
	"strings"

	"github.com/lib/pq"

	"github.com/custodia-labs/sercha-search/internal/adapters/driven/sqlbuild"
	"github.com/custodia-labs/sercha-search/internal/core/domain"
	"github.com/custodia-labs/sercha-search/internal/core/query"
)

// DialectName identifies PostgreSQL in compiled queries and errors
const DialectName = "postgres"

// Dialect renders tsvector/tsquery full-text predicates and pg_trgm fuzzy
// predicates. Documents are vectorized on the fly with
// to_tsvector(language, coalesce(column, '')), which an expression GIN
// index of the same shape serves.
type Dialect struct{}

var _ sqlbuild.Dialect = Dialect{}

func (Dialect) Name() string { return DialectName }

func (Dialect) Placeholder(n int) string { return "$" + strconv.Itoa(n) }

func (Dialect) QuoteIdent(name string) string { return pq.QuoteIdentifier(name) }

func (Dialect) ValidateIndex(*domain.IndexConfig) error { return nil }

func (Dialect) Float(expr string) string { return "(" + expr + ")::float8" }

func (d Dialect) AgeDays(column string) string {
	return d.Float("greatest(coalesce(extract(epoch from (now() - " + column + ")) / 86400.0, 0), 0)")
}

// Leaf compiles one full-text leaf. Match and prefix text is reduced to its
// terms before binding, so tsquery operators in user text are inert.
func (d Dialect) Leaf(b *sqlbuild.Binder, cfg *domain.IndexConfig, leaf sqlbuild.Leaf) (string, string, error) {
	lang := pq.QuoteLiteral(cfg.Language) + "::regconfig"
	col := "coalesce(" + sqlbuild.Column(d, leaf.Field) + ", '')"
	vector := "to_tsvector(" + lang + ", " + col + ")"

	switch leaf.Kind {
	case query.KindMatch:
		terms, err := tsTerms(leaf)
		if err != nil {
			return "", "", err
		}
		tsq := "to_tsquery(" + lang + ", " + b.Bind(terms) + ")"
		return vector + " @@ " + tsq, "ts_rank(" + vector + ", " + tsq + ")", nil

	case query.KindPhrase:
		tsq := "phraseto_tsquery(" + lang + ", " + b.Bind(leaf.Text) + ")"
		return vector + " @@ " + tsq, "ts_rank(" + vector + ", " + tsq + ")", nil

	case query.KindPrefix:
		terms, err := tsTerms(leaf)
		if err != nil {
			return "", "", err
		}
		tsq := "to_tsquery(" + lang + ", " + b.Bind(terms) + "::text || ':*')"
		return vector + " @@ " + tsq, "ts_rank(" + vector + ", " + tsq + ")", nil

	case query.KindFuzzy:
		p := b.Bind(leaf.Text)
		sim := "word_similarity(" + p + ", " + col + ")"
		// The floor is a literal, not the <% operator, so results never
		// depend on the server's pg_trgm.word_similarity_threshold
		th := FuzzyThreshold(cfg.FuzzyThreshold, leaf.Distance)
		pred := sim + " >= " + strconv.FormatFloat(th, 'f', -1, 64)
		return pred, sim, nil
	}
	return "", "", domain.NewValidationError(leaf.Field, "unsupported query kind %q", leaf.Kind)
}

// InList binds homogeneous lists as one array parameter and falls back to
// one parameter per item for mixed lists.
func (Dialect) InList(b *sqlbuild.Binder, column string, values []any) string {
	if arr, ok := typedArray(values); ok {
		return column + " = ANY(" + b.Bind(arr) + ")"
	}
	ph := make([]string, len(values))
	for i, v := range values {
		ph[i] = b.Bind(v)
	}
	return column + " IN (" + strings.Join(ph, ", ") + ")"
}

// FuzzyThreshold maps an edit distance onto a trigram similarity floor.
// Distance 2 uses the configured threshold and each step closer moves the
// floor halfway to an exact match.
func FuzzyThreshold(base float64, distance int) float64 {
	distance = min(max(distance, 0), query.MaxFuzzyDistance)
	steps := float64(query.MaxFuzzyDistance - distance)
	th := base + steps*(1-base)/float64(query.MaxFuzzyDistance)
	// Keep the rendered literal short and stable
	return float64(int(th*1000+0.5)) / 1000
}

func tsTerms(leaf sqlbuild.Leaf) (string, error) {
	terms := query.Terms(leaf.Text)
	if len(terms) == 0 {
		return "", domain.NewValidationError(leaf.Field, "%q has no searchable terms", leaf.Text)
	}
	return strings.Join(terms, " & "), nil
}

func typedArray(values []any) (any, bool) {
	var (
		strs   []string
		ints   []int64
		floats []float64
		bools  []bool
	)
	for _, v := range values {
		switch val := v.(type) {
		case string:
			strs = append(strs, val)
		case int64:
			ints = append(ints, val)
			floats = append(floats, float64(val))
		case int:
			ints = append(ints, int64(val))
			floats = append(floats, float64(val))
		case float64:
			floats = append(floats, val)
		case bool:
			bools = append(bools, val)
		}
	}
	n := len(values)
	switch {
	case len(strs) == n:
		return pq.StringArray(strs), true
	case len(ints) == n:
		return pq.Int64Array(ints), true
	case len(floats) == n:
		return pq.Float64Array(floats), true
	case len(bools) == n:
		return pq.BoolArray(bools), true
	}
	return nil, false
}
