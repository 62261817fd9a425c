package sqlite

import (
	"strconv"
	"strings"

	"github.com/custodia-labs/sercha-search/internal/adapters/driven/sqlbuild"
	"github.com/custodia-labs/sercha-search/internal/core/domain"
	"github.com/custodia-labs/sercha-search/internal/core/query"
)

// DialectName identifies SQLite in compiled queries and errors
const DialectName = "sqlite"

// FTSSuffix names the FTS5 table that indexes a searched table
const FTSSuffix = "_fts"

// Dialect renders FTS5 predicates. Each leaf is a rowid lookup in the
// table's FTS5 index with a bound, column-filtered MATCH expression, and
// ranks by the negated bm25 of the same expression.
type Dialect struct{}

var _ sqlbuild.Dialect = Dialect{}

func (Dialect) Name() string { return DialectName }

func (Dialect) Placeholder(n int) string { return "?" + strconv.Itoa(n) }

func (Dialect) QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (Dialect) ValidateIndex(*domain.IndexConfig) error { return nil }

func (Dialect) Float(expr string) string { return "CAST((" + expr + ") AS REAL)" }

func (d Dialect) AgeDays(column string) string {
	return d.Float("max(coalesce(julianday('now') - julianday(" + column + "), 0), 0)")
}

func (d Dialect) Leaf(b *sqlbuild.Binder, cfg *domain.IndexConfig, leaf sqlbuild.Leaf) (string, string, error) {
	expr, err := MatchExpression(leaf)
	if err != nil {
		return "", "", err
	}

	fts := sqlbuild.QuoteQualified(d, cfg.Table+FTSSuffix)
	name := fts
	if i := strings.LastIndex(cfg.Table, "."); i >= 0 {
		name = d.QuoteIdent(cfg.Table[i+1:] + FTSSuffix)
	}
	p := b.Bind(expr)
	match := name + " MATCH " + p

	pred := sqlbuild.TableAlias + ".rowid IN (SELECT rowid FROM " + fts + " WHERE " + match + ")"
	rank := "coalesce((SELECT -bm25(" + name + ") FROM " + fts + " WHERE " + match +
		" AND rowid = " + sqlbuild.TableAlias + ".rowid), 0)"
	return pred, rank, nil
}

func (Dialect) InList(b *sqlbuild.Binder, column string, values []any) string {
	ph := make([]string, len(values))
	for i, v := range values {
		ph[i] = b.Bind(v)
	}
	return column + " IN (" + strings.Join(ph, ", ") + ")"
}

// MatchExpression renders leaf as a column-filtered FTS5 query. Every term
// is a quoted string, so FTS5 operators in user text are inert.
func MatchExpression(leaf sqlbuild.Leaf) (string, error) {
	if leaf.Kind == query.KindFuzzy {
		return "", domain.NewValidationError(leaf.Field, "fuzzy queries are not supported by the %s backend", DialectName)
	}

	terms := query.Terms(leaf.Text)
	if len(terms) == 0 {
		return "", domain.NewValidationError(leaf.Field, "%q has no searchable terms", leaf.Text)
	}

	var body string
	switch leaf.Kind {
	case query.KindMatch:
		quoted := make([]string, len(terms))
		for i, t := range terms {
			quoted[i] = quoteString(t)
		}
		body = "(" + strings.Join(quoted, " AND ") + ")"
	case query.KindPhrase:
		body = quoteString(strings.Join(terms, " "))
	case query.KindPrefix:
		quoted := make([]string, len(terms))
		for i, t := range terms {
			quoted[i] = quoteString(t)
		}
		quoted[len(quoted)-1] += "*"
		body = "(" + strings.Join(quoted, " AND ") + ")"
	default:
		return "", domain.NewValidationError(leaf.Field, "unsupported query kind %q", leaf.Kind)
	}
	return "{" + leaf.Field + "} : " + body, nil
}

func quoteString(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
