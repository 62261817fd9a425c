package sqlbuild

import (
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-search/internal/core/domain"
	"github.com/custodia-labs/sercha-search/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-search/internal/core/query"
)

// Ensure Compiler implements QueryCompiler
var _ driven.QueryCompiler = (*Compiler)(nil)

// Compiler compiles search requests for one SQL dialect. It holds no
// per-request state and is safe for concurrent use.
type Compiler struct {
	dialect Dialect
}

// NewCompiler creates a Compiler for d
func NewCompiler(d Dialect) *Compiler {
	return &Compiler{dialect: d}
}

// Dialect returns the name of the target backend
func (c *Compiler) Dialect() string {
	return c.dialect.Name()
}

// Compile builds the paginated statement for req.
//
// The select list is the id, the returnable fields, the tier-weighted
// composite rank, one rank column per ranked field, the document age and a
// window count of all matches. Must clauses are conjunctive and must_not
// clauses negated. Should clauses are disjunctive: on their own at least one
// must match, next to must or must_not clauses they only add to the rank.
func (c *Compiler) Compile(req query.Request, cfg *domain.IndexConfig) (*domain.CompiledQuery, error) {
	if err := c.validateIndex(cfg); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	d := c.dialect
	b := NewBinder(d)
	st := &compileState{dialect: d, cfg: cfg, binder: b, ranks: make(map[string][]string)}

	match, err := st.compile(req.Query)
	if err != nil {
		return nil, err
	}
	conds := []string{match}

	filterConds, err := c.filters(b, cfg, req.Filters)
	if err != nil {
		return nil, err
	}
	conds = append(conds, filterConds...)
	where := strings.Join(conds, " AND ")

	orderBy, err := c.orderBy(cfg, req.Sort)
	if err != nil {
		return nil, err
	}

	limit := cfg.ClampLimit(req.Limit)
	base := "SELECT " + c.selectList(cfg, st.ranks) +
		" FROM " + QuoteQualified(d, cfg.Table) + " AS " + TableAlias +
		" WHERE " + where

	return &domain.CompiledQuery{
		Index:           cfg.Name,
		Dialect:         d.Name(),
		Expression:      base + " ORDER BY " + orderBy + " LIMIT " + strconv.Itoa(limit) + " OFFSET " + strconv.Itoa(req.Offset),
		CountExpression: "SELECT count(*) FROM (" + base + ") c",
		WhereClause:     where,
		OrderBy:         orderBy,
		Params:          b.Params(),
		Limit:           limit,
		Offset:          req.Offset,
	}, nil
}

// CompileSuggest builds a statement returning the distinct values of the
// suggest fields that contain a word starting with prefix, best first.
func (c *Compiler) CompileSuggest(prefix string, limit int, cfg *domain.IndexConfig) (*domain.CompiledQuery, error) {
	if err := c.validateIndex(cfg); err != nil {
		return nil, err
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, domain.NewValidationError("q", "prefix must not be empty")
	}
	if limit < 0 {
		return nil, domain.NewValidationError("limit", "must not be negative, got %d", limit)
	}
	if limit == 0 {
		limit = domain.DefaultSuggestLimit
	}
	limit = min(limit, cfg.MaxResults)

	d := c.dialect
	b := NewBinder(d)
	id, rank := d.QuoteIdent(ColID), d.QuoteIdent(ColRank)
	from := QuoteQualified(d, cfg.Table) + " AS " + TableAlias

	fields := cfg.EffectiveSuggestFields()
	arms := make([]string, 0, len(fields))
	for _, f := range fields {
		pred, rankExpr, err := d.Leaf(b, cfg, Leaf{Kind: query.KindPrefix, Field: f, Text: prefix})
		if err != nil {
			return nil, err
		}
		col := Column(d, f)
		arms = append(arms, "SELECT "+col+" AS "+id+", "+d.Float(rankExpr)+" AS "+rank+
			" FROM "+from+" WHERE "+col+" IS NOT NULL AND ("+pred+")")
	}

	orderBy := rank + " DESC, " + id + " ASC"
	return &domain.CompiledQuery{
		Index:   cfg.Name,
		Dialect: d.Name(),
		Expression: "SELECT s." + id + " AS " + id + ", max(s." + rank + ") AS " + rank +
			" FROM (" + strings.Join(arms, " UNION ALL ") + ") s" +
			" GROUP BY s." + id +
			" ORDER BY " + orderBy + " LIMIT " + strconv.Itoa(limit),
		OrderBy: orderBy,
		Params:  b.Params(),
		Limit:   limit,
	}, nil
}

func (c *Compiler) validateIndex(cfg *domain.IndexConfig) error {
	if cfg == nil {
		return domain.NewValidationError("index", "index config is required")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	return c.dialect.ValidateIndex(cfg)
}

func (c *Compiler) selectList(cfg *domain.IndexConfig, ranks map[string][]string) string {
	d := c.dialect
	cols := []string{Column(d, cfg.IDColumn) + " AS " + d.QuoteIdent(ColID)}
	for _, f := range cfg.ReturnFields() {
		cols = append(cols, Column(d, f)+" AS "+d.QuoteIdent(f))
	}

	fields := slices.Sorted(maps.Keys(ranks))
	fieldRanks := make([]string, len(fields))
	weighted := make([]string, len(fields))
	for i, f := range fields {
		fieldRanks[i] = d.Float(strings.Join(ranks[f], " + "))
		weight := strconv.FormatFloat(cfg.TierOf(f).Weight(), 'f', -1, 64)
		weighted[i] = weight + " * " + fieldRanks[i]
	}

	composite := d.Float("0")
	if len(weighted) > 0 {
		composite = d.Float(strings.Join(weighted, " + "))
	}
	cols = append(cols, composite+" AS "+d.QuoteIdent(ColRank))
	for i, f := range fields {
		cols = append(cols, fieldRanks[i]+" AS "+d.QuoteIdent(ColFieldRankPrefix+f))
	}

	age := d.Float("0")
	if cfg.RecencyField != "" {
		age = d.AgeDays(Column(d, cfg.RecencyField))
	}
	cols = append(cols,
		boosted(d, cfg, composite, age)+" AS "+d.QuoteIdent(ColScore),
		age+" AS "+d.QuoteIdent(ColAgeDays),
		"count(*) OVER () AS "+d.QuoteIdent(ColTotal),
	)
	return strings.Join(cols, ", ")
}

// boosted applies base * (1 + e^(-decay*age)), the recency boost the result
// assembler scores with, so SQL pages follow the final score order.
func boosted(d Dialect, cfg *domain.IndexConfig, rank, age string) string {
	if cfg.RecencyField == "" || cfg.DecayFactor <= 0 {
		return rank
	}
	decay := strconv.FormatFloat(cfg.DecayFactor, 'f', -1, 64)
	return d.Float(rank + " * (1 + exp(-" + decay + " * " + age + "))")
}

func (c *Compiler) filters(b *Binder, cfg *domain.IndexConfig, filters map[string]any) ([]string, error) {
	d := c.dialect
	conds := make([]string, 0, len(filters))
	for _, field := range slices.Sorted(maps.Keys(filters)) {
		if !cfg.HasFilterField(field) {
			return nil, domain.NewValidationError(field, "not a filter field of index %q", cfg.Name)
		}
		col := Column(d, field)

		switch v := filters[field].(type) {
		case nil:
			conds = append(conds, col+" IS NULL")
		case query.Range:
			if v.IsEmpty() {
				return nil, domain.NewValidationError(field, "range filter needs at least one bound")
			}
			bounds := []struct {
				op    string
				value any
			}{{">", v.Gt}, {">=", v.Gte}, {"<", v.Lt}, {"<=", v.Lte}}
			for _, bound := range bounds {
				if bound.value == nil {
					continue
				}
				if !isScalar(bound.value) {
					return nil, domain.NewValidationError(field, "range bound must be a scalar, got %T", bound.value)
				}
				conds = append(conds, col+" "+bound.op+" "+b.Bind(bound.value))
			}
		case []any:
			if len(v) == 0 {
				return nil, domain.NewValidationError(field, "filter list must not be empty")
			}
			for _, item := range v {
				if !isScalar(item) {
					return nil, domain.NewValidationError(field, "filter list items must be scalars, got %T", item)
				}
			}
			conds = append(conds, d.InList(b, col, v))
		default:
			if !isScalar(v) {
				return nil, domain.NewValidationError(field, "unsupported filter value type %T", v)
			}
			conds = append(conds, col+" = "+b.Bind(v))
		}
	}
	return conds, nil
}

func isScalar(v any) bool {
	switch v.(type) {
	case string, bool, int, int32, int64, float32, float64, time.Time:
		return true
	}
	return false
}

func (c *Compiler) orderBy(cfg *domain.IndexConfig, sorts []query.Sort) (string, error) {
	d := c.dialect
	if len(sorts) == 0 {
		sorts = []query.Sort{{Field: domain.ScoreField, Direction: domain.SortDesc}}
	}

	terms := make([]string, 0, len(sorts)+1)
	byID := false
	for _, s := range sorts {
		dir := s.Direction
		var col string
		switch {
		case s.Field == domain.ScoreField:
			col = ColScore
			if dir == "" {
				dir = domain.SortDesc
			}
		case s.Field == cfg.IDColumn:
			col = ColID
			byID = true
		case cfg.IsReturnField(s.Field):
			col = s.Field
		default:
			return "", domain.NewValidationError(s.Field, "cannot sort on a field index %q does not return", cfg.Name)
		}
		if dir == "" {
			dir = domain.SortAsc
		}
		if !dir.Valid() {
			return "", domain.NewValidationError(s.Field, "sort direction must be asc or desc, got %q", dir)
		}
		terms = append(terms, d.QuoteIdent(col)+" "+strings.ToUpper(string(dir)))
	}
	// Stable pagination needs a total order
	if !byID {
		terms = append(terms, d.QuoteIdent(ColID)+" ASC")
	}
	return strings.Join(terms, ", "), nil
}

// compileState walks one query tree. Ranks collects, per field, the rank
// expressions of the leaves outside any must_not clause.
type compileState struct {
	dialect Dialect
	cfg     *domain.IndexConfig
	binder  *Binder
	negated bool
	ranks   map[string][]string
	out     string
}

// Ensure compileState handles every node kind
var _ query.Visitor = (*compileState)(nil)

func (s *compileState) compile(n query.Node) (string, error) {
	if n == nil {
		return "", domain.NewValidationError("query", "query is required")
	}
	if err := n.Accept(s); err != nil {
		return "", err
	}
	return s.out, nil
}

func (s *compileState) leaf(l Leaf) error {
	if !s.cfg.HasField(l.Field) {
		return domain.NewValidationError(l.Field, "not a searchable field of index %q", s.cfg.Name)
	}
	if strings.TrimSpace(l.Text) == "" {
		return domain.NewValidationError(l.Field, "search text must not be empty")
	}
	pred, rank, err := s.dialect.Leaf(s.binder, s.cfg, l)
	if err != nil {
		return err
	}
	if !s.negated && rank != "" {
		s.ranks[l.Field] = append(s.ranks[l.Field], rank)
	}
	s.out = "(" + pred + ")"
	return nil
}

func (s *compileState) VisitMatch(n query.Match) error {
	return s.leaf(Leaf{Kind: query.KindMatch, Field: n.Field, Text: n.Text})
}

func (s *compileState) VisitPhrase(n query.Phrase) error {
	return s.leaf(Leaf{Kind: query.KindPhrase, Field: n.Field, Text: n.Text})
}

func (s *compileState) VisitPrefix(n query.Prefix) error {
	return s.leaf(Leaf{Kind: query.KindPrefix, Field: n.Field, Text: n.Text})
}

func (s *compileState) VisitFuzzy(n query.Fuzzy) error {
	if n.Distance != query.AutoDistance && (n.Distance < 0 || n.Distance > query.MaxFuzzyDistance) {
		return domain.NewValidationError(n.Field, "fuzzy distance %d out of range [0,%d] and not auto", n.Distance, query.MaxFuzzyDistance)
	}
	return s.leaf(Leaf{Kind: query.KindFuzzy, Field: n.Field, Text: n.Text, Distance: n.EffectiveDistance()})
}

func (s *compileState) VisitBool(n query.Bool) error {
	if len(n.Must)+len(n.Should)+len(n.MustNot) == 0 {
		return domain.NewValidationError("bool", "at least one clause is required")
	}

	conj := make([]string, 0, len(n.Must)+len(n.MustNot))
	for _, child := range n.Must {
		p, err := s.compile(child)
		if err != nil {
			return err
		}
		conj = append(conj, p)
	}
	for _, child := range n.MustNot {
		prev := s.negated
		s.negated = true
		p, err := s.compile(child)
		s.negated = prev
		if err != nil {
			return err
		}
		conj = append(conj, "NOT "+p)
	}

	should := make([]string, 0, len(n.Should))
	for _, child := range n.Should {
		p, err := s.compile(child)
		if err != nil {
			return err
		}
		should = append(should, p)
	}

	switch {
	case len(conj) == 0:
		s.out = "(" + strings.Join(should, " OR ") + ")"
	case len(should) == 0:
		s.out = "(" + strings.Join(conj, " AND ") + ")"
	default:
		// Should clauses only rank here. The tautology keeps their
		// parameters referenced by the statement.
		s.out = "(" + strings.Join(conj, " AND ") + " AND (" + strings.Join(should, " OR ") + " OR 1 = 1))"
	}
	return nil
}
