package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"regexp"
	"slices"
	"time"
)

// Tier is a coarse relative-importance bucket for a searchable field
type Tier string

const (
	TierA Tier = "A"
	TierB Tier = "B"
	TierC Tier = "C"
	TierD Tier = "D"
)

// DefaultTier applies to fields without a configured weight
const DefaultTier = TierD

// Weight returns the fixed multiplier for the tier. Unknown tiers weigh as D.
func (t Tier) Weight() float64 {
	switch t {
	case TierA:
		return 1.0
	case TierB:
		return 0.4
	case TierC:
		return 0.2
	default:
		return 0.1
	}
}

// Valid reports whether t is one of A, B, C, D
func (t Tier) Valid() bool {
	switch t {
	case TierA, TierB, TierC, TierD:
		return true
	}
	return false
}

// Defaults for IndexConfig values left unset
const (
	DefaultLanguage       = "english"
	DefaultIDColumn       = "id"
	DefaultMaxResults     = 100
	DefaultLimit          = 20
	DefaultFuzzyThreshold = 0.3
	DefaultSnippetLength  = 200
	DefaultSuggestLimit   = 10
)

// IndexConfig describes one searchable collection. It is loaded at startup
// or on an explicit reload and is read-only afterwards.
type IndexConfig struct {
	Name string `json:"name"`

	// Table is the relation holding the documents; defaults to Name
	Table    string `json:"table"`
	IDColumn string `json:"id_column"`

	// Language is the text-search configuration (e.g. "english")
	Language string `json:"language"`

	// Fields are the searchable text columns
	Fields []string `json:"fields"`

	// Weights maps a field to its tier; absent fields weigh as DefaultTier
	Weights map[string]Tier `json:"weights,omitempty"`

	// FilterFields are the columns callers may filter and sort on
	FilterFields []string `json:"filter_fields,omitempty"`

	// SuggestFields feed autocomplete; defaults to tier A fields
	SuggestFields []string `json:"suggest_fields,omitempty"`

	// RecencyField is a timestamp column used for recency boosting.
	// Empty disables the boost.
	RecencyField string  `json:"recency_field,omitempty"`
	DecayFactor  float64 `json:"decay_factor"`

	FuzzyThreshold     float64 `json:"fuzzy_threshold"`
	MaxResults         int     `json:"max_results"`
	DefaultLimit       int     `json:"default_limit"`
	SnippetLength      int     `json:"snippet_length"`
	EnableHighlighting bool    `json:"enable_highlighting"`

	QueryTimeout time.Duration `json:"query_timeout"`
}

// HasField reports whether field is searchable
func (c *IndexConfig) HasField(field string) bool {
	return slices.Contains(c.Fields, field)
}

// HasFilterField reports whether field may be filtered on
func (c *IndexConfig) HasFilterField(field string) bool {
	return slices.Contains(c.FilterFields, field)
}

// TierOf returns the configured tier of field
func (c *IndexConfig) TierOf(field string) Tier {
	if t, ok := c.Weights[field]; ok && t.Valid() {
		return t
	}
	return DefaultTier
}

// ReturnFields lists the columns returned with each document: searchable
// fields first, then filter fields and the recency field, without duplicates.
func (c *IndexConfig) ReturnFields() []string {
	out := make([]string, 0, len(c.Fields)+len(c.FilterFields)+1)
	seen := make(map[string]bool, cap(out))
	add := func(f string) {
		if f == "" || seen[f] || f == c.IDColumn {
			return
		}
		seen[f] = true
		out = append(out, f)
	}
	for _, f := range c.Fields {
		add(f)
	}
	for _, f := range c.FilterFields {
		add(f)
	}
	add(c.RecencyField)
	return out
}

// IsReturnField reports whether field is one of ReturnFields
func (c *IndexConfig) IsReturnField(field string) bool {
	return slices.Contains(c.ReturnFields(), field)
}

// EffectiveSuggestFields returns SuggestFields, falling back to the tier A
// fields and finally to every searchable field.
func (c *IndexConfig) EffectiveSuggestFields() []string {
	if len(c.SuggestFields) > 0 {
		return c.SuggestFields
	}
	var out []string
	for _, f := range c.Fields {
		if c.TierOf(f) == TierA {
			out = append(out, f)
		}
	}
	if len(out) == 0 {
		return c.Fields
	}
	return out
}

// ClampLimit applies DefaultLimit to a zero limit and caps it at MaxResults
func (c *IndexConfig) ClampLimit(limit int) int {
	if limit == 0 {
		limit = c.DefaultLimit
	}
	if c.MaxResults > 0 && limit > c.MaxResults {
		limit = c.MaxResults
	}
	return limit
}

// Fingerprint identifies this exact configuration. Two configs with the same
// fingerprint compile every request identically.
func (c *IndexConfig) Fingerprint() string {
	data, _ := json.Marshal(c)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}

// Clone returns a deep copy of the config
func (c *IndexConfig) Clone() *IndexConfig {
	cp := *c
	cp.Fields = slices.Clone(c.Fields)
	cp.FilterFields = slices.Clone(c.FilterFields)
	cp.SuggestFields = slices.Clone(c.SuggestFields)
	if c.Weights != nil {
		cp.Weights = make(map[string]Tier, len(c.Weights))
		for k, v := range c.Weights {
			cp.Weights[k] = v
		}
	}
	return &cp
}

// IndexInfo is the public description of an index
type IndexInfo struct {
	Name          string   `json:"name"`
	Language      string   `json:"language"`
	Fields        []string `json:"fields"`
	FilterFields  []string `json:"filter_fields"`
	SuggestFields []string `json:"suggest_fields"`
	MaxResults    int      `json:"max_results"`
}

// Info describes the index without exposing storage details
func (c *IndexConfig) Info() IndexInfo {
	return IndexInfo{
		Name:          c.Name,
		Language:      c.Language,
		Fields:        slices.Clone(c.Fields),
		FilterFields:  slices.Clone(c.FilterFields),
		SuggestFields: slices.Clone(c.EffectiveSuggestFields()),
		MaxResults:    c.MaxResults,
	}
}

var (
	identRe    = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)
	tableRe    = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)
	indexRe    = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)
	languageRe = regexp.MustCompile(`^[a-z][a-z_]*$`)
)

// ValidIdentifier reports whether name is usable as a column name. Names
// starting with an underscore are reserved for computed result columns.
func ValidIdentifier(name string) bool {
	return identRe.MatchString(name)
}

// ValidTableName reports whether name is a table, optionally schema-qualified
func ValidTableName(name string) bool {
	return tableRe.MatchString(name)
}

// Validate checks the config is complete and that every identifier is safe
// to quote into a statement.
func (c *IndexConfig) Validate() error {
	field := func(name string) string {
		return "indexes." + c.Name + "." + name
	}

	if !indexRe.MatchString(c.Name) {
		return NewValidationError("indexes", "invalid index name %q", c.Name)
	}
	if !ValidTableName(c.Table) {
		return NewValidationError(field("table"), "invalid table name %q", c.Table)
	}
	if !ValidIdentifier(c.IDColumn) {
		return NewValidationError(field("id_column"), "invalid column name %q", c.IDColumn)
	}
	if !languageRe.MatchString(c.Language) {
		return NewValidationError(field("language"), "invalid text search language %q", c.Language)
	}
	if len(c.Fields) == 0 {
		return NewValidationError(field("fields"), "at least one searchable field is required")
	}
	if err := validateColumns(field("fields"), c.Fields, nil); err != nil {
		return err
	}
	for f, tier := range c.Weights {
		if !c.HasField(f) {
			return NewValidationError(field("weights"), "%q is not a searchable field", f)
		}
		if !tier.Valid() {
			return NewValidationError(field("weights"), "invalid tier %q for %q", tier, f)
		}
	}
	if err := validateColumns(field("filter_fields"), c.FilterFields, nil); err != nil {
		return err
	}
	if err := validateColumns(field("suggest_fields"), c.SuggestFields, c.Fields); err != nil {
		return err
	}
	if c.RecencyField != "" && !ValidIdentifier(c.RecencyField) {
		return NewValidationError(field("recency_field"), "invalid column name %q", c.RecencyField)
	}
	if c.DecayFactor < 0 {
		return NewValidationError(field("decay_factor"), "must not be negative, got %v", c.DecayFactor)
	}
	if c.FuzzyThreshold < 0 || c.FuzzyThreshold > 1 {
		return NewValidationError(field("fuzzy_threshold"), "must be within [0,1], got %v", c.FuzzyThreshold)
	}
	if c.MaxResults <= 0 {
		return NewValidationError(field("max_results"), "must be positive, got %d", c.MaxResults)
	}
	if c.DefaultLimit <= 0 || c.DefaultLimit > c.MaxResults {
		return NewValidationError(field("default_limit"), "must be within [1,%d], got %d", c.MaxResults, c.DefaultLimit)
	}
	if c.SnippetLength < 0 {
		return NewValidationError(field("snippet_length"), "must not be negative, got %d", c.SnippetLength)
	}
	return nil
}

func validateColumns(field string, columns, allowed []string) error {
	seen := make(map[string]bool, len(columns))
	for _, col := range columns {
		if !ValidIdentifier(col) {
			return NewValidationError(field, "invalid column name %q", col)
		}
		if seen[col] {
			return NewValidationError(field, "duplicate column %q", col)
		}
		seen[col] = true
		if allowed != nil && !slices.Contains(allowed, col) {
			return NewValidationError(field, "%q is not a searchable field", col)
		}
	}
	return nil
}
