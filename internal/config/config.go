// Package config loads the search configuration file and keeps the index
// registry in sync with it.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/sercha-search/internal/core/domain"
)

// Defaults applied when the file leaves a value unset
const (
	DefaultCacheTTLSeconds = 300
	DefaultCacheSize       = 1000
	DefaultQueryTimeoutMs  = 5000
)

// Config is the search configuration file.
type Config struct {
	// CacheTTLSeconds is the result cache lifetime; 0 disables the cache
	CacheTTLSeconds *int `yaml:"cache_ttl_seconds"`
	CacheSize       int  `yaml:"cache_size"`

	// EnableHighlighting is the default for indexes that do not set it
	EnableHighlighting bool `yaml:"enable_highlighting"`

	// QueryTimeoutMs bounds requests without a caller deadline
	QueryTimeoutMs int `yaml:"query_timeout_ms"`

	Defaults IndexDefaults          `yaml:"defaults"`
	Indexes  map[string]IndexConfig `yaml:"indexes"`
}

// IndexDefaults holds values shared by every index unless overridden.
type IndexDefaults struct {
	Language       string   `yaml:"language"`
	MaxResults     int      `yaml:"max_results"`
	DefaultLimit   int      `yaml:"default_limit"`
	FuzzyThreshold *float64 `yaml:"fuzzy_threshold"`
	SnippetLength  int      `yaml:"snippet_length"`
}

// IndexConfig holds the settings of one index.
type IndexConfig struct {
	Table         string            `yaml:"table"`     // default: the index name
	IDColumn      string            `yaml:"id_column"` // default: id
	Fields        []string          `yaml:"fields"`
	Weights       map[string]string `yaml:"weights"` // field: A|B|C|D
	FilterFields  []string          `yaml:"filter_fields"`
	SuggestFields []string          `yaml:"suggest_fields"`
	RecencyField  string            `yaml:"recency_field"`
	DecayFactor   float64           `yaml:"decay_factor"`

	// Overrides of the file-wide defaults
	Language           string   `yaml:"language"`
	MaxResults         int      `yaml:"max_results"`
	DefaultLimit       int      `yaml:"default_limit"`
	FuzzyThreshold     *float64 `yaml:"fuzzy_threshold"`
	SnippetLength      int      `yaml:"snippet_length"`
	EnableHighlighting *bool    `yaml:"enable_highlighting"`
	QueryTimeoutMs     int      `yaml:"query_timeout_ms"`
}

// Load reads, expands, parses, defaults and validates the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse parses a configuration document. Environment variables of the form
// ${VAR} or ${VAR:-default} are substituted first. Unknown keys are errors.
func Parse(data []byte) (*Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.CacheTTLSeconds == nil {
		ttl := DefaultCacheTTLSeconds
		c.CacheTTLSeconds = &ttl
	}
	if c.CacheSize <= 0 {
		c.CacheSize = DefaultCacheSize
	}
	if c.QueryTimeoutMs <= 0 {
		c.QueryTimeoutMs = DefaultQueryTimeoutMs
	}

	d := &c.Defaults
	if d.Language == "" {
		d.Language = domain.DefaultLanguage
	}
	if d.MaxResults <= 0 {
		d.MaxResults = domain.DefaultMaxResults
	}
	if d.DefaultLimit <= 0 {
		d.DefaultLimit = min(domain.DefaultLimit, d.MaxResults)
	}
	if d.FuzzyThreshold == nil {
		th := domain.DefaultFuzzyThreshold
		d.FuzzyThreshold = &th
	}
	if d.SnippetLength <= 0 {
		d.SnippetLength = domain.DefaultSnippetLength
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.CacheTTLSeconds != nil && *c.CacheTTLSeconds < 0 {
		return domain.NewValidationError("cache_ttl_seconds", "must not be negative, got %d", *c.CacheTTLSeconds)
	}
	if len(c.Indexes) == 0 {
		return domain.NewValidationError("indexes", "at least one index is required")
	}
	_, err := c.IndexConfigs()
	return err
}

// CacheTTL returns the result cache lifetime; zero disables caching
func (c *Config) CacheTTL() time.Duration {
	if c.CacheTTLSeconds == nil {
		return DefaultCacheTTLSeconds * time.Second
	}
	return time.Duration(*c.CacheTTLSeconds) * time.Second
}

// QueryTimeout returns the default query timeout
func (c *Config) QueryTimeout() time.Duration {
	return time.Duration(c.QueryTimeoutMs) * time.Millisecond
}

// IndexConfigs resolves every index against the defaults and validates it.
// The result is sorted by index name.
func (c *Config) IndexConfigs() ([]*domain.IndexConfig, error) {
	names := slices.Sorted(maps.Keys(c.Indexes))
	out := make([]*domain.IndexConfig, 0, len(names))
	for _, name := range names {
		cfg, err := c.resolve(name, c.Indexes[name])
		if err != nil {
			return nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		out = append(out, cfg)
	}
	return out, nil
}

func (c *Config) resolve(name string, ic IndexConfig) (*domain.IndexConfig, error) {
	d := c.Defaults
	cfg := &domain.IndexConfig{
		Name:               name,
		Table:              firstNonEmpty(ic.Table, name),
		IDColumn:           firstNonEmpty(ic.IDColumn, domain.DefaultIDColumn),
		Language:           firstNonEmpty(ic.Language, d.Language),
		Fields:             slices.Clone(ic.Fields),
		FilterFields:       slices.Clone(ic.FilterFields),
		SuggestFields:      slices.Clone(ic.SuggestFields),
		RecencyField:       ic.RecencyField,
		DecayFactor:        ic.DecayFactor,
		MaxResults:         firstPositive(ic.MaxResults, d.MaxResults),
		SnippetLength:      firstPositive(ic.SnippetLength, d.SnippetLength),
		EnableHighlighting: c.EnableHighlighting,
	}
	cfg.DefaultLimit = firstPositive(ic.DefaultLimit, min(d.DefaultLimit, cfg.MaxResults))

	if d.FuzzyThreshold != nil {
		cfg.FuzzyThreshold = *d.FuzzyThreshold
	}
	if ic.FuzzyThreshold != nil {
		cfg.FuzzyThreshold = *ic.FuzzyThreshold
	}
	if ic.EnableHighlighting != nil {
		cfg.EnableHighlighting = *ic.EnableHighlighting
	}
	if ic.QueryTimeoutMs > 0 {
		cfg.QueryTimeout = time.Duration(ic.QueryTimeoutMs) * time.Millisecond
	}

	if len(ic.Weights) > 0 {
		cfg.Weights = make(map[string]domain.Tier, len(ic.Weights))
		for field, tier := range ic.Weights {
			t := domain.Tier(strings.ToUpper(strings.TrimSpace(tier)))
			if !t.Valid() {
				return nil, domain.NewValidationError("indexes."+name+".weights", "invalid tier %q for %q", tier, field)
			}
			cfg.Weights[field] = t
		}
	}
	return cfg, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars substitutes ${VAR} and ${VAR:-default}
func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
