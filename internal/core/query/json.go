package query

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/custodia-labs/sercha-search/internal/core/domain"
)

// JSON DSL
//
//	{"match":  {"field": "name", "text": "john"}}
//	{"phrase": {"field": "bio", "text": "senior developer"}}
//	{"prefix": {"field": "name", "text": "jo"}}
//	{"fuzzy":  {"field": "name", "text": "jhon", "distance": 1}}   // or "auto"
//	{"bool":   {"must": [...], "should": [...], "must_not": [...]}}
//
// Every node is built through the constructors, so decoding validates
// exactly as building does.

type leafJSON struct {
	Field string `json:"field"`
	Text  string `json:"text"`
}

type fuzzyJSON struct {
	Field    string          `json:"field"`
	Text     string          `json:"text"`
	Distance json.RawMessage `json:"distance,omitempty"`
}

type boolJSON struct {
	Must    []json.RawMessage `json:"must,omitempty"`
	Should  []json.RawMessage `json:"should,omitempty"`
	MustNot []json.RawMessage `json:"must_not,omitempty"`
}

type nodeJSON struct {
	Match  *leafJSON  `json:"match,omitempty"`
	Phrase *leafJSON  `json:"phrase,omitempty"`
	Prefix *leafJSON  `json:"prefix,omitempty"`
	Fuzzy  *fuzzyJSON `json:"fuzzy,omitempty"`
	Bool   *boolJSON  `json:"bool,omitempty"`
}

// ParseNode decodes one JSON DSL node
func ParseNode(data []byte) (Node, error) {
	var raw nodeJSON
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return nil, domain.NewValidationError("query", "malformed query node: %v", err)
	}

	set := 0
	for _, present := range []bool{raw.Match != nil, raw.Phrase != nil, raw.Prefix != nil, raw.Fuzzy != nil, raw.Bool != nil} {
		if present {
			set++
		}
	}
	if set != 1 {
		return nil, domain.NewValidationError("query", "a query node must have exactly one of match, phrase, prefix, fuzzy, bool")
	}

	switch {
	case raw.Match != nil:
		return NewMatch(raw.Match.Field, raw.Match.Text)
	case raw.Phrase != nil:
		return NewPhrase(raw.Phrase.Field, raw.Phrase.Text)
	case raw.Prefix != nil:
		return NewPrefix(raw.Prefix.Field, raw.Prefix.Text)
	case raw.Fuzzy != nil:
		distance, err := parseDistance(raw.Fuzzy.Field, raw.Fuzzy.Distance)
		if err != nil {
			return nil, err
		}
		return NewFuzzy(raw.Fuzzy.Field, raw.Fuzzy.Text, distance)
	default:
		must, err := parseNodes(raw.Bool.Must)
		if err != nil {
			return nil, err
		}
		should, err := parseNodes(raw.Bool.Should)
		if err != nil {
			return nil, err
		}
		mustNot, err := parseNodes(raw.Bool.MustNot)
		if err != nil {
			return nil, err
		}
		return NewBool(must, should, mustNot)
	}
}

func parseNodes(raws []json.RawMessage) ([]Node, error) {
	nodes := make([]Node, 0, len(raws))
	for _, r := range raws {
		n, err := ParseNode(r)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func parseDistance(field string, raw json.RawMessage) (int, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return AutoDistance, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if strings.EqualFold(s, "auto") {
			return AutoDistance, nil
		}
		return 0, domain.NewValidationError(field, "fuzzy distance must be 0, 1, 2 or \"auto\", got %q", s)
	}
	var d int
	if err := json.Unmarshal(raw, &d); err != nil {
		return 0, domain.NewValidationError(field, "fuzzy distance must be 0, 1, 2 or \"auto\"")
	}
	// Auto is spelled "auto" on the wire, never as AutoDistance
	if d < 0 || d > MaxFuzzyDistance {
		return 0, domain.NewValidationError(field, "fuzzy distance must be 0, 1, 2 or \"auto\", got %d", d)
	}
	return d, nil
}

type requestJSON struct {
	Query     json.RawMessage            `json:"query"`
	Filters   map[string]json.RawMessage `json:"filters,omitempty"`
	Sort      []Sort                     `json:"sort,omitempty"`
	Limit     int                        `json:"limit"`
	Offset    int                        `json:"offset"`
	Highlight bool                       `json:"highlight"`
}

// UnmarshalJSON decodes a search request body
func (r *Request) UnmarshalJSON(data []byte) error {
	var raw requestJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return domain.NewValidationError("", "malformed request: %v", err)
	}
	if len(raw.Query) == 0 || string(raw.Query) == "null" {
		return domain.NewValidationError("query", "query is required")
	}
	q, err := ParseNode(raw.Query)
	if err != nil {
		return err
	}

	req := NewRequest(q)
	req.Limit = raw.Limit
	req.Offset = raw.Offset
	req.Highlight = raw.Highlight

	if len(raw.Filters) > 0 {
		filters := make(map[string]any, len(raw.Filters))
		for field, value := range raw.Filters {
			v, err := decodeFilterValue(field, value)
			if err != nil {
				return err
			}
			filters[field] = v
		}
		if req, err = Filter(req, filters); err != nil {
			return err
		}
	}

	for _, s := range raw.Sort {
		if s.Field == domain.ScoreField {
			req = SortByRelevance(req)
			continue
		}
		if req, err = SortByField(req, s.Field, s.Direction); err != nil {
			return err
		}
	}

	if err := req.Validate(); err != nil {
		return err
	}
	*r = req
	return nil
}

func decodeFilterValue(field string, raw json.RawMessage) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, domain.NewValidationError(field, "malformed filter value: %v", err)
	}
	return convertJSONValue(field, v)
}

func convertJSONValue(field string, v any) (any, error) {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i, nil
		}
		f, err := val.Float64()
		if err != nil {
			return nil, domain.NewValidationError(field, "invalid number %q", val.String())
		}
		return f, nil
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			c, err := convertJSONValue(field, item)
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	case map[string]any:
		var r Range
		for k, bound := range val {
			c, err := convertJSONValue(field, bound)
			if err != nil {
				return nil, err
			}
			switch k {
			case "gt":
				r.Gt = c
			case "gte":
				r.Gte = c
			case "lt":
				r.Lt = c
			case "lte":
				r.Lte = c
			default:
				return nil, domain.NewValidationError(field, "unknown range bound %q", k)
			}
		}
		return r, nil
	default:
		return val, nil
	}
}

// MustParseNode is ParseNode for tests and fixtures; it panics on error
func MustParseNode(data string) Node {
	n, err := ParseNode([]byte(data))
	if err != nil {
		panic(fmt.Sprintf("query: %v", err))
	}
	return n
}
