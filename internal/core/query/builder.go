package query

import (
	"slices"
	"strings"

	"github.com/custodia-labs/sercha-search/internal/core/domain"
)

// NewMatch builds a Match node. Field and text must be non-empty after
// trimming.
func NewMatch(field, text string) (Node, error) {
	field, text, err := leafArgs(field, text)
	if err != nil {
		return nil, err
	}
	return Match{Field: field, Text: text}, nil
}

// NewPhrase builds a Phrase node
func NewPhrase(field, text string) (Node, error) {
	field, text, err := leafArgs(field, text)
	if err != nil {
		return nil, err
	}
	return Phrase{Field: field, Text: text}, nil
}

// NewPrefix builds a Prefix node
func NewPrefix(field, text string) (Node, error) {
	field, text, err := leafArgs(field, text)
	if err != nil {
		return nil, err
	}
	return Prefix{Field: field, Text: text}, nil
}

// NewFuzzy builds a Fuzzy node. Distance must be in [0, MaxFuzzyDistance]
// or AutoDistance.
func NewFuzzy(field, text string, distance int) (Node, error) {
	field, text, err := leafArgs(field, text)
	if err != nil {
		return nil, err
	}
	if distance != AutoDistance && (distance < 0 || distance > MaxFuzzyDistance) {
		return nil, domain.NewValidationError(field,
			"fuzzy distance %d out of range [0,%d] and not auto", distance, MaxFuzzyDistance)
	}
	return Fuzzy{Field: field, Text: text, Distance: distance}, nil
}

// NewBool builds a Bool node from copies of the clause lists. At least one
// clause is required and no clause may be nil.
func NewBool(must, should, mustNot []Node) (Node, error) {
	if len(must)+len(should)+len(mustNot) == 0 {
		return nil, domain.NewValidationError("bool", "at least one clause is required")
	}
	clauses := []struct {
		name string
		list []Node
	}{{"must", must}, {"should", should}, {"must_not", mustNot}}
	for _, c := range clauses {
		if slices.Contains(c.list, nil) {
			return nil, domain.NewValidationError("bool."+c.name, "clause must not be nil")
		}
	}
	return Bool{
		Must:    slices.Clone(must),
		Should:  slices.Clone(should),
		MustNot: slices.Clone(mustNot),
	}, nil
}

func leafArgs(field, text string) (string, string, error) {
	field = strings.TrimSpace(field)
	if field == "" {
		return "", "", domain.NewValidationError("field", "field name is required")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", "", domain.NewValidationError(field, "search text must not be empty")
	}
	return field, text, nil
}
