package query

import (
	"slices"
	"strings"
	"unicode"
)

// Terms splits text into its search terms: maximal runs of letters and
// digits. Everything else, including query-syntax characters, separates.
func Terms(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// HighlightTerms collects, per field, the terms of the positive leaves of n.
// MustNot subtrees contribute nothing. Prefix terms end in "*" and phrases
// are kept whole. Each field's terms are de-duplicated and sorted.
func HighlightTerms(n Node) map[string][]string {
	c := &termCollector{terms: make(map[string][]string)}
	if n != nil {
		_ = n.Accept(c)
	}
	for field, terms := range c.terms {
		slices.Sort(terms)
		c.terms[field] = slices.Compact(terms)
	}
	return c.terms
}

type termCollector struct {
	terms map[string][]string
}

func (c *termCollector) add(field string, terms ...string) {
	for _, t := range terms {
		if t != "" {
			c.terms[field] = append(c.terms[field], t)
		}
	}
}

func (c *termCollector) VisitMatch(n Match) error {
	c.add(n.Field, Terms(n.Text)...)
	return nil
}

func (c *termCollector) VisitPhrase(n Phrase) error {
	c.add(n.Field, strings.Join(Terms(n.Text), " "))
	return nil
}

func (c *termCollector) VisitPrefix(n Prefix) error {
	terms := Terms(n.Text)
	if len(terms) == 0 {
		return nil
	}
	last := len(terms) - 1
	terms[last] += "*"
	c.add(n.Field, terms...)
	return nil
}

func (c *termCollector) VisitFuzzy(n Fuzzy) error {
	c.add(n.Field, Terms(n.Text)...)
	return nil
}

func (c *termCollector) VisitBool(n Bool) error {
	for _, child := range n.Must {
		if err := child.Accept(c); err != nil {
			return err
		}
	}
	for _, child := range n.Should {
		if err := child.Accept(c); err != nil {
			return err
		}
	}
	return nil
}
