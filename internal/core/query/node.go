// Package query holds the backend-agnostic search DSL: an immutable query
// tree, its constructors and the search request that wraps it.
package query

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// Kind identifies the kind of query node
type Kind string

const (
	KindMatch  Kind = "match"
	KindPhrase Kind = "phrase"
	KindPrefix Kind = "prefix"
	KindFuzzy  Kind = "fuzzy"
	KindBool   Kind = "bool"
)

// Node is a query tree node. The set of implementations is closed: only the
// types in this package satisfy it.
type Node interface {
	Kind() Kind
	// Accept dispatches to the Visitor method for the node's kind
	Accept(v Visitor) error
	// String renders the node canonically; equal trees render equally
	String() string

	node()
}

// Visitor handles every node kind. Adding a kind adds a method here, so
// every visitor fails to compile until it handles the new kind.
type Visitor interface {
	VisitMatch(Match) error
	VisitPhrase(Phrase) error
	VisitPrefix(Prefix) error
	VisitFuzzy(Fuzzy) error
	VisitBool(Bool) error
}

// Match matches documents containing all terms of Text in Field
type Match struct {
	Field string
	Text  string
}

// Phrase matches Text as an ordered phrase in Field
type Phrase struct {
	Field string
	Text  string
}

// Prefix matches terms of Field starting with Text
type Prefix struct {
	Field string
	Text  string
}

// AutoDistance selects the fuzzy edit distance from the term length
const AutoDistance = -1

// MaxFuzzyDistance is the largest explicit fuzzy distance
const MaxFuzzyDistance = 2

// Fuzzy matches Field values similar to Text within Distance edits.
// Distance is in [0, MaxFuzzyDistance] or AutoDistance.
type Fuzzy struct {
	Field    string
	Text     string
	Distance int
}

// EffectiveDistance resolves AutoDistance by term length
func (f Fuzzy) EffectiveDistance() int {
	if f.Distance != AutoDistance {
		return f.Distance
	}
	switch n := utf8.RuneCountInString(f.Text); {
	case n <= 2:
		return 0
	case n <= 5:
		return 1
	default:
		return 2
	}
}

// Bool combines clauses. Must clauses are conjunctive, MustNot clauses are
// negated and conjunctive with the rest, Should clauses are disjunctive.
type Bool struct {
	Must    []Node
	Should  []Node
	MustNot []Node
}

func (Match) Kind() Kind  { return KindMatch }
func (Phrase) Kind() Kind { return KindPhrase }
func (Prefix) Kind() Kind { return KindPrefix }
func (Fuzzy) Kind() Kind  { return KindFuzzy }
func (Bool) Kind() Kind   { return KindBool }

func (n Match) Accept(v Visitor) error  { return v.VisitMatch(n) }
func (n Phrase) Accept(v Visitor) error { return v.VisitPhrase(n) }
func (n Prefix) Accept(v Visitor) error { return v.VisitPrefix(n) }
func (n Fuzzy) Accept(v Visitor) error  { return v.VisitFuzzy(n) }
func (n Bool) Accept(v Visitor) error   { return v.VisitBool(n) }

func (Match) node()  {}
func (Phrase) node() {}
func (Prefix) node() {}
func (Fuzzy) node()  {}
func (Bool) node()   {}

func (n Match) String() string  { return leafString(KindMatch, n.Field, n.Text) }
func (n Phrase) String() string { return leafString(KindPhrase, n.Field, n.Text) }
func (n Prefix) String() string { return leafString(KindPrefix, n.Field, n.Text) }

func (n Fuzzy) String() string {
	dist := "auto"
	if n.Distance != AutoDistance {
		dist = strconv.Itoa(n.Distance)
	}
	return "fuzzy(" + n.Field + ":" + strconv.Quote(n.Text) + "~" + dist + ")"
}

func (n Bool) String() string {
	var b strings.Builder
	b.WriteString("bool(")
	writeClauses(&b, "must", n.Must)
	b.WriteString(" ")
	writeClauses(&b, "should", n.Should)
	b.WriteString(" ")
	writeClauses(&b, "must_not", n.MustNot)
	b.WriteString(")")
	return b.String()
}

func leafString(kind Kind, field, text string) string {
	return string(kind) + "(" + field + ":" + strconv.Quote(text) + ")"
}

func writeClauses(b *strings.Builder, name string, nodes []Node) {
	b.WriteString(name)
	b.WriteString("[")
	for i, n := range nodes {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(n.String())
	}
	b.WriteString("]")
}
