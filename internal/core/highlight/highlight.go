// Package highlight marks query terms in document text and cuts preview
// snippets around the first match.
package highlight

import (
	"cmp"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"
)

// Default tags wrapped around each match
const (
	DefaultPreTag  = "<mark>"
	DefaultPostTag = "</mark>"
)

// DefaultSnippetLength is the snippet window used when none is given
const DefaultSnippetLength = 200

// Ellipsis marks a snippet clipped at either end
const Ellipsis = "..."

type options struct {
	pre  string
	post string
}

// Option configures HighlightMatches
type Option func(*options)

// WithTags replaces the default <mark></mark> wrapping
func WithTags(pre, post string) Option {
	return func(o *options) {
		o.pre = pre
		o.post = post
	}
}

// HighlightMatches wraps every case-insensitive, whole-word occurrence of
// any term in a single pass. A term ending in "*" matches as a word prefix
// and a term containing spaces matches across any run of whitespace.
//
// The result is not idempotent: highlighting already highlighted text wraps
// the matches again.
func HighlightMatches(text string, terms []string, opts ...Option) string {
	o := options{pre: DefaultPreTag, post: DefaultPostTag}
	for _, opt := range opts {
		opt(&o)
	}

	re := Pattern(terms)
	if re == nil {
		return text
	}
	return re.ReplaceAllStringFunc(text, func(m string) string {
		return o.pre + m + o.post
	})
}

// ExtractSnippet returns a window of at most maxLength runes of text around
// the first term match: half the window before the match start and half
// after, clipped to the text, with an ellipsis on each clipped side.
// Text of at most maxLength runes is returned verbatim. Without a match the
// first maxLength runes are returned.
func ExtractSnippet(text string, terms []string, maxLength int) string {
	if maxLength <= 0 {
		maxLength = DefaultSnippetLength
	}
	n := utf8.RuneCountInString(text)
	if n <= maxLength {
		return text
	}

	runes := []rune(text)
	var loc []int
	if re := Pattern(terms); re != nil {
		loc = re.FindStringIndex(text)
	}
	if loc == nil {
		return string(runes[:maxLength])
	}

	pos := utf8.RuneCountInString(text[:loc[0]])
	half := maxLength / 2
	start := max(0, pos-half)
	end := min(n, pos+(maxLength-half))

	var b strings.Builder
	if start > 0 {
		b.WriteString(Ellipsis)
	}
	b.WriteString(string(runes[start:end]))
	if end < n {
		b.WriteString(Ellipsis)
	}
	return b.String()
}

// Pattern builds the case-insensitive alternation matching any of terms,
// longest first, or nil when no term is usable.
func Pattern(terms []string) *regexp.Regexp {
	alts := make([]string, 0, len(terms))
	for _, t := range slices.Compact(sortedTerms(terms)) {
		if alt := termPattern(t); alt != "" {
			alts = append(alts, alt)
		}
	}
	if len(alts) == 0 {
		return nil
	}
	return regexp.MustCompile(`(?i)(?:` + strings.Join(alts, "|") + `)`)
}

func sortedTerms(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		// regexp rejects invalid UTF-8 even after QuoteMeta
		if t = strings.TrimSpace(strings.ToValidUTF8(t, "")); t != "" {
			out = append(out, t)
		}
	}
	slices.SortFunc(out, func(a, b string) int {
		if c := cmp.Compare(len(b), len(a)); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})
	return out
}

const wordChars = `[\p{L}\p{N}_]`

func termPattern(term string) string {
	prefix := strings.HasSuffix(term, "*")
	term = strings.TrimRight(term, "*")
	words := strings.Fields(term)
	if len(words) == 0 {
		return ""
	}
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	body := strings.Join(words, `\s+`)

	var b strings.Builder
	if isWordByte(term[0]) {
		b.WriteString(`\b`)
	}
	b.WriteString(body)
	if prefix {
		b.WriteString(wordChars + `*`)
	} else if isWordByte(term[len(term)-1]) {
		b.WriteString(`\b`)
	}
	return b.String()
}

// isWordByte mirrors RE2's ASCII-only \b
func isWordByte(c byte) bool {
	return c == '_' || ('0' <= c && c <= '9') || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}
