package services

import (
	"maps"
	"slices"

	"github.com/custodia-labs/sercha-search/internal/core/domain"
	"github.com/custodia-labs/sercha-search/internal/core/highlight"
	"github.com/custodia-labs/sercha-search/internal/core/query"
	"github.com/custodia-labs/sercha-search/internal/core/ranking"
)

// ResultAssembler turns backend rows into a ranked, highlighted page.
// It holds no state and never mutates its input.
type ResultAssembler struct{}

// NewResultAssembler creates a ResultAssembler
func NewResultAssembler() *ResultAssembler {
	return &ResultAssembler{}
}

// Assemble scores every row, highlights it when both the request and the
// index ask for it, normalizes the scores and builds the pagination.
//
// Scoring applies the recency boost to the backend score, or, when two or
// more fields matched, to each field score before the tier-weighted
// composite. Results are re-sorted by final score when the request is
// ordered by relevance.
func (a *ResultAssembler) Assemble(req query.Request, cfg *domain.IndexConfig, raw *domain.RawResult) *domain.SearchResponse {
	var terms map[string][]string
	if req.Highlight && cfg.EnableHighlighting {
		terms = query.HighlightTerms(req.Query)
	}

	docs := make([]domain.ScoredDocument, 0, len(raw.Rows))
	for _, row := range raw.Rows {
		doc := domain.ScoredDocument{
			ID:     row.ID,
			Fields: maps.Clone(row.Fields),
			Score:  score(row, cfg),
		}
		if doc.Fields == nil {
			doc.Fields = map[string]any{}
		}
		if len(terms) > 0 {
			doc.Highlights = highlights(row.Fields, terms, cfg.SnippetLength)
		}
		docs = append(docs, doc)
	}

	docs = ranking.NormalizeScores(docs)
	if req.PrimarySort().Field == domain.ScoreField {
		desc := req.PrimarySort().Direction != domain.SortAsc
		slices.SortStableFunc(docs, func(x, y domain.ScoredDocument) int {
			switch {
			case x.Score == y.Score:
				return 0
			case (x.Score > y.Score) == desc:
				return -1
			default:
				return 1
			}
		})
	}

	limit := cfg.ClampLimit(req.Limit)
	return &domain.SearchResponse{
		Results: docs,
		Total:   raw.Total,
		Pagination: domain.Pagination{
			Offset:  req.Offset,
			Limit:   limit,
			HasNext: req.Offset+len(docs) < raw.Total,
		},
	}
}

func score(row domain.RawRow, cfg *domain.IndexConfig) float64 {
	boost := func(s float64) float64 { return s }
	if cfg.RecencyField != "" {
		boost = func(s float64) float64 {
			return ranking.RecencyBoost(s, row.AgeDays, cfg.DecayFactor)
		}
	}

	if ranking.MatchedFields(row.FieldScores) >= 2 {
		return ranking.Composite(row.FieldScores, cfg, boost)
	}
	return boost(row.Score)
}

// highlights cuts a snippet around the first match in each string field
// with terms and wraps the matches. Fields without a match are left out.
func highlights(fields map[string]any, terms map[string][]string, snippetLength int) map[string]string {
	out := make(map[string]string)
	for field, fieldTerms := range terms {
		text, ok := fields[field].(string)
		if !ok || text == "" {
			continue
		}
		snippet := highlight.ExtractSnippet(text, fieldTerms, snippetLength)
		marked := highlight.HighlightMatches(snippet, fieldTerms)
		if marked != snippet {
			out[field] = marked
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
