// Package ranking holds the backend-agnostic scoring transforms applied to
// raw backend relevance: tier weighting, recency decay and min-max
// normalization. All functions are pure.
package ranking

import (
	"math"
	"slices"

	"github.com/custodia-labs/sercha-search/internal/core/domain"
)

// FieldWeight returns the tier multiplier configured for field, 0.1 when the
// field has no weight or cfg is nil.
func FieldWeight(field string, cfg *domain.IndexConfig) float64 {
	if cfg == nil {
		return domain.DefaultTier.Weight()
	}
	return cfg.TierOf(field).Weight()
}

// RecencyBoost returns base * (1 + e^(-decay*ageDays)). A fresh document
// scores up to twice its base, an old one approaches its base. Zero decay
// disables the boost. Negative decay and negative age are treated as zero.
func RecencyBoost(base, ageDays, decay float64) float64 {
	if decay <= 0 {
		return base
	}
	if ageDays < 0 {
		ageDays = 0
	}
	return base * (1 + math.Exp(-decay*ageDays))
}

// Composite sums the weighted per-field scores of the fields that matched.
// boost, when non-nil, is applied to each field score before weighting.
func Composite(fieldScores map[string]float64, cfg *domain.IndexConfig, boost func(float64) float64) float64 {
	fields := make([]string, 0, len(fieldScores))
	for f := range fieldScores {
		fields = append(fields, f)
	}
	// Fixed order keeps float summation deterministic
	slices.Sort(fields)

	var total float64
	for _, f := range fields {
		score := fieldScores[f]
		if score <= 0 {
			continue
		}
		if boost != nil {
			score = boost(score)
		}
		total += FieldWeight(f, cfg) * score
	}
	return total
}

// MatchedFields counts the fields with a positive score
func MatchedFields(fieldScores map[string]float64) int {
	n := 0
	for _, s := range fieldScores {
		if s > 0 {
			n++
		}
	}
	return n
}

// NormalizeScores returns a copy of docs with NormalizedScore min-max scaled
// into [0,1]. When every score is equal, including zero or one document,
// NormalizedScore is the unchanged Score.
func NormalizeScores(docs []domain.ScoredDocument) []domain.ScoredDocument {
	out := slices.Clone(docs)
	if len(out) == 0 {
		return out
	}

	lo, hi := out[0].Score, out[0].Score
	for _, d := range out[1:] {
		lo = min(lo, d.Score)
		hi = max(hi, d.Score)
	}

	span := hi - lo
	for i := range out {
		if span == 0 || math.IsNaN(span) || math.IsInf(span, 0) {
			out[i].NormalizedScore = out[i].Score
			continue
		}
		out[i].NormalizedScore = (out[i].Score - lo) / span
	}
	return out
}
