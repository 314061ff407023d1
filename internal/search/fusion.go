package search

import (
	"sort"

	"github.com/fasa-labs/sopindex/internal/store"
)

// FusedResult is one passage after weighted score fusion.
type FusedResult struct {
	PassageID    string
	Score        float64 // weighted fusion of normalized leg scores, 0-1
	BM25Score    float64 // original keyword score
	VecScore     float64 // original semantic score
	InBothLists  bool
	MatchedTerms []string
}

// FuseWeighted combines keyword and semantic results with weighted
// score fusion. Each leg's scores are min-max normalized to 0-1 first,
// because BM25 scores and cosine similarities live on incomparable
// scales. A passage missing from one leg contributes 0 for that leg.
//
// Sort order: Score desc, then both-lists first, then BM25 score desc,
// then PassageID asc for determinism.
func FuseWeighted(bm25 []*store.BM25Result, vec []*store.VectorResult, weights Weights) []*FusedResult {
	// Return empty slice, not nil, for consistent API behavior.
	if len(bm25) == 0 && len(vec) == 0 {
		return []*FusedResult{}
	}

	results := make(map[string]*FusedResult, len(bm25)+len(vec))
	get := func(id string) *FusedResult {
		if r, ok := results[id]; ok {
			return r
		}
		r := &FusedResult{PassageID: id}
		results[id] = r
		return r
	}

	bm25Norm := normalizeBM25(bm25)
	bm25Seen := make(map[string]bool, len(bm25))
	for i, r := range bm25 {
		fused := get(r.DocID)
		fused.BM25Score = r.Score
		fused.MatchedTerms = r.MatchedTerms
		fused.Score += weights.BM25 * bm25Norm[i]
		bm25Seen[r.DocID] = true
	}

	vecNorm := normalizeVec(vec)
	for i, r := range vec {
		fused := get(r.ID)
		fused.VecScore = float64(r.Score)
		fused.Score += weights.Semantic * vecNorm[i]
		fused.InBothLists = bm25Seen[r.ID]
	}

	sorted := make([]*FusedResult, 0, len(results))
	for _, r := range results {
		sorted = append(sorted, r)
	}
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.InBothLists != b.InBothLists {
			return a.InBothLists
		}
		if a.BM25Score != b.BM25Score {
			return a.BM25Score > b.BM25Score
		}
		return a.PassageID < b.PassageID
	})
	return sorted
}

// normalizeBM25 min-max normalizes keyword scores to 0-1. A single
// result, or a flat list, normalizes to 1.0.
func normalizeBM25(results []*store.BM25Result) []float64 {
	if len(results) == 0 {
		return nil
	}
	minScore, maxScore := results[0].Score, results[0].Score
	for _, r := range results[1:] {
		if r.Score < minScore {
			minScore = r.Score
		}
		if r.Score > maxScore {
			maxScore = r.Score
		}
	}

	norm := make([]float64, len(results))
	span := maxScore - minScore
	for i, r := range results {
		if span == 0 {
			norm[i] = 1.0
			continue
		}
		norm[i] = (r.Score - minScore) / span
	}
	return norm
}

// normalizeVec min-max normalizes semantic scores to 0-1.
func normalizeVec(results []*store.VectorResult) []float64 {
	if len(results) == 0 {
		return nil
	}
	minScore, maxScore := results[0].Score, results[0].Score
	for _, r := range results[1:] {
		if r.Score < minScore {
			minScore = r.Score
		}
		if r.Score > maxScore {
			maxScore = r.Score
		}
	}

	norm := make([]float64, len(results))
	span := maxScore - minScore
	for i, r := range results {
		if span == 0 {
			norm[i] = 1.0
			continue
		}
		norm[i] = float64(r.Score-minScore) / float64(span)
	}
	return norm
}
