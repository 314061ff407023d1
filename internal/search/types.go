// Package search provides retrieval over the ingested corpus: focused
// hybrid retrieval for answering, keyword-only discovery for corpus
// exploration, and context-window expansion around a passage.
package search

import (
	"github.com/fasa-labs/sopindex/internal/store"
)

// Weights balances the keyword and semantic legs of hybrid retrieval.
// The two weights must sum to 1.0.
type Weights struct {
	BM25     float64
	Semantic float64
}

// AnswerResult is one passage returned by focused retrieval.
type AnswerResult struct {
	Passage *store.Passage

	// Score is the fused relevance, normalized 0-1.
	Score float64

	// Per-leg scores, preserved for display and debugging.
	BM25Score float64
	VecScore  float64

	// InBothLists reports that both legs retrieved this passage.
	InBothLists bool

	// MatchedTerms are the keyword-leg terms that hit, for highlighting.
	MatchedTerms []string
}

// Snippet is a short excerpt around a matched term in discovery mode.
type Snippet struct {
	PassageID   string
	PageLabel   string
	SectionPath string
	Text        string
}

// DiscoverGroup is one document in a discovery result, with its best
// score and a few representative snippets.
type DiscoverGroup struct {
	Title          string
	DocNumber      string
	VersionRaw     string
	SourceFilename string
	BestScore      float64
	Matches        int
	Snippets       []Snippet
}
