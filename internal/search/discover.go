package search

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	soperrors "github.com/fasa-labs/sopindex/internal/errors"
	"github.com/fasa-labs/sopindex/internal/identity"
)

// Discover runs keyword-only exploration: which documents mention these
// terms at all? The query is normalized, matched with OR semantics over
// a wide candidate pool, and results are grouped per document with a
// few snippets each. No embedding call is made, so discovery works even
// when the embedding service is down.
func (e *Engine) Discover(ctx context.Context, query string) ([]*DiscoverGroup, error) {
	normalized := NormalizeQuery(query)
	if normalized == "" {
		return nil, soperrors.New(soperrors.ErrCodeQueryEmpty, "query is empty", nil)
	}

	candidates := e.config.DiscoverCandidates
	if candidates <= 0 {
		candidates = 100
	}

	hits, err := e.keyword.Search(ctx, normalized, candidates)
	if err != nil {
		return nil, soperrors.New(soperrors.ErrCodeSearchFailed,
			"discovery search failed", err)
	}
	if len(hits) == 0 {
		return []*DiscoverGroup{}, nil
	}

	ids := make([]string, len(hits))
	scoreByID := make(map[string]float64, len(hits))
	termsByID := make(map[string][]string, len(hits))
	for i, h := range hits {
		ids[i] = h.DocID
		scoreByID[h.DocID] = h.Score
		termsByID[h.DocID] = h.MatchedTerms
	}
	passages, err := e.metadata.GetPassages(ctx, ids)
	if err != nil {
		return nil, soperrors.New(soperrors.ErrCodeSearchFailed,
			"failed to load passage metadata", err)
	}

	maxSnippets := e.config.DiscoverSnippets
	if maxSnippets <= 0 {
		maxSnippets = 3
	}
	radius := e.config.SnippetRadius
	if radius <= 0 {
		radius = 60
	}

	groups := make(map[string]*DiscoverGroup)
	for _, p := range passages {
		if p.Status != identity.StatusActive {
			continue
		}

		group, ok := groups[p.DocTitle]
		if !ok {
			group = &DiscoverGroup{
				Title:          p.DocTitle,
				DocNumber:      p.DocNumber,
				VersionRaw:     p.VersionRaw,
				SourceFilename: p.SourceFilename,
			}
			groups[p.DocTitle] = group
		}
		group.Matches++
		if score := scoreByID[p.ID]; score > group.BestScore {
			group.BestScore = score
		}
		if len(group.Snippets) < maxSnippets {
			group.Snippets = append(group.Snippets, Snippet{
				PassageID:   p.ID,
				PageLabel:   p.PageLabel,
				SectionPath: p.SectionPath,
				Text:        excerpt(p.Body, termsByID[p.ID], radius),
			})
		}
	}

	sorted := make([]*DiscoverGroup, 0, len(groups))
	for _, g := range groups {
		sorted = append(sorted, g)
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].BestScore != sorted[j].BestScore {
			return sorted[i].BestScore > sorted[j].BestScore
		}
		return sorted[i].Title < sorted[j].Title
	})

	e.logger.Debug("discover_query",
		slog.String("query", normalized),
		slog.Int("candidates", len(hits)),
		slog.Int("documents", len(sorted)))
	return sorted, nil
}

// excerpt cuts a snippet of radius characters around the first matched
// term. With no matchable term the snippet is the passage head.
func excerpt(body string, terms []string, radius int) string {
	body = strings.Join(strings.Fields(body), " ")
	if body == "" {
		return ""
	}

	lower := strings.ToLower(body)
	at := -1
	matchLen := 0
	for _, term := range terms {
		if term == "" {
			continue
		}
		if idx := strings.Index(lower, strings.ToLower(term)); idx >= 0 && (at < 0 || idx < at) {
			at = idx
			matchLen = len(term)
		}
	}
	if at < 0 {
		at = 0
	}

	start := at - radius
	end := at + matchLen + radius
	if start < 0 {
		start = 0
	}
	if end > len(body) {
		end = len(body)
	}

	// Keep rune boundaries intact.
	for start > 0 && !isRuneStart(body[start]) {
		start--
	}
	for end < len(body) && !isRuneStart(body[end]) {
		end++
	}

	snippet := body[start:end]
	if start > 0 {
		snippet = "…" + snippet
	}
	if end < len(body) {
		snippet += "…"
	}
	return snippet
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
