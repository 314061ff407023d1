package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/fasa-labs/sopindex/internal/config"
	"github.com/fasa-labs/sopindex/internal/embed"
	soperrors "github.com/fasa-labs/sopindex/internal/errors"
	"github.com/fasa-labs/sopindex/internal/identity"
	"github.com/fasa-labs/sopindex/internal/store"
)

// ErrNilDependency is returned when a required dependency is nil.
var ErrNilDependency = errors.New("nil dependency")

// candidateMultiplier oversizes the per-leg candidate pool relative to
// TopK: fusion reorders across legs and the Active-status filter can
// discard candidates after retrieval.
const candidateMultiplier = 4

// Engine answers queries over the indexed corpus. It owns no store
// lifecycle; the caller opens and closes the stores.
type Engine struct {
	keyword  store.BM25Index
	vectors  store.VectorStore
	embedder embed.Embedder
	metadata store.MetadataStore
	config   config.SearchConfig
	logger   *slog.Logger
}

// NewEngine creates a search engine. Returns an error if any required
// dependency is nil.
func NewEngine(
	keyword store.BM25Index,
	vectors store.VectorStore,
	embedder embed.Embedder,
	metadata store.MetadataStore,
	cfg config.SearchConfig,
	logger *slog.Logger,
) (*Engine, error) {
	if keyword == nil {
		return nil, fmt.Errorf("%w: keyword index is required", ErrNilDependency)
	}
	if vectors == nil {
		return nil, fmt.Errorf("%w: vector store is required", ErrNilDependency)
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrNilDependency)
	}
	if metadata == nil {
		return nil, fmt.Errorf("%w: metadata store is required", ErrNilDependency)
	}
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.TopK <= 0 {
		cfg.TopK = 7
	}
	if cfg.BM25Weight == 0 && cfg.SemanticWeight == 0 {
		cfg.BM25Weight, cfg.SemanticWeight = 0.5, 0.5
	}

	return &Engine{
		keyword:  keyword,
		vectors:  vectors,
		embedder: embedder,
		metadata: metadata,
		config:   cfg,
		logger:   logger,
	}, nil
}

// Answer runs focused hybrid retrieval: both legs in parallel, weighted
// score fusion, then an Active-only metadata filter and the relevance
// floor. Returns at most TopK passages.
func (e *Engine) Answer(ctx context.Context, query string) ([]*AnswerResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, soperrors.New(soperrors.ErrCodeQueryEmpty, "query is empty", nil)
	}

	limit := e.config.TopK * candidateMultiplier
	bm25Results, vecResults, err := e.parallelSearch(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	fused := FuseWeighted(bm25Results, vecResults, Weights{
		BM25:     e.config.BM25Weight,
		Semantic: e.config.SemanticWeight,
	})
	if len(fused) == 0 {
		return []*AnswerResult{}, nil
	}

	ids := make([]string, len(fused))
	for i, f := range fused {
		ids[i] = f.PassageID
	}
	passages, err := e.metadata.GetPassages(ctx, ids)
	if err != nil {
		return nil, soperrors.New(soperrors.ErrCodeSearchFailed,
			"failed to load passage metadata", err)
	}
	byID := make(map[string]*store.Passage, len(passages))
	for _, p := range passages {
		byID[p.ID] = p
	}

	results := make([]*AnswerResult, 0, e.config.TopK)
	for _, f := range fused {
		passage, ok := byID[f.PassageID]
		if !ok {
			// Orphan from a keyword or vector index that outlived its
			// metadata row; skip it.
			continue
		}
		if passage.Status != identity.StatusActive {
			continue
		}
		if e.config.RelevanceFloor > 0 && f.Score < e.config.RelevanceFloor {
			// Fused results are sorted, everything after is lower.
			break
		}
		results = append(results, &AnswerResult{
			Passage:      passage,
			Score:        f.Score,
			BM25Score:    f.BM25Score,
			VecScore:     f.VecScore,
			InBothLists:  f.InBothLists,
			MatchedTerms: f.MatchedTerms,
		})
		if len(results) == e.config.TopK {
			break
		}
	}

	e.logger.Debug("answer_query",
		slog.String("query", query),
		slog.Int("bm25_candidates", len(bm25Results)),
		slog.Int("vector_candidates", len(vecResults)),
		slog.Int("results", len(results)))
	return results, nil
}

// parallelSearch runs both retrieval legs concurrently. A single
// failing leg degrades to the other; both failing is an error.
func (e *Engine) parallelSearch(ctx context.Context, query string, limit int) (
	bm25Results []*store.BM25Result,
	vecResults []*store.VectorResult,
	err error,
) {
	group, groupCtx := errgroup.WithContext(ctx)
	var bm25Err, vecErr error

	group.Go(func() error {
		bm25Results, bm25Err = e.keyword.Search(groupCtx, query, limit)
		return nil
	})
	group.Go(func() error {
		embedding, embedErr := e.embedder.Embed(groupCtx, query)
		if embedErr != nil {
			vecErr = embedErr
			return nil
		}
		vecResults, vecErr = e.vectors.Search(groupCtx, embedding, limit)
		return nil
	})
	if waitErr := group.Wait(); waitErr != nil {
		return nil, nil, waitErr
	}

	if bm25Err != nil && vecErr != nil {
		return nil, nil, soperrors.New(soperrors.ErrCodeSearchFailed,
			"both retrieval legs failed", errors.Join(bm25Err, vecErr))
	}
	if bm25Err != nil {
		e.logger.Warn("keyword leg failed, continuing with semantic only",
			slog.String("error", bm25Err.Error()))
	}
	if vecErr != nil {
		e.logger.Warn("semantic leg failed, continuing with keyword only",
			slog.String("error", vecErr.Error()))
	}
	return bm25Results, vecResults, nil
}

// Window returns a passage with up to before/after adjacent passages
// from the same document, in reading order. Adjacency follows the
// Prev/Next links stamped at chunking time.
func (e *Engine) Window(ctx context.Context, passageID string, before, after int) ([]*store.Passage, error) {
	center, err := e.metadata.GetPassage(ctx, passageID)
	if err != nil {
		return nil, soperrors.StoreError("failed to load passage", err)
	}
	if center == nil {
		return nil, soperrors.New(soperrors.ErrCodeInvalidInput,
			"unknown passage id "+passageID, nil)
	}

	window := []*store.Passage{center}

	prev := center.PrevID
	for i := 0; i < before && prev != ""; i++ {
		p, err := e.metadata.GetPassage(ctx, prev)
		if err != nil || p == nil {
			break
		}
		window = append([]*store.Passage{p}, window...)
		prev = p.PrevID
	}

	next := center.NextID
	for i := 0; i < after && next != ""; i++ {
		p, err := e.metadata.GetPassage(ctx, next)
		if err != nil || p == nil {
			break
		}
		window = append(window, p)
		next = p.NextID
	}

	return window, nil
}
