// Package index coordinates writes across the three stores: passage
// metadata in SQLite, the keyword index, and the vector index. All
// ingestion flows through the Gateway so version arbitration, status
// stamping, and idempotent re-ingestion happen in one place.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/fasa-labs/sopindex/internal/chunk"
	"github.com/fasa-labs/sopindex/internal/config"
	soperrors "github.com/fasa-labs/sopindex/internal/errors"
	"github.com/fasa-labs/sopindex/internal/identity"
	"github.com/fasa-labs/sopindex/internal/store"
)

// lockRetryDelay is the poll interval for the cross-process ingest lock.
const lockRetryDelay = 100 * time.Millisecond

// lookupRetry retries the active-version lookup before the arbitration
// policy kicks in. Short delays; a flaky store should not stall a batch.
var lookupRetry = soperrors.RetryConfig{
	MaxRetries:   2,
	InitialDelay: 50 * time.Millisecond,
	MaxDelay:     200 * time.Millisecond,
	Multiplier:   2.0,
}

// GatewayConfig contains the Gateway's collaborators.
type GatewayConfig struct {
	Metadata store.MetadataStore
	Keyword  store.BM25Index
	Vectors  store.VectorStore

	// Policy selects the behavior when the active-version lookup fails.
	Policy config.ArbitrationPolicy

	// LockPath is the cross-process ingest lock file. Empty disables
	// file locking (tests, single-process embedding of the library).
	LockPath string

	Logger *slog.Logger
}

// Gateway is the single write path into the index. Batches for the same
// document title are serialized so concurrent uploads of two revisions
// cannot interleave their arbitration decisions.
type Gateway struct {
	config GatewayConfig
	logger *slog.Logger

	mu         sync.Mutex
	titleLocks map[string]*sync.Mutex
}

// NewGateway creates a Gateway.
func NewGateway(cfg GatewayConfig) *Gateway {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Policy == "" {
		cfg.Policy = config.ArbitrationFail
	}
	return &Gateway{
		config:     cfg,
		logger:     logger,
		titleLocks: make(map[string]*sync.Mutex),
	}
}

// titleLock returns the mutex serializing writes for one document title.
func (g *Gateway) titleLock(title string) *sync.Mutex {
	g.mu.Lock()
	defer g.mu.Unlock()
	m, ok := g.titleLocks[title]
	if !ok {
		m = &sync.Mutex{}
		g.titleLocks[title] = m
	}
	return m
}

// acquireFileLock takes the cross-process ingest lock, blocking until it
// is granted or ctx expires. Returns a no-op release when no lock path
// is configured.
func (g *Gateway) acquireFileLock(ctx context.Context) (func(), error) {
	if g.config.LockPath == "" {
		return func() {}, nil
	}
	fl := flock.New(g.config.LockPath)
	locked, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, soperrors.New(soperrors.ErrCodeStoreUnavailable,
			"failed to acquire ingest lock", err).
			WithDetail("lock_path", g.config.LockPath)
	}
	if !locked {
		return nil, soperrors.New(soperrors.ErrCodeStoreUnavailable,
			"ingest lock held by another process", nil).
			WithDetail("lock_path", g.config.LockPath)
	}
	return func() { _ = fl.Unlock() }, nil
}

// EnsureEmbedderCompatible verifies the embedder matches the index. The
// first call records the dimension and model; later calls with a
// different dimension fail hard, because mixed-dimension vectors make
// every similarity score meaningless.
func (g *Gateway) EnsureEmbedderCompatible(ctx context.Context, dimensions int, model string) error {
	recorded, err := g.config.Metadata.GetState(ctx, store.StateKeyIndexDimension)
	if err != nil {
		return soperrors.StoreError("failed to read index state", err)
	}

	if recorded == "" {
		if err := g.config.Metadata.SetState(ctx, store.StateKeyIndexDimension, strconv.Itoa(dimensions)); err != nil {
			return soperrors.StoreError("failed to record index dimension", err)
		}
		if err := g.config.Metadata.SetState(ctx, store.StateKeyIndexModel, model); err != nil {
			return soperrors.StoreError("failed to record index model", err)
		}
		return nil
	}

	recordedDims, err := strconv.Atoi(recorded)
	if err != nil {
		return soperrors.New(soperrors.ErrCodeCorruptIndex,
			"unreadable index dimension state: "+recorded, err)
	}
	if recordedDims != dimensions {
		return soperrors.New(soperrors.ErrCodeDimensionMismatch,
			fmt.Sprintf("index was built with %d-dimensional embeddings, embedder produces %d", recordedDims, dimensions), nil).
			WithSuggestion("Reingest from scratch or configure the original embedding model")
	}

	recordedModel, _ := g.config.Metadata.GetState(ctx, store.StateKeyIndexModel)
	if recordedModel != "" && recordedModel != model {
		// Same dimension, different model. Scores degrade but nothing
		// breaks, so warn and record the new model.
		g.logger.Warn("embedding model changed since index creation",
			slog.String("recorded", recordedModel),
			slog.String("current", model))
		_ = g.config.Metadata.SetState(ctx, store.StateKeyIndexModel, model)
	}
	return nil
}

// Insert writes one document revision's passages into all three stores,
// arbitrating its status against the currently Active revision. The
// operation is idempotent per title and version: re-inserting the same
// revision replaces its previous passages instead of duplicating them.
func (g *Gateway) Insert(ctx context.Context, id identity.Identity, passages []chunk.Passage, vectors [][]float32) (identity.Decision, error) {
	if len(passages) == 0 {
		return identity.Decision{}, soperrors.New(soperrors.ErrCodeEmptyBatch,
			"no passages to insert for "+id.SourceFilename, nil)
	}
	if len(vectors) != len(passages) {
		return identity.Decision{}, soperrors.New(soperrors.ErrCodeInvalidInput,
			fmt.Sprintf("passage/vector count mismatch: %d vs %d", len(passages), len(vectors)), nil)
	}

	release, err := g.acquireFileLock(ctx)
	if err != nil {
		return identity.Decision{}, err
	}
	defer release()

	lock := g.titleLock(id.Title)
	lock.Lock()
	defer lock.Unlock()

	decision, err := g.arbitrate(ctx, id)
	if err != nil {
		return identity.Decision{}, err
	}

	// Replace any passages from a previous ingest of this exact revision.
	stale, err := g.config.Metadata.IDsByTitleVersion(ctx, id.Title, id.VersionRaw)
	if err != nil {
		return identity.Decision{}, soperrors.StoreError("failed to look up existing passages", err)
	}
	if len(stale) > 0 {
		g.logger.Info("replacing previously ingested revision",
			slog.String("title", id.Title),
			slog.String("version", id.VersionRaw),
			slog.Int("stale_passages", len(stale)))
		if err := g.deleteEverywhere(ctx, stale); err != nil {
			return identity.Decision{}, err
		}
	}

	stored := make([]*store.Passage, len(passages))
	docs := make([]*store.Document, len(passages))
	ids := make([]string, len(passages))
	for i, p := range passages {
		stored[i] = &store.Passage{
			ID:             p.ID,
			Text:           p.Text,
			Body:           p.Body,
			DocTitle:       id.Title,
			DocNumber:      id.DocNumber,
			VersionRaw:     id.VersionRaw,
			VersionNumeric: id.VersionNumeric,
			SourceFilename: id.SourceFilename,
			PageLabel:      p.PageLabel,
			SectionPath:    p.Breadcrumb(),
			Status:         decision.Status,
			PrevID:         p.PrevID,
			NextID:         p.NextID,
		}
		docs[i] = &store.Document{ID: p.ID, Content: p.Text}
		ids[i] = p.ID
	}

	// Retire before persisting. A failure between the two steps then
	// leaves the title with zero Active revisions, never two; the next
	// ingest of the new revision heals it.
	if decision.Retire != nil {
		retired, err := g.config.Metadata.UpdateStatusByFilter(ctx, *decision.Retire, identity.StatusInactive)
		if err != nil {
			return identity.Decision{}, soperrors.New(soperrors.ErrCodeInsertFailed,
				"failed to retire superseded revision", err)
		}
		if retired > 0 {
			g.logger.Info("retired superseded passages",
				slog.String("title", id.Title),
				slog.String("kept_version", decision.Retire.KeepVersion),
				slog.Int64("retired", retired))
		}
	}

	if err := g.config.Metadata.SavePassages(ctx, stored); err != nil {
		return identity.Decision{}, soperrors.New(soperrors.ErrCodeInsertFailed,
			"failed to save passage metadata", err)
	}
	if err := g.config.Keyword.Index(ctx, docs); err != nil {
		return identity.Decision{}, soperrors.New(soperrors.ErrCodeInsertFailed,
			"failed to index passages for keyword search", err)
	}
	if err := g.config.Vectors.Add(ctx, ids, vectors); err != nil {
		return identity.Decision{}, soperrors.New(soperrors.ErrCodeInsertFailed,
			"failed to add passage vectors", err)
	}

	g.logger.Info("revision inserted",
		slog.String("title", id.Title),
		slog.String("version", id.VersionRaw),
		slog.String("status", string(decision.Status)),
		slog.Int("passages", len(passages)))
	return decision, nil
}

// arbitrate looks up the Active revision and decides the incoming
// batch's status, applying the configured policy when the lookup fails.
func (g *Gateway) arbitrate(ctx context.Context, id identity.Identity) (identity.Decision, error) {
	existing, err := soperrors.RetryWithResult(ctx, lookupRetry, func() (*identity.ActiveVersion, error) {
		return g.config.Metadata.ActiveVersion(ctx, id.Title, id.DocNumber)
	})
	if err != nil {
		if g.config.Policy == config.ArbitrationActivate {
			// Operator opted into availability over consistency. The
			// batch goes in Active; a later sweep reconciles duplicates.
			g.logger.Warn("active-version lookup failed, activating per policy",
				slog.String("title", id.Title),
				slog.String("error", err.Error()))
			return identity.Arbitrate(id, nil, g.logger), nil
		}
		return identity.Decision{}, soperrors.New(soperrors.ErrCodeArbitrationFailed,
			"cannot determine active revision for "+id.Title, err).
			WithSuggestion("Retry when the metadata store is reachable, or set ingest.on_arbitration_error to 'activate'")
	}
	return identity.Arbitrate(id, existing, g.logger), nil
}

// deleteEverywhere removes passage IDs from all three stores.
func (g *Gateway) deleteEverywhere(ctx context.Context, ids []string) error {
	if err := g.config.Keyword.Delete(ctx, ids); err != nil {
		return soperrors.StoreError("failed to delete from keyword index", err)
	}
	if err := g.config.Vectors.Delete(ctx, ids); err != nil {
		return soperrors.StoreError("failed to delete from vector index", err)
	}
	if err := g.config.Metadata.DeletePassages(ctx, ids); err != nil {
		return soperrors.StoreError("failed to delete passage metadata", err)
	}
	return nil
}

// RemoveDocument deletes every passage of every revision of a document
// from all three stores. Returns the number of passages removed.
func (g *Gateway) RemoveDocument(ctx context.Context, title string) (int, error) {
	lock := g.titleLock(title)
	lock.Lock()
	defer lock.Unlock()

	ids, err := g.config.Metadata.IDsByTitle(ctx, title)
	if err != nil {
		return 0, soperrors.StoreError("failed to look up document passages", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if err := g.deleteEverywhere(ctx, ids); err != nil {
		return 0, err
	}

	g.logger.Info("document removed",
		slog.String("title", title),
		slog.Int("passages", len(ids)))
	return len(ids), nil
}

// HasFilename reports whether a source filename has already been
// ingested. Used by resumable directory ingestion.
func (g *Gateway) HasFilename(ctx context.Context, filename string) (bool, error) {
	return g.config.Metadata.HasFilename(ctx, filename)
}
