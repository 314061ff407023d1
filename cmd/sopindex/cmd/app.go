package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fasa-labs/sopindex/internal/chunk"
	"github.com/fasa-labs/sopindex/internal/config"
	"github.com/fasa-labs/sopindex/internal/embed"
	"github.com/fasa-labs/sopindex/internal/identity"
	"github.com/fasa-labs/sopindex/internal/index"
	"github.com/fasa-labs/sopindex/internal/parser"
	"github.com/fasa-labs/sopindex/internal/search"
	"github.com/fasa-labs/sopindex/internal/store"
)

// app holds the wired stores and services shared by all commands.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	metadata store.MetadataStore
	keyword  store.BM25Index
	vectors  *store.HNSWStore
	embedder embed.Embedder
	gateway  *index.Gateway

	vectorPath string
}

// openApp opens the index at the configured data directory, creating it
// when absent. mustExist makes a missing index an error instead, for
// read-only commands where auto-creating an empty index would mask a
// wrong --data-dir.
func openApp(ctx context.Context, mustExist bool) (*app, error) {
	cfg, err := config.Load(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if dataDirFlag != "" {
		cfg.Storage.DataDir = dataDirFlag
	}

	dataDir := cfg.Storage.DataDir
	metadataPath := filepath.Join(dataDir, "metadata.db")
	if mustExist {
		if _, err := os.Stat(metadataPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("no index found at %s. Run 'sopindex ingest' first", dataDir)
		}
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	logger := slog.Default()
	a := &app{cfg: cfg, logger: logger}

	a.metadata, err = store.NewSQLiteStore(metadataPath, cfg.Storage.SQLiteCacheMB)
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata store: %w", err)
	}

	// Reopened indexes keep the backend they were built with.
	keywordBase := filepath.Join(dataDir, "keyword")
	backend := store.DetectBM25Backend(keywordBase)
	a.keyword, err = store.NewBM25IndexWithBackend(keywordBase, store.DefaultBM25Config(), string(backend))
	if err != nil {
		a.closePartial()
		return nil, fmt.Errorf("failed to open keyword index: %w", err)
	}

	a.embedder, err = embed.NewEmbedder(ctx, cfg.Embeddings, logger)
	if err != nil {
		a.closePartial()
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	a.vectors, err = store.NewHNSWStore(store.DefaultVectorStoreConfig(a.embedder.Dimensions()))
	if err != nil {
		a.closePartial()
		return nil, fmt.Errorf("failed to create vector store: %w", err)
	}
	a.vectorPath = filepath.Join(dataDir, "vectors.hnsw")
	if _, err := os.Stat(a.vectorPath); err == nil {
		if err := a.vectors.Load(a.vectorPath); err != nil {
			a.closePartial()
			return nil, fmt.Errorf("failed to load vector index: %w", err)
		}
	}

	a.gateway = index.NewGateway(index.GatewayConfig{
		Metadata: a.metadata,
		Keyword:  a.keyword,
		Vectors:  a.vectors,
		Policy:   cfg.Ingest.OnArbitrationError,
		LockPath: filepath.Join(dataDir, "ingest.lock"),
		Logger:   logger,
	})

	return a, nil
}

// pipeline wires the full ingestion pipeline on top of the open stores.
func (a *app) pipeline() *index.Pipeline {
	return index.NewPipeline(index.PipelineConfig{
		Parsers:  parser.DefaultRegistry(),
		Resolver: identity.NewResolver(a.logger),
		Chunker: chunk.NewChunker(chunk.Options{
			ChunkSize:     a.cfg.Chunking.ChunkSize,
			ChunkOverlap:  a.cfg.Chunking.ChunkOverlap,
			MaxChunkChars: a.cfg.Chunking.MaxChunkChars,
			MinChunkChars: a.cfg.Chunking.MinChunkChars,
		}, a.logger),
		Embedder: a.embedder,
		Gateway:  a.gateway,
		Workers:  a.cfg.Ingest.Workers,
		Logger:   a.logger,
	})
}

// engine wires the retrieval engine on top of the open stores.
func (a *app) engine() (*search.Engine, error) {
	return search.NewEngine(a.keyword, a.vectors, a.embedder, a.metadata, a.cfg.Search, a.logger)
}

// saveVectors persists the HNSW graph. Callers that mutated the vector
// store must call this before Close.
func (a *app) saveVectors() error {
	if err := a.vectors.Save(a.vectorPath); err != nil {
		return fmt.Errorf("failed to save vector index: %w", err)
	}
	return nil
}

// Close releases all stores. Safe on a partially opened app.
func (a *app) Close() {
	if a.embedder != nil {
		_ = a.embedder.Close()
	}
	if a.vectors != nil {
		_ = a.vectors.Close()
	}
	if a.keyword != nil {
		_ = a.keyword.Close()
	}
	if a.metadata != nil {
		_ = a.metadata.Close()
	}
}

func (a *app) closePartial() { a.Close() }
