// Package store is the persistence layer: passage metadata in SQLite,
// keyword search over Bleve or SQLite FTS5, and dense vectors in an
// in-process HNSW graph.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/fasa-labs/sopindex/internal/identity"
)

// State keys for the metadata key-value table.
const (
	// StateKeyIndexDimension records the embedding dimension the vector
	// store was built with. A differently-sized embedder must not write
	// into an existing index.
	StateKeyIndexDimension = "index_embedding_dimension"

	// StateKeyIndexModel records the embedding model name.
	StateKeyIndexModel = "index_embedding_model"
)

// Passage is the stored form of one retrievable unit. Status is the
// arbitration outcome for the revision the passage belongs to; it lives
// only here, never in the keyword or vector index, so a status flip is a
// single SQL update.
type Passage struct {
	ID             string
	Text           string // citation header + body, as indexed and embedded
	Body           string
	DocTitle       string
	DocNumber      string
	VersionRaw     string
	VersionNumeric float64
	SourceFilename string
	PageLabel      string
	SectionPath    string // breadcrumb joined with " > "
	Status         identity.Status
	PrevID         string
	NextID         string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// DocumentSummary is one logical document as seen by status listings.
type DocumentSummary struct {
	Title          string
	DocNumber      string
	VersionRaw     string
	Status         identity.Status
	SourceFilename string
	PassageCount   int
	UpdatedAt      time.Time
}

// MetadataStore persists passage metadata and arbitration state.
type MetadataStore interface {
	// Passage operations
	SavePassages(ctx context.Context, passages []*Passage) error
	GetPassage(ctx context.Context, id string) (*Passage, error)
	GetPassages(ctx context.Context, ids []string) ([]*Passage, error)
	DeletePassages(ctx context.Context, ids []string) error

	// Revision operations
	ActiveVersion(ctx context.Context, title, docNumber string) (*identity.ActiveVersion, error)
	UpdateStatusByFilter(ctx context.Context, f identity.RetireFilter, status identity.Status) (int64, error)
	IDsByTitleVersion(ctx context.Context, title, version string) ([]string, error)
	IDsByTitle(ctx context.Context, title string) ([]string, error)

	// Document operations
	HasFilename(ctx context.Context, filename string) (bool, error)
	ListDocuments(ctx context.Context) ([]*DocumentSummary, error)

	// State operations (key-value store for runtime state)
	GetState(ctx context.Context, key string) (string, error)
	SetState(ctx context.Context, key, value string) error

	// Lifecycle
	Close() error
}

// Document is a unit submitted to the keyword index.
type Document struct {
	ID      string
	Content string
}

// BM25Result is a single keyword search hit.
type BM25Result struct {
	DocID        string
	Score        float64
	MatchedTerms []string
}

// IndexStats summarizes a keyword index.
type IndexStats struct {
	DocumentCount int
}

// BM25Index provides keyword search with BM25 scoring. Query terms
// combine with OR semantics: any matching term qualifies a document,
// more matches score higher.
type BM25Index interface {
	Index(ctx context.Context, docs []*Document) error
	Search(ctx context.Context, query string, limit int) ([]*BM25Result, error)
	Delete(ctx context.Context, docIDs []string) error
	AllIDs() ([]string, error)
	Stats() *IndexStats
	Close() error
}

// BM25Config configures the keyword index.
type BM25Config struct {
	// StopWords are filtered out during tokenization.
	StopWords []string

	// MinTokenLength is the minimum token length to index.
	MinTokenLength int
}

// DefaultBM25Config returns the standard keyword index configuration.
func DefaultBM25Config() BM25Config {
	return BM25Config{
		StopWords:      DefaultStopWords,
		MinTokenLength: 2,
	}
}

// DefaultStopWords are high-frequency English words that carry no
// discriminative weight in procedure text.
var DefaultStopWords = []string{
	"a", "an", "and", "are", "as", "at", "be", "by", "for", "from",
	"in", "is", "it", "of", "on", "or", "shall", "that", "the",
	"this", "to", "was", "will", "with",
}

// VectorResult is a single dense search hit.
type VectorResult struct {
	ID       string
	Distance float32 // cosine distance, 0 identical to 2 opposite
	Score    float32 // normalized similarity 0-1
}

// VectorStoreConfig configures the vector store.
type VectorStoreConfig struct {
	// Dimensions is the embedding dimension; writes of any other size
	// are rejected.
	Dimensions int

	// M is the HNSW max connections per layer.
	M int

	// EfSearch is the HNSW query-time search width.
	EfSearch int
}

// DefaultVectorStoreConfig returns sensible HNSW defaults.
func DefaultVectorStoreConfig(dimensions int) VectorStoreConfig {
	return VectorStoreConfig{
		Dimensions: dimensions,
		M:          16,
		EfSearch:   64,
	}
}

// VectorStore provides semantic nearest-neighbor search.
type VectorStore interface {
	// Add inserts vectors with their IDs, replacing existing IDs.
	Add(ctx context.Context, ids []string, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error)
	Delete(ctx context.Context, ids []string) error
	Contains(id string) bool
	Count() int

	// Persistence
	Save(path string) error
	Load(path string) error
	Close() error
}

// ErrDimensionMismatch indicates a vector of the wrong size.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d (reingest with a matching embedder)", e.Expected, e.Got)
}
