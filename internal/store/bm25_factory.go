package store

import (
	"fmt"
	"os"
)

// BM25Backend selects the keyword index implementation.
type BM25Backend string

const (
	// BM25BackendBleve uses Bleve v2 (default). Single process only;
	// BoltDB holds an exclusive lock on the index directory.
	BM25BackendBleve BM25Backend = "bleve"

	// BM25BackendSQLite uses SQLite FTS5 with WAL mode, which tolerates
	// a second reader process (the drop-folder watcher next to queries).
	BM25BackendSQLite BM25Backend = "sqlite"
)

// NewBM25IndexWithBackend creates a keyword index with the given
// backend. basePath has no extension; the backend appends its own
// (.bleve directory or .db file). An empty basePath is in-memory.
func NewBM25IndexWithBackend(basePath string, config BM25Config, backend string) (BM25Index, error) {
	switch backend {
	case string(BM25BackendBleve), "":
		var path string
		if basePath != "" {
			path = basePath + ".bleve"
		}
		return NewBleveBM25Index(path, config)

	case string(BM25BackendSQLite):
		var path string
		if basePath != "" {
			path = basePath + ".db"
		}
		return NewSQLiteBM25Index(path, config)

	default:
		return nil, fmt.Errorf("unknown BM25 backend: %s (valid options: bleve, sqlite)", backend)
	}
}

// DetectBM25Backend reports which backend an existing index at basePath
// was built with, or empty when none exists. Lets reopened indexes keep
// their original backend regardless of configuration changes.
func DetectBM25Backend(basePath string) BM25Backend {
	if info, err := os.Stat(basePath + ".bleve"); err == nil && info.IsDir() {
		return BM25BackendBleve
	}
	if info, err := os.Stat(basePath + ".db"); err == nil && !info.IsDir() {
		return BM25BackendSQLite
	}
	return ""
}
