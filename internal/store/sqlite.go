package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/fasa-labs/sopindex/internal/identity"
)

// SQLiteStore implements MetadataStore on SQLite. WAL mode allows
// concurrent readers while ingestion holds the single write connection.
type SQLiteStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	closed bool
}

var _ MetadataStore = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) the metadata database at path. An
// empty path opens an in-memory database for testing.
func NewSQLiteStore(path string, cacheMB int) (*SQLiteStore, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", filepath.Dir(path), err)
		}
		if err := validateSQLiteIntegrity(path, "passages"); err != nil {
			slog.Warn("metadata_db_corrupted",
				slog.String("path", path),
				slog.String("error", err.Error()))
			if removeErr := os.Remove(path); removeErr != nil && !os.IsNotExist(removeErr) {
				return nil, fmt.Errorf("metadata db corrupted at %s and cannot remove: %w (original error: %v)", path, removeErr, err)
			}
			_ = os.Remove(path + "-wal")
			_ = os.Remove(path + "-shm")
			slog.Info("metadata_db_cleared",
				slog.String("path", path),
				slog.String("reason", "corruption detected, please reingest"))
		}
		dsn = path + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single writer to prevent lock contention.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if cacheMB <= 0 {
		cacheMB = 64
	}
	// modernc.org/sqlite ignores some DSN params; set pragmas explicitly.
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		fmt.Sprintf("PRAGMA cache_size = -%d", cacheMB*1024),
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	s := &SQLiteStore{db: db, path: path}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// validateSQLiteIntegrity checks a SQLite database before opening it for
// writing. A missing file is fine; a corrupt one is reported.
func validateSQLiteIntegrity(path, requiredTable string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("cannot open for validation: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("database corrupted: %s", result)
	}

	var count int
	err = db.QueryRow(`SELECT COUNT(*) FROM sqlite_master
	                   WHERE type IN ('table','view') AND name=?`, requiredTable).Scan(&count)
	if err != nil {
		return fmt.Errorf("cannot query schema: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("table %q missing", requiredTable)
	}
	return nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS passages (
		id              TEXT PRIMARY KEY,
		doc_title       TEXT NOT NULL,
		doc_number      TEXT NOT NULL DEFAULT '',
		version_raw     TEXT NOT NULL,
		version_numeric REAL NOT NULL,
		source_filename TEXT NOT NULL,
		page_label      TEXT NOT NULL,
		section_path    TEXT NOT NULL,
		status          TEXT NOT NULL,
		body            TEXT NOT NULL,
		text            TEXT NOT NULL,
		prev_id         TEXT NOT NULL DEFAULT '',
		next_id         TEXT NOT NULL DEFAULT '',
		created_at      TIMESTAMP NOT NULL,
		updated_at      TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_passages_title    ON passages(doc_title);
	CREATE INDEX IF NOT EXISTS idx_passages_number   ON passages(doc_number);
	CREATE INDEX IF NOT EXISTS idx_passages_filename ON passages(source_filename);
	CREATE INDEX IF NOT EXISTS idx_passages_status   ON passages(status);

	CREATE TABLE IF NOT EXISTS state (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SavePassages upserts a batch in one transaction.
func (s *SQLiteStore) SavePassages(ctx context.Context, passages []*Passage) error {
	if len(passages) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("store is closed")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO passages
		(id, doc_title, doc_number, version_raw, version_numeric,
		 source_filename, page_label, section_path, status, body, text,
		 prev_id, next_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, p := range passages {
		created := p.CreatedAt
		if created.IsZero() {
			created = now
		}
		_, err := stmt.ExecContext(ctx,
			p.ID, p.DocTitle, p.DocNumber, p.VersionRaw, p.VersionNumeric,
			p.SourceFilename, p.PageLabel, p.SectionPath, string(p.Status),
			p.Body, p.Text, p.PrevID, p.NextID, created, now)
		if err != nil {
			return fmt.Errorf("failed to save passage %s: %w", p.ID, err)
		}
	}
	return tx.Commit()
}

const passageColumns = `id, doc_title, doc_number, version_raw, version_numeric,
	source_filename, page_label, section_path, status, body, text,
	prev_id, next_id, created_at, updated_at`

func scanPassage(row interface{ Scan(...any) error }) (*Passage, error) {
	var p Passage
	var status string
	err := row.Scan(&p.ID, &p.DocTitle, &p.DocNumber, &p.VersionRaw,
		&p.VersionNumeric, &p.SourceFilename, &p.PageLabel, &p.SectionPath,
		&status, &p.Body, &p.Text, &p.PrevID, &p.NextID,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Status = identity.Status(status)
	return &p, nil
}

// GetPassage returns a passage by ID, or nil when absent.
func (s *SQLiteStore) GetPassage(ctx context.Context, id string) (*Passage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+passageColumns+` FROM passages WHERE id = ?`, id)
	p, err := scanPassage(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get passage %s: %w", id, err)
	}
	return p, nil
}

// GetPassages batch-fetches passages; missing IDs are silently skipped.
// Result order follows the input order.
func (s *SQLiteStore) GetPassages(ctx context.Context, ids []string) ([]*Passage, error) {
	if len(ids) == 0 {
		return []*Passage{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	placeholders, args := inClause(ids)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+passageColumns+` FROM passages WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query passages: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]*Passage, len(ids))
	for rows.Next() {
		p, err := scanPassage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan passage: %w", err)
		}
		byID[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := make([]*Passage, 0, len(byID))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			result = append(result, p)
		}
	}
	return result, nil
}

// DeletePassages removes passages by ID.
func (s *SQLiteStore) DeletePassages(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("store is closed")
	}

	placeholders, args := inClause(ids)
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM passages WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return fmt.Errorf("failed to delete passages: %w", err)
	}
	return nil
}

// ActiveVersion returns the Active revision for an arbitration key, or
// nil when none exists. A non-empty docNumber is the preferred key;
// title is the fallback.
func (s *SQLiteStore) ActiveVersion(ctx context.Context, title, docNumber string) (*identity.ActiveVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	if docNumber != "" {
		v, err := s.activeVersionWhere(ctx, "doc_number = ?", docNumber)
		if err != nil || v != nil {
			return v, err
		}
	}
	return s.activeVersionWhere(ctx, "doc_title = ?", title)
}

func (s *SQLiteStore) activeVersionWhere(ctx context.Context, cond string, arg any) (*identity.ActiveVersion, error) {
	var v identity.ActiveVersion
	err := s.db.QueryRowContext(ctx,
		`SELECT version_raw, version_numeric FROM passages
		 WHERE status = ? AND `+cond+`
		 ORDER BY version_numeric DESC LIMIT 1`,
		string(identity.StatusActive), arg).Scan(&v.VersionRaw, &v.VersionNumeric)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query active version: %w", err)
	}
	return &v, nil
}

// UpdateStatusByFilter flips the status of every passage matching the
// retire filter, except those on KeepVersion. Metadata only: the keyword
// and vector indexes are untouched. Returns the number of rows changed.
func (s *SQLiteStore) UpdateStatusByFilter(ctx context.Context, f identity.RetireFilter, status identity.Status) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, fmt.Errorf("store is closed")
	}

	cond := "doc_title = ?"
	args := []any{string(status), time.Now().UTC(), f.Title}
	if f.DocNumber != "" {
		cond = "(doc_title = ? OR doc_number = ?)"
		args = append(args, f.DocNumber)
	}
	args = append(args, f.KeepVersion, string(status))

	res, err := s.db.ExecContext(ctx,
		`UPDATE passages SET status = ?, updated_at = ?
		 WHERE `+cond+` AND version_raw != ? AND status != ?`, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to update status: %w", err)
	}
	return res.RowsAffected()
}

// IDsByTitleVersion returns the passage IDs of one revision.
func (s *SQLiteStore) IDsByTitleVersion(ctx context.Context, title, version string) ([]string, error) {
	return s.queryIDs(ctx,
		`SELECT id FROM passages WHERE doc_title = ? AND version_raw = ?`,
		title, version)
}

// IDsByTitle returns the passage IDs of every revision of a document.
func (s *SQLiteStore) IDsByTitle(ctx context.Context, title string) ([]string, error) {
	return s.queryIDs(ctx, `SELECT id FROM passages WHERE doc_title = ?`, title)
}

func (s *SQLiteStore) queryIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query IDs: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan ID: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// HasFilename reports whether any passage came from the given source
// filename. Used to skip already-ingested files on resume.
func (s *SQLiteStore) HasFilename(ctx context.Context, filename string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false, fmt.Errorf("store is closed")
	}

	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM passages WHERE source_filename = ? LIMIT 1`,
		filename).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check filename: %w", err)
	}
	return count > 0, nil
}

// ListDocuments returns one summary per (title, version), Active first,
// then alphabetically.
func (s *SQLiteStore) ListDocuments(ctx context.Context) ([]*DocumentSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT doc_title, doc_number, version_raw, status,
		       MIN(source_filename), COUNT(*), MAX(updated_at)
		FROM passages
		GROUP BY doc_title, version_raw, status
		ORDER BY status ASC, doc_title ASC, version_numeric DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	docs := []*DocumentSummary{}
	for rows.Next() {
		var d DocumentSummary
		var status string
		if err := rows.Scan(&d.Title, &d.DocNumber, &d.VersionRaw, &status,
			&d.SourceFilename, &d.PassageCount, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		d.Status = identity.Status(status)
		docs = append(docs, &d)
	}
	return docs, rows.Err()
}

// GetState reads a runtime state value; empty string when unset.
func (s *SQLiteStore) GetState(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return "", fmt.Errorf("store is closed")
	}

	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM state WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get state %s: %w", key, err)
	}
	return value, nil
}

// SetState writes a runtime state value.
func (s *SQLiteStore) SetState(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("store is closed")
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO state (key, value) VALUES (?, ?)`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set state %s: %w", key, err)
	}
	return nil
}

// Close checkpoints the WAL and closes the database. Idempotent.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.db != nil {
		_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		return s.db.Close()
	}
	return nil
}

func inClause(ids []string) (string, []any) {
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	return strings.Join(placeholders, ","), args
}
