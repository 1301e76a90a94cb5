package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/rangerlabs/geocat/internal/catalog"
)

// DocumentStore persists full document records in SQLite so fused result IDs
// can be resolved back to displayable records, and answers the catalog
// analytics the CLI exposes (keyword frequencies, duplicate titles).
type DocumentStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	closed bool
}

// KeywordFrequency is one row of the keyword frequency analytics.
type KeywordFrequency struct {
	Keyword   string
	Frequency int
}

// DuplicateTitle is one group of documents sharing a title.
type DuplicateTitle struct {
	Title  string
	Count  int
	DocIDs []catalog.DocumentID
}

// NewDocumentStore opens (or creates) a document store at path.
// An empty path creates an in-memory store for testing.
func NewDocumentStore(path string) (*DocumentStore, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create directory: %w", err)
		}
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Single writer prevents lock contention; SQLite serializes writes anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// WAL must be set via PRAGMA for modernc.org/sqlite; DSN params are ignored.
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	s := &DocumentStore{db: db, path: path}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *DocumentStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		doc_id      TEXT PRIMARY KEY,
		position    INTEGER NOT NULL,
		title       TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		abstract    TEXT NOT NULL DEFAULT '',
		purpose     TEXT NOT NULL DEFAULT '',
		source      TEXT NOT NULL DEFAULT '',
		keywords    TEXT NOT NULL DEFAULT '[]',
		themes      TEXT NOT NULL DEFAULT '[]'
	);
	CREATE INDEX IF NOT EXISTS idx_documents_source ON documents(source);
	CREATE INDEX IF NOT EXISTS idx_documents_title ON documents(title);

	CREATE TABLE IF NOT EXISTS state (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// ReplaceAll swaps in a new corpus snapshot wholesale, inside one
// transaction. Positions record the corpus ordering for diagnostics; the
// corpus itself remains the authority for position mapping at query time.
func (s *DocumentStore) ReplaceAll(ctx context.Context, docs []catalog.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("document store is closed")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM documents"); err != nil {
		return fmt.Errorf("clear documents: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO documents (doc_id, position, title, description, abstract, purpose, source, keywords, themes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, d := range docs {
		keywords, err := json.Marshal(d.Keywords)
		if err != nil {
			return fmt.Errorf("marshal keywords for %s: %w", d.ID, err)
		}
		themes, err := json.Marshal(d.Themes)
		if err != nil {
			return fmt.Errorf("marshal themes for %s: %w", d.ID, err)
		}
		if _, err := stmt.ExecContext(ctx,
			string(d.ID), i, d.Title, d.Description, d.Abstract, d.Purpose, d.Source,
			string(keywords), string(themes)); err != nil {
			return fmt.Errorf("insert document %s: %w", d.ID, err)
		}
	}

	return tx.Commit()
}

// Get resolves one document by ID. Returns sql.ErrNoRows wrapped if absent.
func (s *DocumentStore) Get(ctx context.Context, id catalog.DocumentID) (*catalog.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("document store is closed")
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT doc_id, title, description, abstract, purpose, source, keywords, themes
		FROM documents WHERE doc_id = ?`, string(id))
	doc, err := scanDocument(row)
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", id, err)
	}
	return doc, nil
}

// GetBatch resolves documents by ID in a single query, preserving the input
// order. IDs with no record are silently omitted; the caller already treats
// unresolvable IDs with a count-and-continue policy.
func (s *DocumentStore) GetBatch(ctx context.Context, ids []catalog.DocumentID) ([]catalog.Document, error) {
	if len(ids) == 0 {
		return []catalog.Document{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("document store is closed")
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = string(id)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT doc_id, title, description, abstract, purpose, source, keywords, themes
		FROM documents WHERE doc_id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("batch get: %w", err)
	}
	defer rows.Close()

	byID := make(map[catalog.DocumentID]catalog.Document, len(ids))
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		byID[doc.ID] = *doc
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("batch get rows: %w", err)
	}

	docs := make([]catalog.Document, 0, len(ids))
	for _, id := range ids {
		if doc, ok := byID[id]; ok {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

// All returns every stored document in corpus position order, for
// rebuilding the in-memory corpus at startup.
func (s *DocumentStore) All(ctx context.Context) ([]catalog.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("document store is closed")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT doc_id, title, description, abstract, purpose, source, keywords, themes
		FROM documents ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("load all documents: %w", err)
	}
	defer rows.Close()

	var docs []catalog.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

// Count returns the number of stored documents.
func (s *DocumentStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, fmt.Errorf("document store is closed")
	}

	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents").Scan(&count); err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return count, nil
}

// Sources returns the distinct data source labels present in the store.
func (s *DocumentStore) Sources(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("document store is closed")
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT DISTINCT source FROM documents WHERE source != '' ORDER BY source")
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	var sources []string
	for rows.Next() {
		var src string
		if err := rows.Scan(&src); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

// KeywordFrequencies returns the topK most frequent keywords across all
// documents, optionally restricted to one data source.
func (s *DocumentStore) KeywordFrequencies(ctx context.Context, topK int, source string) ([]KeywordFrequency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("document store is closed")
	}
	if topK <= 0 {
		topK = 20
	}

	query := `
		SELECT j.value, COUNT(*) AS frequency
		FROM documents d, json_each(d.keywords) j
		WHERE j.value != ''`
	args := []any{}
	if source != "" {
		query += " AND d.source = ?"
		args = append(args, source)
	}
	query += `
		GROUP BY j.value
		ORDER BY frequency DESC, j.value
		LIMIT ?`
	args = append(args, topK)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("keyword frequencies: %w", err)
	}
	defer rows.Close()

	var freqs []KeywordFrequency
	for rows.Next() {
		var kf KeywordFrequency
		if err := rows.Scan(&kf.Keyword, &kf.Frequency); err != nil {
			return nil, fmt.Errorf("scan keyword frequency: %w", err)
		}
		freqs = append(freqs, kf)
	}
	return freqs, rows.Err()
}

// DuplicateTitles returns title groups occurring at least minOccurrences
// times, most duplicated first.
func (s *DocumentStore) DuplicateTitles(ctx context.Context, minOccurrences int) ([]DuplicateTitle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("document store is closed")
	}
	if minOccurrences < 2 {
		minOccurrences = 2
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT title, COUNT(*) AS cnt, group_concat(doc_id, ',')
		FROM documents
		WHERE title != ''
		GROUP BY title
		HAVING cnt >= ?
		ORDER BY cnt DESC, title`, minOccurrences)
	if err != nil {
		return nil, fmt.Errorf("duplicate titles: %w", err)
	}
	defer rows.Close()

	var dups []DuplicateTitle
	for rows.Next() {
		var dt DuplicateTitle
		var idsCSV string
		if err := rows.Scan(&dt.Title, &dt.Count, &idsCSV); err != nil {
			return nil, fmt.Errorf("scan duplicate title: %w", err)
		}
		for _, id := range strings.Split(idsCSV, ",") {
			dt.DocIDs = append(dt.DocIDs, catalog.DocumentID(id))
		}
		dups = append(dups, dt)
	}
	return dups, rows.Err()
}

// GetState reads a value from the key-value state table.
// Returns "" without error for missing keys.
func (s *DocumentStore) GetState(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return "", fmt.Errorf("document store is closed")
	}

	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM state WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get state %s: %w", key, err)
	}
	return value, nil
}

// SetState upserts a value into the key-value state table.
func (s *DocumentStore) SetState(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("document store is closed")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO state (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("set state %s: %w", key, err)
	}
	return nil
}

// Close closes the underlying database.
func (s *DocumentStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// scanner is the shared subset of sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (*catalog.Document, error) {
	var doc catalog.Document
	var id, keywords, themes string
	if err := row.Scan(&id, &doc.Title, &doc.Description, &doc.Abstract,
		&doc.Purpose, &doc.Source, &keywords, &themes); err != nil {
		return nil, err
	}
	doc.ID = catalog.DocumentID(id)
	if err := json.Unmarshal([]byte(keywords), &doc.Keywords); err != nil {
		return nil, fmt.Errorf("unmarshal keywords: %w", err)
	}
	if err := json.Unmarshal([]byte(themes), &doc.Themes); err != nil {
		return nil, fmt.Errorf("unmarshal themes: %w", err)
	}
	return &doc, nil
}
