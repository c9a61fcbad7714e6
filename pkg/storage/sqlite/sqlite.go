// Package sqlite provides a SQLite-backed metadata store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/askdocco/askdoc/pkg/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	filename TEXT NOT NULL,
	content_type TEXT NOT NULL,
	size_bytes INTEGER NOT NULL,
	chunk_count INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	uploaded_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_user ON documents(user_id, uploaded_at);

CREATE TABLE IF NOT EXISTS queries (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	question TEXT NOT NULL,
	answer TEXT NOT NULL,
	sources TEXT NOT NULL,
	confidence REAL NOT NULL,
	response_time_ms INTEGER NOT NULL,
	created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_queries_user ON queries(user_id, created_at);
`

// Store implements storage.Store using SQLite.
type Store struct {
	db *sql.DB
}

// NewStore creates a new SQLite-backed metadata store.
// The dbPath can be a file path or ":memory:" for an in-memory database.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite-specific pragmas
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// CreateDocument persists a new document record.
func (s *Store) CreateDocument(ctx context.Context, doc *storage.Document) error {
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents(id, user_id, filename, content_type, size_bytes, chunk_count, status, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.UserID, doc.Filename, doc.ContentType,
		doc.SizeBytes, doc.ChunkCount, string(doc.Status), doc.UploadedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting document: %w", err)
	}

	return nil
}

// GetDocument retrieves a document owned by the user.
func (s *Store) GetDocument(ctx context.Context, userID, id string) (*storage.Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, filename, content_type, size_bytes, chunk_count, status, uploaded_at
		FROM documents
		WHERE user_id = ? AND id = ?`,
		userID, id,
	)

	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound{Resource: "document", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("getting document: %w", err)
	}

	return doc, nil
}

// ListDocuments returns the user's documents, newest upload first.
func (s *Store) ListDocuments(ctx context.Context, userID string) ([]*storage.Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, filename, content_type, size_bytes, chunk_count, status, uploaded_at
		FROM documents
		WHERE user_id = ?
		ORDER BY uploaded_at DESC, id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	docs := []*storage.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}

	return docs, nil
}

// SetDocumentStatus updates a document's status and chunk count.
func (s *Store) SetDocumentStatus(ctx context.Context, userID, id string, status storage.DocumentStatus, chunkCount int) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE documents SET status = ?, chunk_count = ?
		WHERE user_id = ? AND id = ?`,
		string(status), chunkCount, userID, id,
	)
	if err != nil {
		return fmt.Errorf("updating document status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound{Resource: "document", ID: id}
	}

	return nil
}

// DeleteDocument removes the user's document record.
func (s *Store) DeleteDocument(ctx context.Context, userID, id string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE user_id = ? AND id = ?`,
		userID, id,
	)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound{Resource: "document", ID: id}
	}

	return nil
}

// LogQuery appends an answer record to the user's query history.
func (s *Store) LogQuery(ctx context.Context, rec *storage.AnswerRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	sources, err := json.Marshal(rec.Sources)
	if err != nil {
		return fmt.Errorf("marshaling sources: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO queries(id, user_id, question, answer, sources, confidence, response_time_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.UserID, rec.Question, rec.Answer,
		string(sources), rec.Confidence, rec.ResponseTimeMS, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting query record: %w", err)
	}

	return nil
}

// ListQueries returns the user's most recent answer records, newest first.
func (s *Store) ListQueries(ctx context.Context, userID string, limit int) ([]*storage.AnswerRecord, error) {
	query := `
		SELECT id, user_id, question, answer, sources, confidence, response_time_ms, created_at
		FROM queries
		WHERE user_id = ?
		ORDER BY created_at DESC, id`
	args := []any{userID}

	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing queries: %w", err)
	}
	defer rows.Close()

	records := []*storage.AnswerRecord{}
	for rows.Next() {
		var rec storage.AnswerRecord
		var sources string
		if err := rows.Scan(
			&rec.ID, &rec.UserID, &rec.Question, &rec.Answer,
			&sources, &rec.Confidence, &rec.ResponseTimeMS, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning query record: %w", err)
		}

		if err := json.Unmarshal([]byte(sources), &rec.Sources); err != nil {
			return nil, fmt.Errorf("unmarshaling sources: %w", err)
		}

		records = append(records, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating query records: %w", err)
	}

	return records, nil
}

// Stats returns aggregate counts for the user.
func (s *Store) Stats(ctx context.Context, userID string) (*storage.Stats, error) {
	stats := &storage.Stats{}

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(chunk_count), 0)
		FROM documents WHERE user_id = ?`,
		userID,
	).Scan(&stats.DocumentCount, &stats.ChunkCount)
	if err != nil {
		return nil, fmt.Errorf("counting documents: %w", err)
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM queries WHERE user_id = ?`,
		userID,
	).Scan(&stats.QueryCount)
	if err != nil {
		return nil, fmt.Errorf("counting queries: %w", err)
	}

	return stats, nil
}

// Close closes the store and releases any resources.
func (s *Store) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (*storage.Document, error) {
	var doc storage.Document
	var status string
	if err := row.Scan(
		&doc.ID, &doc.UserID, &doc.Filename, &doc.ContentType,
		&doc.SizeBytes, &doc.ChunkCount, &status, &doc.UploadedAt,
	); err != nil {
		return nil, err
	}

	doc.Status = storage.DocumentStatus(status)
	return &doc, nil
}

var _ storage.Store = (*Store)(nil)
