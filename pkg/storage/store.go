// Package storage defines the metadata store for documents and query history.
// The Store is the system of record for what a user has uploaded and asked;
// chunk text and embeddings live in the vector index, not here.
package storage

import (
	"context"
	"time"
)

// DocumentStatus tracks where a document is in its ingestion lifecycle.
type DocumentStatus string

const (
	// StatusProcessing means ingestion has started but not finished.
	StatusProcessing DocumentStatus = "processing"

	// StatusIngested means all chunks were embedded and indexed.
	StatusIngested DocumentStatus = "ingested"

	// StatusFailed means ingestion aborted and no vectors were kept.
	StatusFailed DocumentStatus = "failed"
)

// Document is the metadata record for an uploaded document.
type Document struct {
	ID          string
	UserID      string
	Filename    string
	ContentType string
	SizeBytes   int64
	ChunkCount  int
	Status      DocumentStatus
	UploadedAt  time.Time
}

// AnswerRecord is one logged question/answer exchange, including failed
// and no-context outcomes.
type AnswerRecord struct {
	ID             string
	UserID         string
	Question       string
	Answer         string
	Sources        []string
	Confidence     float32
	ResponseTimeMS int64
	CreatedAt      time.Time
}

// Stats summarizes a user's corpus and activity.
type Stats struct {
	DocumentCount int
	ChunkCount    int
	QueryCount    int
}

// Store defines the interface for persisting document metadata and query
// history. Every read and write is scoped to a user; one user can never
// observe or mutate another user's rows.
type Store interface {
	// CreateDocument persists a new document record.
	CreateDocument(ctx context.Context, doc *Document) error

	// GetDocument retrieves a document owned by the user. A document that
	// does not exist or belongs to another user yields ErrNotFound.
	GetDocument(ctx context.Context, userID, id string) (*Document, error)

	// ListDocuments returns the user's documents, newest upload first.
	ListDocuments(ctx context.Context, userID string) ([]*Document, error)

	// SetDocumentStatus updates a document's status and chunk count.
	SetDocumentStatus(ctx context.Context, userID, id string, status DocumentStatus, chunkCount int) error

	// DeleteDocument removes the user's document record. Deleting a document
	// that does not exist yields ErrNotFound.
	DeleteDocument(ctx context.Context, userID, id string) error

	// LogQuery appends an answer record to the user's query history.
	LogQuery(ctx context.Context, rec *AnswerRecord) error

	// ListQueries returns up to limit of the user's most recent answer
	// records, newest first. limit <= 0 means no limit.
	ListQueries(ctx context.Context, userID string, limit int) ([]*AnswerRecord, error)

	// Stats returns aggregate counts for the user.
	Stats(ctx context.Context, userID string) (*Stats, error)

	// Close closes the store and releases any resources.
	Close() error
}
