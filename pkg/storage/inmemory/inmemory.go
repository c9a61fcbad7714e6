// Package inmemory provides an in-memory metadata store, used in tests and
// for throwaway single-process deployments.
package inmemory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/askdocco/askdoc/pkg/storage"
)

// Store implements storage.Store with in-process maps.
type Store struct {
	mu sync.RWMutex

	// documents maps userID -> docID -> document.
	documents map[string]map[string]*storage.Document

	// queries maps userID -> answer records in append order.
	queries map[string][]*storage.AnswerRecord
}

// NewStore creates a new in-memory metadata store.
func NewStore() *Store {
	return &Store{
		documents: make(map[string]map[string]*storage.Document),
		queries:   make(map[string][]*storage.AnswerRecord),
	}
}

// CreateDocument persists a new document record.
func (s *Store) CreateDocument(_ context.Context, doc *storage.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now().UTC()
	}

	if s.documents[doc.UserID] == nil {
		s.documents[doc.UserID] = make(map[string]*storage.Document)
	}

	cp := *doc
	s.documents[doc.UserID][doc.ID] = &cp
	return nil
}

// GetDocument retrieves a document owned by the user.
func (s *Store) GetDocument(_ context.Context, userID, id string) (*storage.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.documents[userID][id]
	if !ok {
		return nil, storage.ErrNotFound{Resource: "document", ID: id}
	}

	cp := *doc
	return &cp, nil
}

// ListDocuments returns the user's documents, newest upload first.
func (s *Store) ListDocuments(_ context.Context, userID string) ([]*storage.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := []*storage.Document{}
	for _, doc := range s.documents[userID] {
		cp := *doc
		docs = append(docs, &cp)
	}

	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].UploadedAt.Equal(docs[j].UploadedAt) {
			return docs[i].UploadedAt.After(docs[j].UploadedAt)
		}
		return docs[i].ID < docs[j].ID
	})

	return docs, nil
}

// SetDocumentStatus updates a document's status and chunk count.
func (s *Store) SetDocumentStatus(_ context.Context, userID, id string, status storage.DocumentStatus, chunkCount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.documents[userID][id]
	if !ok {
		return storage.ErrNotFound{Resource: "document", ID: id}
	}

	doc.Status = status
	doc.ChunkCount = chunkCount
	return nil
}

// DeleteDocument removes the user's document record.
func (s *Store) DeleteDocument(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.documents[userID][id]; !ok {
		return storage.ErrNotFound{Resource: "document", ID: id}
	}

	delete(s.documents[userID], id)
	return nil
}

// LogQuery appends an answer record to the user's query history.
func (s *Store) LogQuery(_ context.Context, rec *storage.AnswerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	cp := *rec
	cp.Sources = append([]string(nil), rec.Sources...)
	s.queries[rec.UserID] = append(s.queries[rec.UserID], &cp)
	return nil
}

// ListQueries returns the user's most recent answer records, newest first.
func (s *Store) ListQueries(_ context.Context, userID string, limit int) ([]*storage.AnswerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.queries[userID]
	records := make([]*storage.AnswerRecord, 0, len(stored))
	// Append order is chronological, so walk backwards for newest first.
	for i := len(stored) - 1; i >= 0; i-- {
		cp := *stored[i]
		cp.Sources = append([]string(nil), stored[i].Sources...)
		records = append(records, &cp)
		if limit > 0 && len(records) == limit {
			break
		}
	}

	return records, nil
}

// Stats returns aggregate counts for the user.
func (s *Store) Stats(_ context.Context, userID string) (*storage.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &storage.Stats{
		DocumentCount: len(s.documents[userID]),
		QueryCount:    len(s.queries[userID]),
	}
	for _, doc := range s.documents[userID] {
		stats.ChunkCount += doc.ChunkCount
	}

	return stats, nil
}

// Close releases any resources; a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}

var _ storage.Store = (*Store)(nil)
