// Package consistency keeps the metadata store and the vector index
// agreeing about which documents exist.
//
// Deletion removes vectors before metadata, so a crash can only ever leave
// a metadata row whose vectors are gone. Ingestion records a processing row
// before indexing and marks it ingested last, so a crash there leaves a row
// that never finalized. Reconcile sweeps both kinds. The opposite orphan,
// vectors without metadata, is unreachable through this package.
package consistency

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/askdocco/askdoc/pkg/doclock"
	"github.com/askdocco/askdoc/pkg/eventstream"
	"github.com/askdocco/askdoc/pkg/storage"
	"github.com/askdocco/askdoc/pkg/vector"
)

// Manager coordinates multi-store document deletion and repair.
type Manager struct {
	store     storage.Store
	index     vector.Index
	locks     *doclock.Keyed
	publisher eventstream.Publisher
	logger    *zap.Logger
}

// NewManager creates a new consistency manager.
func NewManager(
	store storage.Store,
	index vector.Index,
	locks *doclock.Keyed,
	publisher eventstream.Publisher,
	logger *zap.Logger,
) *Manager {
	return &Manager{
		store:     store,
		index:     index,
		locks:     locks,
		publisher: publisher,
		logger:    logger,
	}
}

// DeleteDocument removes a document's vectors and then its metadata,
// returning the number of vector records removed. A document that does
// not exist, or belongs to another user, yields storage.ErrNotFound.
func (m *Manager) DeleteDocument(ctx context.Context, userID, documentID string) (int, error) {
	unlock := m.locks.Lock(userID, documentID)
	defer unlock()

	doc, err := m.store.GetDocument(ctx, userID, documentID)
	if err != nil {
		return 0, err
	}

	removed, err := m.index.DeleteByDocument(ctx, userID, documentID)
	if err != nil {
		return 0, fmt.Errorf("deleting vectors: %w", err)
	}

	if err := m.store.DeleteDocument(ctx, userID, documentID); err != nil {
		// Vectors are already gone; the row is now dangling and Reconcile
		// will remove it on the next sweep.
		return removed, fmt.Errorf("deleting metadata after removing %d vectors: %w", removed, err)
	}

	m.publishDeleted(ctx, doc, removed)

	m.logger.Info("document deleted",
		zap.String("user_id", userID),
		zap.String("document_id", documentID),
		zap.Int("vectors_removed", removed),
	)

	return removed, nil
}

// Reconcile removes metadata rows whose vectors no longer exist and
// returns the ids of the documents it repaired.
func (m *Manager) Reconcile(ctx context.Context, userID string) ([]string, error) {
	docs, err := m.store.ListDocuments(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}

	repaired := []string{}
	for _, doc := range docs {
		ids, err := m.reconcileDocument(ctx, userID, doc)
		if err != nil {
			return repaired, err
		}
		repaired = append(repaired, ids...)
	}

	return repaired, nil
}

func (m *Manager) reconcileDocument(ctx context.Context, userID string, doc *storage.Document) ([]string, error) {
	unlock := m.locks.Lock(userID, doc.ID)
	defer unlock()

	// A row never marked ingested is a crashed or failed ingestion; remove
	// it along with any vectors the aborted run managed to index.
	if doc.Status != storage.StatusIngested {
		if _, err := m.index.DeleteByDocument(ctx, userID, doc.ID); err != nil {
			return nil, fmt.Errorf("deleting vectors for %s: %w", doc.ID, err)
		}
		if err := m.store.DeleteDocument(ctx, userID, doc.ID); err != nil {
			return nil, fmt.Errorf("removing unfinalized metadata for %s: %w", doc.ID, err)
		}

		m.logger.Warn("removed unfinalized document metadata",
			zap.String("user_id", userID),
			zap.String("document_id", doc.ID),
			zap.String("status", string(doc.Status)),
		)

		return []string{doc.ID}, nil
	}

	// An ingested document with no recorded chunks never had vectors to lose.
	if doc.ChunkCount == 0 {
		return nil, nil
	}

	count, err := m.index.CountByDocument(ctx, userID, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("counting vectors for %s: %w", doc.ID, err)
	}
	if count > 0 {
		return nil, nil
	}

	if err := m.store.DeleteDocument(ctx, userID, doc.ID); err != nil {
		return nil, fmt.Errorf("removing dangling metadata for %s: %w", doc.ID, err)
	}

	m.logger.Warn("removed dangling document metadata",
		zap.String("user_id", userID),
		zap.String("document_id", doc.ID),
	)

	return []string{doc.ID}, nil
}

// publishDeleted emits a deleted event. Delivery is best-effort.
func (m *Manager) publishDeleted(ctx context.Context, doc *storage.Document, removed int) {
	event := &eventstream.DocumentEvent{
		SchemaVersion: eventstream.SchemaVersionV1,
		EventType:     eventstream.EventTypeDocumentDeleted,
		EventID:       uuid.New().String(),
		EmittedAt:     time.Now().UTC(),
		Document: eventstream.DocumentMeta{
			ID:         doc.ID,
			UserID:     doc.UserID,
			Filename:   doc.Filename,
			ChunkCount: removed,
		},
	}

	if err := m.publisher.PublishDocument(ctx, event); err != nil {
		m.logger.Warn("failed to publish document event",
			zap.String("event_type", eventstream.EventTypeDocumentDeleted),
			zap.String("document_id", doc.ID),
			zap.Error(err),
		)
	}
}
