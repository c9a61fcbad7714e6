// Package ingest turns uploaded files into indexed, queryable documents.
// The pipeline is all-or-nothing: either every chunk of a document is
// embedded and indexed and its metadata recorded, or nothing is kept.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/askdocco/askdoc/pkg/chunk"
	"github.com/askdocco/askdoc/pkg/doclock"
	"github.com/askdocco/askdoc/pkg/embeddings"
	"github.com/askdocco/askdoc/pkg/eventstream"
	"github.com/askdocco/askdoc/pkg/extract"
	"github.com/askdocco/askdoc/pkg/storage"
	"github.com/askdocco/askdoc/pkg/vector"
)

// ErrFileTooLarge is returned when an upload exceeds the configured ceiling.
var ErrFileTooLarge = errors.New("file exceeds size limit")

// ErrEmptyDocument is returned when the extracted text chunks to nothing.
var ErrEmptyDocument = errors.New("document contains no extractable text")

// ErrExtractionFailed is returned when a supported file type cannot be
// extracted, a corrupt PDF for example.
var ErrExtractionFailed = errors.New("text extraction failed")

// Config holds configuration for the ingestion pipeline.
type Config struct {
	// ChunkSize is the chunk window size in runes.
	ChunkSize int

	// ChunkOverlap is the rune overlap between consecutive chunks.
	ChunkOverlap int

	// MaxFileBytes is the upload size ceiling.
	MaxFileBytes int64

	// EmbedConcurrency bounds how many chunks embed in parallel.
	EmbedConcurrency int
}

// Pipeline ingests uploaded files end to end: extract, chunk, embed,
// index, record.
type Pipeline struct {
	cfg       Config
	registry  *extract.Registry
	chunker   *chunk.Chunker
	embedder  embeddings.Embedder
	index     vector.Index
	store     storage.Store
	locks     *doclock.Keyed
	publisher eventstream.Publisher
	logger    *zap.Logger
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(
	cfg Config,
	registry *extract.Registry,
	embedder embeddings.Embedder,
	index vector.Index,
	store storage.Store,
	locks *doclock.Keyed,
	publisher eventstream.Publisher,
	logger *zap.Logger,
) (*Pipeline, error) {
	chunker, err := chunk.New(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("configuring chunker: %w", err)
	}

	if cfg.EmbedConcurrency <= 0 {
		cfg.EmbedConcurrency = 4
	}

	return &Pipeline{
		cfg:       cfg,
		registry:  registry,
		chunker:   chunker,
		embedder:  embedder,
		index:     index,
		store:     store,
		locks:     locks,
		publisher: publisher,
		logger:    logger,
	}, nil
}

// Ingest processes one uploaded file for the user and returns the recorded
// document metadata. The file type comes from fileType ("txt", "pdf");
// unsupported types fail with extract.ErrUnsupportedType.
func (p *Pipeline) Ingest(ctx context.Context, userID, filename, fileType string, data []byte) (*storage.Document, error) {
	if p.cfg.MaxFileBytes > 0 && int64(len(data)) > p.cfg.MaxFileBytes {
		return nil, fmt.Errorf("%w: %d bytes (limit %d)", ErrFileTooLarge, len(data), p.cfg.MaxFileBytes)
	}

	text, err := p.registry.Extract(fileType, data)
	if err != nil {
		if errors.Is(err, extract.ErrUnsupportedType) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	chunks := p.chunker.Split(text)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyDocument, filename)
	}

	docID := uuid.New().String()

	// The id is freshly generated, so nothing else can hold this lock yet;
	// taking it keeps the vector and metadata writes inside the same
	// per-document critical section that deletion and reconcile use.
	unlock := p.locks.Lock(userID, docID)
	defer unlock()

	doc := &storage.Document{
		ID:          docID,
		UserID:      userID,
		Filename:    filename,
		ContentType: fileType,
		SizeBytes:   int64(len(data)),
		Status:      storage.StatusProcessing,
		UploadedAt:  time.Now().UTC(),
	}

	if err := p.store.CreateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("recording document metadata: %w", err)
	}

	records, err := p.embedChunks(ctx, userID, docID, chunks)
	if err != nil {
		p.rollback(ctx, userID, docID)
		return nil, err
	}

	if err := p.index.Insert(ctx, records); err != nil {
		p.rollback(ctx, userID, docID)
		return nil, fmt.Errorf("indexing chunks: %w", err)
	}

	if err := p.store.SetDocumentStatus(ctx, userID, docID, storage.StatusIngested, len(chunks)); err != nil {
		p.rollback(ctx, userID, docID)
		return nil, fmt.Errorf("finalizing document metadata: %w", err)
	}

	doc.Status = storage.StatusIngested
	doc.ChunkCount = len(chunks)

	p.publish(ctx, eventstream.EventTypeDocumentIngested, doc)

	p.logger.Info("document ingested",
		zap.String("user_id", userID),
		zap.String("document_id", docID),
		zap.String("filename", filename),
		zap.Int("chunks", len(chunks)),
	)

	return doc, nil
}

// rollback removes whatever an aborted ingestion left behind: any indexed
// vectors, then the processing metadata row. A row that cannot be removed
// is marked failed so a later reconcile sweep can take it.
func (p *Pipeline) rollback(ctx context.Context, userID, docID string) {
	if _, err := p.index.DeleteByDocument(ctx, userID, docID); err != nil {
		p.logger.Error("rollback of indexed chunks failed",
			zap.String("user_id", userID),
			zap.String("document_id", docID),
			zap.Error(err),
		)
	}

	if err := p.store.DeleteDocument(ctx, userID, docID); err != nil {
		p.logger.Error("rollback of document metadata failed",
			zap.String("user_id", userID),
			zap.String("document_id", docID),
			zap.Error(err),
		)
		if err := p.store.SetDocumentStatus(ctx, userID, docID, storage.StatusFailed, 0); err != nil {
			p.logger.Error("marking document failed",
				zap.String("user_id", userID),
				zap.String("document_id", docID),
				zap.Error(err),
			)
		}
	}
}

// embedChunks embeds every chunk with bounded concurrency. Any single
// failure aborts the batch; ordinals are preserved by writing results into
// a positional slice.
func (p *Pipeline) embedChunks(ctx context.Context, userID, docID string, chunks []chunk.Chunk) ([]vector.Record, error) {
	records := make([]vector.Record, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.EmbedConcurrency)

	for i, c := range chunks {
		g.Go(func() error {
			emb, err := p.embedder.Embed(gctx, c.Text)
			if err != nil {
				return fmt.Errorf("embedding chunk %d: %w", c.Ordinal, err)
			}

			records[i] = vector.Record{
				ChunkID:    fmt.Sprintf("%s:%d", docID, c.Ordinal),
				DocumentID: docID,
				UserID:     userID,
				Ordinal:    c.Ordinal,
				Text:       c.Text,
				Embedding:  emb,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return records, nil
}

// publish emits a lifecycle event. Event delivery is best-effort and never
// fails the operation that triggered it.
func (p *Pipeline) publish(ctx context.Context, eventType string, doc *storage.Document) {
	event := &eventstream.DocumentEvent{
		SchemaVersion: eventstream.SchemaVersionV1,
		EventType:     eventType,
		EventID:       uuid.New().String(),
		EmittedAt:     time.Now().UTC(),
		Document: eventstream.DocumentMeta{
			ID:         doc.ID,
			UserID:     doc.UserID,
			Filename:   doc.Filename,
			ChunkCount: doc.ChunkCount,
			SizeBytes:  doc.SizeBytes,
		},
	}

	if err := p.publisher.PublishDocument(ctx, event); err != nil {
		p.logger.Warn("failed to publish document event",
			zap.String("event_type", eventType),
			zap.String("document_id", doc.ID),
			zap.Error(err),
		)
	}
}
