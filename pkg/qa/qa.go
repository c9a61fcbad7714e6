// Package qa answers user questions over their ingested documents and keeps
// the query history.
package qa

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/askdocco/askdoc/pkg/answer"
	"github.com/askdocco/askdoc/pkg/retrieval"
	"github.com/askdocco/askdoc/pkg/storage"
)

// Response is a completed question/answer exchange.
type Response struct {
	// ID identifies the logged answer record.
	ID string

	// Answer is the response text.
	Answer string

	// Sources lists the ids of the documents the answer drew on, in order
	// of first appearance in the prompt.
	Sources []string

	// SourceFilenames carries the filename for each entry in Sources, with
	// the id as a fallback when the document has since been deleted.
	SourceFilenames []string

	// Confidence is the mean similarity of the chunks used, in [0, 1].
	Confidence float32

	// NoContext marks an answer produced without any retrieved chunks.
	NoContext bool

	// ResponseTimeMS is the total time spent answering.
	ResponseTimeMS int64
}

// Service answers questions and records every exchange, failed ones
// included, in the query history.
type Service struct {
	retriever *retrieval.Engine
	synth     *answer.Synthesizer
	store     storage.Store
	logger    *zap.Logger
}

// NewService creates a new question answering service.
func NewService(retriever *retrieval.Engine, synth *answer.Synthesizer, store storage.Store, logger *zap.Logger) *Service {
	return &Service{
		retriever: retriever,
		synth:     synth,
		store:     store,
		logger:    logger,
	}
}

// Ask answers the question from the user's corpus. Blank questions fail
// with retrieval.ErrEmptyQuestion before anything is logged; every other
// outcome, failures included, lands in the query history.
func (s *Service) Ask(ctx context.Context, userID, question string) (*Response, error) {
	start := time.Now()

	matches, err := s.retriever.Retrieve(ctx, userID, question)
	if err != nil {
		if errors.Is(err, retrieval.ErrEmptyQuestion) {
			return nil, err
		}
		s.record(ctx, userID, question, "", nil, 0, start)
		return nil, fmt.Errorf("retrieving context: %w", err)
	}

	result, err := s.synth.Synthesize(ctx, question, matches)
	if err != nil {
		s.record(ctx, userID, question, "", nil, 0, start)
		return nil, err
	}

	rec := s.record(ctx, userID, question, result.Answer, result.Sources, result.Confidence, start)

	s.logger.Info("question answered",
		zap.String("user_id", userID),
		zap.Bool("no_context", result.NoContext),
		zap.Float32("confidence", result.Confidence),
		zap.Int64("response_time_ms", rec.ResponseTimeMS),
	)

	return &Response{
		ID:              rec.ID,
		Answer:          result.Answer,
		Sources:         rec.Sources,
		SourceFilenames: s.resolveSources(ctx, userID, result.Sources),
		Confidence:      result.Confidence,
		NoContext:       result.NoContext,
		ResponseTimeMS:  rec.ResponseTimeMS,
	}, nil
}

// History returns the user's most recent exchanges, newest first.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]*storage.AnswerRecord, error) {
	return s.store.ListQueries(ctx, userID, limit)
}

// Stats returns aggregate corpus and activity counts for the user.
func (s *Service) Stats(ctx context.Context, userID string) (*storage.Stats, error) {
	return s.store.Stats(ctx, userID)
}

// resolveSources maps document ids to filenames. A document deleted since
// retrieval falls back to its id.
func (s *Service) resolveSources(ctx context.Context, userID string, docIDs []string) []string {
	filenames := make([]string, 0, len(docIDs))
	for _, id := range docIDs {
		doc, err := s.store.GetDocument(ctx, userID, id)
		if err != nil {
			filenames = append(filenames, id)
			continue
		}
		filenames = append(filenames, doc.Filename)
	}
	return filenames
}

// record logs the exchange. Logging failures are reported but never fail
// the answer itself.
func (s *Service) record(ctx context.Context, userID, question, answerText string, sources []string, confidence float32, start time.Time) *storage.AnswerRecord {
	if sources == nil {
		sources = []string{}
	}

	rec := &storage.AnswerRecord{
		ID:             uuid.New().String(),
		UserID:         userID,
		Question:       question,
		Answer:         answerText,
		Sources:        sources,
		Confidence:     confidence,
		ResponseTimeMS: time.Since(start).Milliseconds(),
		CreatedAt:      time.Now().UTC(),
	}

	if err := s.store.LogQuery(ctx, rec); err != nil {
		s.logger.Error("failed to log query",
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}

	return rec
}
