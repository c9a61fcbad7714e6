// Package retrieval finds the chunks most relevant to a question within a
// single user's corpus.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/askdocco/askdoc/pkg/embeddings"
	"github.com/askdocco/askdoc/pkg/vector"
)

// ErrEmptyQuestion is returned when a question is blank.
var ErrEmptyQuestion = errors.New("question is empty")

// Config holds configuration for the retrieval engine.
type Config struct {
	// TopK is how many chunks a retrieval returns at most.
	TopK int
}

// Engine embeds questions and queries the vector index.
type Engine struct {
	cfg      Config
	embedder embeddings.Embedder
	index    vector.Index
	logger   *zap.Logger
}

// NewEngine creates a new retrieval engine.
func NewEngine(cfg Config, embedder embeddings.Embedder, index vector.Index, logger *zap.Logger) *Engine {
	if cfg.TopK <= 0 {
		cfg.TopK = 3
	}

	return &Engine{
		cfg:      cfg,
		embedder: embedder,
		index:    index,
		logger:   logger,
	}
}

// Retrieve returns up to TopK matches for the question within the user's
// partition, best first. An empty result means the user has no relevant
// content; callers decide how to answer without context.
func (e *Engine) Retrieve(ctx context.Context, userID, question string) ([]vector.Match, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ErrEmptyQuestion
	}

	embedding, err := e.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embedding question: %w", err)
	}

	matches, err := e.index.Query(ctx, userID, embedding, e.cfg.TopK)
	if err != nil {
		return nil, fmt.Errorf("querying index: %w", err)
	}

	// Index backends already rank, but re-sorting keeps ordering rules in
	// one place regardless of backend.
	vector.SortMatches(matches)

	e.logger.Debug("retrieved context",
		zap.String("user_id", userID),
		zap.Int("matches", len(matches)),
	)

	return matches, nil
}
