// Package embeddings
package embeddings

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when the underlying embedding model cannot be
// reached or produces no output. Enclosing operations treat it as fatal.
var ErrUnavailable = errors.New("embedding model unavailable")

// Embedder provides text embedding capabilities.
type Embedder interface {
	// Embed converts text into a vector embedding. It must succeed for
	// arbitrarily short input; identical input yields an identical vector
	// for a given model version.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Close releases any resources held by the embedder.
	Close() error
}
