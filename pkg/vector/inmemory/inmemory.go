// Package inmemory provides a map-backed vector.Index used by tests and
// single-process local mode. Partitions are physically separate maps, so a
// query never even visits another user's records.
package inmemory

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/askdocco/askdoc/pkg/vector"
)

// Index implements vector.Index in memory.
type Index struct {
	mu sync.RWMutex

	// partitions maps user id to that user's records, keyed by chunk id.
	partitions map[string]map[string]vector.Record
}

// NewIndex creates an empty in-memory index.
func NewIndex() *Index {
	return &Index{
		partitions: make(map[string]map[string]vector.Record),
	}
}

// Insert stores records, rejecting duplicate chunk ids.
func (x *Index) Insert(_ context.Context, records []vector.Record) error {
	if len(records) == 0 {
		return nil
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	for _, rec := range records {
		part, ok := x.partitions[rec.UserID]
		if !ok {
			part = make(map[string]vector.Record)
			x.partitions[rec.UserID] = part
		}

		if _, exists := part[rec.ChunkID]; exists {
			return fmt.Errorf("%w: chunk %s", vector.ErrDuplicateRecord, rec.ChunkID)
		}
		part[rec.ChunkID] = rec
	}

	return nil
}

// Query ranks the user's records by cosine similarity to the embedding.
func (x *Index) Query(_ context.Context, userID string, embedding []float32, topK int) ([]vector.Match, error) {
	if topK <= 0 {
		topK = 10
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	part, ok := x.partitions[userID]
	if !ok {
		return []vector.Match{}, nil
	}

	matches := make([]vector.Match, 0, len(part))
	for _, rec := range part {
		distance := 1 - cosine(embedding, rec.Embedding)
		matches = append(matches, vector.Match{
			Record: rec,
			Score:  float32(1.0 / (1.0 + distance)),
		})
	}

	vector.SortMatches(matches)
	if len(matches) > topK {
		matches = matches[:topK]
	}

	return matches, nil
}

// DeleteByDocument removes the document's records from the user's partition.
func (x *Index) DeleteByDocument(_ context.Context, userID, documentID string) (int, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	part, ok := x.partitions[userID]
	if !ok {
		return 0, nil
	}

	removed := 0
	for chunkID, rec := range part {
		if rec.DocumentID == documentID {
			delete(part, chunkID)
			removed++
		}
	}

	return removed, nil
}

// CountByDocument returns the number of live records for the document.
func (x *Index) CountByDocument(_ context.Context, userID, documentID string) (int, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	count := 0
	for _, rec := range x.partitions[userID] {
		if rec.DocumentID == documentID {
			count++
		}
	}

	return count, nil
}

// Close is a no-op for the in-memory index.
func (x *Index) Close() error {
	return nil
}

// cosine returns the cosine similarity of two vectors, 0 when either has no
// magnitude or the dimensions disagree.
func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

var _ vector.Index = (*Index)(nil)
