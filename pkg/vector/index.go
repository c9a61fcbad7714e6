// Package vector provides interfaces and implementations for per-user
// partitioned vector storage and similarity search.
package vector

import (
	"context"
	"sort"
)

// Record is the persisted form of a document chunk in the vector index:
// the embedding plus the back-references and text needed to assemble
// answer context without a second lookup.
type Record struct {
	// ChunkID uniquely identifies the chunk across the index.
	ChunkID string

	// DocumentID is the parent document.
	DocumentID string

	// UserID is the owning user; it names the partition the record lives in.
	UserID string

	// Ordinal is the chunk's position within its document.
	Ordinal int

	// Text is the chunk payload used for context assembly.
	Text string

	// Embedding is the vector representation of Text.
	Embedding []float32
}

// Match is a search result with its similarity score (higher = more similar).
type Match struct {
	Record

	Score float32
}

// Index handles storage and retrieval of chunk embeddings. Every operation
// is scoped to a single user partition; a query can never observe another
// user's records.
type Index interface {
	// Insert stores records. Inserting a chunk id that already exists fails
	// with ErrDuplicateRecord rather than silently overwriting.
	Insert(ctx context.Context, records []Record) error

	// Query finds the topK most similar records within the user's partition,
	// ranked by descending similarity. An empty partition yields an empty
	// result, not an error.
	Query(ctx context.Context, userID string, embedding []float32, topK int) ([]Match, error)

	// DeleteByDocument removes all records for the document within the
	// user's partition and returns the count removed. Deleting an absent
	// document returns 0, not an error.
	DeleteByDocument(ctx context.Context, userID, documentID string) (int, error)

	// CountByDocument returns the number of live records for the document
	// within the user's partition. Used by reconciliation.
	CountByDocument(ctx context.Context, userID, documentID string) (int, error)

	// Close releases any resources held by the index.
	Close() error
}

// SortMatches orders matches by descending score, breaking ties by lower
// ordinal then lexical chunk id so rankings are reproducible across runs.
func SortMatches(matches []Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		if matches[i].Ordinal != matches[j].Ordinal {
			return matches[i].Ordinal < matches[j].Ordinal
		}
		return matches[i].ChunkID < matches[j].ChunkID
	})
}
