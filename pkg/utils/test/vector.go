package testutils

import (
	"context"
	"fmt"

	"github.com/askdocco/askdoc/pkg/vector"
)

// MockVectorIndex is a test vector index backed by per-user maps
type MockVectorIndex struct {
	// Records holds inserted records by user id then chunk id
	Records map[string]map[string]vector.Record

	// Results, when set, is returned from Query filtered to the queried
	// user id and truncated to topK
	Results []vector.Match

	// InsertErr, QueryErr and DeleteErr force the corresponding call to fail
	InsertErr error
	QueryErr  error
	DeleteErr error
}

func NewMockVectorIndex() *MockVectorIndex {
	return &MockVectorIndex{
		Records: make(map[string]map[string]vector.Record),
	}
}

func (m *MockVectorIndex) Insert(_ context.Context, records []vector.Record) error {
	if m.InsertErr != nil {
		return m.InsertErr
	}

	for _, rec := range records {
		if m.Records[rec.UserID] == nil {
			m.Records[rec.UserID] = make(map[string]vector.Record)
		}
		if _, exists := m.Records[rec.UserID][rec.ChunkID]; exists {
			return fmt.Errorf("%w: chunk %s", vector.ErrDuplicateRecord, rec.ChunkID)
		}
		m.Records[rec.UserID][rec.ChunkID] = rec
	}

	return nil
}

func (m *MockVectorIndex) Query(_ context.Context, userID string, _ []float32, topK int) ([]vector.Match, error) {
	if m.QueryErr != nil {
		return nil, m.QueryErr
	}

	results := make([]vector.Match, 0, len(m.Results))
	for _, match := range m.Results {
		if match.UserID == userID {
			results = append(results, match)
		}
	}

	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}

	return results, nil
}

func (m *MockVectorIndex) DeleteByDocument(_ context.Context, userID, documentID string) (int, error) {
	if m.DeleteErr != nil {
		return 0, m.DeleteErr
	}

	removed := 0
	for chunkID, rec := range m.Records[userID] {
		if rec.DocumentID == documentID {
			delete(m.Records[userID], chunkID)
			removed++
		}
	}

	return removed, nil
}

func (m *MockVectorIndex) CountByDocument(_ context.Context, userID, documentID string) (int, error) {
	count := 0
	for _, rec := range m.Records[userID] {
		if rec.DocumentID == documentID {
			count++
		}
	}

	return count, nil
}

func (m *MockVectorIndex) Close() error {
	return nil
}
