// Package chroma provides a Chroma vector database implementation of
// vector.Index. Every user gets a dedicated collection, so similarity
// search is partitioned at the store level rather than filtered afterwards.
package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/askdocco/askdoc/pkg/vector"
)

const (
	// collectionPrefix prefixes the per-user collection names.
	collectionPrefix = "docs_"

	apiBase = "/api/v2/tenants/default_tenant/databases/default_database"
)

// Index implements vector.Index using Chroma's REST API.
type Index struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger

	mu sync.Mutex
	// collections caches collection ids by user id.
	collections map[string]string
}

// Config holds configuration for the Chroma index.
type Config struct {
	// URL is the Chroma server URL (e.g., "http://localhost:8000").
	URL string
}

// NewIndex creates a new Chroma vector index.
func NewIndex(c Config, logger *zap.Logger) (*Index, error) {
	if c.URL == "" {
		return nil, fmt.Errorf("chroma URL is required")
	}

	logger.Info("chroma vector index configured",
		zap.String("url", c.URL),
	)

	return &Index{
		baseURL: c.URL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger:      logger,
		collections: make(map[string]string),
	}, nil
}

// collectionID resolves (and caches) the collection id for a user,
// creating the collection when it does not exist yet.
func (x *Index) collectionID(ctx context.Context, userID string) (string, error) {
	x.mu.Lock()
	if id, ok := x.collections[userID]; ok {
		x.mu.Unlock()
		return id, nil
	}
	x.mu.Unlock()

	name := collectionPrefix + userID

	// Try to get the existing collection first
	url := fmt.Sprintf("%s%s/collections/%s", x.baseURL, apiBase, name)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return "", fmt.Errorf("creating get request: %w", err)
	}

	resp, err := x.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", vector.ErrConnection, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		var collection chromaCollection
		if err := json.NewDecoder(resp.Body).Decode(&collection); err != nil {
			return "", fmt.Errorf("decoding collection response: %w", err)
		}
		x.cache(userID, collection.ID)
		return collection.ID, nil
	}

	// Collection doesn't exist, create it
	createURL := fmt.Sprintf("%s%s/collections", x.baseURL, apiBase)
	createBody := map[string]any{
		"name":     name,
		"metadata": map[string]any{"hnsw:space": "cosine"},
	}
	jsonBody, err := json.Marshal(createBody)
	if err != nil {
		return "", fmt.Errorf("marshaling create request: %w", err)
	}

	req, err = http.NewRequestWithContext(ctx, "POST", createURL, bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("creating create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp2, err := x.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", vector.ErrConnection, err)
	}
	defer resp2.Body.Close()

	if resp2.StatusCode != http.StatusOK && resp2.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp2.Body)
		return "", fmt.Errorf("failed to create collection: status %d: %s", resp2.StatusCode, string(body))
	}

	var collection chromaCollection
	if err := json.NewDecoder(resp2.Body).Decode(&collection); err != nil {
		return "", fmt.Errorf("decoding create response: %w", err)
	}

	x.cache(userID, collection.ID)
	return collection.ID, nil
}

func (x *Index) cache(userID, collectionID string) {
	x.mu.Lock()
	x.collections[userID] = collectionID
	x.mu.Unlock()
}

// post sends a JSON POST to the collection-scoped path and decodes the
// response into out when out is non-nil.
func (x *Index) post(ctx context.Context, collectionID, action string, body, out any) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling %s request: %w", action, err)
	}

	url := fmt.Sprintf("%s%s/collections/%s/%s", x.baseURL, apiBase, collectionID, action)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("creating %s request: %w", action, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := x.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", vector.ErrConnection, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("chroma %s failed: status %d: %s", action, resp.StatusCode, string(respBody))
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", action, err)
	}

	return nil
}

// Insert stores records, rejecting duplicate chunk ids. Chroma upserts
// silently on add, so existing ids are checked first.
func (x *Index) Insert(ctx context.Context, records []vector.Record) error {
	if len(records) == 0 {
		return nil
	}

	// All records in a batch belong to one user partition.
	userID := records[0].UserID
	collectionID, err := x.collectionID(ctx, userID)
	if err != nil {
		return err
	}

	ids := make([]string, len(records))
	for i, rec := range records {
		ids[i] = rec.ChunkID
	}

	var existing chromaGetResponse
	if err := x.post(ctx, collectionID, "get", chromaGetRequest{IDs: ids}, &existing); err != nil {
		return err
	}
	if len(existing.IDs) > 0 {
		return fmt.Errorf("%w: chunk %s", vector.ErrDuplicateRecord, existing.IDs[0])
	}

	embeddings := make([][]float32, len(records))
	documents := make([]string, len(records))
	metadatas := make([]map[string]any, len(records))
	for i, rec := range records {
		embeddings[i] = rec.Embedding
		documents[i] = rec.Text
		metadatas[i] = map[string]any{
			"document_id": rec.DocumentID,
			"ordinal":     rec.Ordinal,
		}
	}

	if err := x.post(ctx, collectionID, "add", chromaAddRequest{
		IDs:        ids,
		Embeddings: embeddings,
		Documents:  documents,
		Metadatas:  metadatas,
	}, nil); err != nil {
		return err
	}

	x.logger.Debug("added records to chroma",
		zap.String("user_id", userID),
		zap.Int("count", len(records)),
	)

	return nil
}

// Query finds the topK most similar records within the user's collection.
func (x *Index) Query(ctx context.Context, userID string, embedding []float32, topK int) ([]vector.Match, error) {
	if topK <= 0 {
		topK = 10
	}

	collectionID, err := x.collectionID(ctx, userID)
	if err != nil {
		return nil, err
	}

	var queryResp chromaQueryResponse
	if err := x.post(ctx, collectionID, "query", chromaQueryRequest{
		QueryEmbeddings: [][]float32{embedding},
		NResults:        topK,
		Include:         []string{"metadatas", "distances", "documents"},
	}, &queryResp); err != nil {
		return nil, err
	}

	matches := []vector.Match{}

	// Process first group (we only query with one embedding)
	if len(queryResp.IDs) == 0 || len(queryResp.IDs[0]) == 0 {
		return matches, nil
	}

	ids := queryResp.IDs[0]
	distances := queryResp.Distances[0]

	var metadatas []map[string]any
	if len(queryResp.Metadatas) > 0 {
		metadatas = queryResp.Metadatas[0]
	}

	var documents []string
	if len(queryResp.Documents) > 0 {
		documents = queryResp.Documents[0]
	}

	for i, id := range ids {
		m := vector.Match{
			Record: vector.Record{
				ChunkID: id,
				UserID:  userID,
			},
		}

		if i < len(metadatas) && metadatas[i] != nil {
			if docID, ok := metadatas[i]["document_id"].(string); ok {
				m.DocumentID = docID
			}
			if ordinal, ok := metadatas[i]["ordinal"].(float64); ok {
				m.Ordinal = int(ordinal)
			}
		}

		if i < len(documents) {
			m.Text = documents[i]
		}

		// Convert distance to similarity score: lower distance = higher similarity
		if i < len(distances) {
			m.Score = 1.0 / (1.0 + distances[i])
		}

		matches = append(matches, m)
	}

	vector.SortMatches(matches)

	x.logger.Debug("queried chroma",
		zap.String("user_id", userID),
		zap.Int("results", len(matches)),
	)

	return matches, nil
}

// DeleteByDocument removes all of the document's records from the user's
// collection and returns the count removed.
func (x *Index) DeleteByDocument(ctx context.Context, userID, documentID string) (int, error) {
	collectionID, err := x.collectionID(ctx, userID)
	if err != nil {
		return 0, err
	}

	where := map[string]any{"document_id": documentID}

	var existing chromaGetResponse
	if err := x.post(ctx, collectionID, "get", chromaGetRequest{Where: where}, &existing); err != nil {
		return 0, err
	}

	if len(existing.IDs) == 0 {
		return 0, nil
	}

	if err := x.post(ctx, collectionID, "delete", chromaDeleteRequest{IDs: existing.IDs}, nil); err != nil {
		return 0, err
	}

	x.logger.Debug("deleted document records from chroma",
		zap.String("user_id", userID),
		zap.String("document_id", documentID),
		zap.Int("count", len(existing.IDs)),
	)

	return len(existing.IDs), nil
}

// CountByDocument returns the number of live records for the document.
func (x *Index) CountByDocument(ctx context.Context, userID, documentID string) (int, error) {
	collectionID, err := x.collectionID(ctx, userID)
	if err != nil {
		return 0, err
	}

	var existing chromaGetResponse
	if err := x.post(ctx, collectionID, "get", chromaGetRequest{
		Where: map[string]any{"document_id": documentID},
	}, &existing); err != nil {
		return 0, err
	}

	return len(existing.IDs), nil
}

// Close releases resources held by the index.
func (x *Index) Close() error {
	// HTTP client doesn't require explicit cleanup
	return nil
}

var _ vector.Index = (*Index)(nil)
