package api

import (
	"errors"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/askdocco/askdoc/pkg/answer"
	"github.com/askdocco/askdoc/pkg/embeddings"
	"github.com/askdocco/askdoc/pkg/extract"
	"github.com/askdocco/askdoc/pkg/ingest"
	"github.com/askdocco/askdoc/pkg/retrieval"
	"github.com/askdocco/askdoc/pkg/storage"
	"github.com/askdocco/askdoc/pkg/vector"
)

// userHeader carries the caller's identity. Authentication is expected to
// sit in front of this service; the header is trusted as-is.
const userHeader = "X-User-ID"

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}

// DocumentResponse is the wire form of a document record.
type DocumentResponse struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
	ChunkCount  int    `json:"chunk_count"`
	Status      string `json:"status"`
	UploadedAt  string `json:"uploaded_at"`
}

// AskRequest is the question payload.
type AskRequest struct {
	Question string `json:"question"`
}

// AskResponse is the synthesized answer payload. Sources are document ids;
// SourceFilenames carries the matching display names.
type AskResponse struct {
	Answer          string   `json:"answer"`
	Sources         []string `json:"sources"`
	SourceFilenames []string `json:"source_filenames"`
	Confidence      float32  `json:"confidence"`
	NoContext       bool     `json:"no_context"`
	ResponseTimeMS  int64    `json:"response_time_ms"`
}

// QueryResponse is the wire form of a logged exchange.
type QueryResponse struct {
	ID             string   `json:"id"`
	Question       string   `json:"question"`
	Answer         string   `json:"answer"`
	Sources        []string `json:"sources"`
	Confidence     float32  `json:"confidence"`
	ResponseTimeMS int64    `json:"response_time_ms"`
	CreatedAt      string   `json:"created_at"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleHealth reports service liveness.
func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// handleUploadDocument ingests a multipart file upload for the caller.
func (s *Server) handleUploadDocument(c *fiber.Ctx) error {
	userID, ok := s.userID(c)
	if !ok {
		return missingUser(c)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "file field required"})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "failed to open uploaded file"})
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "failed to read uploaded file"})
	}

	fileType := strings.ToLower(strings.TrimPrefix(filepath.Ext(fileHeader.Filename), "."))

	doc, err := s.pipeline.Ingest(c.Context(), userID, fileHeader.Filename, fileType, data)
	if err != nil {
		return s.writeError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(documentResponse(doc))
}

// handleListDocuments lists the caller's documents, newest upload first.
func (s *Server) handleListDocuments(c *fiber.Ctx) error {
	userID, ok := s.userID(c)
	if !ok {
		return missingUser(c)
	}

	docs, err := s.store.ListDocuments(c.Context(), userID)
	if err != nil {
		return s.writeError(c, err)
	}

	out := make([]DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		out = append(out, documentResponse(doc))
	}

	return c.JSON(fiber.Map{
		"count":     len(out),
		"documents": out,
	})
}

// handleDeleteDocument removes one of the caller's documents.
func (s *Server) handleDeleteDocument(c *fiber.Ctx) error {
	userID, ok := s.userID(c)
	if !ok {
		return missingUser(c)
	}

	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "document id required"})
	}

	removed, err := s.consistency.DeleteDocument(c.Context(), userID, id)
	if err != nil {
		return s.writeError(c, err)
	}

	return c.JSON(fiber.Map{
		"deleted":        id,
		"chunks_removed": removed,
	})
}

// handleAsk answers a question from the caller's documents.
func (s *Server) handleAsk(c *fiber.Ctx) error {
	userID, ok := s.userID(c)
	if !ok {
		return missingUser(c)
	}

	var req AskRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	resp, err := s.qa.Ask(c.Context(), userID, req.Question)
	if err != nil {
		return s.writeError(c, err)
	}

	return c.JSON(AskResponse{
		Answer:          resp.Answer,
		Sources:         resp.Sources,
		SourceFilenames: resp.SourceFilenames,
		Confidence:      resp.Confidence,
		NoContext:       resp.NoContext,
		ResponseTimeMS:  resp.ResponseTimeMS,
	})
}

// handleListQueries returns the caller's query history, newest first.
func (s *Server) handleListQueries(c *fiber.Ctx) error {
	userID, ok := s.userID(c)
	if !ok {
		return missingUser(c)
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid limit"})
		}
		limit = n
	}

	records, err := s.qa.History(c.Context(), userID, limit)
	if err != nil {
		return s.writeError(c, err)
	}

	out := make([]QueryResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, QueryResponse{
			ID:             rec.ID,
			Question:       rec.Question,
			Answer:         rec.Answer,
			Sources:        rec.Sources,
			Confidence:     rec.Confidence,
			ResponseTimeMS: rec.ResponseTimeMS,
			CreatedAt:      rec.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	return c.JSON(fiber.Map{
		"count":   len(out),
		"queries": out,
	})
}

// handleStats returns aggregate counts for the caller.
func (s *Server) handleStats(c *fiber.Ctx) error {
	userID, ok := s.userID(c)
	if !ok {
		return missingUser(c)
	}

	stats, err := s.qa.Stats(c.Context(), userID)
	if err != nil {
		return s.writeError(c, err)
	}

	return c.JSON(fiber.Map{
		"document_count": stats.DocumentCount,
		"chunk_count":    stats.ChunkCount,
		"query_count":    stats.QueryCount,
	})
}

func (s *Server) userID(c *fiber.Ctx) (string, bool) {
	userID := strings.TrimSpace(c.Get(userHeader))
	return userID, userID != ""
}

func missingUser(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: userHeader + " header required"})
}

// writeError maps domain errors onto HTTP statuses.
func (s *Server) writeError(c *fiber.Ctx, err error) error {
	var notFound storage.ErrNotFound

	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, ingest.ErrFileTooLarge):
		status = fiber.StatusRequestEntityTooLarge
	case errors.Is(err, extract.ErrUnsupportedType),
		errors.Is(err, ingest.ErrEmptyDocument),
		errors.Is(err, ingest.ErrExtractionFailed),
		errors.Is(err, retrieval.ErrEmptyQuestion):
		status = fiber.StatusBadRequest
	case errors.As(err, &notFound):
		status = fiber.StatusNotFound
	case errors.Is(err, answer.ErrGenerationFailed),
		errors.Is(err, embeddings.ErrUnavailable),
		errors.Is(err, vector.ErrConnection):
		status = fiber.StatusBadGateway
	}

	if status == fiber.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	}

	return c.Status(status).JSON(ErrorResponse{Error: err.Error()})
}

func documentResponse(doc *storage.Document) DocumentResponse {
	return DocumentResponse{
		ID:          doc.ID,
		Filename:    doc.Filename,
		ContentType: doc.ContentType,
		SizeBytes:   doc.SizeBytes,
		ChunkCount:  doc.ChunkCount,
		Status:      string(doc.Status),
		UploadedAt:  doc.UploadedAt.UTC().Format(time.RFC3339),
	}
}
