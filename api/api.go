// Package api exposes the document QA system over HTTP.
package api

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/askdocco/askdoc/pkg/consistency"
	"github.com/askdocco/askdoc/pkg/ingest"
	"github.com/askdocco/askdoc/pkg/qa"
	"github.com/askdocco/askdoc/pkg/storage"
)

// Config holds API server settings.
type Config struct {
	// ListenAddr is the address the server binds to.
	ListenAddr string

	// BodyLimit caps request body size in bytes. Zero keeps fiber's default.
	BodyLimit int
}

// Server is the API server for ingesting, managing and querying documents.
type Server struct {
	config      Config
	pipeline    *ingest.Pipeline
	consistency *consistency.Manager
	qa          *qa.Service
	store       storage.Store
	logger      *zap.Logger
	app         *fiber.App
}

// NewServer creates a new API server. The collaborators are injected so
// the same pipeline and stores can be shared with other entry points.
func NewServer(
	config Config,
	pipeline *ingest.Pipeline,
	manager *consistency.Manager,
	qaService *qa.Service,
	store storage.Store,
	logger *zap.Logger,
) *Server {
	fiberConfig := fiber.Config{
		DisableStartupMessage: true,
	}
	if config.BodyLimit > 0 {
		fiberConfig.BodyLimit = config.BodyLimit
	}

	app := fiber.New(fiberConfig)

	s := &Server{
		config:      config,
		pipeline:    pipeline,
		consistency: manager,
		qa:          qaService,
		store:       store,
		logger:      logger,
		app:         app,
	}

	app.Get("/ping", s.handlePing)
	app.Get("/v1/health", s.handleHealth)
	app.Post("/v1/documents", s.handleUploadDocument)
	app.Get("/v1/documents", s.handleListDocuments)
	app.Delete("/v1/documents/:id", s.handleDeleteDocument)
	app.Post("/v1/ask", s.handleAsk)
	app.Get("/v1/queries", s.handleListQueries)
	app.Get("/v1/stats", s.handleStats)

	return s
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		zap.String("listen", s.config.ListenAddr),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
