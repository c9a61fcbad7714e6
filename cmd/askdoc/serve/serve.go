// Package servecmder provides the serve command running the HTTP API.
package servecmder

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/askdocco/askdoc/api"
	"github.com/askdocco/askdoc/cmd/askdoc/wiring"
	"github.com/askdocco/askdoc/pkg/answer"
	"github.com/askdocco/askdoc/pkg/config"
	"github.com/askdocco/askdoc/pkg/consistency"
	"github.com/askdocco/askdoc/pkg/doclock"
	embeddingutils "github.com/askdocco/askdoc/pkg/embeddings/utils"
	"github.com/askdocco/askdoc/pkg/eventstream"
	eskafka "github.com/askdocco/askdoc/pkg/eventstream/kafka"
	"github.com/askdocco/askdoc/pkg/eventstream/nop"
	"github.com/askdocco/askdoc/pkg/extract"
	"github.com/askdocco/askdoc/pkg/ingest"
	llmopenai "github.com/askdocco/askdoc/pkg/llm/openai"
	"github.com/askdocco/askdoc/pkg/logger"
	"github.com/askdocco/askdoc/pkg/qa"
	"github.com/askdocco/askdoc/pkg/retrieval"
)

type serveCommander struct {
	listen string
	debug  bool
	logger *zap.Logger
}

const serveLongDesc string = `Run the Askdoc HTTP API server.

The server exposes document upload, deletion, question answering, query
history and stats under /v1, with callers identified by the X-User-ID
header.`

const serveShortDesc string = "Run the Askdoc API server"

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}

			configDir, err := cmd.Flags().GetString("config")
			if err != nil {
				return fmt.Errorf("could not get config flag: %v", err)
			}

			return cmder.run(configDir)
		},
	}

	cmd.Flags().StringVarP(&cmder.listen, "listen", "l", "", "Address for API server to listen on (overrides config)")

	return cmd
}

func (c *serveCommander) run(configDir string) error {
	v, err := config.InitViper(configDir)
	if err != nil {
		return err
	}

	cfg, err := config.Load(v)
	if err != nil {
		return err
	}

	if c.listen != "" {
		cfg.API.Listen = c.listen
	}

	c.logger = logger.NewLogger(c.debug || cfg.Debug)
	defer c.logger.Sync()

	ctx := context.Background()

	store, err := wiring.NewStore(ctx, cfg, c.logger)
	if err != nil {
		return err
	}
	defer store.Close()

	index, err := wiring.NewIndex(cfg, c.logger)
	if err != nil {
		return err
	}
	defer index.Close()

	embedder, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: cfg.Embedding.Provider,
		TargetURL:    cfg.Embedding.Target,
		Model:        cfg.Embedding.Model,
		APIKey:       cfg.Embedding.APIKey,
		Timeout:      time.Duration(cfg.Embedding.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
	}
	defer embedder.Close()

	chatClient, err := llmopenai.NewClient(llmopenai.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
	}, c.logger)
	if err != nil {
		return fmt.Errorf("creating chat client: %w", err)
	}
	defer chatClient.Close()

	publisher, err := c.newPublisher(cfg)
	if err != nil {
		return err
	}
	defer publisher.Close()

	locks := doclock.NewKeyed()

	pipeline, err := ingest.NewPipeline(ingest.Config{
		ChunkSize:        cfg.Ingest.ChunkSize,
		ChunkOverlap:     cfg.Ingest.ChunkOverlap,
		MaxFileBytes:     cfg.Ingest.MaxFileBytes,
		EmbedConcurrency: cfg.Ingest.EmbedConcurrency,
	}, extract.DefaultRegistry(), embedder, index, store, locks, publisher, c.logger)
	if err != nil {
		return fmt.Errorf("creating ingestion pipeline: %w", err)
	}

	manager := consistency.NewManager(store, index, locks, publisher, c.logger)
	retriever := retrieval.NewEngine(retrieval.Config{
		TopK: cfg.Retrieval.TopK,
	}, embedder, index, c.logger)
	synth := answer.NewSynthesizer(answer.Config{
		ContextBudget:  cfg.Answer.ContextBudget,
		CallsPerMinute: cfg.LLM.CallsPerMinute,
		MaxAttempts:    cfg.LLM.MaxAttempts,
	}, chatClient, c.logger)
	qaService := qa.NewService(retriever, synth, store, c.logger)

	// Multipart overhead means uploads are slightly larger than the file
	// ceiling, so the body limit gets headroom.
	server := api.NewServer(api.Config{
		ListenAddr: cfg.API.Listen,
		BodyLimit:  int(cfg.Ingest.MaxFileBytes) + 1024*1024,
	}, pipeline, manager, qaService, store, c.logger)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		return server.Shutdown()
	}
}

func (c *serveCommander) newPublisher(cfg *config.Config) (eventstream.Publisher, error) {
	if !cfg.Events.Enabled {
		return nop.NewPublisher(), nil
	}

	publisher, err := eskafka.NewPublisher(eskafka.Config{
		Brokers: cfg.Events.KafkaBrokers,
		Topic:   cfg.Events.KafkaTopic,
	}, c.logger)
	if err != nil {
		return nil, fmt.Errorf("creating kafka publisher: %w", err)
	}

	return publisher, nil
}
