// Package wiring builds the storage and vector backends the commands share.
package wiring

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/askdocco/askdoc/pkg/config"
	"github.com/askdocco/askdoc/pkg/storage"
	storagememory "github.com/askdocco/askdoc/pkg/storage/inmemory"
	"github.com/askdocco/askdoc/pkg/storage/postgres"
	"github.com/askdocco/askdoc/pkg/storage/sqlite"
	"github.com/askdocco/askdoc/pkg/vector"
	"github.com/askdocco/askdoc/pkg/vector/chroma"
	vectormemory "github.com/askdocco/askdoc/pkg/vector/inmemory"
	"github.com/askdocco/askdoc/pkg/vector/sqlitevec"
)

// NewStore builds the metadata store selected by the config.
func NewStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage.Store, error) {
	switch cfg.Storage.Driver {
	case "sqlite":
		store, err := sqlite.NewStore(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("creating sqlite store: %w", err)
		}
		logger.Info("using SQLite metadata store", zap.String("path", cfg.Storage.SQLitePath))
		return store, nil
	case "postgres":
		store, err := postgres.NewStore(ctx, cfg.Storage.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("creating postgres store: %w", err)
		}
		logger.Info("using PostgreSQL metadata store")
		return store, nil
	case "memory":
		logger.Info("using in-memory metadata store")
		return storagememory.NewStore(), nil
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Storage.Driver)
	}
}

// NewIndex builds the vector index selected by the config.
func NewIndex(cfg *config.Config, logger *zap.Logger) (vector.Index, error) {
	switch cfg.Vector.Provider {
	case "sqlitevec":
		idx, err := sqlitevec.NewIndex(sqlitevec.Config{
			DBPath:     cfg.Vector.SQLitePath,
			Dimensions: cfg.Embedding.Dimensions,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("creating sqlite-vec index: %w", err)
		}
		return idx, nil
	case "chroma":
		idx, err := chroma.NewIndex(chroma.Config{
			URL: cfg.Vector.ChromaURL,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("creating chroma index: %w", err)
		}
		return idx, nil
	case "memory":
		logger.Info("using in-memory vector index")
		return vectormemory.NewIndex(), nil
	default:
		return nil, fmt.Errorf("unsupported vector provider: %s", cfg.Vector.Provider)
	}
}
