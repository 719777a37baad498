// Package app wires configuration into the concrete adapters and use cases.
package app

import (
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"pdfrag/config"
	"pdfrag/internal/adapter/badgerstore"
	"pdfrag/internal/adapter/cache"
	"pdfrag/internal/adapter/chunker"
	"pdfrag/internal/adapter/embedding"
	"pdfrag/internal/adapter/llm"
	"pdfrag/internal/adapter/memstore"
	"pdfrag/internal/adapter/pdf"
	"pdfrag/internal/adapter/store"
	"pdfrag/internal/port"
	"pdfrag/internal/usecase"
)

// OpenStore opens the configured record store under dir. The bolt store is
// migrated before it is returned and refuses files written with different
// embedding or chunking settings.
func OpenStore(cfg *config.Config, dir string, logger arbor.ILogger) (port.RecordStore, error) {
	switch cfg.Store.Backend {
	case "memory":
		logger.Warn().Msg("Using in-memory store, nothing will be persisted")
		return memstore.NewMemoryStore(cfg.Store.Dimension), nil

	case "badger":
		if err := config.EnsureDataDir(dir); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		st, err := badgerstore.Open(config.StorePath(dir, "badger"), cfg.Store.Dimension, logger)
		if err != nil {
			return nil, err
		}
		return st, nil

	case "bolt", "":
		if err := config.EnsureDataDir(dir); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		st, err := store.NewBoltRecordStore(config.StorePath(dir, "bolt"), cfg.Store.Dimension)
		if err != nil {
			return nil, err
		}

		result, err := st.CheckMigration(cfg)
		if err != nil {
			st.Close()
			return nil, err
		}
		if result.Incompatible {
			st.Close()
			return nil, fmt.Errorf("record store is incompatible: %s (run 'pdfrag reset' to clear it)", result.Reason)
		}
		if result.NeedsMigration {
			logger.Info().
				Int("from", result.OldVersion).
				Int("to", result.NewVersion).
				Str("reason", result.Reason).
				Msg("Migrating record store")
		}
		if err := st.Migrate(cfg); err != nil {
			st.Close()
			return nil, err
		}
		return st, nil

	default:
		return nil, fmt.Errorf("unsupported store backend: %s", cfg.Store.Backend)
	}
}

func NewEmbedder(cfg *config.Config, logger arbor.ILogger) (port.Embedder, error) {
	switch cfg.Embedding.Provider {
	case "openai":
		emb, err := embedding.NewOpenAIEmbedder(cfg.Embedding, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create embedder: %w", err)
		}
		return emb, nil
	case "mock":
		return embedding.NewMockEmbedder(cfg.Embedding.Dimension), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Embedding.Provider)
	}
}

func NewRetriever(cfg *config.Config, st port.RecordStore, emb port.Embedder, logger arbor.ILogger) *usecase.Retriever {
	return usecase.NewRetriever(emb, st, cfg.Store.Table, cfg.Retrieve.TopK, cfg.EmbeddingTimeout(), logger)
}

// NewQueryCache returns nil when caching is disabled.
func NewQueryCache(cfg *config.Config) *cache.QueryCache {
	if cfg.Retrieve.CacheSize <= 0 {
		return nil
	}
	return cache.NewQueryCache(cfg.Retrieve.CacheSize, time.Duration(cfg.Retrieve.CacheTTLSecond)*time.Second)
}

// NewAnswerUseCase needs an LLM provider; with provider "none" only
// retrieval is available.
func NewAnswerUseCase(cfg *config.Config, retriever port.Retriever, logger arbor.ILogger) (*usecase.AnswerUseCase, error) {
	if cfg.LLM.Provider == "none" {
		return nil, fmt.Errorf("llm.provider is none, answering is disabled")
	}
	generator, err := llm.NewAnswerGenerator(cfg.LLM, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create answer generator: %w", err)
	}
	fallback, err := llm.NewFallbackAgent(cfg.LLM, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create fallback agent: %w", err)
	}
	return usecase.NewAnswerUseCase(retriever, generator, usecase.NewRelevanceGate(fallback, logger), logger), nil
}

func NewIngestUseCase(cfg *config.Config, st port.RecordStore, emb port.Embedder, logger arbor.ILogger) *usecase.IngestUseCase {
	builder := usecase.NewGraphBuilder(st, cfg.Store.Table, cfg.Graph.EdgeThreshold, logger)
	return usecase.NewIngestUseCase(
		pdf.NewExtractor(logger),
		chunker.NewRecursiveChunker(cfg.Chunking.ChunkSize, cfg.Chunking.ChunkOverlap),
		emb,
		builder,
		logger,
	).
		WithConcurrency(cfg.Embedding.Concurrency).
		WithBatchSize(cfg.Embedding.BatchSize)
}
