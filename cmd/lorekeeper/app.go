package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/lorekeeper/internal/config"
	"github.com/kailas-cloud/lorekeeper/internal/db"
	dbRedis "github.com/kailas-cloud/lorekeeper/internal/db/redis"
	"github.com/kailas-cloud/lorekeeper/internal/domain"
	"github.com/kailas-cloud/lorekeeper/internal/metrics"
	"github.com/kailas-cloud/lorekeeper/internal/repository/embcache"
	passagerepo "github.com/kailas-cloud/lorekeeper/internal/repository/passage"
	"github.com/kailas-cloud/lorekeeper/internal/repository/sqlitestore"
	openaiTransport "github.com/kailas-cloud/lorekeeper/internal/transport/openai"
	answeruc "github.com/kailas-cloud/lorekeeper/internal/usecase/answer"
	embeddinguc "github.com/kailas-cloud/lorekeeper/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/lorekeeper/internal/usecase/health"
	"github.com/kailas-cloud/lorekeeper/internal/usecase/retrieval"
)

// app is the wired object graph shared by serve, retrieve and ask.
type app struct {
	cfg       config.Config
	logger    *zap.Logger
	retrieval *retrieval.Service
	answers   *answeruc.Service // nil when generation is not configured
	health    *healthuc.Service
	close     func()
}

// passageBackend is what one database driver contributes to the graph.
type passageBackend struct {
	vectors retrieval.VectorStore
	kv      db.KVStore
	pinger  healthuc.StorePinger
	close   func()
}

// buildApp is the composition root.
func buildApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterRetrievalMetrics()
	metrics.RegisterGenerationMetrics()

	backend, err := openBackend(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	embedder := buildEmbedder(cfg.Embedding, backend.kv, logger)
	logger.Info("Embedder created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Bool("cache", cfg.Embedding.Cache.Enabled),
	)

	a := &app{
		cfg:       cfg,
		logger:    logger,
		retrieval: retrieval.New(backend.vectors, embedder, logger),
		close:     backend.close,
	}

	// Nil interface, not a typed nil pointer, when generation is off.
	var genChecker healthuc.Checker
	if cfg.Generation.Enabled() {
		gen := openaiTransport.NewGenerator(&openaiTransport.Config{
			APIKey:      cfg.Generation.APIKey,
			BaseURL:     cfg.Generation.BaseURL,
			Model:       cfg.Generation.Model,
			MaxTokens:   cfg.Generation.MaxTokens,
			Temperature: cfg.Generation.Temperature,
			Provider:    cfg.Embedding.Provider,
		})
		a.answers = answeruc.New(a.retrieval, gen, cfg.Generation.SystemPrompt, logger)
		genChecker = gen
		logger.Info("Answer generation enabled", zap.String("model", cfg.Generation.Model))
	}

	a.health = healthuc.New(backend.pinger, newEmbeddingHealthChecker(embedder), genChecker)
	return a, nil
}

func openBackend(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (passageBackend, error) {
	switch cfg.Driver {
	case config.DriverRedis:
		return openRedis(ctx, cfg, logger)
	case config.DriverSQLite:
		return openSQLite(ctx, cfg, logger)
	default:
		return passageBackend{}, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

func openRedis(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (passageBackend, error) {
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Addrs,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err != nil {
		return passageBackend{}, fmt.Errorf("create redis store: %w", err)
	}

	if err = store.WaitForReady(ctx, time.Duration(cfg.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return passageBackend{}, fmt.Errorf("database not ready: %w", err)
	}

	exists, err := store.IndexExists(ctx, cfg.IndexName)
	if err != nil {
		store.Close()
		return passageBackend{}, fmt.Errorf("inspect index %s: %w", cfg.IndexName, err)
	}
	if !exists {
		store.Close()
		return passageBackend{}, fmt.Errorf("index %s: %w", cfg.IndexName, db.ErrIndexNotFound)
	}
	logger.Info("Connected to redis",
		zap.Strings("addrs", cfg.Addrs),
		zap.String("index", cfg.IndexName),
	)

	repo := passagerepo.New(store, passagerepo.Config{
		IndexName:    cfg.IndexName,
		KeyPrefix:    cfg.KeyPrefix,
		ContentField: cfg.ContentField,
		VectorField:  cfg.VectorField,
		IDTagField:   cfg.IDTagField,
		ReturnFields: cfg.ReturnFields,
	})
	return passageBackend{vectors: repo, kv: store, pinger: store, close: store.Close}, nil
}

func openSQLite(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (passageBackend, error) {
	store, err := sqlitestore.Open(cfg.SQLitePath)
	if err != nil {
		return passageBackend{}, err
	}

	n, err := store.Count(ctx)
	if err != nil {
		_ = store.Close()
		return passageBackend{}, err
	}
	if n == 0 {
		logger.Warn("SQLite passage store is empty", zap.String("path", cfg.SQLitePath))
	}
	logger.Info("Opened sqlite store", zap.String("path", cfg.SQLitePath), zap.Int("passages", n))

	return passageBackend{
		vectors: store,
		kv:      store.KV(),
		pinger:  store,
		close:   func() { _ = store.Close() },
	}, nil
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented -> Instruction.
func buildEmbedder(cfg config.EmbeddingConfig, kv db.KVStore, logger *zap.Logger) domain.Embedder {
	base := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
		Provider:   cfg.Provider,
	})

	var embedder domain.Embedder = base
	if cfg.Cache.Enabled && kv != nil {
		embedder = embcache.New(
			base, kv, cfg.Model, time.Duration(cfg.Cache.TTLSec)*time.Second,
			metrics.EmbeddingCacheTotal, logger,
		)
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, cfg.Provider, cfg.Model, logger)

	// Outermost, so the cache key includes the instruction.
	if cfg.QueryInstruction != "" {
		return domain.NewInstructionEmbedder(embedder, cfg.QueryInstruction)
	}
	return embedder
}

// embeddingHealthChecker adapts domain.Embedder to health.Checker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	hc, ok := h.embedder.(domain.HealthChecker)
	if !ok {
		return nil
	}
	if err := hc.HealthCheck(ctx); err != nil {
		return fmt.Errorf("embedding health check: %w", err)
	}
	return nil
}

// errNoGeneration is returned by ask when no chat model is configured.
var errNoGeneration = errors.New("answer generation is not configured (set generation.model)")
