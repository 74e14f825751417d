package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"google.golang.org/genai"

	"github.com/synap0/synap/db"
	"github.com/synap0/synap/internal/config"
	"github.com/synap0/synap/internal/embedding"
	"github.com/synap0/synap/internal/graph"
	"github.com/synap0/synap/internal/indexer"
	"github.com/synap0/synap/internal/vectorstore"
)

// Setup creates and initializes the application: runs migrations, opens
// the connection pool, and wires the embedding provider, stores and
// indexer together. Call Close() to release.
//
// The embedding model itself is loaded lazily on first use, so Setup
// succeeds without provider credentials as long as the database is up.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, retErr error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Logger: logger}

	// On error, clean up everything already initialized
	defer func() {
		if retErr != nil {
			a.Close()
		}
	}()

	pool, dbCleanup, err := provideDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.dbCleanup = dbCleanup
	a.Pool = pool

	embedder, err := provideEmbedder(cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Embedder = embedder

	store, err := vectorstore.New(pool, cfg.Dimension, logger)
	if err != nil {
		return nil, fmt.Errorf("creating vector store: %w", err)
	}
	a.Store = store

	gr, err := graph.New(pool, logger)
	if err != nil {
		return nil, fmt.Errorf("creating relationship graph: %w", err)
	}
	a.Graph = gr

	ix, err := indexer.New(embedder, store, gr, logger)
	if err != nil {
		return nil, fmt.Errorf("creating indexer: %w", err)
	}
	a.Indexer = ix

	return a, nil
}

// provideDBPool runs migrations and creates a PostgreSQL connection pool
// with sensible defaults for connection management.
func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, func(), error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, pool.Close, nil
}

// provideEmbedder builds the lazy embedding provider for the configured
// backend. Gemini's embedding models emit more than 768 dimensions by
// default, so the request is pinned to the store's dimension via
// OutputDimensionality.
func provideEmbedder(cfg *config.Config, logger *slog.Logger) (*embedding.Provider, error) {
	var loader embedding.Loader
	var opts []embedding.Option

	switch cfg.Provider {
	case config.ProviderOllama:
		loader = embedding.OllamaLoader(cfg.OllamaHost, cfg.EmbedderModel)
	case config.ProviderGemini, "":
		loader = embedding.GeminiLoader(cfg.EmbedderModel)
		dim := int32(cfg.Dimension)
		opts = append(opts, embedding.WithEmbedOptions(&genai.EmbedContentConfig{
			OutputDimensionality: &dim,
		}))
	default:
		return nil, fmt.Errorf("unknown embedding provider: %q", cfg.Provider)
	}

	embedder, err := embedding.New(loader, cfg.Dimension, logger, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating embedding provider: %w", err)
	}
	return embedder, nil
}
