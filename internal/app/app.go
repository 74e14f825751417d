// Package app assembles the engine: configuration in, a wired Indexer
// and HTTP-ready collaborators out.
package app

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/synap0/synap/internal/config"
	"github.com/synap0/synap/internal/embedding"
	"github.com/synap0/synap/internal/graph"
	"github.com/synap0/synap/internal/indexer"
	"github.com/synap0/synap/internal/vectorstore"
)

// App holds the initialized application components.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Pool     *pgxpool.Pool
	Embedder *embedding.Provider
	Store    *vectorstore.Store
	Graph    *graph.Graph
	Indexer  *indexer.Indexer

	dbCleanup func()
}

// Close releases all resources held by the App. Safe to call on a
// partially initialized App.
func (a *App) Close() {
	if a.dbCleanup != nil {
		a.dbCleanup()
		a.dbCleanup = nil
	}
}
