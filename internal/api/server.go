package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/synap0/synap/internal/knowledge"
)

// Engine is the slice of the indexing engine the API depends on.
// Satisfied by *indexer.Indexer.
type Engine interface {
	Ingest(ctx context.Context, ownerID string, item knowledge.ContentItem) error
	Search(ctx context.Context, ownerID, query string, limit int,
		contentTypes ...knowledge.ContentType) ([]knowledge.SearchResult, error)
	GetGraph(ctx context.Context, ownerID string) (*knowledge.GraphView, error)
	CreateRelationship(ctx context.Context, ownerID, sourceID, targetID,
		relationshipType string, metadata map[string]any) error
	Delete(ctx context.Context, ownerID, contentID string) error
}

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger     *slog.Logger
	Engine     Engine        // Required
	Pool       *pgxpool.Pool // Optional: nil disables the database ping in /readyz
	TrustProxy bool          // Trust X-Real-IP/X-Forwarded-For headers (behind reverse proxy)
	RateBurst  int           // Rate limiter burst size per IP (0 = default 60)
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates a new API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Engine == nil {
		return nil, errors.New("engine is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ch := &contentHandler{engine: cfg.Engine, logger: logger}
	sh := &searchHandler{engine: cfg.Engine, logger: logger}
	gh := &graphHandler{engine: cfg.Engine, logger: logger}
	rh := &relationshipHandler{engine: cfg.Engine, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/content", ch.create)
	mux.HandleFunc("DELETE /api/v1/content/{id}", ch.delete)
	mux.HandleFunc("POST /api/v1/search", sh.search)
	mux.HandleFunc("GET /api/v1/graph", gh.get)
	mux.HandleFunc("POST /api/v1/relationships", rh.create)

	// Rate limiter: per-IP token bucket (1 token/sec refill)
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = defaultRateBurst
	}
	rl := newRateLimiter(1.0, burst)

	// Middleware stack (outermost first):
	//   Recovery -> RequestID -> Logging -> RateLimit -> Owner -> Routes
	// RequestID sits before Logging so request_id is available in log attributes.
	var handler http.Handler = mux
	handler = requireOwner(handler)
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	// Health probes bypass the middleware stack.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /healthz", health)
	topMux.Handle("GET /readyz", readiness(cfg.Pool))
	topMux.Handle("/", handler)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
