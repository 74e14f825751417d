// Package graph stores directed, typed relationship edges between content
// items and answers bounded-depth traversal queries.
//
// The graph is derived, secondary data: it is built from similarity results
// and can be rebuilt from scratch from the vector store. It is never the
// source of truth for content existence.
package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/synap0/synap/internal/knowledge"
)

// Querier is the common interface satisfied by *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const insertEdgeSQL = `INSERT INTO relationships (id, user_id, source_id, target_id, relationship_type, metadata)
	VALUES ($1, $2, $3, $4, $5, $6)`

// Frontier edges come back in source-expansion order: grouped by the
// position of their source id in the frontier, then by creation time.
const edgesFromSQL = `SELECT id, source_id, target_id, relationship_type, metadata, created_at
	FROM relationships
	WHERE user_id = $1 AND source_id = ANY($2)
	ORDER BY array_position($2::text[], source_id), created_at, id`

const edgesFromFilteredSQL = `SELECT id, source_id, target_id, relationship_type, metadata, created_at
	FROM relationships
	WHERE user_id = $1 AND source_id = ANY($2) AND relationship_type = ANY($3)
	ORDER BY array_position($2::text[], source_id), created_at, id`

// Graph manages relationship edges backed by PostgreSQL.
//
// Graph is safe for concurrent use by multiple goroutines.
type Graph struct {
	db     Querier
	logger *slog.Logger
}

// New creates a Graph.
func New(db Querier, logger *slog.Logger) (*Graph, error) {
	if db == nil {
		return nil, fmt.Errorf("querier is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Graph{db: db, logger: logger}, nil
}

// CreateRelationship stores a directed edge from sourceID to targetID.
//
// Creation is additive, not idempotent: repeated calls create additional
// edges unless the caller de-duplicates. A source equal to its target is
// rejected with knowledge.ErrSelfRelationship.
func (g *Graph) CreateRelationship(ctx context.Context, ownerID, sourceID, targetID,
	relationshipType string, metadata map[string]any) error {

	if ownerID == "" {
		return fmt.Errorf("owner ID is required")
	}
	if sourceID == "" || targetID == "" {
		return fmt.Errorf("source and target IDs are required")
	}
	if sourceID == targetID {
		return fmt.Errorf("%w: %q", knowledge.ErrSelfRelationship, sourceID)
	}
	if relationshipType == "" {
		return fmt.Errorf("relationship type is required")
	}

	if metadata == nil {
		metadata = map[string]any{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("marshaling edge metadata: %w", err)
	}

	id := uuid.New()
	if _, err := g.db.Exec(ctx, insertEdgeSQL,
		id, ownerID, sourceID, targetID, relationshipType, metadataJSON); err != nil {
		return fmt.Errorf("%w: creating relationship %s->%s: %v",
			knowledge.ErrStoreUnavailable, sourceID, targetID, err)
	}

	g.logger.Debug("created relationship",
		"owner", ownerID, "source", sourceID, "target", targetID, "type", relationshipType)
	return nil
}

// FindRelated traverses the owner's edges breadth-first starting at
// contentID, expanding up to maxDepth hops, restricted to the given
// relationship types when provided.
//
// Traversal state is explicit node ids in a visited set and a frontier
// queue; no node is expanded twice, so cycles terminate. Edges are
// returned in discovery order (breadth-first, source-expansion order).
// maxDepth <= 0 returns an empty sequence.
func (g *Graph) FindRelated(ctx context.Context, ownerID, contentID string,
	maxDepth int, relationshipTypes ...string) ([]knowledge.Edge, error) {

	if ownerID == "" {
		return nil, fmt.Errorf("owner ID is required")
	}
	if contentID == "" {
		return nil, fmt.Errorf("content ID is required")
	}

	visited := map[string]struct{}{contentID: {}}
	frontier := []string{contentID}
	var edges []knowledge.Edge

	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		found, err := g.edgesFrom(ctx, ownerID, frontier, relationshipTypes)
		if err != nil {
			return nil, err
		}

		var next []string
		for _, e := range found {
			edges = append(edges, e)
			if _, seen := visited[e.TargetID]; !seen {
				visited[e.TargetID] = struct{}{}
				next = append(next, e.TargetID)
			}
		}
		frontier = next
	}

	return edges, nil
}

// DeleteFor removes every edge touching the given content item, in either
// direction. Called when the content item itself is deleted.
func (g *Graph) DeleteFor(ctx context.Context, ownerID, contentID string) error {
	if ownerID == "" {
		return fmt.Errorf("owner ID is required")
	}
	if contentID == "" {
		return fmt.Errorf("content ID is required")
	}

	tag, err := g.db.Exec(ctx,
		`DELETE FROM relationships WHERE user_id = $1 AND (source_id = $2 OR target_id = $2)`,
		ownerID, contentID)
	if err != nil {
		return fmt.Errorf("%w: deleting relationships for %q: %v",
			knowledge.ErrStoreUnavailable, contentID, err)
	}

	g.logger.Debug("deleted relationships", "owner", ownerID, "content_id", contentID, "rows", tag.RowsAffected())
	return nil
}

// edgesFrom fetches all outgoing edges for a frontier of source ids in one
// round-trip.
func (g *Graph) edgesFrom(ctx context.Context, ownerID string, sourceIDs []string,
	relationshipTypes []string) ([]knowledge.Edge, error) {

	var rows pgx.Rows
	var err error
	if len(relationshipTypes) > 0 {
		rows, err = g.db.Query(ctx, edgesFromFilteredSQL, ownerID, sourceIDs, relationshipTypes)
	} else {
		rows, err = g.db.Query(ctx, edgesFromSQL, ownerID, sourceIDs)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: querying relationships: %v", knowledge.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var edges []knowledge.Edge
	for rows.Next() {
		var (
			id           uuid.UUID
			sourceID     string
			targetID     string
			relType      string
			metadataJSON []byte
			createdAt    time.Time
		)
		if err := rows.Scan(&id, &sourceID, &targetID, &relType, &metadataJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("%w: scanning relationship row: %v", knowledge.ErrStoreUnavailable, err)
		}

		var metadata map[string]any
		if err := json.Unmarshal(metadataJSON, &metadata); err != nil {
			g.logger.Warn("failed to parse edge metadata", "edge_id", id, "error", err)
			metadata = map[string]any{}
		}

		edges = append(edges, knowledge.Edge{
			ID:        id,
			SourceID:  sourceID,
			TargetID:  targetID,
			Type:      relType,
			Metadata:  metadata,
			CreatedAt: createdAt,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading relationship rows: %v", knowledge.ErrStoreUnavailable, err)
	}

	return edges, nil
}
