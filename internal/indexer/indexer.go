// Package indexer orchestrates the ingestion pipeline: embed content,
// persist the vector, and link the new item to its nearest neighbors.
// It owns no storage of its own; it coordinates the embedding provider,
// the vector store, and the relationship graph through small consumer
// interfaces.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/synap0/synap/internal/knowledge"
)

// Embedder turns text into a fixed-dimension vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// VectorStore persists and searches content embeddings.
type VectorStore interface {
	Insert(ctx context.Context, ownerID string, contentType knowledge.ContentType,
		contentID string, values []float32, metadata map[string]string) error
	Search(ctx context.Context, ownerID string, queryValues []float32,
		limit int, contentTypes ...knowledge.ContentType) ([]knowledge.SearchResult, error)
	List(ctx context.Context, ownerID string) ([]knowledge.ContentRecord, error)
	Delete(ctx context.Context, ownerID, contentID string) error
}

// RelationshipGraph persists and traverses typed edges between content items.
type RelationshipGraph interface {
	CreateRelationship(ctx context.Context, ownerID, sourceID, targetID,
		relationshipType string, metadata map[string]any) error
	FindRelated(ctx context.Context, ownerID, contentID string,
		maxDepth int, relationshipTypes ...string) ([]knowledge.Edge, error)
	DeleteFor(ctx context.Context, ownerID, contentID string) error
}

// Stage identifies where in the ingestion pipeline an operation was when
// it failed.
type Stage string

const (
	StageReceived            Stage = "received"
	StageEmbedding           Stage = "embedding"
	StageVectorStored        Stage = "vector_stored"
	StageRelationshipsLinked Stage = "relationships_linked"
)

// StageError tags a pipeline failure with the stage that produced it.
// Ingestion never rolls back: a StageError from the linking stage means
// the content is indexed and searchable, only its edges are incomplete.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("ingest stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func stageErr(stage Stage, err error) error {
	return &StageError{Stage: stage, Err: err}
}

const (
	// DefaultTopK is how many nearest neighbors each ingested item is
	// linked to.
	DefaultTopK = 5

	// DefaultGraphDepth bounds the traversal behind the graph view.
	DefaultGraphDepth = 3
)

// Option configures an Indexer.
type Option func(*Indexer)

// WithTopK overrides how many neighbors are linked per ingested item.
func WithTopK(k int) Option {
	return func(ix *Indexer) {
		if k > 0 {
			ix.topK = k
		}
	}
}

// WithGraphDepth overrides the traversal depth of the graph view.
func WithGraphDepth(depth int) Option {
	return func(ix *Indexer) {
		if depth > 0 {
			ix.graphDepth = depth
		}
	}
}

// Indexer is the engine facade. All operations are owner-scoped.
//
// Indexer is safe for concurrent use by multiple goroutines.
type Indexer struct {
	embedder   Embedder
	store      VectorStore
	graph      RelationshipGraph
	logger     *slog.Logger
	topK       int
	graphDepth int
}

// New creates an Indexer over its three collaborators.
func New(embedder Embedder, store VectorStore, graph RelationshipGraph,
	logger *slog.Logger, opts ...Option) (*Indexer, error) {

	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if store == nil {
		return nil, fmt.Errorf("vector store is required")
	}
	if graph == nil {
		return nil, fmt.Errorf("relationship graph is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	ix := &Indexer{
		embedder:   embedder,
		store:      store,
		graph:      graph,
		logger:     logger,
		topK:       DefaultTopK,
		graphDepth: DefaultGraphDepth,
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix, nil
}

// Ingest runs the full pipeline for one content item: embed, store the
// vector, then link the item to its most similar existing neighbors with
// "related" edges carrying the similarity observed at ingest time.
//
// The pipeline does not roll back. Once the vector is stored the item is
// indexed; a later linking failure is reported but leaves the item
// searchable. Errors carry the failing stage via *StageError.
func (ix *Indexer) Ingest(ctx context.Context, ownerID string, item knowledge.ContentItem) error {
	if ownerID == "" {
		return stageErr(StageReceived, fmt.Errorf("owner ID is required"))
	}
	if item.ID == "" {
		return stageErr(StageReceived, fmt.Errorf("content ID is required"))
	}
	if !item.Type.Valid() {
		return stageErr(StageReceived, fmt.Errorf("invalid content type: %q", item.Type))
	}
	if strings.TrimSpace(item.Content) == "" {
		return stageErr(StageReceived, fmt.Errorf("%w: content is empty", knowledge.ErrEmptyInput))
	}

	vec, err := ix.embedder.Embed(ctx, item.Content)
	if err != nil {
		return stageErr(StageEmbedding, err)
	}

	if err := ix.store.Insert(ctx, ownerID, item.Type, item.ID, vec, item.Metadata); err != nil {
		return stageErr(StageVectorStored, err)
	}

	if err := ix.linkNeighbors(ctx, ownerID, item.ID, vec); err != nil {
		return stageErr(StageRelationshipsLinked, err)
	}

	ix.logger.Info("ingested content", "owner", ownerID, "content_id", item.ID, "type", item.Type)
	return nil
}

// linkNeighbors creates "related" edges from the new item to its nearest
// neighbors. The similarity search is run against the just-stored corpus,
// so the item itself comes back as its own best match and is skipped.
// Linking is best-effort per edge: one failed insert does not stop the
// rest, the first failure is reported after all candidates were tried.
func (ix *Indexer) linkNeighbors(ctx context.Context, ownerID, contentID string, vec []float32) error {
	results, err := ix.store.Search(ctx, ownerID, vec, ix.topK+1)
	if err != nil {
		return fmt.Errorf("finding neighbors: %w", err)
	}

	var firstErr error
	linked := 0
	for _, r := range results {
		if r.ContentID == contentID {
			continue
		}
		if linked >= ix.topK {
			break
		}
		meta := map[string]any{
			"similarity": r.Score,
			"createdAt":  time.Now().UTC().Format(time.RFC3339),
		}
		if err := ix.graph.CreateRelationship(ctx, ownerID, contentID, r.ContentID,
			knowledge.RelationRelated, meta); err != nil {
			ix.logger.Warn("failed to link neighbor",
				"owner", ownerID, "source", contentID, "target", r.ContentID, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		linked++
	}
	return firstErr
}

// Search embeds the query text and returns the owner's most similar
// content. contentTypes, when given, restrict the result set.
func (ix *Indexer) Search(ctx context.Context, ownerID, query string,
	limit int, contentTypes ...knowledge.ContentType) ([]knowledge.SearchResult, error) {

	if ownerID == "" {
		return nil, fmt.Errorf("owner ID is required")
	}

	vec, err := ix.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	return ix.store.Search(ctx, ownerID, vec, limit, contentTypes...)
}

// GetGraph assembles the owner's graph view: every stored content item as
// a node, plus the edges reachable from the oldest item within the
// configured depth, following "related" and "references" edges.
//
// An owner with no content gets an empty view, not an error.
func (ix *Indexer) GetGraph(ctx context.Context, ownerID string) (*knowledge.GraphView, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("owner ID is required")
	}

	records, err := ix.store.List(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing content: %w", err)
	}

	view := &knowledge.GraphView{
		Nodes:         make([]knowledge.Node, 0, len(records)),
		Relationships: []knowledge.Relationship{},
	}
	if len(records) == 0 {
		return view, nil
	}

	for _, rec := range records {
		view.Nodes = append(view.Nodes, knowledge.Node{
			ID:       rec.ContentID,
			Type:     rec.ContentType,
			Label:    nodeLabel(rec),
			Metadata: rec.Metadata,
		})
	}

	seed := records[0].ContentID
	edges, err := ix.graph.FindRelated(ctx, ownerID, seed, ix.graphDepth,
		knowledge.RelationRelated, knowledge.RelationReferences)
	if err != nil {
		return nil, fmt.Errorf("traversing from %q: %w", seed, err)
	}
	for _, e := range edges {
		view.Relationships = append(view.Relationships, knowledge.Relationship{
			Source:   e.SourceID,
			Target:   e.TargetID,
			Type:     e.Type,
			Metadata: e.Metadata,
		})
	}

	return view, nil
}

// CreateRelationship stores an explicit, caller-authored edge. The edge
// metadata always records its creation time; the caller's map is copied,
// never mutated.
func (ix *Indexer) CreateRelationship(ctx context.Context, ownerID, sourceID, targetID,
	relationshipType string, metadata map[string]any) error {

	if ownerID == "" {
		return fmt.Errorf("owner ID is required")
	}

	meta := make(map[string]any, len(metadata)+1)
	for k, v := range metadata {
		meta[k] = v
	}
	if _, ok := meta["createdAt"]; !ok {
		meta["createdAt"] = time.Now().UTC().Format(time.RFC3339)
	}
	return ix.graph.CreateRelationship(ctx, ownerID, sourceID, targetID, relationshipType, meta)
}

// Delete removes a content item and every edge touching it. The vector
// goes first: a failure there leaves the graph untouched, while an edge
// cleanup failure leaves only orphaned back-references, which traversal
// tolerates.
func (ix *Indexer) Delete(ctx context.Context, ownerID, contentID string) error {
	if ownerID == "" {
		return fmt.Errorf("owner ID is required")
	}
	if contentID == "" {
		return fmt.Errorf("content ID is required")
	}

	if err := ix.store.Delete(ctx, ownerID, contentID); err != nil {
		return fmt.Errorf("deleting content %q: %w", contentID, err)
	}
	if err := ix.graph.DeleteFor(ctx, ownerID, contentID); err != nil {
		return fmt.Errorf("deleting relationships for %q: %w", contentID, err)
	}

	ix.logger.Info("deleted content", "owner", ownerID, "content_id", contentID)
	return nil
}

func nodeLabel(rec knowledge.ContentRecord) string {
	if title, ok := rec.Metadata["title"]; ok && title != "" {
		return title
	}
	return rec.ContentID
}
