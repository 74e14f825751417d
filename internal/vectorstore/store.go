// Package vectorstore persists per-content embeddings and performs
// nearest-neighbor similarity search using PostgreSQL + pgvector.
//
// Every row is scoped to an owner; no operation reads or writes another
// owner's data. Similarity ranking relies on inputs being L2-normalized
// (see internal/embedding), so cosine distance ordering equals
// inner-product ordering.
package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"

	"github.com/synap0/synap/internal/knowledge"
)

// DefaultSearchLimit bounds result count when the caller passes limit <= 0.
const DefaultSearchLimit = 5

// Querier is the common interface satisfied by *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const upsertVectorSQL = `INSERT INTO content_vectors (user_id, content_id, content_type, embedding, metadata)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (user_id, content_id) DO UPDATE
	SET content_type = EXCLUDED.content_type,
	    embedding = EXCLUDED.embedding,
	    metadata = EXCLUDED.metadata,
	    updated_at = now()`

// Similarity ties are broken by insertion recency (most recent first) so
// result order is deterministic.
const searchSQL = `SELECT content_id, content_type, metadata, created_at, 1 - (embedding <=> $1) AS score
	FROM content_vectors
	WHERE user_id = $2
	ORDER BY embedding <=> $1, created_at DESC, content_id
	LIMIT $3`

const searchFilteredSQL = `SELECT content_id, content_type, metadata, created_at, 1 - (embedding <=> $1) AS score
	FROM content_vectors
	WHERE user_id = $2 AND content_type = ANY($3)
	ORDER BY embedding <=> $1, created_at DESC, content_id
	LIMIT $4`

const listSQL = `SELECT content_id, content_type, metadata, created_at
	FROM content_vectors
	WHERE user_id = $1
	ORDER BY created_at, content_id`

// Store manages content embeddings with vector search capabilities.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	db     Querier
	dim    int
	logger *slog.Logger
}

// New creates a Store with a fixed vector dimension. The dimension must
// match the vector column in db/migrations.
func New(db Querier, dim int, logger *slog.Logger) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("querier is required")
	}
	if dim <= 0 {
		return nil, fmt.Errorf("dimension must be positive, got %d", dim)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, dim: dim, logger: logger}, nil
}

// Dimension returns the store's fixed vector dimension.
func (s *Store) Dimension() int { return s.dim }

// Insert stores an embedding for a content item, upserting when the
// (owner, content) pair already exists. A vector of mismatched dimension
// is rejected with knowledge.ErrDimensionMismatch before touching the
// store, never padded or truncated.
func (s *Store) Insert(ctx context.Context, ownerID string, contentType knowledge.ContentType,
	contentID string, values []float32, metadata map[string]string) error {

	if ownerID == "" {
		return fmt.Errorf("owner ID is required")
	}
	if contentID == "" {
		return fmt.Errorf("content ID is required")
	}
	if !contentType.Valid() {
		return fmt.Errorf("invalid content type: %q", contentType)
	}
	if err := s.checkDimension(values); err != nil {
		return err
	}

	if metadata == nil {
		metadata = map[string]string{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}

	vec := pgvector.NewVector(values)
	if _, err := s.db.Exec(ctx, upsertVectorSQL,
		ownerID, contentID, string(contentType), vec, metadataJSON); err != nil {
		return fmt.Errorf("%w: upserting vector %q: %v", knowledge.ErrStoreUnavailable, contentID, err)
	}

	s.logger.Debug("stored vector", "owner", ownerID, "content_id", contentID, "type", contentType)
	return nil
}

// Search returns the owner's most similar content, ranked by descending
// cosine similarity. contentTypes, when given, is an allow-list filter.
//
// A backend failure surfaces knowledge.ErrStoreUnavailable rather than an
// empty result, so callers can distinguish "no matches" from "search failed".
func (s *Store) Search(ctx context.Context, ownerID string, queryValues []float32,
	limit int, contentTypes ...knowledge.ContentType) ([]knowledge.SearchResult, error) {

	if ownerID == "" {
		return nil, fmt.Errorf("owner ID is required")
	}
	if err := s.checkDimension(queryValues); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	vec := pgvector.NewVector(queryValues)

	var rows pgx.Rows
	var err error
	if len(contentTypes) > 0 {
		types := make([]string, len(contentTypes))
		for i, ct := range contentTypes {
			types[i] = string(ct)
		}
		rows, err = s.db.Query(ctx, searchFilteredSQL, vec, ownerID, types, limit)
	} else {
		rows, err = s.db.Query(ctx, searchSQL, vec, ownerID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: searching vectors: %v", knowledge.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	results := make([]knowledge.SearchResult, 0, limit)
	for rows.Next() {
		var (
			contentID    string
			contentType  string
			metadataJSON []byte
			createdAt    time.Time
			score        float64
		)
		if err := rows.Scan(&contentID, &contentType, &metadataJSON, &createdAt, &score); err != nil {
			return nil, fmt.Errorf("%w: scanning search row: %v", knowledge.ErrStoreUnavailable, err)
		}
		results = append(results, knowledge.SearchResult{
			ContentID:   contentID,
			ContentType: knowledge.ContentType(contentType),
			Score:       score,
			Metadata:    s.parseMetadata(contentID, metadataJSON),
			CreatedAt:   createdAt,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading search rows: %v", knowledge.ErrStoreUnavailable, err)
	}

	return results, nil
}

// List returns all content records for the owner, oldest first. This is the
// structured (non-similarity) lookup path.
func (s *Store) List(ctx context.Context, ownerID string) ([]knowledge.ContentRecord, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("owner ID is required")
	}

	rows, err := s.db.Query(ctx, listSQL, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: listing content: %v", knowledge.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var records []knowledge.ContentRecord
	for rows.Next() {
		var (
			contentID    string
			contentType  string
			metadataJSON []byte
			createdAt    time.Time
		)
		if err := rows.Scan(&contentID, &contentType, &metadataJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("%w: scanning content row: %v", knowledge.ErrStoreUnavailable, err)
		}
		records = append(records, knowledge.ContentRecord{
			ContentID:   contentID,
			ContentType: knowledge.ContentType(contentType),
			Metadata:    s.parseMetadata(contentID, metadataJSON),
			CreatedAt:   createdAt,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading content rows: %v", knowledge.ErrStoreUnavailable, err)
	}

	return records, nil
}

// Delete removes a content item's vector. Vectors are deleted only when
// their content item is deleted; missing rows are not an error.
func (s *Store) Delete(ctx context.Context, ownerID, contentID string) error {
	if ownerID == "" {
		return fmt.Errorf("owner ID is required")
	}
	if contentID == "" {
		return fmt.Errorf("content ID is required")
	}

	tag, err := s.db.Exec(ctx,
		`DELETE FROM content_vectors WHERE user_id = $1 AND content_id = $2`,
		ownerID, contentID)
	if err != nil {
		return fmt.Errorf("%w: deleting vector %q: %v", knowledge.ErrStoreUnavailable, contentID, err)
	}

	s.logger.Debug("deleted vector", "owner", ownerID, "content_id", contentID, "rows", tag.RowsAffected())
	return nil
}

// checkDimension enforces the store-wide fixed dimension invariant.
func (s *Store) checkDimension(values []float32) error {
	if len(values) != s.dim {
		return fmt.Errorf("%w: got %d values, store dimension is %d",
			knowledge.ErrDimensionMismatch, len(values), s.dim)
	}
	return nil
}

// parseMetadata decodes a JSONB metadata column, degrading to an empty map
// on malformed data.
func (s *Store) parseMetadata(contentID string, data []byte) map[string]string {
	var metadata map[string]string
	if err := json.Unmarshal(data, &metadata); err != nil {
		s.logger.Warn("failed to parse metadata", "content_id", contentID, "error", err)
		return map[string]string{}
	}
	if metadata == nil {
		metadata = map[string]string{}
	}
	return metadata
}
