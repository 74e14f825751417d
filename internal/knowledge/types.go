package knowledge

import (
	"time"

	"github.com/google/uuid"
)

// ContentType categorizes a content item.
type ContentType string

// Content type constants. These match the categories the upload layer
// hands to the engine.
const (
	ContentTypeDocument ContentType = "document"
	ContentTypeNote     ContentType = "note"
	ContentTypeURL      ContentType = "url"
)

// Valid reports whether the content type is one of the known categories.
func (c ContentType) Valid() bool {
	switch c {
	case ContentTypeDocument, ContentTypeNote, ContentTypeURL:
		return true
	default:
		return false
	}
}

func (c ContentType) String() string { return string(c) }

// Relationship type tags. The relationship_type column is an open string;
// these are the two types the engine itself creates or traverses.
const (
	RelationRelated    = "related"
	RelationReferences = "references"
)

// ContentItem is a normalized piece of content submitted for indexing.
// The text-extraction layer produces these; the engine never parses files.
type ContentItem struct {
	ID       string            // Caller-assigned unique identifier
	Type     ContentType       // document, note, or url
	Content  string            // Normalized text content
	Metadata map[string]string // Free-form: title, fileType, version, ...
}

// ContentRecord is a stored content projection without its vector,
// as returned by structured (non-similarity) lookups.
type ContentRecord struct {
	ContentID   string
	ContentType ContentType
	Metadata    map[string]string
	CreatedAt   time.Time
}

// SearchResult is a single similarity search hit.
type SearchResult struct {
	ContentID   string
	ContentType ContentType
	Score       float64 // Cosine similarity, higher is more similar
	Metadata    map[string]string
	CreatedAt   time.Time
}

// Edge is a directed, typed relationship between two content items.
// Source and target are back-references to content ids, never ownership.
// Metadata carries similarity evidence captured at creation time; edges
// are not recomputed when neighbors change.
type Edge struct {
	ID        uuid.UUID
	SourceID  string
	TargetID  string
	Type      string
	Metadata  map[string]any
	CreatedAt time.Time
}

// Node is a content projection used in the graph view.
type Node struct {
	ID       string            `json:"id"`
	Type     ContentType       `json:"type"`
	Label    string            `json:"label"`
	Metadata map[string]string `json:"metadata"`
}

// Relationship is an edge projection used in the graph view.
type Relationship struct {
	Source   string         `json:"source"`
	Target   string         `json:"target"`
	Type     string         `json:"type"`
	Metadata map[string]any `json:"metadata"`
}

// GraphView is the derived node+edge projection assembled per query,
// scoped to one owner. It is never persisted.
type GraphView struct {
	Nodes         []Node         `json:"nodes"`
	Relationships []Relationship `json:"relationships"`
}
