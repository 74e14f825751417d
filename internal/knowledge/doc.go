// Package knowledge defines the shared domain model for the semantic
// knowledge-indexing engine: content items, search results, relationship
// edges, the assembled graph view, and the error taxonomy surfaced by the
// engine's components.
//
// The package is deliberately free of storage and model concerns:
// internal/embedding, internal/vectorstore, internal/graph and
// internal/indexer all depend on it, never the other way around.
package knowledge
