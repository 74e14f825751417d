package knowledge

import "errors"

// Sentinel errors for engine operations.
// Only errors that callers check with errors.Is() are defined here;
// components wrap them with fmt.Errorf("%w: ...") to add detail.
var (
	// ErrEmptyInput indicates the caller supplied no usable text.
	ErrEmptyInput = errors.New("empty input")

	// ErrDimensionMismatch indicates a vector's length differs from the
	// store's fixed dimension. Always fatal to the single operation;
	// vectors are never padded or truncated.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrModelUnavailable indicates the embedding model failed to
	// initialize or respond.
	ErrModelUnavailable = errors.New("embedding model unavailable")

	// ErrStoreUnavailable indicates the vector or graph backend is
	// unreachable or errored. Callers can distinguish "no matches"
	// (empty result, nil error) from "search failed" (this error).
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrSelfRelationship indicates a relationship request where source
	// and target are the same content item.
	ErrSelfRelationship = errors.New("self relationship")
)
