package testutil

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// WordHashEmbedder is a deterministic, offline embedder for tests. Each
// lowercased word is hashed to one of Dim buckets and counted, and the
// resulting vector is L2-normalized. Texts sharing vocabulary come out
// cosine-similar, which is enough to exercise ranking and neighbor
// linking without a real model.
//
// It satisfies the engine's embedder contract (Embed plus Dimension).
type WordHashEmbedder struct {
	Dim int
}

// NewWordHashEmbedder creates an embedder producing vectors of dim values.
func NewWordHashEmbedder(dim int) *WordHashEmbedder {
	return &WordHashEmbedder{Dim: dim}
}

func (e *WordHashEmbedder) Dimension() int { return e.Dim }

// Embed hashes the text's words into buckets and normalizes the counts.
// Never fails; empty text yields the zero vector.
func (e *WordHashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.Dim)

	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,;:!?\"'()[]")
		if word == "" {
			continue
		}
		h := fnv.New32a()
		_, _ = h.Write([]byte(word))
		vec[int(h.Sum32())%e.Dim]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= inv
		}
	}
	return vec, nil
}
