// Package hash provides a deterministic, offline embedder. It hashes the
// input text and expands the hash into a unit vector, so identical texts
// always embed identically. It carries no semantics; it is the stand-in
// collaborator until a real embedding service is wired in.
package hash

import (
	"context"
	"hash/fnv"
	"math"
)

// Embedder generates deterministic embeddings from text hashes.
type Embedder struct {
	dimensions int
}

// New creates an embedder with 384 dimensions (the footprint of the small
// sentence-transformer models a real collaborator would use).
func New() *Embedder {
	return &Embedder{dimensions: 384}
}

// Embed derives a deterministic unit vector from the text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	h := fnv.New64a()
	h.Write([]byte(text))
	seed := h.Sum64()

	embedding := make([]float32, e.dimensions)
	for i := 0; i < e.dimensions; i++ {
		// LCG expansion of the hash.
		seed = seed*6364136223846793005 + 1442695040888963407
		embedding[i] = float32(int64(seed)) / float32(math.MaxInt64)
	}
	return normalize(embedding), nil
}

// Dimensions returns the embedding size.
func (e *Embedder) Dimensions() int {
	return e.dimensions
}

// normalize converts the vector to unit length.
func normalize(vec []float32) []float32 {
	var norm float32
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return vec
	}

	norm = float32(math.Sqrt(float64(norm)))
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = v / norm
	}
	return out
}
