// Package embedding provides the embedding adapters behind the engine's
// Embedder port: a deterministic hash-seeded provider for development and
// tests, and an OpenAI-backed provider for production.
package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"math/rand"

	"github.com/trustside/listing-sentinel/pkg/errors"
)

// HashEmbedder derives a unit-length vector from the SHA-256 of the input
// text.  It has no semantic understanding; its value is determinism without a
// network dependency, which is all local development and the test suite need.
// Identical text always produces an identical vector.
type HashEmbedder struct {
	dim int
}

// NewHashEmbedder builds a hash-seeded embedder producing vectors of the
// given dimensionality.
func NewHashEmbedder(dim int) (*HashEmbedder, error) {
	if dim < 1 {
		return nil, errors.InvalidParam("embedding dimension must be >= 1")
	}
	return &HashEmbedder{dim: dim}, nil
}

// Dimension returns the vector length this embedder produces.
func (h *HashEmbedder) Dimension() int { return h.dim }

// Embed maps text to a deterministic unit vector.  The SHA-256 digest seeds a
// PRNG whose gaussian draws fill the vector, which is then L2-normalized.
func (h *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	digest := sha256.Sum256([]byte(text))
	seed := int64(binary.BigEndian.Uint64(digest[:8]))
	rng := rand.New(rand.NewSource(seed))

	vector := make([]float32, h.dim)
	var norm float64
	for i := range vector {
		v := rng.NormFloat64()
		vector[i] = float32(v)
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		// Practically unreachable with gaussian draws; keep the vector valid.
		vector[0] = 1
		return vector, nil
	}
	for i := range vector {
		vector[i] = float32(float64(vector[i]) / norm)
	}
	return vector, nil
}
