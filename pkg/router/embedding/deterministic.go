package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"math/rand"

	"github.com/r1pc0rd/SemanticRouter/pkg/router"
)

// DeterministicProvider is a dependency-free Provider that hashes input text
// with SHA-256 and uses the hash as a seed for a reproducible, unit-normalized
// vector. Two calls with the same text produce byte-identical vectors within
// a process and across processes, satisfying the embedding_text determinism
// invariant (spec §3) without requiring a model server.
//
// It is used in tests and when the configured search provider is
// "deterministic".
type DeterministicProvider struct {
	dim int
}

// NewDeterministicProvider creates a DeterministicProvider producing vectors
// of the given dimension.
func NewDeterministicProvider(dimension int) *DeterministicProvider {
	return &DeterministicProvider{dim: dimension}
}

// Embed returns a deterministic, unit-normalized vector for text.
func (p *DeterministicProvider) Embed(_ context.Context, text string) (router.Vector, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: empty text", router.ErrEmbeddingUnavailable)
	}

	hash := sha256.Sum256([]byte(text))
	//nolint:gosec // seeding a non-crypto RNG from a hash is intentional here
	seed := int64(binary.LittleEndian.Uint64(hash[:8]))
	//nolint:gosec // deterministic RNG is the point of this provider
	rng := rand.New(rand.NewSource(seed))

	vec := make(router.Vector, p.dim)
	var norm float64
	for i := range vec {
		v := rng.Float32()*2 - 1
		vec[i] = v
		norm += float64(v) * float64(v)
	}

	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}

	return vec, nil
}

// Dimension returns the fixed output dimension.
func (p *DeterministicProvider) Dimension() int {
	return p.dim
}
