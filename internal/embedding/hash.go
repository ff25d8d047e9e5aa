package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
)

// DefaultHashDimension is the vector size used by HashEmbedder when none is given.
const DefaultHashDimension = 384

var tokenPattern = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`)

// HashEmbedder is a deterministic bag-of-words embedder based on feature hashing.
// It needs no network access, which makes it suitable for offline use and tests.
// Texts that share words end up close together; it carries no deeper semantics.
type HashEmbedder struct {
	dim int
}

// NewHashEmbedder creates a hash embedder producing vectors of the given dimension.
func NewHashEmbedder(dimension int) *HashEmbedder {
	if dimension <= 0 {
		dimension = DefaultHashDimension
	}
	return &HashEmbedder{dim: dimension}
}

// Dimension returns the vector size.
func (e *HashEmbedder) Dimension() int {
	return e.dim
}

// Embed returns one L2-normalised vector per text. Texts without tokens map to the zero vector.
func (e *HashEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, &ProviderError{Provider: "hash", Op: "embed", Err: err}
		}
		vectors[i] = e.embedOne(text)
	}
	return vectors, nil
}

func (e *HashEmbedder) embedOne(text string) []float32 {
	vec := make([]float32, e.dim)
	for _, tok := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		h := fnv.New64a()
		h.Write([]byte(tok))
		sum := h.Sum64()

		idx := int(sum % uint64(e.dim))
		if sum&(1<<63) != 0 {
			vec[idx]--
		} else {
			vec[idx]++
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	inv := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= inv
	}
	return vec
}
