// Package index provides the in-memory nearest-neighbour index that backs retrieval.
package index

import (
	"container/heap"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// VectorIndex is an exact nearest-neighbour index under squared Euclidean distance.
//
// Every Build replaces the whole index with a new generation. Searches take a reference
// to the live generation and scan it without holding the lock, so a concurrent Build
// never changes what an in-flight Search sees.
type VectorIndex struct {
	mu        sync.RWMutex
	current   *generation
	dimension int
}

// New creates an empty index. A dimension of 0 means the dimension is fixed by
// the first non-empty build.
func New(dimension int) *VectorIndex {
	if dimension < 0 {
		dimension = 0
	}
	return &VectorIndex{dimension: dimension}
}

// Build replaces the index contents with vectors[i] bound to chunks[i].
// It is all-or-nothing: on error the previous generation stays live.
// Returns the id of the new generation.
func (ix *VectorIndex) Build(vectors [][]float32, chunks []Chunk) (string, error) {
	if len(vectors) != len(chunks) {
		return "", fmt.Errorf("%w: %d vectors, %d chunks", ErrLengthMismatch, len(vectors), len(chunks))
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	dim := ix.dimension
	for i, v := range vectors {
		if dim == 0 {
			dim = len(v)
		}
		if len(v) == 0 || len(v) != dim {
			return "", fmt.Errorf("%w: vector %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(v), dim)
		}
	}

	entries := make([]entry, len(vectors))
	for i := range vectors {
		vec := make([]float32, len(vectors[i]))
		copy(vec, vectors[i])
		entries[i] = entry{vector: vec, chunk: chunks[i]}
	}

	gen := &generation{
		id:        uuid.New().String(),
		entries:   entries,
		dimension: dim,
		builtAt:   time.Now().UTC(),
	}
	ix.dimension = dim
	ix.current = gen
	return gen.id, nil
}

// Search returns the topK entries closest to query, nearest first.
// Equal distances are ordered by insertion slot. An empty index yields an empty
// result, and topK larger than the index returns every entry.
func (ix *VectorIndex) Search(query []float32, topK int) ([]Hit, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidTopK, topK)
	}

	gen := ix.snapshot()
	if gen == nil || len(gen.entries) == 0 {
		return []Hit{}, nil
	}
	if len(query) != gen.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(query), gen.dimension)
	}

	k := min(topK, len(gen.entries))
	worst := make(candidateHeap, 0, k)
	for slot := range gen.entries {
		c := candidate{slot: slot, dist: squaredL2(query, gen.entries[slot].vector)}
		if worst.Len() < k {
			heap.Push(&worst, c)
			continue
		}
		if c.before(worst[0]) {
			worst[0] = c
			heap.Fix(&worst, 0)
		}
	}

	sort.Slice(worst, func(i, j int) bool { return worst[i].before(worst[j]) })

	hits := make([]Hit, len(worst))
	for i, c := range worst {
		hits[i] = Hit{Chunk: gen.entries[c.slot].chunk, Distance: c.dist}
	}
	return hits, nil
}

// Built reports whether any build has completed.
func (ix *VectorIndex) Built() bool {
	return ix.snapshot() != nil
}

// Len returns the number of entries in the live generation.
func (ix *VectorIndex) Len() int {
	gen := ix.snapshot()
	if gen == nil {
		return 0
	}
	return len(gen.entries)
}

// Dimension returns the fixed vector dimension, or 0 if not yet known.
func (ix *VectorIndex) Dimension() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.dimension
}

// Stats summarises the live generation.
func (ix *VectorIndex) Stats() Stats {
	ix.mu.RLock()
	gen, dim := ix.current, ix.dimension
	ix.mu.RUnlock()

	stats := Stats{Dimension: dim, Sources: []string{}}
	if gen == nil {
		return stats
	}
	stats.Built = true
	stats.Generation = gen.id
	stats.Entries = len(gen.entries)
	stats.BuiltAt = gen.builtAt

	seen := make(map[string]struct{})
	for _, e := range gen.entries {
		if _, ok := seen[e.chunk.Source]; ok {
			continue
		}
		seen[e.chunk.Source] = struct{}{}
		stats.Sources = append(stats.Sources, e.chunk.Source)
	}
	return stats
}

func (ix *VectorIndex) snapshot() *generation {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.current
}
