package index

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chunksFor(source string, texts ...string) []Chunk {
	chunks := make([]Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = Chunk{ID: i, Source: source, Text: text}
	}
	return chunks
}

func TestSearch_EmptyIndex(t *testing.T) {
	ix := New(0)

	hits, err := ix.Search([]float32{1, 2, 3}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
	assert.False(t, ix.Built())
}

func TestSearch_OrdersByDistance(t *testing.T) {
	ix := New(2)
	_, err := ix.Build(
		[][]float32{{10, 10}, {1, 1}, {0, 0}, {5, 5}},
		chunksFor("doc", "far", "near", "origin", "mid"),
	)
	require.NoError(t, err)

	hits, err := ix.Search([]float32{0, 0}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)

	assert.Equal(t, "origin", hits[0].Chunk.Text)
	assert.Equal(t, "near", hits[1].Chunk.Text)
	assert.Equal(t, "mid", hits[2].Chunk.Text)
	assert.InDelta(t, 0.0, hits[0].Distance, 1e-9)
	assert.InDelta(t, 2.0, hits[1].Distance, 1e-9)
	assert.InDelta(t, 50.0, hits[2].Distance, 1e-9)
}

func TestSearch_TieBreakBySlot(t *testing.T) {
	ix := New(0)
	_, err := ix.Build(
		[][]float32{{3, 3}, {1, 0}, {1, 0}, {1, 0}},
		chunksFor("doc", "other", "A", "B", "C"),
	)
	require.NoError(t, err)

	hits, err := ix.Search([]float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "A", hits[0].Chunk.Text)
	assert.Equal(t, "B", hits[1].Chunk.Text)
	assert.Equal(t, "C", hits[2].Chunk.Text)
}

func TestSearch_Deterministic(t *testing.T) {
	ix := New(0)
	vectors := make([][]float32, 50)
	texts := make([]string, 50)
	for i := range vectors {
		vectors[i] = []float32{float32(i % 7), float32(i % 3), 1}
		texts[i] = fmt.Sprintf("chunk-%d", i)
	}
	_, err := ix.Build(vectors, chunksFor("doc", texts...))
	require.NoError(t, err)

	query := []float32{2, 1, 1}
	first, err := ix.Search(query, 10)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := ix.Search(query, 10)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestSearch_TopKBound(t *testing.T) {
	for _, n := range []int{1, 2, 5, 9} {
		vectors := make([][]float32, n)
		for i := range vectors {
			vectors[i] = []float32{float32(i), 0}
		}
		texts := make([]string, n)
		for i := range texts {
			texts[i] = fmt.Sprintf("t%d", i)
		}

		ix := New(2)
		_, err := ix.Build(vectors, chunksFor("doc", texts...))
		require.NoError(t, err)

		for _, k := range []int{1, 2, 3, 5, 8, 20} {
			hits, err := ix.Search([]float32{0, 0}, k)
			require.NoError(t, err)
			assert.Len(t, hits, min(k, n), "n=%d k=%d", n, k)
		}
	}
}

func TestSearch_InvalidTopK(t *testing.T) {
	ix := New(0)
	_, err := ix.Search([]float32{1}, 0)
	assert.ErrorIs(t, err, ErrInvalidTopK)
}

func TestSearch_QueryDimensionMismatch(t *testing.T) {
	ix := New(0)
	_, err := ix.Build([][]float32{{1, 2}}, chunksFor("doc", "a"))
	require.NoError(t, err)

	_, err = ix.Search([]float32{1, 2, 3}, 1)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestBuild_DimensionGuardPreservesPriorIndex(t *testing.T) {
	ix := New(0)
	genID, err := ix.Build([][]float32{{0, 0}, {1, 1}}, chunksFor("old", "a", "b"))
	require.NoError(t, err)
	before, err := ix.Search([]float32{0, 0}, 5)
	require.NoError(t, err)

	_, err = ix.Build([][]float32{{0, 0, 0}}, chunksFor("new", "c"))
	require.ErrorIs(t, err, ErrDimensionMismatch)

	after, err := ix.Search([]float32{0, 0}, 5)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, genID, ix.Stats().Generation)
	assert.Equal(t, 2, ix.Dimension())
}

func TestBuild_MixedDimensions(t *testing.T) {
	ix := New(0)
	_, err := ix.Build([][]float32{{0, 0}, {1, 1, 1}}, chunksFor("doc", "a", "b"))
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	assert.False(t, ix.Built())
	assert.Equal(t, 0, ix.Dimension())
}

func TestBuild_ConfiguredDimension(t *testing.T) {
	ix := New(3)
	_, err := ix.Build([][]float32{{1, 2}}, chunksFor("doc", "a"))
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestBuild_LengthMismatchPreservesPriorIndex(t *testing.T) {
	ix := New(0)
	_, err := ix.Build([][]float32{{1}}, chunksFor("old", "a"))
	require.NoError(t, err)

	_, err = ix.Build([][]float32{{1}, {2}}, chunksFor("new", "b"))
	require.ErrorIs(t, err, ErrLengthMismatch)

	assert.Equal(t, 1, ix.Len())
	assert.Equal(t, []string{"old"}, ix.Stats().Sources)
}

func TestBuild_ReplacesWholesale(t *testing.T) {
	ix := New(0)
	first, err := ix.Build([][]float32{{0}, {1}, {2}}, chunksFor("one", "a", "b", "c"))
	require.NoError(t, err)
	second, err := ix.Build([][]float32{{5}}, chunksFor("two", "d"))
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	hits, err := ix.Search([]float32{0}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "d", hits[0].Chunk.Text)
}

func TestBuild_EmptyBatchLeavesEmptyGeneration(t *testing.T) {
	ix := New(0)
	_, err := ix.Build([][]float32{{1}}, chunksFor("doc", "a"))
	require.NoError(t, err)

	_, err = ix.Build(nil, nil)
	require.NoError(t, err)

	assert.True(t, ix.Built())
	assert.Equal(t, 0, ix.Len())
	hits, err := ix.Search([]float32{1}, 3)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestBuild_CopiesVectors(t *testing.T) {
	ix := New(0)
	vec := []float32{1, 1}
	_, err := ix.Build([][]float32{vec}, chunksFor("doc", "a"))
	require.NoError(t, err)

	vec[0] = 100
	hits, err := ix.Search([]float32{1, 1}, 1)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, hits[0].Distance, 1e-9)
}

func TestStats(t *testing.T) {
	ix := New(0)
	stats := ix.Stats()
	assert.False(t, stats.Built)
	assert.Empty(t, stats.Sources)

	chunks := []Chunk{
		{ID: 0, Source: "a.pdf", Text: "x"},
		{ID: 1, Source: "b.pdf", Text: "y"},
		{ID: 2, Source: "a.pdf", Text: "z"},
	}
	_, err := ix.Build([][]float32{{1}, {2}, {3}}, chunks)
	require.NoError(t, err)

	stats = ix.Stats()
	assert.True(t, stats.Built)
	assert.Equal(t, 3, stats.Entries)
	assert.Equal(t, 1, stats.Dimension)
	assert.Equal(t, []string{"a.pdf", "b.pdf"}, stats.Sources)
	assert.NotEmpty(t, stats.Generation)
	assert.False(t, stats.BuiltAt.IsZero())
}

// Each generation tags every chunk with its own source, so a search that mixed
// two generations would return hits with different sources.
func TestConcurrentBuildAndSearch(t *testing.T) {
	const dim = 4
	makeGen := func(source string, n int) ([][]float32, []Chunk) {
		vectors := make([][]float32, n)
		chunks := make([]Chunk, n)
		for i := 0; i < n; i++ {
			vectors[i] = []float32{float32(i), 0, 0, 0}
			chunks[i] = Chunk{ID: i, Source: source, Text: fmt.Sprintf("%s-%d", source, i)}
		}
		return vectors, chunks
	}

	ix := New(dim)
	v, c := makeGen("gen-0", 10)
	_, err := ix.Build(v, c)
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; i <= 200; i++ {
			v, c := makeGen(fmt.Sprintf("gen-%d", i), 5+i%10)
			if _, err := ix.Build(v, c); err != nil {
				t.Errorf("build %d: %v", i, err)
				return
			}
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 300; i++ {
				hits, err := ix.Search([]float32{0, 0, 0, 0}, 100)
				if err != nil {
					t.Errorf("search: %v", err)
					return
				}
				if len(hits) == 0 {
					t.Errorf("search returned no hits")
					return
				}
				source := hits[0].Chunk.Source
				for _, h := range hits {
					if h.Chunk.Source != source {
						t.Errorf("mixed generations: %s and %s", source, h.Chunk.Source)
						return
					}
				}
			}
		}()
	}
	wg.Wait()
}
