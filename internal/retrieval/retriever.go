// Package retrieval ties segmentation, embedding and the vector index together.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bull/docqa/internal/index"
	"github.com/bull/docqa/internal/segment"
)

// Embedder maps a batch of texts to vectors of one fixed dimension, same length and order as the input.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// Document is one input to a batch build.
type Document struct {
	Source string
	Text   string
}

// BuildResult contains statistics about a build.
type BuildResult struct {
	Generation string
	Documents  int
	Chunks     int
	Skipped    []string // sources that produced no chunks
	Duration   time.Duration
	Texts      []string // chunk texts in id order
}

// Status describes the live index generation.
type Status = index.Stats

// Retriever indexes documents and answers nearest-chunk queries.
// It is the only component that touches the VectorIndex.
type Retriever struct {
	segmenter *segment.Segmenter
	embedder  Embedder
	index     *index.VectorIndex
	logger    *slog.Logger
}

// NewRetriever creates a retriever. The index dimension is taken from the embedder.
func NewRetriever(segmenter *segment.Segmenter, embedder Embedder, logger *slog.Logger) *Retriever {
	if segmenter == nil {
		segmenter = segment.NewSegmenter(segment.Config{})
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{
		segmenter: segmenter,
		embedder:  embedder,
		index:     index.New(embedder.Dimension()),
		logger:    logger,
	}
}

// IndexDocument segments text, embeds every chunk in one batch and replaces the index.
// Returns ErrEmptyDocument, leaving the previous index untouched, when there is nothing to index.
func (r *Retriever) IndexDocument(ctx context.Context, text, source string, strategy segment.Strategy) (*BuildResult, error) {
	return r.IndexDocuments(ctx, []Document{{Source: source, Text: text}}, strategy)
}

// IndexDocuments builds one generation out of several documents.
// Chunk ids are dense across the whole batch. Documents that produce no chunks are
// reported in Skipped; the call fails with ErrEmptyDocument only when the batch is empty overall.
func (r *Retriever) IndexDocuments(ctx context.Context, docs []Document, strategy segment.Strategy) (*BuildResult, error) {
	start := time.Now()
	result := &BuildResult{Documents: len(docs)}

	var chunks []index.Chunk
	for _, doc := range docs {
		segmented := r.segmenter.Segment(doc.Text, doc.Source, strategy)
		if len(segmented) == 0 {
			r.logger.Warn("Document produced no chunks", "source", doc.Source, "strategy", strategy)
			result.Skipped = append(result.Skipped, doc.Source)
			continue
		}
		for _, c := range segmented {
			c.ID = len(chunks)
			chunks = append(chunks, c)
		}
	}
	if len(chunks) == 0 {
		return nil, ErrEmptyDocument
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	// Embedding happens outside the index lock.
	vectors, err := r.embed(ctx, texts)
	if err != nil {
		return nil, err
	}

	gen, err := r.index.Build(vectors, chunks)
	if err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}

	result.Generation = gen
	result.Chunks = len(chunks)
	result.Texts = texts
	result.Duration = time.Since(start)
	r.logger.Info("Index built",
		"generation", gen,
		"documents", len(docs)-len(result.Skipped),
		"chunks", len(chunks),
		"strategy", strategy,
		"duration", result.Duration,
	)
	return result, nil
}

// Query returns up to topK chunks nearest to text, best match first.
// Returns ErrIndexNotBuilt if no build has succeeded yet.
func (r *Retriever) Query(ctx context.Context, text string, topK int) ([]index.Chunk, error) {
	if !r.index.Built() {
		return nil, ErrIndexNotBuilt
	}
	if topK <= 0 {
		return nil, fmt.Errorf("query: %w: got %d", index.ErrInvalidTopK, topK)
	}

	vectors, err := r.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}

	hits, err := r.index.Search(vectors[0], topK)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	chunks := make([]index.Chunk, len(hits))
	for i, h := range hits {
		chunks[i] = h.Chunk
	}
	r.logger.Debug("Query served", "top_k", topK, "hits", len(chunks))
	return chunks, nil
}

// Status reports the live generation.
func (r *Retriever) Status() Status {
	return r.index.Stats()
}

// embed calls the embedder and checks it honoured the batch contract.
func (r *Retriever) embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := r.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbedder, err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", ErrEmbedder, len(vectors), len(texts))
	}
	return vectors, nil
}
