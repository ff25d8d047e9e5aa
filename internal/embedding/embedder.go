// Package embedding maps text to fixed-dimension vectors.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go"
)

const (
	// DefaultModel is the OpenAI model used for generating embeddings.
	DefaultModel = "text-embedding-3-small"

	// DefaultDimension is the vector dimension for text-embedding-3-small.
	DefaultDimension = 1536

	// DefaultBatchSize balances requests-per-minute vs tokens-per-minute rate limits.
	DefaultBatchSize = 500
)

// OpenAIConfig configures an OpenAIEmbedder.
type OpenAIConfig struct {
	Model      string
	Dimensions int
	BatchSize  int
}

// OpenAIEmbedder generates embeddings through the OpenAI embeddings endpoint.
// It batches requests and retries with exponential backoff on rate limit errors.
type OpenAIEmbedder struct {
	client     *Client
	model      string
	dimensions int
	batchSize  int
	newBackOff func() backoff.BackOff
}

// NewOpenAIEmbedder creates an embedder. Zero config values select the defaults.
func NewOpenAIEmbedder(client *Client, cfg OpenAIConfig) *OpenAIEmbedder {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = DefaultDimension
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	return &OpenAIEmbedder{
		client:     client,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		batchSize:  cfg.BatchSize,
		newBackOff: defaultBackOff,
	}
}

// Dimension returns the length of every vector this embedder produces.
func (e *OpenAIEmbedder) Dimension() int {
	return e.dimensions
}

// Embed returns one vector per input text, in input order.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	all := make([][]float32, 0, len(texts))

	for i := 0; i < len(texts); i += e.batchSize {
		end := min(i+e.batchSize, len(texts))

		vectors, err := e.embedBatchWithRetry(ctx, texts[i:end])
		if err != nil {
			return nil, &ProviderError{Provider: "openai", Op: fmt.Sprintf("embed batch %d-%d", i, end), Err: err}
		}
		all = append(all, vectors...)
	}

	return all, nil
}

// embedBatchWithRetry embeds a single batch.
// Rate limit errors (HTTP 429) are retried with backoff; other errors fail immediately.
func (e *OpenAIEmbedder) embedBatchWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	var vectors [][]float32

	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
		Model: openai.EmbeddingModel(e.model),
	}
	if strings.HasPrefix(e.model, "text-embedding-3") {
		params.Dimensions = openai.Int(int64(e.dimensions))
	}

	operation := func() error {
		resp, err := e.client.client.Embeddings.New(ctx, params)
		if err != nil {
			if isRateLimitError(err) {
				return err
			}
			return backoff.Permanent(err)
		}

		if len(resp.Data) != len(texts) {
			return backoff.Permanent(fmt.Errorf("%w: sent %d, got %d", ErrShortResponse, len(texts), len(resp.Data)))
		}

		out := make([][]float32, len(texts))
		for _, data := range resp.Data {
			idx := int(data.Index)
			if idx < 0 || idx >= len(out) {
				return backoff.Permanent(fmt.Errorf("embedding index %d out of range", idx))
			}
			if len(data.Embedding) != e.dimensions {
				return backoff.Permanent(fmt.Errorf("%w: got %d, expected %d",
					ErrDimensionMismatch, len(data.Embedding), e.dimensions))
			}
			out[idx] = toFloat32(data.Embedding)
		}
		for i, v := range out {
			if v == nil {
				return backoff.Permanent(fmt.Errorf("%w: missing embedding %d", ErrShortResponse, i))
			}
		}
		vectors = out
		return nil
	}

	err := backoff.Retry(operation, backoff.WithContext(e.newBackOff(), ctx))
	return vectors, err
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return b
}

// isRateLimitError checks if the error is a rate limit error (HTTP 429).
func isRateLimitError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}

// toFloat32 converts []float64 to []float32.
func toFloat32(f64 []float64) []float32 {
	f32 := make([]float32, len(f64))
	for i, v := range f64 {
		f32[i] = float32(v)
	}
	return f32
}
