// Package answer turns retrieved chunks into an Answer, with or without a generation backend.
package answer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bull/docqa/internal/index"
)

// FallbackNotice is the Answer text used whenever generation fails.
const FallbackNotice = "Answer generation failed (backend unavailable, quota exceeded or error). Showing the most relevant document text instead."

const fallbackExplanation = "These are the top-matching chunks from the indexed document."

// ErrNoGenerator is the failure reason recorded when no generation backend is configured.
var ErrNoGenerator = errors.New("no generation backend configured")

// Source tags where an Answer's text came from.
type Source string

const (
	SourceGenerated Source = "generated"
	SourceFallback  Source = "fallback"
)

// Answer is the response to a question.
type Answer struct {
	Text        string        `json:"text"`
	Basis       []index.Chunk `json:"basis"`
	Source      Source        `json:"source"`
	Explanation string        `json:"explanation"`
}

// Generator is the generation backend: one prompt in, one completion out.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Retriever supplies the chunks an Answer is based on.
type Retriever interface {
	Query(ctx context.Context, text string, topK int) ([]index.Chunk, error)
}

// Composer builds Answers. Generation failures never escape it.
type Composer struct {
	retriever Retriever
	generator Generator
	logger    *slog.Logger
}

// NewComposer creates a composer. A nil generator makes every Answer a fallback.
func NewComposer(retriever Retriever, generator Generator, logger *slog.Logger) *Composer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Composer{
		retriever: retriever,
		generator: generator,
		logger:    logger,
	}
}

// Ask retrieves the topK chunks for query and composes an Answer from them.
// Retrieval errors are returned unchanged.
func (c *Composer) Ask(ctx context.Context, query string, topK int) (*Answer, error) {
	retrieved, err := c.retriever.Query(ctx, query, topK)
	if err != nil {
		return nil, err
	}
	return c.Compose(ctx, query, retrieved), nil
}

// Compose makes one generation attempt over the retrieved context and always returns an Answer.
func (c *Composer) Compose(ctx context.Context, query string, retrieved []index.Chunk) *Answer {
	basis := retrieved
	if basis == nil {
		basis = []index.Chunk{}
	}

	switch out := c.attempt(ctx, BuildPrompt(query, retrieved)).(type) {
	case Generated:
		return &Answer{
			Text:        out.Text,
			Basis:       basis,
			Source:      SourceGenerated,
			Explanation: fmt.Sprintf("Based on top %d chunks from the document.", len(retrieved)),
		}
	case Failed:
		c.logger.Warn("Generation failed, returning fallback answer", "error", out.Reason, "chunks", len(retrieved))
		return &Answer{
			Text:        FallbackNotice,
			Basis:       basis,
			Source:      SourceFallback,
			Explanation: fallbackExplanation,
		}
	default:
		panic(fmt.Sprintf("answer: unexpected outcome %T", out))
	}
}

// attempt is the single point where generator errors become data.
func (c *Composer) attempt(ctx context.Context, prompt string) Outcome {
	if c.generator == nil {
		return Failed{Reason: ErrNoGenerator}
	}
	text, err := c.generator.Generate(ctx, prompt)
	if err != nil {
		return Failed{Reason: err}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Failed{Reason: errors.New("empty completion")}
	}
	return Generated{Text: text}
}

// BuildPrompt joins the chunk texts in retrieval order and wraps them with the question.
func BuildPrompt(query string, retrieved []index.Chunk) string {
	texts := make([]string, len(retrieved))
	for i, c := range retrieved {
		texts[i] = c.Text
	}
	return fmt.Sprintf("Context:\n%s\n\nQuestion:\n%s\n\nAnswer:", strings.Join(texts, "\n"), query)
}
