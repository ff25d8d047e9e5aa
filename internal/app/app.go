// Package app wires configuration into a ready-to-serve retriever and composer.
package app

import (
	"fmt"
	"log/slog"

	"github.com/bull/docqa/internal/answer"
	"github.com/bull/docqa/internal/config"
	"github.com/bull/docqa/internal/embedding"
	"github.com/bull/docqa/internal/retrieval"
	"github.com/bull/docqa/internal/segment"
)

// App holds the components shared by the server and the CLI.
type App struct {
	Config    *config.Config
	Retriever *retrieval.Retriever
	Composer  *answer.Composer
	Strategy  segment.Strategy
}

// New builds the embedder, generator, retriever and composer described by cfg.
// A missing OpenAI key is fatal for the openai embedder but only disables generation
// for the generator; answers then fall back to the retrieved text.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	strategy, err := segment.ParseStrategy(cfg.Segment.Strategy)
	if err != nil {
		return nil, err
	}

	embedder, err := newEmbedder(cfg.Embedder)
	if err != nil {
		return nil, err
	}

	generator, err := newGenerator(cfg.Generator, logger)
	if err != nil {
		logger.Warn("Answer generation disabled, answers will show retrieved text only", "error", err)
	}

	segmenter := segment.NewSegmenter(segment.Config{
		ChunkSize:       cfg.Segment.ChunkSize,
		MinClauseLength: cfg.Segment.MinClauseLength,
	})
	retriever := retrieval.NewRetriever(segmenter, embedder, logger)

	var gen answer.Generator
	if generator != nil {
		gen = generator
	}

	logger.Info("Components ready",
		"embedder", cfg.Embedder.Provider,
		"dimension", embedder.Dimension(),
		"generator", cfg.Generator.Provider,
		"generation_enabled", gen != nil,
		"strategy", strategy,
	)

	return &App{
		Config:    cfg,
		Retriever: retriever,
		Composer:  answer.NewComposer(retriever, gen, logger),
		Strategy:  strategy,
	}, nil
}

func newEmbedder(cfg config.EmbedderConfig) (retrieval.Embedder, error) {
	switch cfg.Provider {
	case config.ProviderHash:
		return embedding.NewHashEmbedder(cfg.Dimensions), nil
	case config.ProviderOpenAI:
		client, err := embedding.NewClient(embedding.ClientConfig{
			BaseURL: cfg.BaseURL,
			Timeout: cfg.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create embedding client: %w", err)
		}
		return embedding.NewOpenAIEmbedder(client, embedding.OpenAIConfig{
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			BatchSize:  cfg.BatchSize,
		}), nil
	default:
		return nil, fmt.Errorf("unknown embedder provider %q", cfg.Provider)
	}
}

func newGenerator(cfg config.GeneratorConfig, logger *slog.Logger) (*answer.OpenAIGenerator, error) {
	switch cfg.Provider {
	case config.ProviderNone:
		return nil, fmt.Errorf("generator provider is %q", config.ProviderNone)
	case config.ProviderOpenAI:
		// Retries are left to the caller; a failed call becomes a fallback answer.
		client, err := embedding.NewClient(embedding.ClientConfig{
			BaseURL: cfg.BaseURL,
			Timeout: cfg.Timeout,
		})
		if err != nil {
			return nil, err
		}
		return answer.NewOpenAIGenerator(client.Client(), answer.OpenAIConfig{
			Model:     cfg.Model,
			Timeout:   cfg.Timeout,
			MaxTokens: cfg.MaxTokens,
		}, logger), nil
	default:
		return nil, fmt.Errorf("unknown generator provider %q", cfg.Provider)
	}
}
