package answer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/openai/openai-go"
)

const (
	// DefaultModel is the chat model used for answers.
	DefaultModel = "gpt-3.5-turbo"

	// DefaultTimeout bounds a single completion call.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxTokens is the maximum prompt length before truncation (in tokens).
	DefaultMaxTokens = 3000
)

// OpenAIConfig configures an OpenAIGenerator. Zero values select the defaults.
type OpenAIConfig struct {
	Model     string
	Timeout   time.Duration
	MaxTokens int
}

// OpenAIGenerator produces answers with the OpenAI chat completions API.
type OpenAIGenerator struct {
	client    *openai.Client
	model     string
	timeout   time.Duration
	maxTokens int
	logger    *slog.Logger
}

// NewOpenAIGenerator creates a generator with the given OpenAI client.
func NewOpenAIGenerator(client *openai.Client, cfg OpenAIConfig, logger *slog.Logger) *OpenAIGenerator {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OpenAIGenerator{
		client:    client,
		model:     cfg.Model,
		timeout:   cfg.Timeout,
		maxTokens: cfg.MaxTokens,
		logger:    logger,
	}
}

// Generate sends prompt as a single user message and returns the first choice.
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(g.truncatePrompt(prompt)),
		},
		Model: openai.ChatModel(g.model),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}

// truncatePrompt keeps the prompt within token limits.
// Uses rough estimate of 4 characters per token and keeps the tail, where the question is.
func (g *OpenAIGenerator) truncatePrompt(prompt string) string {
	maxChars := g.maxTokens * 4

	if len(prompt) <= maxChars {
		return prompt
	}

	g.logger.Warn("Truncating prompt", "from", len(prompt), "to", maxChars, "max_tokens", g.maxTokens)

	cut := len(prompt) - maxChars
	for cut < len(prompt) && !utf8.RuneStart(prompt[cut]) {
		cut++
	}
	return prompt[cut:]
}
