package embedding

import (
	"fmt"
	"os"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// ClientConfig configures the shared OpenAI client.
type ClientConfig struct {
	APIKey  string        // Falls back to OPENAI_API_KEY
	BaseURL string        // Optional, for OpenAI-compatible servers
	Timeout time.Duration // Per-request timeout; 0 leaves the SDK default
}

// Client wraps the OpenAI client used for embeddings and answer generation.
type Client struct {
	client *openai.Client
}

// NewClient creates an OpenAI client. It returns an error if no API key is available.
// SDK-level retries are disabled; callers own their retry policy.
func NewClient(cfg ClientConfig) (*Client, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	client := openai.NewClient(opts...)
	return &Client{client: &client}, nil
}

// Client returns the underlying OpenAI client for use in other packages (e.g., answer generation).
func (c *Client) Client() *openai.Client {
	return c.client
}
