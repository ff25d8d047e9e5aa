// Package config loads docqa settings from defaults, an optional YAML file and DOCQA_ environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/bull/docqa/internal/segment"
)

const (
	// DefaultConfigFile is looked up in the working directory when no path is given.
	DefaultConfigFile = "docqa.yaml"

	// EnvPrefix prefixes every environment override, e.g. DOCQA_SERVER_PORT.
	EnvPrefix = "DOCQA"
)

// Embedder providers.
const (
	ProviderHash   = "hash"
	ProviderOpenAI = "openai"
	ProviderNone   = "none"
)

// Server transports.
const (
	TransportHTTP  = "http"
	TransportStdio = "stdio"
)

// Config holds the application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Embedder  EmbedderConfig  `mapstructure:"embedder" yaml:"embedder"`
	Generator GeneratorConfig `mapstructure:"generator" yaml:"generator"`
	Segment   SegmentConfig   `mapstructure:"segment" yaml:"segment"`
	Retrieval RetrievalConfig `mapstructure:"retrieval" yaml:"retrieval"`
}

// ServerConfig holds server settings
type ServerConfig struct {
	// Host is the bind address
	Host string `mapstructure:"host" yaml:"host"`
	// Port is the HTTP port
	Port int `mapstructure:"port" yaml:"port"`
	// Transport is "http" (REST API plus MCP at /mcp) or "stdio" (MCP only)
	Transport string `mapstructure:"transport" yaml:"transport"`
	// MaxUploadBytes caps multipart uploads
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes" yaml:"max_upload_bytes"`
	// ShutdownTimeout bounds graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// EmbedderConfig holds embedding provider settings
type EmbedderConfig struct {
	// Provider is "hash" (offline, deterministic) or "openai"
	Provider string `mapstructure:"provider" yaml:"provider"`
	// Model is the OpenAI embedding model
	Model string `mapstructure:"model" yaml:"model"`
	// Dimensions is the embedding vector size
	Dimensions int `mapstructure:"dimensions" yaml:"dimensions"`
	// BatchSize is the number of texts per embeddings request
	BatchSize int `mapstructure:"batch_size" yaml:"batch_size"`
	// BaseURL points at an OpenAI-compatible server
	BaseURL string `mapstructure:"base_url" yaml:"base_url,omitempty"`
	// Timeout bounds one embeddings request
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// GeneratorConfig holds answer generation settings
type GeneratorConfig struct {
	// Provider is "openai" or "none" (every answer is a fallback)
	Provider  string        `mapstructure:"provider" yaml:"provider"`
	Model     string        `mapstructure:"model" yaml:"model"`
	BaseURL   string        `mapstructure:"base_url" yaml:"base_url,omitempty"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxTokens int           `mapstructure:"max_tokens" yaml:"max_tokens"`
}

// SegmentConfig holds chunking settings
type SegmentConfig struct {
	ChunkSize       int    `mapstructure:"chunk_size" yaml:"chunk_size"`
	MinClauseLength int    `mapstructure:"min_clause_length" yaml:"min_clause_length"`
	Strategy        string `mapstructure:"strategy" yaml:"strategy"`
}

// RetrievalConfig holds query settings
type RetrievalConfig struct {
	DefaultTopK int `mapstructure:"default_top_k" yaml:"default_top_k"`
	MaxTopK     int `mapstructure:"max_top_k" yaml:"max_top_k"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			Transport:       TransportHTTP,
			MaxUploadBytes:  32 << 20, // 32MB
			ShutdownTimeout: 10 * time.Second,
		},
		Embedder: EmbedderConfig{
			Provider:   ProviderHash,
			Model:      "text-embedding-3-small",
			Dimensions: 384,
			BatchSize:  500,
			Timeout:    30 * time.Second,
		},
		Generator: GeneratorConfig{
			Provider:  ProviderOpenAI,
			Model:     "gpt-3.5-turbo",
			Timeout:   30 * time.Second,
			MaxTokens: 3000,
		},
		Segment: SegmentConfig{
			ChunkSize:       segment.DefaultChunkSize,
			MinClauseLength: segment.DefaultMinClauseLength,
			Strategy:        string(segment.StrategyFixed),
		},
		Retrieval: RetrievalConfig{
			DefaultTopK: 3,
			MaxTopK:     50,
		},
	}
}

// Load resolves configuration: defaults, then the YAML file, then DOCQA_* environment variables.
// An empty path reads ./docqa.yaml if it exists; an explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config %s: %w", path, err)
		}
	} else {
		v.SetConfigName(strings.TrimSuffix(DefaultConfigFile, filepath.Ext(DefaultConfigFile)))
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading config: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it during Unmarshal.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.transport", d.Server.Transport)
	v.SetDefault("server.max_upload_bytes", d.Server.MaxUploadBytes)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)

	v.SetDefault("embedder.provider", d.Embedder.Provider)
	v.SetDefault("embedder.model", d.Embedder.Model)
	v.SetDefault("embedder.dimensions", d.Embedder.Dimensions)
	v.SetDefault("embedder.batch_size", d.Embedder.BatchSize)
	v.SetDefault("embedder.base_url", d.Embedder.BaseURL)
	v.SetDefault("embedder.timeout", d.Embedder.Timeout)

	v.SetDefault("generator.provider", d.Generator.Provider)
	v.SetDefault("generator.model", d.Generator.Model)
	v.SetDefault("generator.base_url", d.Generator.BaseURL)
	v.SetDefault("generator.timeout", d.Generator.Timeout)
	v.SetDefault("generator.max_tokens", d.Generator.MaxTokens)

	v.SetDefault("segment.chunk_size", d.Segment.ChunkSize)
	v.SetDefault("segment.min_clause_length", d.Segment.MinClauseLength)
	v.SetDefault("segment.strategy", d.Segment.Strategy)

	v.SetDefault("retrieval.default_top_k", d.Retrieval.DefaultTopK)
	v.SetDefault("retrieval.max_top_k", d.Retrieval.MaxTopK)
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Server.Port <= 0 || c.Server.Port > 65535:
		return fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port)
	case c.Server.Transport != TransportHTTP && c.Server.Transport != TransportStdio:
		return fmt.Errorf("server.transport must be %q or %q, got %q", TransportHTTP, TransportStdio, c.Server.Transport)
	case c.Server.MaxUploadBytes <= 0:
		return fmt.Errorf("server.max_upload_bytes must be positive")
	case c.Embedder.Provider != ProviderHash && c.Embedder.Provider != ProviderOpenAI:
		return fmt.Errorf("embedder.provider must be %q or %q, got %q", ProviderHash, ProviderOpenAI, c.Embedder.Provider)
	case c.Embedder.Dimensions <= 0:
		return fmt.Errorf("embedder.dimensions must be positive, got %d", c.Embedder.Dimensions)
	case c.Embedder.BatchSize <= 0:
		return fmt.Errorf("embedder.batch_size must be positive, got %d", c.Embedder.BatchSize)
	case c.Generator.Provider != ProviderOpenAI && c.Generator.Provider != ProviderNone:
		return fmt.Errorf("generator.provider must be %q or %q, got %q", ProviderOpenAI, ProviderNone, c.Generator.Provider)
	case c.Segment.ChunkSize <= 0:
		return fmt.Errorf("segment.chunk_size must be positive, got %d", c.Segment.ChunkSize)
	case c.Segment.MinClauseLength < 0:
		return fmt.Errorf("segment.min_clause_length must not be negative, got %d", c.Segment.MinClauseLength)
	case c.Retrieval.DefaultTopK <= 0:
		return fmt.Errorf("retrieval.default_top_k must be positive, got %d", c.Retrieval.DefaultTopK)
	case c.Retrieval.MaxTopK < c.Retrieval.DefaultTopK:
		return fmt.Errorf("retrieval.max_top_k (%d) must be at least default_top_k (%d)", c.Retrieval.MaxTopK, c.Retrieval.DefaultTopK)
	}

	if _, err := segment.ParseStrategy(c.Segment.Strategy); err != nil {
		return fmt.Errorf("segment.strategy: %w", err)
	}
	return nil
}

// Save writes the configuration as YAML, creating parent directories.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	return os.WriteFile(path, data, 0644)
}
