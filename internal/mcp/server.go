package mcp

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/docqa/internal/answer"
	"github.com/bull/docqa/internal/index"
	"github.com/bull/docqa/internal/retrieval"
	"github.com/bull/docqa/internal/segment"
)

// Retriever is the index the tools operate on.
type Retriever interface {
	IndexDocument(ctx context.Context, text, source string, strategy segment.Strategy) (*retrieval.BuildResult, error)
	Query(ctx context.Context, text string, topK int) ([]index.Chunk, error)
	Status() retrieval.Status
}

// Asker answers questions against the index.
type Asker interface {
	Ask(ctx context.Context, query string, topK int) (*answer.Answer, error)
}

// Server wraps the MCP server with dependencies.
type Server struct {
	server *mcp.Server
}

// Config holds server dependencies.
type Config struct {
	Retriever       Retriever
	Asker           Asker
	DefaultStrategy segment.Strategy
	DefaultTopK     int
	MaxTopK         int
	Version         string
	Logger          *slog.Logger
}

func (c *Config) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) *Server {
	if cfg.DefaultStrategy == "" {
		cfg.DefaultStrategy = segment.StrategyFixed
	}
	if cfg.DefaultTopK <= 0 {
		cfg.DefaultTopK = 3
	}
	if cfg.MaxTopK < cfg.DefaultTopK {
		cfg.MaxTopK = cfg.DefaultTopK
	}
	if cfg.Version == "" {
		cfg.Version = "v0.1.0"
	}

	impl := &mcp.Implementation{
		Name:    "docqa",
		Version: cfg.Version,
	}

	server := mcp.NewServer(impl, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "index_document",
		Description: "Index a document for question answering. Replaces the previously indexed document.",
	}, makeIndexHandler(cfg))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ask_question",
		Description: "Answer a question from the indexed document. Returns the answer with the chunks it is based on.",
	}, makeAskHandler(cfg))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_chunks",
		Description: "Return the indexed document chunks closest to a query, without generating an answer.",
	}, makeSearchHandler(cfg))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_index_status",
		Description: "Get the current status of the index: whether a document is indexed, chunk count, sources and build time.",
	}, makeStatusHandler(cfg.Retriever))

	return &Server{server: server}
}

// Run starts the server with stdio transport (blocks until client disconnects).
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// HTTPHandler serves the tools over Streamable HTTP without sessions.
// The REST server mounts it at /mcp.
func (s *Server) HTTPHandler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, &mcp.StreamableHTTPOptions{Stateless: true})
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}
