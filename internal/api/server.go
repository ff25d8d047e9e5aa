// Package api exposes indexing and question answering over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/bull/docqa/internal/answer"
	"github.com/bull/docqa/internal/retrieval"
	"github.com/bull/docqa/internal/segment"
)

// Indexer builds and describes the live index.
type Indexer interface {
	IndexDocument(ctx context.Context, text, source string, strategy segment.Strategy) (*retrieval.BuildResult, error)
	IndexDocuments(ctx context.Context, docs []retrieval.Document, strategy segment.Strategy) (*retrieval.BuildResult, error)
	Status() retrieval.Status
}

// Asker answers questions against the live index.
type Asker interface {
	Ask(ctx context.Context, query string, topK int) (*answer.Answer, error)
}

// Config holds server dependencies and request limits.
type Config struct {
	Indexer         Indexer
	Asker           Asker
	DefaultStrategy segment.Strategy
	DefaultTopK     int
	MaxTopK         int
	MaxUploadBytes  int64
	// MCP, when set, is mounted at /mcp.
	MCP    http.Handler
	Logger *slog.Logger
}

// Server is the HTTP front end.
type Server struct {
	router  *chi.Mux
	handler *Handler
}

// NewServer creates the router with middleware and routes installed.
func NewServer(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.DefaultStrategy == "" {
		cfg.DefaultStrategy = segment.StrategyFixed
	}
	if cfg.DefaultTopK <= 0 {
		cfg.DefaultTopK = 3
	}
	if cfg.MaxTopK < cfg.DefaultTopK {
		cfg.MaxTopK = cfg.DefaultTopK
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 32 << 20
	}

	s := &Server{
		router:  chi.NewRouter(),
		handler: NewHandler(cfg),
	}
	s.setupMiddleware()
	s.setupRoutes(cfg.MCP)
	return s
}

// setupMiddleware configures middleware for the router.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)

	// The browser front end is served from another origin.
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Mcp-Session-Id"},
		ExposedHeaders: []string{"Mcp-Session-Id"},
		MaxAge:         300,
	}))
}

// setupRoutes configures routes for the server.
func (s *Server) setupRoutes(mcpHandler http.Handler) {
	h := s.handler

	s.router.Get("/", NewLandingHandler())
	s.router.Get("/health", NewHealthHandler(h.indexer))

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/status", h.Status)
		r.Post("/documents", h.IndexText)
		r.Post("/documents/upload", h.IndexUpload)
		r.Post("/query", h.Query)
	})

	// Routes kept for clients of the original service.
	s.router.Post("/parse-pdf", h.ParsePDF)
	s.router.Post("/hackrx/run", h.HackRxRun)
	s.router.Post("/intelligent-query", h.IntelligentQuery)

	if mcpHandler != nil {
		s.router.Handle("/mcp", mcpHandler)
	}
}

// Router returns the chi router for external use.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
