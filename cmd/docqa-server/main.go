// Package main provides the docqa server entry point: REST API plus MCP.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/bull/docqa/internal/api"
	"github.com/bull/docqa/internal/app"
	"github.com/bull/docqa/internal/config"
	mcpserver "github.com/bull/docqa/internal/mcp"
)

var version = "dev"

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Create context that cancels on SIGTERM/SIGINT
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg, err := config.Load(getEnv("DOCQA_CONFIG", ""))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Logs go to stderr so stdio mode keeps stdout for the protocol.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel()}))
	slog.SetDefault(logger)

	components, err := app.New(cfg, logger)
	if err != nil {
		log.Fatalf("failed to initialise components: %v", err)
	}

	// Create MCP server
	server := mcpserver.NewServer(&mcpserver.Config{
		Retriever:       components.Retriever,
		Asker:           components.Composer,
		DefaultStrategy: components.Strategy,
		DefaultTopK:     cfg.Retrieval.DefaultTopK,
		MaxTopK:         cfg.Retrieval.MaxTopK,
		Version:         version,
		Logger:          logger,
	})

	// REST API with the MCP HTTP endpoint mounted at /mcp
	router := api.NewServer(api.Config{
		Indexer:         components.Retriever,
		Asker:           components.Composer,
		DefaultStrategy: components.Strategy,
		DefaultTopK:     cfg.Retrieval.DefaultTopK,
		MaxTopK:         cfg.Retrieval.MaxTopK,
		MaxUploadBytes:  cfg.Server.MaxUploadBytes,
		MCP:             server.HTTPHandler(),
		Logger:          logger,
	})

	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	if cfg.Server.Transport == config.TransportHTTP {
		// HTTP mode: REST API and MCP over HTTP for remote clients
		go shutdownOnCancel(ctx, httpServer, cfg)

		log.Printf("Starting HTTP server on %s (API at /api, MCP at /mcp, health at /health)", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server error: %v", err)
		}
		return
	}

	// Stdio mode: run MCP server over stdin/stdout for local clients
	// Also start the HTTP API in background for uploads and health checks
	go func() {
		log.Printf("Starting HTTP server on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("HTTP server error: %v", err)
		}
	}()
	go shutdownOnCancel(ctx, httpServer, cfg)

	log.Println("Starting docqa MCP server (stdio mode)...")
	if err := server.Run(ctx); err != nil {
		log.Printf("server error: %v", err)
		os.Exit(1)
	}
}

// shutdownOnCancel drains in-flight requests once ctx is cancelled.
func shutdownOnCancel(ctx context.Context, srv *http.Server, cfg *config.Config) {
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}
}

func logLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		return slog.LevelInfo
	}
	return level
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
