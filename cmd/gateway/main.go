package main

import (
	"context"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"qdrant-gateway/internal/config"
	"qdrant-gateway/internal/embedding"
	"qdrant-gateway/internal/http"
	"qdrant-gateway/internal/mcp"
	"qdrant-gateway/internal/service"
	"qdrant-gateway/internal/vectorstore"
)

const (
	qdrantMaxRetries = 30
	qdrantRetryDelay = time.Second
)

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	logOut := os.Stdout
	if cfg.MCPStdio {
		// stdout carries JSON-RPC frames in stdio mode; logs must not mix in
		logOut = os.Stderr
	}
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(logOut, opts)
	} else {
		handler = slog.NewTextHandler(logOut, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	ctx := context.Background()

	// Connect to Qdrant; traffic must not be accepted before the store is live
	store, err := vectorstore.NewQdrantStore(cfg.QdrantHost, cfg.QdrantGRPCPort)
	if err != nil {
		log.Fatalf("Failed to create Qdrant client: %v", err)
	}
	if err := waitForQdrant(ctx, store); err != nil {
		log.Fatalf("Failed to connect to Qdrant: %v", err)
	}
	slog.Info("Connected to Qdrant", "host", cfg.QdrantHost, "grpc_port", cfg.QdrantGRPCPort)

	// Validate embedding client vector size (fail-fast)
	embedder := embedding.NewClient(cfg.EmbeddingBaseURL, cfg.EmbeddingAPIKey, cfg.EmbeddingModel, cfg.VectorSize)
	testEmbeddings, err := embedder.EmbedTexts(ctx, []string{"test"})
	if err != nil {
		log.Fatalf("Failed to validate embedding client: %v", err)
	}
	if len(testEmbeddings) == 0 || len(testEmbeddings[0]) != cfg.VectorSize {
		log.Fatalf("Embedding vector size mismatch: expected %d, got %d", cfg.VectorSize, len(testEmbeddings[0]))
	}
	slog.Info("Embedding client validated", "model", cfg.EmbeddingModel, "vector_size", cfg.VectorSize)

	tokens, err := service.NewTiktokenCounter()
	if err != nil {
		log.Fatalf("Failed to load token counter: %v", err)
	}

	// Ensure default collection exists with configured vector size
	if err := store.EnsureCollection(ctx, cfg.CollectionName, cfg.VectorSize, cfg.DistanceMetric); err != nil {
		log.Fatalf("Failed to ensure default collection: %v", err)
	}
	slog.Info("Default collection ready", "collection", cfg.CollectionName, "vector_size", cfg.VectorSize)

	dispatcher := service.NewDispatcher(store, embedder, tokens, cfg)
	mcpHandler := mcp.NewHandler(dispatcher, cfg)

	if cfg.MCPStdio {
		slog.Info("Starting MCP server in stdio mode", "server", cfg.ServerName, "version", cfg.ServerVersion)
		stdioServer := mcp.NewStdioServer(mcpHandler, os.Stdin, os.Stdout)
		if err := stdioServer.Run(ctx); err != nil {
			log.Fatalf("MCP stdio server failed: %v", err)
		}
		return
	}

	// MCP HTTP server on its own port
	go func() {
		r := chi.NewRouter()
		r.Use(middleware.Recoverer)
		r.Use(http.LoggerMiddleware)
		r.Method(nethttp.MethodPost, "/", mcp.NewHTTPHandler(mcpHandler))

		addr := ":" + cfg.MCPPort
		slog.Info("Starting MCP HTTP server", "addr", addr)
		if err := nethttp.ListenAndServe(addr, r); err != nil {
			log.Fatalf("MCP HTTP server failed to start: %v", err)
		}
	}()

	// REST API server
	deps := &http.Deps{
		Dispatcher:      dispatcher,
		ServerVersion:   cfg.ServerVersion,
		QdrantConnected: true,
	}
	router := http.NewRouter(deps)

	addr := ":" + cfg.APIPort
	slog.Info("Starting API server", "addr", addr)
	if err := nethttp.ListenAndServe(addr, router); err != nil {
		log.Fatalf("API server failed to start: %v", err)
	}
}

// waitForQdrant polls the store until it answers, with a bounded retry loop.
func waitForQdrant(ctx context.Context, store vectorstore.VectorStore) error {
	var lastErr error
	for i := 0; i < qdrantMaxRetries; i++ {
		if _, lastErr = store.ListCollections(ctx); lastErr == nil {
			return nil
		}
		slog.Info("Waiting for Qdrant to start...", "attempt", i+1, "max_attempts", qdrantMaxRetries)
		time.Sleep(qdrantRetryDelay)
	}
	return lastErr
}
