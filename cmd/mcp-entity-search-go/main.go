package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/shivay-couchbase/mcp-entity-search-go/internal/database"
	"github.com/shivay-couchbase/mcp-entity-search-go/internal/dataset"
	"github.com/shivay-couchbase/mcp-entity-search-go/internal/metrics"
	"github.com/shivay-couchbase/mcp-entity-search-go/internal/server"
)

var (
	libsqlURL   = flag.String("libsql-url", "", "libSQL database URL (default: file:./libsql.db)")
	authToken   = flag.String("auth-token", "", "Authentication token for remote databases")
	datasetPath = flag.String("dataset-config", "", "Path to the dataset yaml (canonicalization rule, index name, projection)")
	transport   = flag.String("transport", "stdio", "Transport to use: stdio or sse")
	addr        = flag.String("addr", ":8080", "Address to listen on when using SSE transport")
	sseEndpoint = flag.String("sse-endpoint", "/sse", "SSE endpoint path when using SSE transport")
)

func main() {
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("Received shutdown signal, closing server...")
		cancel()
	}()

	// Initialize datastore configuration from env, then flag overrides
	config := database.NewConfig()
	if *libsqlURL != "" {
		config.URL = *libsqlURL
	}
	if *authToken != "" {
		config.AuthToken = *authToken
	}

	// Dataset configuration is the only per-deployment variance; an
	// unparseable file is the one unrecoverable startup condition.
	ds := dataset.Default()
	if *datasetPath == "" {
		*datasetPath = os.Getenv("DATASET_CONFIG")
	}
	if *datasetPath != "" {
		loaded, err := dataset.Load(*datasetPath)
		if err != nil {
			log.Fatalf("Failed to load dataset config: %v", err)
		}
		ds = loaded
	}

	// Initialize metrics (noop if disabled)
	metrics.InitFromEnv()

	// The store is the single shared resource; the server composition
	// injects it into both the resolver and the orchestrator.
	store, err := database.NewStore(config, ds)
	if err != nil {
		log.Fatalf("Failed to create entity store: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("Error closing store: %v", err)
		}
	}()

	mcpServer, err := server.NewMCPServer(store)
	if err != nil {
		log.Fatalf("Failed to create MCP server: %v", err)
	}

	log.Printf("Starting entity search MCP server (dataset %s)...", ds.Name)
	switch *transport {
	case "stdio":
		go func() {
			if err := mcpServer.Run(ctx); err != nil {
				log.Printf("Server error: %v", err)
			}
		}()
	case "sse":
		go func() {
			if err := mcpServer.RunSSE(ctx, *addr, *sseEndpoint); err != nil {
				log.Printf("SSE server error: %v", err)
			}
		}()
	default:
		log.Fatalf("unknown transport: %s (expected: stdio or sse)", *transport)
	}

	<-ctx.Done()

	log.Println("Server stopped")
}
