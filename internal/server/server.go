package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/time/rate"

	"github.com/shivay-couchbase/mcp-entity-search-go/internal/apperr"
	"github.com/shivay-couchbase/mcp-entity-search-go/internal/apptype"
	"github.com/shivay-couchbase/mcp-entity-search-go/internal/buildinfo"
	"github.com/shivay-couchbase/mcp-entity-search-go/internal/database"
	"github.com/shivay-couchbase/mcp-entity-search-go/internal/dataset"
	"github.com/shivay-couchbase/mcp-entity-search-go/internal/metrics"
	"github.com/shivay-couchbase/mcp-entity-search-go/internal/resolve"
	"github.com/shivay-couchbase/mcp-entity-search-go/internal/similar"
)

const serverName = "mcp-entity-search-go"

// MCPServer handles MCP protocol communication
type MCPServer struct {
	server       *mcp.Server
	store        *database.Store
	resolver     *resolve.Resolver
	orchestrator *similar.Orchestrator
	ds           *dataset.Config
	limiter      *rate.Limiter
}

// NewMCPServer creates a new MCP server wired to the given store. The
// resolver and orchestrator are built here: the store is the single shared
// resource, injected into both.
func NewMCPServer(store *database.Store) (*MCPServer, error) {
	ds := store.Dataset()
	canon, err := ds.Canonicalization.Build()
	if err != nil {
		return nil, err
	}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    serverName,
		Version: buildinfo.Version,
	}, nil)

	resolver := resolve.New(store, canon)
	orchestrator := similar.New(store, resolver, ds.Projection, similar.Options{
		Limit:          ds.Search.Limit,
		SearchTimeout:  ds.Search.SearchTimeout.Std(),
		HydrateTimeout: ds.Search.HydrateTimeout.Std(),
	})

	var limiter *rate.Limiter
	if ds.RateLimit.PerSecond > 0 {
		burst := ds.RateLimit.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(ds.RateLimit.PerSecond), burst)
	}

	mcpServer := &MCPServer{
		server:       server,
		store:        store,
		resolver:     resolver,
		orchestrator: orchestrator,
		ds:           ds,
		limiter:      limiter,
	}

	// initialize metrics from env (no-op if disabled)
	metrics.InitFromEnv()
	mcpServer.setupToolHandlers()
	return mcpServer, nil
}

// setupToolHandlers registers all MCP tools
func (s *MCPServer) setupToolHandlers() {
	fetchEntityInputSchema, err := jsonschema.For[apptype.FetchEntityArgs]()
	if err != nil {
		panic(fmt.Sprintf("failed to create schema for FetchEntityArgs: %v", err))
	}
	fetchEntityOutputSchema, err := jsonschema.For[apptype.EntityResult]()
	if err != nil {
		panic(fmt.Sprintf("failed to create schema for EntityResult: %v", err))
	}
	findSimilarInputSchema, err := jsonschema.For[apptype.FindSimilarArgs]()
	if err != nil {
		panic(fmt.Sprintf("failed to create schema for FindSimilarArgs: %v", err))
	}
	findSimilarOutputSchema, err := jsonschema.For[apptype.SimilarResult]()
	if err != nil {
		panic(fmt.Sprintf("failed to create schema for SimilarResult: %v", err))
	}
	healthInputSchema, err := jsonschema.For[apptype.HealthArgs]()
	if err != nil {
		panic(fmt.Sprintf("failed to create schema for HealthArgs: %v", err))
	}
	healthOutputSchema, err := jsonschema.For[apptype.HealthResult]()
	if err != nil {
		panic(fmt.Sprintf("failed to create schema for HealthResult: %v", err))
	}

	mcp.AddTool(s.server, &mcp.Tool{
		Name:         "fetch_entity_by_name",
		Title:        "Fetch Entity By Name",
		Description:  "Fetch a stored entity by name. The name is canonicalized per dataset configuration before lookup.",
		InputSchema:  fetchEntityInputSchema,
		OutputSchema: fetchEntityOutputSchema,
	}, s.handleFetchEntity)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:         "find_similar_entities",
		Title:        "Find Similar Entities",
		Description:  "Find entities similar to the named one using its stored embedding, ranked by similarity score.",
		InputSchema:  findSimilarInputSchema,
		OutputSchema: findSimilarOutputSchema,
	}, s.handleFindSimilar)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:         "health_check",
		Title:        "Health Check",
		Description:  "Returns server and dataset configuration information.",
		InputSchema:  healthInputSchema,
		OutputSchema: healthOutputSchema,
	}, s.handleHealth)
}

// allow applies the optional tool-call rate limit.
func (s *MCPServer) allow() error {
	if s.limiter == nil || s.limiter.Allow() {
		return nil
	}
	return apperr.E(apperr.KindUnavailable, "server", "rate limit exceeded, retry later")
}

// handleFetchEntity handles the fetch_entity_by_name tool call
func (s *MCPServer) handleFetchEntity(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.FetchEntityArgs],
) (*mcp.CallToolResultFor[apptype.EntityResult], error) {
	done := metrics.TimeTool("fetch_entity_by_name")
	var success bool
	defer func() { done(success) }()
	if err := s.allow(); err != nil {
		return nil, err
	}

	rid := uuid.NewString()
	entity, err := s.resolver.Resolve(ctx, params.Arguments.Name)
	if err != nil {
		log.Printf("[%s] fetch_entity_by_name %q failed: %v", rid, params.Arguments.Name, err)
		return nil, fmt.Errorf("fetch failed: %w", err)
	}
	success = true

	return &mcp.CallToolResultFor[apptype.EntityResult]{
		Content: []mcp.Content{
			&mcp.TextContent{
				Text: fmt.Sprintf("Fetched entity %q", entity.Name),
			},
		},
		StructuredContent: apptype.EntityResult{Entity: *entity},
	}, nil
}

// handleFindSimilar handles the find_similar_entities tool call
func (s *MCPServer) handleFindSimilar(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.FindSimilarArgs],
) (*mcp.CallToolResultFor[apptype.SimilarResult], error) {
	done := metrics.TimeTool("find_similar_entities")
	var success bool
	defer func() { done(success) }()
	if err := s.allow(); err != nil {
		return nil, err
	}

	rid := uuid.NewString()
	results, err := s.orchestrator.FindSimilar(ctx, params.Arguments.Name, params.Arguments.Limit)
	if err != nil {
		log.Printf("[%s] find_similar_entities %q failed: %v", rid, params.Arguments.Name, err)
		return nil, fmt.Errorf("similarity search failed: %w", err)
	}
	success = true

	return &mcp.CallToolResultFor[apptype.SimilarResult]{
		Content: []mcp.Content{
			&mcp.TextContent{
				Text: fmt.Sprintf("Found %d similar entities", len(results)),
			},
		},
		StructuredContent: apptype.SimilarResult{Results: results},
	}, nil
}

// handleHealth returns basic server health information
func (s *MCPServer) handleHealth(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.HealthArgs],
) (*mcp.CallToolResultFor[apptype.HealthResult], error) {
	done := metrics.TimeTool("health_check")
	defer func() { done(true) }()
	inUse, idle := s.store.PoolStats()
	metrics.Default().ObservePoolStats(inUse, idle)
	res := apptype.HealthResult{
		Name:          serverName,
		Version:       buildinfo.Version,
		Revision:      buildinfo.Revision,
		BuildDate:     buildinfo.BuildDate,
		Dataset:       s.ds.Name,
		EmbeddingDims: s.store.Config().EmbeddingDims,
	}
	return &mcp.CallToolResultFor[apptype.HealthResult]{
		Content:           []mcp.Content{&mcp.TextContent{Text: "ok"}},
		StructuredContent: res,
	}, nil
}

// Run starts the MCP server with stdio transport
func (s *MCPServer) Run(ctx context.Context) error {
	s.startPoolStatsReporter(ctx)
	transport := mcp.NewStdioTransport()
	return s.server.Run(ctx, transport)
}

// RunSSE starts the MCP server over SSE at the given address and endpoint
func (s *MCPServer) RunSSE(ctx context.Context, addr string, endpoint string) error {
	s.startPoolStatsReporter(ctx)
	handler := mcp.NewSSEHandler(func(r *http.Request) *mcp.Server { return s.server })
	mux := http.NewServeMux()
	mux.Handle(endpoint, handler)
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 0)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("SSE MCP server listening on %s%s", addr, endpoint)
	return srv.ListenAndServe()
}

// startPoolStatsReporter periodically observes pool gauges until ctx ends.
func (s *MCPServer) startPoolStatsReporter(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Second)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				inUse, idle := s.store.PoolStats()
				metrics.Default().ObservePoolStats(inUse, idle)
			}
		}
	}()
}
