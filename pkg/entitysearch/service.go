// Package entitysearch provides a library-first API for entity lookup and
// similarity search without the MCP transport.
package entitysearch

import (
	"context"

	"github.com/shivay-couchbase/mcp-entity-search-go/internal/apptype"
	"github.com/shivay-couchbase/mcp-entity-search-go/internal/database"
	"github.com/shivay-couchbase/mcp-entity-search-go/internal/dataset"
	"github.com/shivay-couchbase/mcp-entity-search-go/internal/resolve"
	"github.com/shivay-couchbase/mcp-entity-search-go/internal/similar"
)

// Service wires the store, resolver and orchestrator for embedding into
// other programs.
type Service struct {
	store        *database.Store
	resolver     *resolve.Resolver
	orchestrator *similar.Orchestrator
}

// NewService constructs a Service with the provided config.
func NewService(cfg *Config) (*Service, error) {
	ds := cfg.Dataset
	if ds == nil {
		ds = dataset.Default()
	}
	canon, err := ds.Canonicalization.Build()
	if err != nil {
		return nil, err
	}
	store, err := database.NewStore(cfg.toInternal(), ds)
	if err != nil {
		return nil, err
	}
	resolver := resolve.New(store, canon)
	orchestrator := similar.New(store, resolver, ds.Projection, similar.Options{
		Limit:          ds.Search.Limit,
		SearchTimeout:  ds.Search.SearchTimeout.Std(),
		HydrateTimeout: ds.Search.HydrateTimeout.Std(),
	})
	return &Service{store: store, resolver: resolver, orchestrator: orchestrator}, nil
}

// Close releases resources.
func (s *Service) Close() error { return s.store.Close() }

// Store exposes the underlying store for advanced wiring (e.g. the MCP
// server composition root).
func (s *Service) Store() *database.Store { return s.store }

// FetchEntity resolves a name to its full stored record.
func (s *Service) FetchEntity(ctx context.Context, name string) (*apptype.Entity, error) {
	return s.resolver.Resolve(ctx, name)
}

// FindSimilar returns entities similar to the named one, most similar
// first. limit <= 0 selects the dataset default.
func (s *Service) FindSimilar(ctx context.Context, name string, limit int) ([]apptype.SimilarityResult, error) {
	return s.orchestrator.FindSimilar(ctx, name, limit)
}

// SeedEntities bulk-loads entities; intended for dev datasets and tests.
func (s *Service) SeedEntities(ctx context.Context, entities []apptype.Entity) error {
	return s.store.PutEntities(ctx, entities)
}
