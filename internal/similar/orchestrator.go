// Package similar implements the similarity-lookup workflow: resolve a
// name to its stored vector, run one bounded k-nearest query, then hydrate
// the ranked candidates concurrently, tolerating individual hydration
// failures.
package similar

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/shivay-couchbase/mcp-entity-search-go/internal/apperr"
	"github.com/shivay-couchbase/mcp-entity-search-go/internal/apptype"
	"github.com/shivay-couchbase/mcp-entity-search-go/internal/metrics"
	"github.com/shivay-couchbase/mcp-entity-search-go/internal/resolve"
)

// Store is the datastore surface the orchestrator needs: projected point
// reads for hydration and the vector search itself.
type Store interface {
	GetEntity(ctx context.Context, name string, fields []string) (*apptype.Entity, error)
	SearchSimilar(ctx context.Context, embedding []float32, exclude string, limit int) ([]apptype.Candidate, error)
}

// Options bounds the workflow. The search timeout fails the whole
// operation when exceeded; the hydrate timeout only drops the one
// candidate whose read exceeded it.
type Options struct {
	Limit          int
	SearchTimeout  time.Duration
	HydrateTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.Limit <= 0 {
		o.Limit = 5
	}
	if o.SearchTimeout <= 0 {
		o.SearchTimeout = 4 * time.Second
	}
	if o.HydrateTimeout <= 0 {
		o.HydrateTimeout = 1500 * time.Millisecond
	}
	return o
}

// Orchestrator runs the similarity-lookup workflow for one dataset.
type Orchestrator struct {
	store      Store
	resolver   *resolve.Resolver
	projection []string
	opts       Options
}

// New creates an Orchestrator. projection lists the attribute fields
// hydrated into results; nil or empty keeps all stored attributes.
func New(store Store, resolver *resolve.Resolver, projection []string, opts Options) *Orchestrator {
	if projection == nil {
		// Non-nil slice keeps hydration reads on the projected (no
		// embedding) path even when all attributes are wanted.
		projection = []string{}
	}
	return &Orchestrator{
		store:      store,
		resolver:   resolver,
		projection: projection,
		opts:       opts.withDefaults(),
	}
}

// hydration is the explicit per-candidate outcome of the fan-out. Failures
// stay local to their candidate; the final filter separates them out.
type hydration struct {
	candidate apptype.Candidate
	result    *apptype.SimilarityResult
	err       error
}

// FindSimilar resolves name and returns up to limit similar entities,
// hydrated and projected, preserving the datastore's relevance order.
// limit <= 0 selects the configured default.
func (o *Orchestrator) FindSimilar(ctx context.Context, name string, limit int) ([]apptype.SimilarityResult, error) {
	done := metrics.TimeOp("find_similar")
	success := false
	defer func() { done(success) }()

	if limit <= 0 {
		limit = o.opts.Limit
	}

	// Step 1: resolve. Failures here fail the whole operation.
	anchor, err := o.resolver.Resolve(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(anchor.Embedding) == 0 {
		return nil, apperr.E(apperr.KindMissingEmbedding, "find_similar",
			"entity %q has no embedding and cannot be used for similarity search", anchor.Name)
	}

	// Step 2: one bounded vector search. Timeout here is terminal; there is
	// no fallback to a partial or cached result.
	searchCtx, cancel := context.WithTimeout(ctx, o.opts.SearchTimeout)
	defer cancel()
	candidates, err := o.store.SearchSimilar(searchCtx, anchor.Embedding, anchor.Name, limit)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		success = true
		return []apptype.SimilarityResult{}, nil
	}

	// Step 3: hydrate candidates concurrently, each read under its own
	// deadline. The index-addressed slice keeps the search ranking intact
	// no matter which read finishes first.
	hydrated := make([]hydration, len(candidates))
	var wg sync.WaitGroup
	for i, c := range candidates {
		wg.Add(1)
		go func(i int, c apptype.Candidate) {
			defer wg.Done()
			hctx, hcancel := context.WithTimeout(ctx, o.opts.HydrateTimeout)
			defer hcancel()
			entity, err := o.store.GetEntity(hctx, c.Name, o.projection)
			if err != nil {
				hydrated[i] = hydration{candidate: c, err: err}
				return
			}
			hydrated[i] = hydration{candidate: c, result: &apptype.SimilarityResult{
				ID:         entity.Name,
				Score:      c.Score,
				EntityType: entity.EntityType,
				Attributes: entity.Attributes,
			}}
		}(i, c)
	}
	wg.Wait()

	// Final filter: a failed hydration drops that candidate only.
	results := make([]apptype.SimilarityResult, 0, len(hydrated))
	for _, h := range hydrated {
		if h.err != nil {
			kind := apperr.KindOf(h.err)
			metrics.Default().IncHydrationDrop(kind.String())
			log.Printf("Warning: dropping candidate %q from results: %v", h.candidate.Name, h.err)
			continue
		}
		results = append(results, *h.result)
	}
	success = true
	return results, nil
}
