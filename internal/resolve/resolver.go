// Package resolve turns a human-provided name into a stored entity via the
// dataset's canonicalization rule and a single point read.
package resolve

import (
	"context"
	"strings"

	"github.com/shivay-couchbase/mcp-entity-search-go/internal/apperr"
	"github.com/shivay-couchbase/mcp-entity-search-go/internal/apptype"
	"github.com/shivay-couchbase/mcp-entity-search-go/internal/dataset"
	"github.com/shivay-couchbase/mcp-entity-search-go/internal/metrics"
)

// Store is the point-read surface the resolver needs.
type Store interface {
	GetEntity(ctx context.Context, name string, fields []string) (*apptype.Entity, error)
}

// Resolver maps names onto stored records. Read-only; the canonicalization
// strategy is injected per deployed dataset.
type Resolver struct {
	store Store
	canon dataset.CanonicalizeFunc
}

// New creates a Resolver. A nil canonicalization function falls back to the
// title-case rule.
func New(store Store, canon dataset.CanonicalizeFunc) *Resolver {
	if canon == nil {
		canon = dataset.TitleCase()
	}
	return &Resolver{store: store, canon: canon}
}

// CanonicalKey derives the datastore lookup key for a name.
func (r *Resolver) CanonicalKey(name string) string { return r.canon(name) }

// Resolve returns the full stored record for a name. An empty name is a
// caller error rejected before any datastore call. A missing key reports
// not-found; datastore trouble keeps its own classification so callers
// never mistake an outage for a miss.
func (r *Resolver) Resolve(ctx context.Context, name string) (*apptype.Entity, error) {
	done := metrics.TimeOp("resolve")
	success := false
	defer func() { done(success) }()

	if strings.TrimSpace(name) == "" {
		return nil, apperr.E(apperr.KindInvalidArgument, "resolve", "name cannot be empty")
	}

	entity, err := r.store.GetEntity(ctx, r.canon(name), nil)
	if err != nil {
		return nil, err
	}
	success = true
	return entity, nil
}
