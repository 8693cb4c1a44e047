package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shivay-couchbase/mcp-entity-search-go/internal/apperr"
	"github.com/shivay-couchbase/mcp-entity-search-go/internal/apptype"
	"github.com/shivay-couchbase/mcp-entity-search-go/internal/dataset"
	"github.com/shivay-couchbase/mcp-entity-search-go/internal/resolve"
	"github.com/shivay-couchbase/mcp-entity-search-go/internal/similar"
)

func setupTestStore(t *testing.T, name string) (*Store, func()) {
	config := NewConfig()
	// Use an in-memory database for testing.
	// The `cache=shared` is crucial for sharing the connection across
	// different calls to `sql.Open` within the same process.
	config.URL = "file:" + name + "?mode=memory&cache=shared"
	config.EmbeddingDims = 4
	store, err := NewStore(config, dataset.Default())
	require.NoError(t, err)

	cleanup := func() {
		err := store.Close()
		assert.NoError(t, err)
	}

	return store, cleanup
}

func starWarsFixture() []apptype.Entity {
	// Anchor plus four neighbors at increasing vector distance, plus one
	// entity without an embedding.
	return []apptype.Entity{
		{Name: "Tatooine", EntityType: "planet", Attributes: map[string]any{"climate": "arid", "terrain": "desert", "population": "200000"}, Embedding: []float32{1, 0, 0, 0}},
		{Name: "Geonosis", EntityType: "planet", Attributes: map[string]any{"climate": "temperate", "terrain": "rock"}, Embedding: []float32{1, 0.1, 0, 0}},
		{Name: "Jakku", EntityType: "planet", Attributes: map[string]any{"climate": "arid", "terrain": "desert"}, Embedding: []float32{1, 0.5, 0, 0}},
		{Name: "Dagobah", EntityType: "planet", Attributes: map[string]any{"climate": "murky", "terrain": "swamp"}, Embedding: []float32{1, 1, 0, 0}},
		{Name: "Hoth", EntityType: "planet", Attributes: map[string]any{"climate": "frozen", "terrain": "tundra"}, Embedding: []float32{0, 1, 0, 0}},
		{Name: "Unknown Regions", EntityType: "region", Attributes: map[string]any{"charted": false}},
	}
}

func TestPutAndGetEntity(t *testing.T) {
	store, cleanup := setupTestStore(t, "test-putget")
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, store.PutEntities(ctx, starWarsFixture()))

	entity, err := store.GetEntity(ctx, "Tatooine", nil)
	require.NoError(t, err)
	assert.Equal(t, "Tatooine", entity.Name)
	assert.Equal(t, "planet", entity.EntityType)
	assert.Equal(t, "arid", entity.Attributes["climate"])
	assert.Equal(t, []float32{1, 0, 0, 0}, entity.Embedding)
}

func TestGetEntityNotFound(t *testing.T) {
	store, cleanup := setupTestStore(t, "test-notfound")
	defer cleanup()

	_, err := store.GetEntity(context.Background(), "Alderaan", nil)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.False(t, apperr.Is(err, apperr.KindUnavailable))
}

func TestGetEntityProjection(t *testing.T) {
	store, cleanup := setupTestStore(t, "test-projection")
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, store.PutEntities(ctx, starWarsFixture()))

	entity, err := store.GetEntity(ctx, "Tatooine", []string{"climate", "terrain"})
	require.NoError(t, err)
	assert.Nil(t, entity.Embedding, "projected reads never return the embedding")
	assert.Equal(t, map[string]any{"climate": "arid", "terrain": "desert"}, entity.Attributes)

	// An empty (non-nil) projection keeps all attributes but still skips
	// the embedding column.
	entity, err = store.GetEntity(ctx, "Tatooine", []string{})
	require.NoError(t, err)
	assert.Nil(t, entity.Embedding)
	assert.Equal(t, "200000", entity.Attributes["population"])
}

func TestEntityWithoutEmbedding(t *testing.T) {
	store, cleanup := setupTestStore(t, "test-noemb")
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, store.PutEntities(ctx, starWarsFixture()))

	entity, err := store.GetEntity(ctx, "Unknown Regions", nil)
	require.NoError(t, err)
	assert.Empty(t, entity.Embedding)
}

func TestSearchSimilarOrdering(t *testing.T) {
	store, cleanup := setupTestStore(t, "test-search")
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, store.PutEntities(ctx, starWarsFixture()))

	anchor, err := store.GetEntity(ctx, "Tatooine", nil)
	require.NoError(t, err)

	candidates, err := store.SearchSimilar(ctx, anchor.Embedding, anchor.Name, 5)
	require.NoError(t, err)
	require.Len(t, candidates, 4, "self is excluded; the entity without an embedding never matches")

	want := []string{"Geonosis", "Jakku", "Dagobah", "Hoth"}
	for i, c := range candidates {
		assert.Equal(t, want[i], c.Name)
	}
	for i := 1; i < len(candidates); i++ {
		assert.GreaterOrEqual(t, candidates[i-1].Score, candidates[i].Score, "scores must descend with rank")
	}
}

func TestSearchSimilarEmptyEmbedding(t *testing.T) {
	store, cleanup := setupTestStore(t, "test-search-empty")
	defer cleanup()

	_, err := store.SearchSimilar(context.Background(), nil, "X", 5)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindInvalidArgument))
}

func TestSearchSimilarWrongDims(t *testing.T) {
	store, cleanup := setupTestStore(t, "test-search-dims")
	defer cleanup()

	_, err := store.SearchSimilar(context.Background(), []float32{0.1, 0.2}, "X", 5)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindInvalidArgument))
}

func TestClosedStoreIsUnavailable(t *testing.T) {
	store, cleanup := setupTestStore(t, "test-closed")
	ctx := context.Background()
	require.NoError(t, store.PutEntities(ctx, starWarsFixture()))
	cleanup()

	_, err := store.GetEntity(ctx, "Tatooine", nil)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindUnavailable))
	assert.False(t, apperr.Is(err, apperr.KindNotFound), "a closed store must never masquerade as not-found")

	_, err = store.SearchSimilar(ctx, []float32{1, 0, 0, 0}, "Tatooine", 5)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindUnavailable))
}

// TestFindSimilarEndToEnd runs the full workflow over a real store: resolve
// by canonicalized name, search, hydrate with the configured projection.
func TestFindSimilarEndToEnd(t *testing.T) {
	store, cleanup := setupTestStore(t, "test-e2e-flow")
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, store.PutEntities(ctx, starWarsFixture()))

	resolver := resolve.New(store, dataset.TitleCase())
	orch := similar.New(store, resolver, []string{"climate", "terrain"}, similar.Options{})

	results, err := orch.FindSimilar(ctx, "tatooine", 5)
	require.NoError(t, err)
	require.Len(t, results, 4, "at most 4 results when the dataset holds 4 other embedded entities")

	want := []string{"Geonosis", "Jakku", "Dagobah", "Hoth"}
	for i, res := range results {
		assert.Equal(t, want[i], res.ID)
		assert.NotContains(t, res.Attributes, "population", "projection must filter attributes")
		assert.Contains(t, res.Attributes, "climate")
	}
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}
