package dataset

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTitleCase(t *testing.T) {
	canon := TitleCase()
	assert.Equal(t, "Tatooine", canon("tatooine"))
	assert.Equal(t, "Tatooine", canon("TATOOINE"))
	assert.Equal(t, "Tatooine", canon("Tatooine"))
	assert.Equal(t, "Tatooine", canon("  tatooine  "))
	assert.Equal(t, "", canon(""))
	assert.Equal(t, "Ötzi", canon("ötzi"))
}

func TestLowerPrefixed(t *testing.T) {
	canon := LowerPrefixed("monster::")
	assert.Equal(t, "monster::rancor", canon("Rancor"))
	assert.Equal(t, "monster::rancor", canon("RANCOR"))
	assert.Equal(t, "monster::rancor", canon(" rancor "))
}

func TestCanonicalizationBuild(t *testing.T) {
	canon, err := Canonicalization{}.Build()
	require.NoError(t, err)
	assert.Equal(t, "Abc", canon("aBC"))

	canon, err = Canonicalization{Rule: "lower_prefix", Prefix: "m::"}.Build()
	require.NoError(t, err)
	assert.Equal(t, "m::abc", canon("ABC"))

	_, err = Canonicalization{Rule: "shouty"}.Build()
	assert.Error(t, err)
}

func TestDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "default", cfg.Name)
	assert.Equal(t, "idx_entities_embedding", cfg.Index)
	assert.Equal(t, 5, cfg.Search.Limit)
	assert.Equal(t, 4*time.Second, cfg.Search.SearchTimeout.Std())
	assert.Equal(t, 1500*time.Millisecond, cfg.Search.HydrateTimeout.Std())
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "monsters.yaml")
	data := `
name: monsters
index: idx_monsters_embedding
projection: [name, habitat, threat_level]
canonicalization:
  rule: lower_prefix
  prefix: "monster::"
search:
  limit: 8
  search_timeout: 2s
  hydrate_timeout: 750ms
rate_limit:
  per_second: 10
  burst: 20
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "monsters", cfg.Name)
	assert.Equal(t, "idx_monsters_embedding", cfg.Index)
	assert.Equal(t, []string{"name", "habitat", "threat_level"}, cfg.Projection)
	assert.Equal(t, 8, cfg.Search.Limit)
	assert.Equal(t, 2*time.Second, cfg.Search.SearchTimeout.Std())
	assert.Equal(t, 750*time.Millisecond, cfg.Search.HydrateTimeout.Std())
	assert.Equal(t, 10.0, cfg.RateLimit.PerSecond)

	canon, err := cfg.Canonicalization.Build()
	require.NoError(t, err)
	assert.Equal(t, "monster::rancor", canon("Rancor"))
}

func TestLoadRejectsBadRule(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("canonicalization:\n  rule: nope\n"), 0644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
