package entitysearch

import (
	"github.com/shivay-couchbase/mcp-entity-search-go/internal/database"
	"github.com/shivay-couchbase/mcp-entity-search-go/internal/dataset"
)

// Config exposes a stable wrapper for datastore and dataset configuration
// in package mode. Most fields map directly to internal/database.Config.
type Config struct {
	URL           string
	AuthToken     string
	EmbeddingDims int

	MaxOpenConns   int
	MaxIdleConns   int
	ConnMaxIdleSec int
	ConnMaxLifeSec int

	// Dataset overrides the default dataset configuration (canonicalization
	// rule, index name, projection, timeouts) when non-nil.
	Dataset *dataset.Config
}

func (c *Config) toInternal() *database.Config {
	dims := c.EmbeddingDims
	if dims <= 0 {
		dims = 4
	}
	return &database.Config{
		URL:            c.URL,
		AuthToken:      c.AuthToken,
		EmbeddingDims:  dims,
		MaxOpenConns:   c.MaxOpenConns,
		MaxIdleConns:   c.MaxIdleConns,
		ConnMaxIdleSec: c.ConnMaxIdleSec,
		ConnMaxLifeSec: c.ConnMaxLifeSec,
	}
}
