package database

import "fmt"

// dynamicSchema returns schema DDL using the configured embedding dimension
// and the dataset's vector index name.
func dynamicSchema(embeddingDims int, indexName string) []string {
	if embeddingDims <= 0 {
		embeddingDims = 4
	}
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS entities (
        name TEXT PRIMARY KEY,
        entity_type TEXT NOT NULL DEFAULT '',
        attributes TEXT NOT NULL DEFAULT '{}',
        embedding F32_BLOB(%d),
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    )`, embeddingDims),

		`CREATE INDEX IF NOT EXISTS idx_entities_created_at ON entities(created_at)`,

		// Vector index for similarity search; the name is per-dataset config.
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON entities(libsql_vector_idx(embedding))`, indexName),
	}
}
