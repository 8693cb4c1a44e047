package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/shivay-couchbase/mcp-entity-search-go/internal/apperr"
	"github.com/shivay-couchbase/mcp-entity-search-go/internal/apptype"
	"github.com/shivay-couchbase/mcp-entity-search-go/internal/metrics"
)

// GetEntity retrieves a single entity by its canonical key.
//
// With a nil fields slice the full stored record is returned, embedding
// included. A non-nil fields slice is a display projection: the embedding
// column is not read at all and attributes are filtered to the requested
// keys.
func (s *Store) GetEntity(ctx context.Context, name string, fields []string) (*apptype.Entity, error) {
	done := metrics.TimeOp("db_get_entity")
	success := false
	defer func() { done(success) }()

	db, err := s.getDB(ctx)
	if err != nil {
		return nil, classify("db.get_entity", err)
	}

	projected := fields != nil
	query := "SELECT name, entity_type, attributes, embedding FROM entities WHERE name = ?"
	if projected {
		query = "SELECT name, entity_type, attributes FROM entities WHERE name = ?"
	}
	stmt, err := s.getPreparedStmt(ctx, db, query)
	if err != nil {
		return nil, classify("db.get_entity", err)
	}

	var entityName, entityType string
	var attrBytes, embeddingBytes []byte
	err = s.breaker.execute(func() error {
		row := stmt.QueryRowContext(ctx, name)
		if projected {
			return row.Scan(&entityName, &entityType, &attrBytes)
		}
		return row.Scan(&entityName, &entityType, &attrBytes, &embeddingBytes)
	})
	if err != nil {
		cerr := classify("db.get_entity", err)
		if apperr.Is(cerr, apperr.KindNotFound) {
			return nil, apperr.E(apperr.KindNotFound, "db.get_entity", "entity not found: %s", name)
		}
		return nil, cerr
	}

	attributes, err := decodeAttributes(entityName, attrBytes)
	if err != nil {
		return nil, err
	}
	if projected {
		attributes = projectAttributes(attributes, fields)
	}

	entity := &apptype.Entity{
		Name:       entityName,
		EntityType: entityType,
		Attributes: attributes,
	}
	if !projected {
		vector, err := s.extractVector(embeddingBytes)
		if err != nil {
			return nil, err
		}
		entity.Embedding = vector
	}
	success = true
	return entity, nil
}

// decodeAttributes parses the stored attribute JSON; malformed content is a
// data fault, not a transport failure.
func decodeAttributes(name string, raw []byte) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var attributes map[string]any
	if err := json.Unmarshal(raw, &attributes); err != nil {
		return nil, apperr.E(apperr.KindInternal, "db.get_entity",
			"malformed attributes for entity %q: %v", name, err)
	}
	return attributes, nil
}

// projectAttributes keeps only the requested attribute keys.
func projectAttributes(attributes map[string]any, fields []string) map[string]any {
	if len(fields) == 0 || attributes == nil {
		return attributes
	}
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		if v, ok := attributes[f]; ok {
			out[f] = v
		}
	}
	return out
}

// SearchSimilar performs vector similarity search against the dataset's
// index and returns ranked (key, score) candidates, most similar first. The
// excluded key (normally the anchor entity itself) never appears in the
// result. Hydration of the candidates is the orchestrator's job.
func (s *Store) SearchSimilar(ctx context.Context, embedding []float32, exclude string, limit int) ([]apptype.Candidate, error) {
	done := metrics.TimeOp("db_search_similar")
	success := false
	defer func() { done(success) }()

	db, err := s.getDB(ctx)
	if err != nil {
		return nil, classify("db.search_similar", err)
	}
	if len(embedding) == 0 {
		return nil, apperr.E(apperr.KindInvalidArgument, "db.search_similar", "search embedding cannot be empty")
	}
	if limit <= 0 {
		limit = 5
	}
	vectorString, err := s.vectorToString(embedding)
	if err != nil {
		return nil, err
	}

	var candidates []apptype.Candidate
	scan := func(rows *sql.Rows) error {
		defer rows.Close()
		for rows.Next() {
			var name string
			var distance float64
			if err := rows.Scan(&name, &distance); err != nil {
				log.Printf("Warning: failed to scan similarity row: %v", err)
				continue
			}
			// libsql reports cosine distance ascending; expose a
			// higher-is-more-similar score.
			candidates = append(candidates, apptype.Candidate{Name: name, Score: 1 - distance})
		}
		return rows.Err()
	}

	useTopK := s.vectorTopKEnabled()
	if useTopK {
		// Over-fetch by one so excluding the anchor still fills the limit.
		topK := fmt.Sprintf(`WITH vt AS (
            SELECT id FROM vector_top_k('%s', vector32(?), ?)
        )
        SELECT e.name, vector_distance_cos(e.embedding, vector32(?)) as distance
        FROM vt JOIN entities e ON e.rowid = vt.id
        WHERE e.embedding IS NOT NULL AND e.name != ?
        ORDER BY distance ASC
        LIMIT ?`, s.dataset.Index)
		stmt, perr := s.getPreparedStmt(ctx, db, topK)
		if perr != nil {
			return nil, classify("db.search_similar", perr)
		}
		err = s.breaker.execute(func() error {
			rows, qerr := stmt.QueryContext(ctx, vectorString, limit+1, vectorString, exclude, limit)
			if qerr != nil {
				return qerr
			}
			return scan(rows)
		})
		if err != nil && strings.Contains(strings.ToLower(err.Error()), "no such function: vector_top_k") {
			s.disableVectorTopK()
			useTopK = false
			candidates = nil
		} else if err != nil {
			return nil, classify("db.search_similar", err)
		}
	}
	if !useTopK {
		query := `SELECT e.name, vector_distance_cos(e.embedding, vector32(?)) as distance
        FROM entities e
        WHERE e.embedding IS NOT NULL AND e.name != ?
        ORDER BY distance ASC
        LIMIT ?`
		stmt, perr := s.getPreparedStmt(ctx, db, query)
		if perr != nil {
			return nil, classify("db.search_similar", perr)
		}
		err = s.breaker.execute(func() error {
			rows, qerr := stmt.QueryContext(ctx, vectorString, exclude, limit)
			if qerr != nil {
				return qerr
			}
			return scan(rows)
		})
		if err != nil {
			low := strings.ToLower(err.Error())
			if strings.Contains(low, "no such function: vector_distance_cos") || strings.Contains(low, "no such function: vector32") {
				return nil, apperr.E(apperr.KindUnavailable, "db.search_similar",
					"vector search functions are unavailable in this libSQL build")
			}
			return nil, classify("db.search_similar", err)
		}
	}

	success = true
	return candidates, nil
}

// PutEntities creates or replaces entities. Production datasets are loaded
// out of band; this path serves the seeding utility and tests.
func (s *Store) PutEntities(ctx context.Context, entities []apptype.Entity) error {
	done := metrics.TimeOp("db_put_entities")
	success := false
	defer func() { done(success) }()

	db, err := s.getDB(ctx)
	if err != nil {
		return classify("db.put_entities", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return classify("db.put_entities", err)
	}
	defer tx.Rollback()

	for _, entity := range entities {
		if strings.TrimSpace(entity.Name) == "" {
			return apperr.E(apperr.KindInvalidArgument, "db.put_entities", "entity name must be a non-empty string")
		}
		attrBytes, err := json.Marshal(entity.Attributes)
		if err != nil {
			return apperr.E(apperr.KindInvalidArgument, "db.put_entities",
				"unserializable attributes for entity %q: %v", entity.Name, err)
		}

		if len(entity.Embedding) == 0 {
			// No embedding: the entity exists but cannot anchor or appear in
			// similarity search.
			_, err = tx.ExecContext(ctx,
				`INSERT INTO entities (name, entity_type, attributes, embedding) VALUES (?, ?, ?, NULL)
                 ON CONFLICT(name) DO UPDATE SET entity_type = excluded.entity_type, attributes = excluded.attributes, embedding = NULL`,
				entity.Name, entity.EntityType, string(attrBytes))
		} else {
			var vectorString string
			vectorString, err = s.vectorToString(entity.Embedding)
			if err != nil {
				return err
			}
			_, err = tx.ExecContext(ctx,
				`INSERT INTO entities (name, entity_type, attributes, embedding) VALUES (?, ?, ?, vector32(?))
                 ON CONFLICT(name) DO UPDATE SET entity_type = excluded.entity_type, attributes = excluded.attributes, embedding = vector32(?)`,
				entity.Name, entity.EntityType, string(attrBytes), vectorString, vectorString)
		}
		if err != nil {
			return classify("db.put_entities", fmt.Errorf("failed to upsert entity %q: %w", entity.Name, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return classify("db.put_entities", err)
	}
	success = true
	return nil
}
