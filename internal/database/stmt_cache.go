package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shivay-couchbase/mcp-entity-search-go/internal/metrics"
)

// getPreparedStmt returns or prepares and caches a statement for the shared handle
func (s *Store) getPreparedStmt(ctx context.Context, db *sql.DB, sqlText string) (*sql.Stmt, error) {
	// fast path read
	s.stmtMu.RLock()
	if stmt, ok := s.stmtCache[sqlText]; ok {
		s.stmtMu.RUnlock()
		metrics.Default().IncStmtCacheHit("prepare")
		return stmt, nil
	}
	s.stmtMu.RUnlock()
	metrics.Default().IncStmtCacheMiss("prepare")

	// prepare and store
	stmt, err := db.PrepareContext(ctx, sqlText)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}
	s.stmtMu.Lock()
	s.stmtCache[sqlText] = stmt
	s.stmtMu.Unlock()
	return stmt, nil
}
