package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/shivay-couchbase/mcp-entity-search-go/internal/apperr"
	"github.com/shivay-couchbase/mcp-entity-search-go/internal/dataset"
	"github.com/shivay-couchbase/mcp-entity-search-go/internal/metrics"
)

// Store owns the single shared connection to the entity datastore. The
// handle is established lazily on first use; establishment is idempotent
// (double-checked under the mutex) so concurrent first callers cannot race
// to open duplicate connections. After Close, every operation reports
// unavailable rather than crashing.
type Store struct {
	config  *Config
	dataset *dataset.Config

	mu     sync.RWMutex
	db     *sql.DB
	closed bool

	capMu sync.RWMutex
	caps  capFlags

	stmtMu    sync.RWMutex
	stmtCache map[string]*sql.Stmt

	breaker *breaker
}

// NewStore creates a new Store. The connection is not opened until the
// first datastore call.
func NewStore(config *Config, ds *dataset.Config) (*Store, error) {
	if config.EmbeddingDims <= 0 || config.EmbeddingDims > 65536 {
		return nil, fmt.Errorf("EMBEDDING_DIMS must be between 1 and 65536 inclusive, got %d", config.EmbeddingDims)
	}
	if ds == nil {
		ds = dataset.Default()
	}
	return &Store{
		config:    config,
		dataset:   ds,
		stmtCache: make(map[string]*sql.Stmt),
		breaker:   newBreaker(config),
	}, nil
}

// getDB returns the shared handle, opening it if necessary.
func (s *Store) getDB(ctx context.Context) (*sql.DB, error) {
	s.mu.RLock()
	db, closed := s.db, s.closed
	s.mu.RUnlock()
	if closed {
		return nil, apperr.E(apperr.KindUnavailable, "db.open", "store is closed")
	}
	if db != nil {
		return db, nil
	}

	s.mu.Lock()

	// Double-check if another goroutine opened the handle while we were
	// waiting for the lock.
	if s.closed {
		s.mu.Unlock()
		return nil, apperr.E(apperr.KindUnavailable, "db.open", "store is closed")
	}
	if s.db != nil {
		db = s.db
		s.mu.Unlock()
		return db, nil
	}

	newDB, err := open(s.config)
	if err != nil {
		s.mu.Unlock()
		return nil, apperr.Wrap(apperr.KindUnavailable, "db.open", err)
	}

	if err := s.initialize(ctx, newDB); err != nil {
		newDB.Close()
		s.mu.Unlock()
		return nil, apperr.Wrap(apperr.KindUnavailable, "db.open", err)
	}

	if s.config.MaxOpenConns > 0 {
		newDB.SetMaxOpenConns(s.config.MaxOpenConns)
	}
	if s.config.MaxIdleConns > 0 {
		newDB.SetMaxIdleConns(s.config.MaxIdleConns)
	}
	if s.config.ConnMaxIdleSec > 0 {
		newDB.SetConnMaxIdleTime(time.Duration(s.config.ConnMaxIdleSec) * time.Second)
	}
	if s.config.ConnMaxLifeSec > 0 {
		newDB.SetConnMaxLifetime(time.Duration(s.config.ConnMaxLifeSec) * time.Second)
	}

	s.db = newDB
	// Unlock before capability detection; the probe only takes capMu.
	s.mu.Unlock()

	s.detectCapabilities(ctx, newDB)

	stats := newDB.Stats()
	metrics.Default().ObservePoolStats(stats.InUse, stats.Idle)
	return newDB, nil
}

// open builds the connection URL (appending the auth token for remote
// databases) and opens the libsql handle.
func open(config *Config) (*sql.DB, error) {
	dbURL := config.URL
	if !strings.HasPrefix(dbURL, "file:") && config.AuthToken != "" {
		if u, perr := url.Parse(dbURL); perr == nil {
			q := u.Query()
			q.Set("authToken", config.AuthToken)
			u.RawQuery = q.Encode()
			dbURL = u.String()
		} else if strings.Contains(dbURL, "?") {
			dbURL = dbURL + "&authToken=" + url.QueryEscape(config.AuthToken)
		} else {
			dbURL = dbURL + "?authToken=" + url.QueryEscape(config.AuthToken)
		}
	}
	db, err := sql.Open("libsql", dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connector: %w", err)
	}
	return db, nil
}

// initialize creates tables and indexes if they don't exist
func (s *Store) initialize(ctx context.Context, db *sql.DB) error {
	done := metrics.TimeOp("db_initialize")
	success := false
	defer func() { done(success) }()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for initialization: %w", err)
	}
	defer tx.Rollback()

	for _, statement := range dynamicSchema(s.config.EmbeddingDims, s.dataset.Index) {
		if _, err := tx.Exec(statement); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	success = true
	return nil
}

// PoolStats reports in-use and idle connection counts for the shared handle.
func (s *Store) PoolStats() (inUse, idle int) {
	s.mu.RLock()
	db := s.db
	s.mu.RUnlock()
	if db == nil {
		return 0, 0
	}
	stats := db.Stats()
	return stats.InUse, stats.Idle
}

// Dataset returns the dataset configuration this store serves.
func (s *Store) Dataset() *dataset.Config { return s.dataset }

// Config returns the datastore configuration.
func (s *Store) Config() *Config { return s.config }

// Close tears down the shared handle. Operations still in flight observe
// driver errors that classify as unavailable.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	s.stmtMu.Lock()
	for _, stmt := range s.stmtCache {
		_ = stmt.Close()
	}
	s.stmtCache = make(map[string]*sql.Stmt)
	s.stmtMu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
