package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// capFlags stores capability detection for the connected database
type capFlags struct {
	checked    bool
	vectorTopK bool
}

// detectCapabilities probes presence of vector_top_k and records the flag.
func (s *Store) detectCapabilities(ctx context.Context, db *sql.DB) {
	s.capMu.RLock()
	caps := s.caps
	s.capMu.RUnlock()
	if caps.checked {
		return
	}

	// Skip ANN probe for in-memory test URLs to avoid driver quirks
	if strings.Contains(s.config.URL, "mode=memory") {
		s.capMu.Lock()
		s.caps = capFlags{checked: true, vectorTopK: false}
		s.capMu.Unlock()
		return
	}

	zero := s.vectorZeroString()
	probe := fmt.Sprintf("SELECT id FROM vector_top_k('%s', vector32(?), 1) LIMIT 1", s.dataset.Index)
	ctx2, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	rows, err := db.QueryContext(ctx2, probe, zero)
	if rows != nil {
		rows.Close()
	}
	caps.vectorTopK = (err == nil)
	caps.checked = true

	s.capMu.Lock()
	s.caps = caps
	s.capMu.Unlock()
}

func (s *Store) vectorTopKEnabled() bool {
	s.capMu.RLock()
	defer s.capMu.RUnlock()
	return s.caps.vectorTopK
}

func (s *Store) disableVectorTopK() {
	s.capMu.Lock()
	s.caps.vectorTopK = false
	s.capMu.Unlock()
}
