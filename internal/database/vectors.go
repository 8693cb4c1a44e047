package database

import (
	"encoding/binary"
	"fmt"
	"log"
	"math"
	"strings"

	"github.com/shivay-couchbase/mcp-entity-search-go/internal/apperr"
)

// vectorZeroString builds a zero vector string for current embedding dims
func (s *Store) vectorZeroString() string {
	if s.config.EmbeddingDims <= 0 {
		return "[0.0, 0.0, 0.0, 0.0]"
	}
	parts := make([]string, s.config.EmbeddingDims)
	for i := range parts {
		parts[i] = "0.0"
	}
	return fmt.Sprintf("[%s]", strings.Join(parts, ", "))
}

// vectorToString converts a float32 array to libSQL vector string format
func (s *Store) vectorToString(numbers []float32) (string, error) {
	dims := s.config.EmbeddingDims
	if dims <= 0 {
		dims = 4
	}
	if len(numbers) != dims {
		return "", apperr.E(apperr.KindInvalidArgument, "db.vector",
			"vector must have exactly %d dimensions, got %d", dims, len(numbers))
	}

	// Non-finite values cannot round-trip through the vector functions.
	sanitized := make([]float32, len(numbers))
	for i, n := range numbers {
		if math.IsNaN(float64(n)) || math.IsInf(float64(n), 0) {
			log.Printf("Invalid vector value detected, using 0.0 instead of: %f", n)
			sanitized[i] = 0.0
		} else {
			sanitized[i] = n
		}
	}

	strNumbers := make([]string, len(sanitized))
	for i, n := range sanitized {
		strNumbers[i] = fmt.Sprintf("%f", n)
	}
	return fmt.Sprintf("[%s]", strings.Join(strNumbers, ", ")), nil
}

// extractVector extracts a vector from the stored binary format (F32_BLOB).
// A wrong-size blob is malformed stored data, not a transport failure.
func (s *Store) extractVector(embedding []byte) ([]float32, error) {
	if len(embedding) == 0 {
		return nil, nil
	}

	dims := s.config.EmbeddingDims
	if dims <= 0 {
		dims = 4
	}
	expectedBytes := dims * 4
	if len(embedding) != expectedBytes {
		return nil, apperr.E(apperr.KindInternal, "db.vector",
			"invalid embedding size: expected %d bytes for %d-dimensional vector, got %d",
			expectedBytes, dims, len(embedding))
	}

	vector := make([]float32, dims)
	for i := 0; i < dims; i++ {
		bits := binary.LittleEndian.Uint32(embedding[i*4 : (i+1)*4])
		vector[i] = math.Float32frombits(bits)
	}
	return vector, nil
}
