package database

import (
	"os"
	"strconv"
)

// Config holds the datastore configuration
type Config struct {
	URL           string
	AuthToken     string
	EmbeddingDims int

	// Connection pool tuning; zero values leave driver defaults in place.
	MaxOpenConns   int
	MaxIdleConns   int
	ConnMaxIdleSec int
	ConnMaxLifeSec int

	// Circuit breaker tuning.
	BreakerMaxFailures uint32
	BreakerTimeoutSec  int
}

// NewConfig creates a new Config from environment variables
func NewConfig() *Config {
	url := os.Getenv("LIBSQL_URL")
	if url == "" {
		url = "file:./libsql.db"
	}

	cfg := &Config{
		URL:                url,
		AuthToken:          os.Getenv("LIBSQL_AUTH_TOKEN"),
		EmbeddingDims:      envInt("EMBEDDING_DIMS", 4),
		MaxOpenConns:       envInt("DB_MAX_OPEN_CONNS", 0),
		MaxIdleConns:       envInt("DB_MAX_IDLE_CONNS", 0),
		ConnMaxIdleSec:     envInt("DB_CONN_MAX_IDLE_SEC", 0),
		ConnMaxLifeSec:     envInt("DB_CONN_MAX_LIFE_SEC", 0),
		BreakerMaxFailures: uint32(envInt("DB_BREAKER_MAX_FAILURES", 5)),
		BreakerTimeoutSec:  envInt("DB_BREAKER_TIMEOUT_SEC", 30),
	}
	return cfg
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
