// Command seed-entities bulk-loads entities into a libsql datastore from a
// JSON-lines file, one entity object per line:
//
//	{"name":"Tatooine","entityType":"planet","attributes":{"climate":"arid"},"embedding":[0.1,0.2,0.3,0.4]}
//
// Production datasets are populated out of band; this utility exists for
// dev databases and end-to-end testing.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"

	"github.com/shivay-couchbase/mcp-entity-search-go/internal/apptype"
	"github.com/shivay-couchbase/mcp-entity-search-go/internal/dataset"
	"github.com/shivay-couchbase/mcp-entity-search-go/pkg/entitysearch"
)

var (
	libsqlURL   = flag.String("libsql-url", "", "libSQL database URL (default: file:./libsql.db)")
	authToken   = flag.String("auth-token", "", "Authentication token for remote databases")
	datasetPath = flag.String("dataset-config", "", "Path to the dataset yaml")
	dims        = flag.Int("embedding-dims", 4, "Embedding dimensions of the dataset")
	input       = flag.String("input", "-", "JSON-lines input file, or - for stdin")
	batchSize   = flag.Int("batch", 100, "Entities per write batch")
)

func main() {
	flag.Parse()

	cfg := &entitysearch.Config{
		URL:           *libsqlURL,
		AuthToken:     *authToken,
		EmbeddingDims: *dims,
	}
	if cfg.URL == "" {
		cfg.URL = os.Getenv("LIBSQL_URL")
	}
	if cfg.URL == "" {
		cfg.URL = "file:./libsql.db"
	}
	if *datasetPath != "" {
		ds, err := dataset.Load(*datasetPath)
		if err != nil {
			log.Fatalf("Failed to load dataset config: %v", err)
		}
		cfg.Dataset = ds
	}

	svc, err := entitysearch.NewService(cfg)
	if err != nil {
		log.Fatalf("Failed to create service: %v", err)
	}
	defer svc.Close()

	in := os.Stdin
	if *input != "-" {
		f, err := os.Open(*input)
		if err != nil {
			log.Fatalf("Failed to open input: %v", err)
		}
		defer f.Close()
		in = f
	}

	ctx := context.Background()
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)

	var batch []apptype.Entity
	var total, skipped int
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var entity apptype.Entity
		if err := json.Unmarshal(raw, &entity); err != nil {
			log.Printf("Warning: skipping line %d: %v", line, err)
			skipped++
			continue
		}
		batch = append(batch, entity)
		if len(batch) >= *batchSize {
			if err := svc.SeedEntities(ctx, batch); err != nil {
				log.Fatalf("Failed to seed batch ending at line %d: %v", line, err)
			}
			total += len(batch)
			batch = batch[:0]
		}
	}
	if err := scanner.Err(); err != nil {
		log.Fatalf("Failed to read input: %v", err)
	}
	if len(batch) > 0 {
		if err := svc.SeedEntities(ctx, batch); err != nil {
			log.Fatalf("Failed to seed final batch: %v", err)
		}
		total += len(batch)
	}

	log.Printf("Seeded %d entities (%d lines skipped)", total, skipped)
}
