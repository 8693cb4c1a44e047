package apptype

// Entity is a stored record addressed by its canonical name. Attributes hold
// the dataset-specific descriptive fields; Embedding is optional and only
// entities that carry one can anchor a similarity search.
type Entity struct {
	Name       string         `json:"name"`
	EntityType string         `json:"entityType,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
	Embedding  []float32      `json:"embedding,omitempty"`
}

// Candidate is one ranked (key, score) pair returned by the similarity
// search, before hydration. Higher score means more similar.
type Candidate struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// SimilarityResult is the display projection of a matched entity paired with
// the datastore's similarity score for traceability. It never carries the
// embedding.
type SimilarityResult struct {
	ID         string         `json:"id"`
	Score      float64        `json:"score"`
	EntityType string         `json:"entityType,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}
