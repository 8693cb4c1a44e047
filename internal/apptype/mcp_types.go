package apptype

// FetchEntityArgs represents the arguments for the fetch_entity_by_name tool
type FetchEntityArgs struct {
	Name string `json:"name" jsonschema:"The human-provided entity name. Canonicalized per dataset configuration before lookup."`
}

// EntityResult represents the result of the fetch_entity_by_name tool
type EntityResult struct {
	Entity Entity `json:"entity"`
}

// FindSimilarArgs represents the arguments for the find_similar_entities tool
type FindSimilarArgs struct {
	Name  string `json:"name" jsonschema:"The name of the anchor entity whose stored embedding seeds the search."`
	Limit int    `json:"limit,omitempty" jsonschema:"Maximum number of similar entities to return (default 5)."`
}

// SimilarResult represents the result of the find_similar_entities tool
type SimilarResult struct {
	Results []SimilarityResult `json:"results"`
}

// Health
type HealthArgs struct{}

type HealthResult struct {
	Name          string `json:"name"`
	Version       string `json:"version"`
	Revision      string `json:"revision"`
	BuildDate     string `json:"buildDate"`
	Dataset       string `json:"dataset"`
	EmbeddingDims int    `json:"embeddingDims"`
}
