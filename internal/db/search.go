package db

// DefaultVectorField is the hash field holding passage embeddings.
const DefaultVectorField = "vector"

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName   string
	VectorField string // defaults to DefaultVectorField
	Vector      []float32
	K           int
	// ExcludeTagField names a TAG field; entries whose value is in
	// ExcludeValues are filtered out before the KNN step.
	ExcludeTagField string
	ExcludeValues   []string
	ReturnFields    []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single hit. Distance is the raw __vector_score.
type SearchEntry struct {
	Key      string
	Distance float64
	Fields   map[string]string
}
