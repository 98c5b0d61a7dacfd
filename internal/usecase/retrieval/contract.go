package retrieval

import (
	"context"

	"github.com/kailas-cloud/lorekeeper/internal/domain"
	"github.com/kailas-cloud/lorekeeper/internal/domain/passage"
	"github.com/kailas-cloud/lorekeeper/internal/domain/search/hit"
)

// VectorStore is the passage index the engine queries.
type VectorStore interface {
	// Query returns up to limit hits ordered by ascending distance,
	// never including passages whose id is in exclude.
	Query(ctx context.Context, vector []float32, limit int, exclude []string) ([]hit.Hit, error)
	// Get fetches a single passage by id.
	Get(ctx context.Context, id string) (passage.Passage, error)
}

// Embedder vectorizes questions and entity names.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
