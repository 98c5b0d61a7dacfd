package answer

import (
	"context"

	"github.com/kailas-cloud/lorekeeper/internal/domain/search/request"
	"github.com/kailas-cloud/lorekeeper/internal/domain/search/result"
)

// Retriever selects grounding passages.
type Retriever interface {
	Retrieve(ctx context.Context, req *request.Request) (result.Result, error)
}

// Generator produces a completion for a system and user prompt.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}
