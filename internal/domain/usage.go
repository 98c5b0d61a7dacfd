package domain

import "context"

type usageKey struct{}

// RequestUsage counts outbound collaborator calls made while serving one question.
// The caller puts a pointer into the context; the engine and the embedder chain add to it.
type RequestUsage struct {
	EmbeddingCalls  int
	EmbeddingTokens int
	StoreQueries    int
}

// NewContextWithUsage returns a context carrying a fresh usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *RequestUsage) {
	u := &RequestUsage{}
	return context.WithValue(ctx, usageKey{}, u), u
}

// UsageFromContext extracts the usage collector. Returns nil if not set.
func UsageFromContext(ctx context.Context) *RequestUsage {
	u, _ := ctx.Value(usageKey{}).(*RequestUsage)
	return u
}

// AddEmbedding records one embedding call and its token cost.
func (u *RequestUsage) AddEmbedding(tokens int) {
	if u != nil {
		u.EmbeddingCalls++
		u.EmbeddingTokens += tokens
	}
}

// AddStoreQuery records one vector store query.
func (u *RequestUsage) AddStoreQuery() {
	if u != nil {
		u.StoreQueries++
	}
}
