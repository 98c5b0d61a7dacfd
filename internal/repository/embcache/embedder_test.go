package embcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/lorekeeper/internal/db"
	"github.com/kailas-cloud/lorekeeper/internal/domain"
)

func TestEmbed_CacheMiss(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{
		Embedding:    []float32{0.1, 0.2, 0.3},
		PromptTokens: 10,
		TotalTokens:  10,
	}}
	ce, ms := newTestCachedEmbedder(t, inner)
	ctx := context.Background()

	ms.getFn = func(_ context.Context, _ string) ([]byte, error) {
		return nil, db.ErrKeyNotFound
	}

	var setCalled bool
	ms.setFn = func(_ context.Context, _ string, _ []byte) error {
		setCalled = true
		return nil
	}

	result, err := ce.Embed(ctx, "compare owlbear and griffon")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Embedding) != 3 || result.Embedding[0] != 0.1 {
		t.Fatalf("unexpected vector: %v", result.Embedding)
	}
	if result.TotalTokens != 10 {
		t.Fatalf("expected TotalTokens=10, got %d", result.TotalTokens)
	}
	if !setCalled {
		t.Fatal("expected SET to be called for cache put")
	}
}

func TestEmbed_CacheHit(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{
		Embedding: []float32{0.1, 0.2, 0.3},
	}}
	ce, ms := newTestCachedEmbedder(t, inner)
	ctx := context.Background()

	cached := vectorToCacheBytes([]float32{0.4, 0.5, 0.6})
	ms.getFn = func(_ context.Context, _ string) ([]byte, error) {
		return cached, nil
	}

	result, err := ce.Embed(ctx, "test text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Embedding) != 3 || result.Embedding[0] != 0.4 {
		t.Fatalf("expected cached vector, got: %v", result.Embedding)
	}
	if result.TotalTokens != 0 {
		t.Fatalf("expected TotalTokens=0 on cache hit, got %d", result.TotalTokens)
	}
	if inner.calls != 0 {
		t.Errorf("inner embedder should not be called on hit, got %d calls", inner.calls)
	}
}

func TestEmbed_CorruptEntryFallsThrough(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.7}}}
	ce, ms := newTestCachedEmbedder(t, inner)

	ms.getFn = func(_ context.Context, _ string) ([]byte, error) {
		return []byte{1, 2, 3}, nil
	}

	result, err := ce.Embed(context.Background(), "x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Embedding[0] != 0.7 || inner.calls != 1 {
		t.Errorf("expected inner result after corrupt cache entry, got %v", result.Embedding)
	}
}

func TestEmbed_CacheErrorsAreNotFatal(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.2}}}
	ce, ms := newTestCachedEmbedder(t, inner)

	ms.getFn = func(_ context.Context, _ string) ([]byte, error) {
		return nil, &db.Error{Op: db.OpGet, Err: errors.New("timeout")}
	}
	ms.setFn = func(_ context.Context, _ string, _ []byte) error {
		return errors.New("read only replica")
	}

	if _, err := ce.Embed(context.Background(), "x"); err != nil {
		t.Fatalf("cache failures must not fail the embed: %v", err)
	}
}

func TestEmbed_InnerError(t *testing.T) {
	inner := &mockEmbedder{err: errors.New("provider down")}
	ce, _ := newTestCachedEmbedder(t, inner)

	_, err := ce.Embed(context.Background(), "test text")
	if err == nil {
		t.Fatal("expected error from inner embedder")
	}
}

func TestEmbed_UsesTTL(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1}}}
	ms := &mockKVStore{}
	ce := New(inner, ms, "m", time.Hour, nil, zap.NewNop())

	var gotTTL time.Duration
	ms.setWithTTLFn = func(_ context.Context, _ string, _ []byte, ttl time.Duration) error {
		gotTTL = ttl
		return nil
	}
	ms.setFn = func(_ context.Context, _ string, _ []byte) error {
		t.Error("plain SET should not be used when ttl is configured")
		return nil
	}

	if _, err := ce.Embed(context.Background(), "x"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotTTL != time.Hour {
		t.Errorf("expected ttl 1h, got %v", gotTTL)
	}
}

func TestCacheKey_ScopedByModel(t *testing.T) {
	a := New(&mockEmbedder{}, &mockKVStore{}, "model-a", 0, nil, zap.NewNop())
	b := New(&mockEmbedder{}, &mockKVStore{}, "model-b", 0, nil, zap.NewNop())

	if a.cacheKey("owlbear") == b.cacheKey("owlbear") {
		t.Error("keys for different models must differ")
	}
	if a.cacheKey("owlbear") != a.cacheKey("owlbear") {
		t.Error("keys must be deterministic")
	}
}

func TestHealthCheck_Forwards(t *testing.T) {
	inner := &mockEmbedder{healthErr: errors.New("down")}
	ce, _ := newTestCachedEmbedder(t, inner)

	if err := ce.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected inner health error")
	}
}
