package passage

import (
	"context"
	"testing"

	"github.com/kailas-cloud/lorekeeper/internal/db"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	searchKNNFn func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	hGetAllFn   func(ctx context.Context, key string) (map[string]string, error)

	lastQuery *db.KNNQuery
}

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	m.lastQuery = q
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if m.hGetAllFn != nil {
		return m.hGetAllFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func newTestRepo(t *testing.T, cfg Config) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	if cfg.IndexName == "" {
		cfg.IndexName = "passages"
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "passage:"
	}
	return New(ms, cfg), ms
}

func entry(id string, distance float64, name string) db.SearchEntry {
	return db.SearchEntry{
		Key:      "passage:" + id,
		Distance: distance,
		Fields: map[string]string{
			"content": "text of " + id,
			"name":    name,
			"vector":  "\x00\x00\x80\x3f",
		},
	}
}

func testVector() []float32 {
	return []float32{0.1, 0.2, 0.3, 0.4}
}
