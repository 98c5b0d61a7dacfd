package sqlitestore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/lorekeeper/internal/db"
	"github.com/kailas-cloud/lorekeeper/internal/domain"
	"github.com/kailas-cloud/lorekeeper/internal/domain/passage"
	"github.com/kailas-cloud/lorekeeper/internal/domain/search/hit"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seed(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	rows := []struct {
		id     string
		name   string
		vector []float32
	}{
		{"x-axis", "X", []float32{1, 0, 0}},
		{"near-x", "Near X", []float32{0.9, 0.1, 0}},
		{"y-axis", "Y", []float32{0, 1, 0}},
		{"z-axis", "Z", []float32{0, 0, 1}},
	}
	for _, r := range rows {
		p := passage.New(r.id, "text of "+r.id, passage.Metadata{
			passage.KeyName: r.name,
			passage.KeyType: "monster",
		})
		require.NoError(t, s.put(ctx, p, r.vector))
	}
}

func TestOpen_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "lore.db")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Ping(context.Background()))
}

func TestQuery_OrdersByCosineDistance(t *testing.T) {
	s := testStore(t)
	seed(t, s)

	hits, err := s.Query(context.Background(), []float32{1, 0, 0}, 3, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"x-axis", "near-x", "y-axis"}, hit.IDs(hits))
	assert.InDelta(t, 0, hits[0].Distance(), 1e-6)
	assert.InDelta(t, 1, hits[2].Distance(), 1e-6)
	assert.Equal(t, "Near X", hits[1].Name())
	assert.Equal(t, "text of near-x", hits[1].Text())
}

func TestQuery_ExcludesIDs(t *testing.T) {
	s := testStore(t)
	seed(t, s)

	hits, err := s.Query(context.Background(), []float32{1, 0, 0}, 2, []string{"x-axis", "near-x"})
	require.NoError(t, err)
	assert.Equal(t, []string{"y-axis", "z-axis"}, hit.IDs(hits))
}

func TestQuery_ZeroLimit(t *testing.T) {
	s := testStore(t)
	seed(t, s)

	hits, err := s.Query(context.Background(), []float32{1, 0, 0}, 0, nil)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestQuery_EmptyStore(t *testing.T) {
	s := testStore(t)

	hits, err := s.Query(context.Background(), []float32{1, 0, 0}, 5, nil)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestQuery_ReadsIndexerRows(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	// 1.0 and 0.0 as little-endian float32.
	vec := []byte{0x00, 0x00, 0x80, 0x3f, 0x00, 0x00, 0x00, 0x00}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO passages (id, text, metadata, vector) VALUES (?, ?, ?, ?)`,
		"troll", "Troll text", `{"name":"Troll","query_must":{"contain":"troll"}}`, vec)
	require.NoError(t, err)

	hits, err := s.Query(ctx, []float32{1, 0}, 5, nil)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "troll", hits[0].ID())
	assert.Equal(t, "Troll", hits[0].Name())
	assert.InDelta(t, 0, hits[0].Distance(), 1e-6)
	assert.NotNil(t, hits[0].Metadata().RawPredicate())
}

func TestPut_Replaces(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	require.NoError(t, s.put(ctx, passage.New("a", "v1", nil), []float32{1, 0}))
	require.NoError(t, s.put(ctx, passage.New("a", "v2", nil), []float32{0, 1}))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	p, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "v2", p.Text())
}

func TestGet(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	md := passage.Metadata{
		passage.KeyName:           "Red Dragon",
		passage.KeyParentCategory: "dragons",
		passage.KeyChunkPart:      2,
	}
	require.NoError(t, s.put(ctx, passage.New("red-dragon", "A red dragon ...", md), []float32{1}))

	p, err := s.Get(ctx, "red-dragon")
	require.NoError(t, err)
	assert.Equal(t, "A red dragon ...", p.Text())
	assert.Equal(t, "dragons", p.Metadata().ParentCategoryID())
	assert.Equal(t, "2", p.Metadata().String(passage.KeyChunkPart))
}

func TestGet_NotFound(t *testing.T) {
	s := testStore(t)

	_, err := s.Get(context.Background(), "missing")
	assert.True(t, errors.Is(err, domain.ErrPassageNotFound))
}

func TestKV_RoundTrip(t *testing.T) {
	s := testStore(t)
	kv := s.KV()
	ctx := context.Background()

	_, err := kv.Get(ctx, "k")
	assert.ErrorIs(t, err, db.ErrKeyNotFound)

	require.NoError(t, kv.Set(ctx, "k", []byte{1, 2, 3}))
	got, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, got)
}

func TestKV_TTL(t *testing.T) {
	s := testStore(t)
	now := time.Unix(1_700_000_000, 0)
	s.now = func() time.Time { return now }
	kv := s.KV()
	ctx := context.Background()

	require.NoError(t, kv.SetWithTTL(ctx, "k", []byte("v"), time.Minute))

	_, err := kv.Get(ctx, "k")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = kv.Get(ctx, "k")
	assert.ErrorIs(t, err, db.ErrKeyNotFound)
}

func TestCosineDistance(t *testing.T) {
	assert.InDelta(t, 0, cosineDistance([]float32{1, 1}, []float32{2, 2}), 1e-9)
	assert.InDelta(t, 2, cosineDistance([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.InDelta(t, 1, cosineDistance([]float32{0, 0}, []float32{1, 0}), 1e-9)
	assert.InDelta(t, 2, cosineDistance([]float32{1}, []float32{1, 0}), 1e-9)
}

func TestDecodeVector_Invalid(t *testing.T) {
	_, err := decodeVector([]byte{1, 2, 3})
	assert.Error(t, err)
}
