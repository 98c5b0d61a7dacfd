// Package sqlitestore keeps passages and cached embeddings in a single SQLite
// file. Nearest-neighbour search is a brute-force cosine scan, which is
// adequate for rulebook-sized corpora.
//
// The store is read-only for passages. The indexer that chunks and embeds the
// rulebooks fills the passages table directly:
//
//	id       TEXT PRIMARY KEY
//	text     TEXT
//	metadata TEXT, a JSON object (name, type, category, query_must, ...)
//	vector   BLOB, float32 values in little-endian order
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kailas-cloud/lorekeeper/internal/db"
	"github.com/kailas-cloud/lorekeeper/internal/domain"
	"github.com/kailas-cloud/lorekeeper/internal/domain/passage"
	"github.com/kailas-cloud/lorekeeper/internal/domain/search/hit"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Store implements retrieval.VectorStore and the embedding-cache KV contract.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the database at path and ensures the schema exists.
func Open(path string) (*Store, error) {
	dsn := path
	if path != MemoryPath {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory: %w", err)
			}
		}
		dsn = path + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// A single connection keeps :memory: databases coherent and serializes writers.
	conn.SetMaxOpenConns(1)

	s := &Store{db: conn, now: time.Now}
	if err := s.createSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS passages (
			id TEXT PRIMARY KEY,
			text TEXT NOT NULL,
			metadata TEXT NOT NULL DEFAULT '{}',
			vector BLOB NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value BLOB NOT NULL,
			expires_at INTEGER
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Query returns up to limit passages nearest to vector by cosine distance,
// skipping excluded ids inside the SQL statement.
func (s *Store) Query(ctx context.Context, vector []float32, limit int, exclude []string) ([]hit.Hit, error) {
	if limit <= 0 {
		return nil, nil
	}

	query := `SELECT id, text, metadata, vector FROM passages`
	args := make([]any, 0, len(exclude))
	if len(exclude) > 0 {
		query += ` WHERE id NOT IN (` + placeholders(len(exclude)) + `)`
		for _, id := range exclude {
			args = append(args, id)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %w", domain.ErrVectorStore, err)
	}
	defer rows.Close()

	var hits []hit.Hit
	for rows.Next() {
		var (
			id, text, rawMD string
			blob            []byte
		)
		if err := rows.Scan(&id, &text, &rawMD, &blob); err != nil {
			return nil, fmt.Errorf("%w: scan: %w", domain.ErrVectorStore, err)
		}
		stored, err := decodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("%w: passage %s: %w", domain.ErrVectorStore, id, err)
		}
		hits = append(hits, hit.New(id, text, decodeMetadata(rawMD), cosineDistance(vector, stored)))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating rows: %w", domain.ErrVectorStore, err)
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Distance() != hits[j].Distance() {
			return hits[i].Distance() < hits[j].Distance()
		}
		return hits[i].ID() < hits[j].ID()
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// Get fetches a passage by id.
func (s *Store) Get(ctx context.Context, id string) (passage.Passage, error) {
	var text, rawMD string
	err := s.db.QueryRowContext(ctx,
		`SELECT text, metadata FROM passages WHERE id = ?`, id,
	).Scan(&text, &rawMD)
	if errors.Is(err, sql.ErrNoRows) {
		return passage.Passage{}, fmt.Errorf("get %s: %w", id, domain.ErrPassageNotFound)
	}
	if err != nil {
		return passage.Passage{}, fmt.Errorf("%w: get %s: %w", domain.ErrVectorStore, id, err)
	}
	return passage.New(id, text, decodeMetadata(rawMD)), nil
}

// Count returns the number of stored passages.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM passages`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count: %w", domain.ErrVectorStore, err)
	}
	return n, nil
}

// --- KV (embedding cache) ---

// GetValue returns a cached value. Missing and expired keys yield db.ErrKeyNotFound.
func (s *Store) GetValue(ctx context.Context, key string) ([]byte, error) {
	var (
		value     []byte
		expiresAt sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT value, expires_at FROM kv WHERE key = ?`, key,
	).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, db.ErrKeyNotFound
	}
	if err != nil {
		return nil, &db.Error{Op: db.OpGet, Err: err}
	}
	if expiresAt.Valid && s.now().Unix() >= expiresAt.Int64 {
		return nil, db.ErrKeyNotFound
	}
	return value, nil
}

// SetValue stores a value without expiry.
func (s *Store) SetValue(ctx context.Context, key string, value []byte) error {
	return s.setValue(ctx, key, value, sql.NullInt64{})
}

// SetValueWithTTL stores a value that expires after ttl.
func (s *Store) SetValueWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	exp := sql.NullInt64{Int64: s.now().Add(ttl).Unix(), Valid: true}
	return s.setValue(ctx, key, value, exp)
}

func (s *Store) setValue(ctx context.Context, key string, value []byte, exp sql.NullInt64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO kv (key, value, expires_at) VALUES (?, ?, ?)`,
		key, value, exp,
	)
	if err != nil {
		return &db.Error{Op: db.OpSet, Err: err}
	}
	return nil
}

// KV adapts the store's kv table to the Get/Set contract of the embedding cache.
func (s *Store) KV() *KV {
	return &KV{s: s}
}

// KV is a view over the kv table. Its method names match db.KVStore.
type KV struct {
	s *Store
}

// Get returns a cached value.
func (k *KV) Get(ctx context.Context, key string) ([]byte, error) {
	return k.s.GetValue(ctx, key)
}

// Set stores a value.
func (k *KV) Set(ctx context.Context, key string, value []byte) error {
	return k.s.SetValue(ctx, key, value)
}

// SetWithTTL stores a value with expiry.
func (k *KV) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return k.s.SetValueWithTTL(ctx, key, value, ttl)
}

var _ db.KVStore = (*KV)(nil)

// --- helpers ---

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func decodeMetadata(raw string) passage.Metadata {
	md := passage.Metadata{}
	if raw == "" {
		return md
	}
	// Metadata comes from the indexer; a corrupt row still yields a usable passage.
	_ = json.Unmarshal([]byte(raw), &md)
	return md
}

func decodeVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid vector blob: len=%d (not multiple of 4)", len(data))
	}
	v := make([]float32, len(data)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return v, nil
}

// cosineDistance returns 1 - cos(a, b), clamped to [0, 2]. Vectors of
// different dimensions are maximally distant.
func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 2
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 1
	}
	d := 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
	return math.Min(2, math.Max(0, d))
}
