package passage

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/kailas-cloud/lorekeeper/internal/db"
	"github.com/kailas-cloud/lorekeeper/internal/domain"
	dompassage "github.com/kailas-cloud/lorekeeper/internal/domain/passage"
	"github.com/kailas-cloud/lorekeeper/internal/domain/search/hit"
)

// DefaultContentField is the hash field holding passage text.
const DefaultContentField = "content"

// store is the consumer interface for passage lookups (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)
}

// Config describes how passages are laid out in Redis.
type Config struct {
	IndexName    string
	KeyPrefix    string
	ContentField string
	VectorField  string
	// IDTagField, when set, names a TAG field holding the passage id and
	// enables exclusion inside the KNN pre-filter.
	IDTagField string
	// ReturnFields limits the hash fields loaded per hit. Empty loads all.
	ReturnFields []string
}

// Repo implements retrieval.VectorStore over Redis hashes indexed by FT.CREATE.
type Repo struct {
	store store
	cfg   Config
}

// New creates a passage repository.
func New(s store, cfg Config) *Repo {
	if cfg.ContentField == "" {
		cfg.ContentField = DefaultContentField
	}
	if cfg.VectorField == "" {
		cfg.VectorField = db.DefaultVectorField
	}
	return &Repo{store: s, cfg: cfg}
}

// Query returns up to limit nearest passages, skipping excluded ids.
func (r *Repo) Query(ctx context.Context, vector []float32, limit int, exclude []string) ([]hit.Hit, error) {
	if limit <= 0 {
		return nil, nil
	}

	q := &db.KNNQuery{
		IndexName:   r.cfg.IndexName,
		VectorField: r.cfg.VectorField,
		Vector:      vector,
		K:           limit,
	}
	if len(r.cfg.ReturnFields) > 0 {
		q.ReturnFields = r.returnFields()
	}

	native := r.cfg.IDTagField != ""
	if native {
		q.ExcludeTagField = r.cfg.IDTagField
		q.ExcludeValues = exclude
	} else {
		// Over-fetch so post-filtering still leaves limit candidates.
		q.K = limit + len(exclude)
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%w: knn %s: %w", domain.ErrVectorStore, r.cfg.IndexName, err)
	}
	if sr == nil || len(sr.Entries) == 0 {
		return nil, nil
	}

	hits := make([]hit.Hit, 0, min(limit, len(sr.Entries)))
	for _, entry := range sr.Entries {
		id := r.idFromKey(entry.Key)
		if !native && slices.Contains(exclude, id) {
			continue
		}
		text, md := r.splitFields(entry.Fields)
		hits = append(hits, hit.New(id, text, md, entry.Distance))
		if len(hits) == limit {
			break
		}
	}
	return hits, nil
}

// Get fetches a passage by id.
func (r *Repo) Get(ctx context.Context, id string) (dompassage.Passage, error) {
	fields, err := r.store.HGetAll(ctx, r.cfg.KeyPrefix+id)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return dompassage.Passage{}, fmt.Errorf("get %s: %w", id, domain.ErrPassageNotFound)
		}
		return dompassage.Passage{}, fmt.Errorf("%w: get %s: %w", domain.ErrVectorStore, id, err)
	}
	text, md := r.splitFields(fields)
	return dompassage.New(id, text, md), nil
}

func (r *Repo) returnFields() []string {
	fields := []string{r.cfg.ContentField}
	for _, f := range r.cfg.ReturnFields {
		if f != r.cfg.ContentField && f != r.cfg.VectorField {
			fields = append(fields, f)
		}
	}
	return fields
}

func (r *Repo) idFromKey(key string) string {
	return strings.TrimPrefix(key, r.cfg.KeyPrefix)
}

// splitFields separates the passage text from its metadata. The raw
// embedding is never surfaced as metadata.
func (r *Repo) splitFields(fields map[string]string) (string, dompassage.Metadata) {
	var text string
	md := make(dompassage.Metadata, len(fields))
	for k, v := range fields {
		switch k {
		case r.cfg.ContentField:
			text = v
		case r.cfg.VectorField:
		default:
			md[k] = v
		}
	}
	return text, md
}
