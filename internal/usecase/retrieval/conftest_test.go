package retrieval

import (
	"context"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/lorekeeper/internal/domain"
	"github.com/kailas-cloud/lorekeeper/internal/domain/passage"
	"github.com/kailas-cloud/lorekeeper/internal/domain/search/hit"
	"github.com/kailas-cloud/lorekeeper/internal/domain/search/request"
)

type queryCall struct {
	vector  []float32
	limit   int
	exclude []string
}

// fakeStore serves hits in corpus order. Queries whose first vector
// component has an entry in byVector are served from that list instead.
type fakeStore struct {
	corpus        []hit.Hit
	byVector      map[float32][]hit.Hit
	passages      map[string]passage.Passage
	ignoreExclude bool
	queryErr      error
	getErr        error

	queries []queryCall
	gets    []string
}

func (f *fakeStore) Query(
	_ context.Context, vector []float32, limit int, exclude []string,
) ([]hit.Hit, error) {
	f.queries = append(f.queries, queryCall{vector: vector, limit: limit, exclude: slices.Clone(exclude)})
	if f.queryErr != nil {
		return nil, f.queryErr
	}

	src := f.corpus
	if len(vector) > 0 {
		if hits, ok := f.byVector[vector[0]]; ok {
			src = hits
		}
	}

	skip := make(map[string]bool, len(exclude))
	if !f.ignoreExclude {
		for _, id := range exclude {
			skip[id] = true
		}
	}

	var out []hit.Hit
	for _, h := range src {
		if len(out) == limit {
			break
		}
		if !skip[h.ID()] {
			out = append(out, h)
		}
	}
	return out, nil
}

func (f *fakeStore) Get(_ context.Context, id string) (passage.Passage, error) {
	f.gets = append(f.gets, id)
	if f.getErr != nil {
		return passage.Passage{}, f.getErr
	}
	p, ok := f.passages[id]
	if !ok {
		return passage.Passage{}, domain.ErrPassageNotFound
	}
	return p, nil
}

// fakeEmbedder returns vector {0} unless text has an entry in vectors.
type fakeEmbedder struct {
	vectors map[string][]float32
	errs    map[string]error
	calls   []string
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	f.calls = append(f.calls, text)
	if err := f.errs[text]; err != nil {
		return domain.EmbeddingResult{}, err
	}
	if v, ok := f.vectors[text]; ok {
		return domain.EmbeddingResult{Embedding: v, TotalTokens: 3}, nil
	}
	return domain.EmbeddingResult{Embedding: []float32{0}, TotalTokens: 3}, nil
}

func newReq(t *testing.T, question string, k int, filtering bool, maxIterations int) *request.Request {
	t.Helper()
	r, err := request.New(question, k, 0.4, filtering, maxIterations)
	require.NoError(t, err)
	return &r
}

func plain(id, name string, distance float64) hit.Hit {
	return hit.New(id, "text of "+id, passage.Metadata{passage.KeyName: name}, distance)
}

func guarded(id string, distance float64, queryMust string) hit.Hit {
	return hit.New(id, "text of "+id, passage.Metadata{
		passage.KeyName:      id,
		passage.KeyQueryMust: queryMust,
	}, distance)
}
