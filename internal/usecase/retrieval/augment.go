package retrieval

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/lorekeeper/internal/domain"
	"github.com/kailas-cloud/lorekeeper/internal/domain/search/hit"
	"github.com/kailas-cloud/lorekeeper/internal/domain/search/result"
	"github.com/kailas-cloud/lorekeeper/internal/metrics"
)

// CategoryDistancePenalty is added to the top hit's distance for an injected parent category.
const CategoryDistancePenalty = 0.05

// repositionEntities moves the best match for each entity right behind the
// top hit, keeping the relative order of everything else. It returns the
// reordered hits and the entities nothing matched.
func repositionEntities(hits []hit.Hit, entities []string, trace *result.Trace) ([]hit.Hit, []string) {
	names := make([]string, len(hits))
	for i, h := range hits {
		names[i] = strings.ToLower(h.Name())
	}

	matched := make(map[int]bool, len(entities))
	var missing []string
	for _, entity := range entities {
		idx := bestMatch(names, entity)
		if idx < 0 {
			missing = append(missing, entity)
			continue
		}
		trace.Addf("entity %q matched %q at position %d", entity, hits[idx].Name(), idx)
		matched[idx] = true
	}

	if len(hits) < 2 || len(matched) == 0 {
		return hits, missing
	}

	out := make([]hit.Hit, 0, len(hits))
	out = append(out, hits[0])
	moved := 0
	for i := 1; i < len(hits); i++ {
		if matched[i] {
			out = append(out, hits[i])
			moved++
		}
	}
	for i := 1; i < len(hits); i++ {
		if !matched[i] {
			out = append(out, hits[i])
		}
	}
	metrics.AugmentationTotal.WithLabelValues(metrics.AugmentEntityRepositioned).Add(float64(moved))
	return out, missing
}

// lookupEntities runs one targeted query per missing entity and appends its top hit.
func (s *Service) lookupEntities(
	ctx context.Context, hits []hit.Hit, missing []string, trace *result.Trace,
) ([]hit.Hit, error) {
	for _, entity := range missing {
		emb, err := s.embed.Embed(ctx, entity)
		if err != nil {
			return nil, upstreamError(domain.ErrEmbeddingProviderError, "embed entity", err)
		}
		found, err := s.store.Query(ctx, emb.Embedding, 1, nil)
		domain.UsageFromContext(ctx).AddStoreQuery()
		if err != nil {
			return nil, upstreamError(domain.ErrVectorStore, "query entity", err)
		}
		metrics.AugmentationTotal.WithLabelValues(metrics.AugmentEntityLookup).Inc()
		if len(found) == 0 {
			trace.Addf("entity %q: targeted lookup found nothing", entity)
			continue
		}
		if containsID(hits, found[0].ID()) {
			trace.Addf("entity %q: targeted lookup returned %s, already present", entity, found[0].ID())
			continue
		}
		trace.Addf("entity %q: appended %s (distance %.4f)", entity, found[0].ID(), found[0].Distance())
		hits = append(hits, found[0])
	}
	return hits, nil
}

// injectCategory inserts the top hit's parent category at position 1. Best effort.
func (s *Service) injectCategory(ctx context.Context, hits []hit.Hit, trace *result.Trace) []hit.Hit {
	if len(hits) == 0 {
		return hits
	}
	categoryID := hits[0].Metadata().ParentCategoryID()
	if categoryID == "" || containsID(hits, categoryID) {
		return hits
	}

	p, err := s.store.Get(ctx, categoryID)
	if err != nil {
		s.loggerFor(ctx).Debug("Category injection skipped",
			zap.String("category_id", categoryID),
			zap.Error(err),
		)
		metrics.AugmentationTotal.WithLabelValues(metrics.AugmentCategoryFailed).Inc()
		trace.Addf("category %s: lookup failed, skipped", categoryID)
		return hits
	}

	category := hit.FromPassage(p, hits[0].Distance()+CategoryDistancePenalty)
	out := make([]hit.Hit, 0, len(hits)+1)
	out = append(out, hits[0], category)
	out = append(out, hits[1:]...)
	metrics.AugmentationTotal.WithLabelValues(metrics.AugmentCategoryInjected).Inc()
	trace.Addf("category %s: injected at position 1", categoryID)
	return out
}

// augment applies entity repositioning, targeted lookups and category injection.
func (s *Service) augment(
	ctx context.Context, hits []hit.Hit, entities []string, trace *result.Trace,
) ([]hit.Hit, error) {
	if len(entities) > 0 {
		var missing []string
		hits, missing = repositionEntities(hits, entities, trace)
		var err error
		if hits, err = s.lookupEntities(ctx, hits, missing, trace); err != nil {
			return nil, err
		}
	}
	return s.injectCategory(ctx, hits, trace), nil
}

func containsID(hits []hit.Hit, id string) bool {
	for _, h := range hits {
		if h.ID() == id {
			return true
		}
	}
	return false
}
