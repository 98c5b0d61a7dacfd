package retrieval

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/lorekeeper/internal/domain"
	"github.com/kailas-cloud/lorekeeper/internal/domain/predicate"
	"github.com/kailas-cloud/lorekeeper/internal/domain/search/hit"
	"github.com/kailas-cloud/lorekeeper/internal/domain/search/request"
	"github.com/kailas-cloud/lorekeeper/internal/domain/search/result"
	logpkg "github.com/kailas-cloud/lorekeeper/internal/logger"
	"github.com/kailas-cloud/lorekeeper/internal/metrics"
)

// MaxEntityWindow caps the widened first query issued for comparison questions.
const MaxEntityWindow = 15

// Service selects grounding passages for a question.
type Service struct {
	store  VectorStore
	embed  Embedder
	logger *zap.Logger
}

// New creates a retrieval service.
func New(store VectorStore, embed Embedder, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, embed: embed, logger: logger}
}

// requestState is everything one retrieval accumulates.
type requestState struct {
	question      string
	k             int
	window        int
	filtering     bool
	maxIterations int

	processed  map[string]struct{}
	exclude    []string
	kept       []hit.Hit
	rejected   int
	iterations int
	stop       result.StopReason
	trace      result.Trace
}

func newRequestState(req *request.Request, entities []string) *requestState {
	window := req.K()
	if len(entities) > 0 {
		window = max(req.K(), min(req.K()*3, MaxEntityWindow))
	}
	return &requestState{
		question:      req.Question(),
		k:             req.K(),
		window:        window,
		filtering:     req.Filtering(),
		maxIterations: req.MaxIterations(),
		processed:     make(map[string]struct{}),
	}
}

// Retrieve runs the filtered re-query loop, augments and cuts off the result.
// Embedding and vector store failures abort the request.
func (s *Service) Retrieve(ctx context.Context, req *request.Request) (result.Result, error) {
	entities := DetectEntities(req.Question())
	st := newRequestState(req, entities)
	if len(entities) > 0 {
		st.trace.Addf("comparison entities: %s", strings.Join(entities, " | "))
	}

	emb, err := s.embed.Embed(ctx, req.Question())
	if err != nil {
		return result.Result{}, upstreamError(domain.ErrEmbeddingProviderError, "embed question", err)
	}

	if err = s.collect(ctx, st, emb.Embedding); err != nil {
		return result.Result{}, err
	}

	hits := slices.Clone(st.kept)
	slices.SortStableFunc(hits, func(a, b hit.Hit) int {
		return cmp.Compare(a.Distance(), b.Distance())
	})
	if len(hits) > st.window {
		hits = hits[:st.window]
	}

	hits, err = s.augment(ctx, hits, entities, &st.trace)
	if err != nil {
		return result.Result{}, err
	}

	cut := SelectCutoff(hit.Distances(hits), st.k, req.DistanceThreshold())
	switch cut.Strategy {
	case result.CutoffGap:
		st.trace.Addf("cutoff: gap %.4f at position %d", cut.Gap, cut.GapPosition)
	case result.CutoffThreshold:
		st.trace.Addf("cutoff: distance threshold (limit %.4f, largest gap %.4f)", cut.Limit, cut.Gap)
	case result.CutoffNone:
		st.trace.Addf("cutoff: nothing retrieved")
	}
	st.trace.Addf("keeping %d of %d", cut.Keep, len(hits))
	hits = hits[:cut.Keep]

	metrics.ObserveRetrieval(string(st.stop), string(cut.Strategy), st.iterations, st.rejected, len(hits))
	s.loggerFor(ctx).Info("Retrieval completed",
		zap.Int("k", st.k),
		zap.Int("iterations", st.iterations),
		zap.Int("rejected", st.rejected),
		zap.String("stop_reason", string(st.stop)),
		zap.String("cutoff", string(cut.Strategy)),
		zap.Int("passages", len(hits)),
	)

	return result.New(hits, st.trace.Lines(), result.Summary{
		Iterations: st.iterations,
		Rejected:   st.rejected,
		StopReason: st.stop,
		Cutoff:     cut.Strategy,
		Entities:   entities,
	}), nil
}

// collect queries the store until one of the stop conditions holds.
// Every returned id is excluded from later rounds, kept or not.
func (s *Service) collect(ctx context.Context, st *requestState, vector []float32) error {
	log := s.loggerFor(ctx)
	for {
		limit := st.k
		if st.iterations == 0 {
			limit = st.window
		}

		hits, err := s.store.Query(ctx, vector, limit, st.exclude)
		domain.UsageFromContext(ctx).AddStoreQuery()
		if err != nil {
			return upstreamError(domain.ErrVectorStore, "query vector store", err)
		}
		st.iterations++

		kept, rejected := 0, 0
		for _, h := range hits {
			if _, seen := st.processed[h.ID()]; seen {
				continue
			}
			st.processed[h.ID()] = struct{}{}
			st.exclude = append(st.exclude, h.ID())

			if accepts(log, st, h) {
				st.kept = append(st.kept, h)
				kept++
				continue
			}
			rejected++
		}
		st.rejected += rejected

		st.trace.Addf("iteration %d: fetched %d, kept %d, rejected %d (total kept %d)",
			st.iterations, len(hits), kept, rejected, len(st.kept))
		log.Debug("Retrieval iteration",
			zap.Int("iteration", st.iterations),
			zap.Int("fetched", len(hits)),
			zap.Int("kept", kept),
			zap.Int("rejected", rejected),
			zap.Int("total_kept", len(st.kept)),
		)

		switch {
		case len(st.kept) >= st.k:
			st.stop = result.StopTargetReached
		case len(hits) == 0:
			st.stop = result.StopExhausted
		case rejected == 0:
			st.stop = result.StopNoRejections
		case st.iterations >= st.maxIterations:
			st.stop = result.StopIterationBudget
		default:
			continue
		}
		if st.stop == result.StopExhausted {
			// An empty round also has zero rejections; exhausted takes precedence.
			st.trace.Addf("stop: %s (no new candidates, zero rejections)", st.stop)
		} else {
			st.trace.Addf("stop: %s", st.stop)
		}
		return nil
	}
}

// accepts applies the passage's query_must predicate. Reference material
// always passes; malformed clauses are skipped and the rest still apply.
func accepts(log *zap.Logger, st *requestState, h hit.Hit) bool {
	if !st.filtering {
		return true
	}
	md := h.Metadata()
	if md.IsReference() {
		return true
	}
	p, err := predicate.Parse(md.RawPredicate())
	if err != nil {
		log.Debug("Ignoring malformed predicate clauses",
			zap.String("passage_id", h.ID()),
			zap.Error(err),
		)
	}
	if kind, failed := p.FirstFailure(st.question); failed {
		log.Debug("Passage rejected by predicate",
			zap.String("passage_id", h.ID()),
			zap.String("clause", string(kind)),
		)
		return false
	}
	return true
}

// loggerFor prefers the request-scoped logger carried by ctx.
func (s *Service) loggerFor(ctx context.Context) *zap.Logger {
	return logpkg.FromContextOr(ctx, s.logger)
}

// upstreamError wraps a collaborator failure so it maps to the given sentinel.
func upstreamError(sentinel error, op string, err error) error {
	if errors.Is(err, sentinel) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, sentinel, err)
}
