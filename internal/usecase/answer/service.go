package answer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/lorekeeper/internal/domain"
	"github.com/kailas-cloud/lorekeeper/internal/domain/search/request"
	"github.com/kailas-cloud/lorekeeper/internal/domain/search/result"
	logpkg "github.com/kailas-cloud/lorekeeper/internal/logger"
)

// NoGroundingAnswer is returned without calling the model when retrieval finds nothing.
const NoGroundingAnswer = "I could not find any material in the indexed rulebooks that answers this question."

// DefaultSystemPrompt instructs the model to answer only from the supplied context.
const DefaultSystemPrompt = `You are a knowledgeable Dungeon Master assistant for Advanced Dungeons & Dragons 1st Edition.

When answering:
1. Be precise and cite the context element that establishes your answer.
2. Read tables carefully: identify the row, the column header and the exact intersection value.
3. If the context contains JSON, parse it and explain which properties you use.
4. For combat probabilities, apply all relevant modifiers and show your work step by step.
5. If the information is not in the context, say so clearly and describe what is missing.

Use the provided context and only that context.`

// Answer is a grounded answer together with the retrieval it was built from.
type Answer struct {
	Text    string
	Context string
	Result  result.Result
}

// Service answers questions from retrieved passages.
type Service struct {
	retriever    Retriever
	gen          Generator
	systemPrompt string
	logger       *zap.Logger
}

// New creates an answer service. An empty systemPrompt selects DefaultSystemPrompt.
func New(retriever Retriever, gen Generator, systemPrompt string, logger *zap.Logger) *Service {
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{retriever: retriever, gen: gen, systemPrompt: systemPrompt, logger: logger}
}

// Ask retrieves grounding passages and generates an answer from them.
func (s *Service) Ask(ctx context.Context, req *request.Request) (Answer, error) {
	res, err := s.retriever.Retrieve(ctx, req)
	if err != nil {
		return Answer{}, fmt.Errorf("retrieve: %w", err)
	}
	if res.IsEmpty() {
		logpkg.FromContextOr(ctx, s.logger).Info("No grounding material found", zap.String("question", req.Question()))
		return Answer{Text: NoGroundingAnswer, Result: res}, nil
	}

	contextText := FormatContext(res.Hits())
	text, err := s.gen.Generate(ctx, s.systemPrompt, UserPrompt(req.Question(), contextText))
	if err != nil {
		return Answer{}, fmt.Errorf("%w: %w", domain.ErrGenerationFailed, err)
	}

	return Answer{Text: text, Context: contextText, Result: res}, nil
}
