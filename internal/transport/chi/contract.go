package chi

import (
	"context"

	"github.com/kailas-cloud/lorekeeper/internal/domain/search/request"
	"github.com/kailas-cloud/lorekeeper/internal/domain/search/result"
	answeruc "github.com/kailas-cloud/lorekeeper/internal/usecase/answer"
	healthuc "github.com/kailas-cloud/lorekeeper/internal/usecase/health"
)

// Retriever selects grounding passages for a question.
type Retriever interface {
	Retrieve(ctx context.Context, req *request.Request) (result.Result, error)
}

// Asker answers a question from retrieved passages.
type Asker interface {
	Ask(ctx context.Context, req *request.Request) (answeruc.Answer, error)
}

// HealthReporter aggregates component health.
type HealthReporter interface {
	Check(ctx context.Context) healthuc.Report
}
