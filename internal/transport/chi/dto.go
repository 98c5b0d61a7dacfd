package chi

import (
	"fmt"

	"github.com/kailas-cloud/lorekeeper/internal/domain"
	"github.com/kailas-cloud/lorekeeper/internal/domain/search/hit"
	"github.com/kailas-cloud/lorekeeper/internal/domain/search/request"
	"github.com/kailas-cloud/lorekeeper/internal/domain/search/result"
)

// Error codes returned in ErrorResponse.Code.
const (
	CodeBadRequest             = "bad_request"
	CodeValidationFailed       = "validation_failed"
	CodeUnauthorized           = "unauthorized"
	CodeNotFound               = "not_found"
	CodeMethodNotAllowed       = "method_not_allowed"
	CodeNotImplemented         = "not_implemented"
	CodeEmbeddingProviderError = "embedding_provider_error"
	CodeGenerationFailed       = "generation_failed"
	CodeVectorStoreUnavailable = "vector_store_unavailable"
	CodeInternalError          = "internal_error"
)

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// QuestionRequest is the body of POST /v1/retrieve and POST /v1/ask.
// Omitted fields take server defaults.
type QuestionRequest struct {
	Question          string   `json:"question"`
	K                 *int     `json:"k,omitempty"`
	DistanceThreshold *float64 `json:"distance_threshold,omitempty"`
	Filtering         *bool    `json:"filtering,omitempty"`
	MaxIterations     *int     `json:"max_iterations,omitempty"`
}

// HitResponse is one retrieved passage.
type HitResponse struct {
	ID       string         `json:"id"`
	Name     string         `json:"name,omitempty"`
	Type     string         `json:"type,omitempty"`
	Distance float64        `json:"distance"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// RetrieveResponse is the body of a successful POST /v1/retrieve.
type RetrieveResponse struct {
	Hits           []HitResponse `json:"hits"`
	Trace          []string      `json:"trace"`
	Iterations     int           `json:"iterations"`
	Rejected       int           `json:"rejected"`
	StopReason     string        `json:"stop_reason,omitempty"`
	CutoffStrategy string        `json:"cutoff_strategy"`
	Entities       []string      `json:"entities,omitempty"`
}

// AskResponse is the body of a successful POST /v1/ask.
type AskResponse struct {
	Answer string        `json:"answer"`
	Hits   []HitResponse `json:"hits"`
	Trace  []string      `json:"trace"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Defaults are the retrieval parameters applied when a request omits them.
type Defaults struct {
	K                 int
	DistanceThreshold float64
	MaxIterations     int
	Filtering         bool
}

func (d Defaults) toRequest(in QuestionRequest) (request.Request, error) {
	k := d.K
	if in.K != nil {
		if *in.K <= 0 || *in.K > request.MaxK {
			return request.Request{}, fmt.Errorf("k must be between 1 and %d: %w", request.MaxK, domain.ErrInvalidRequest)
		}
		k = *in.K
	}
	threshold := d.DistanceThreshold
	if in.DistanceThreshold != nil {
		threshold = *in.DistanceThreshold
	}
	iterations := d.MaxIterations
	if in.MaxIterations != nil {
		if *in.MaxIterations <= 0 || *in.MaxIterations > request.MaxIterations {
			return request.Request{}, fmt.Errorf("max_iterations must be between 1 and %d: %w",
				request.MaxIterations, domain.ErrInvalidRequest)
		}
		iterations = *in.MaxIterations
	}
	filtering := d.Filtering
	if in.Filtering != nil {
		filtering = *in.Filtering
	}

	r, err := request.New(in.Question, k, threshold, filtering, iterations)
	if err != nil {
		return request.Request{}, fmt.Errorf("build retrieval request: %w", err)
	}
	return r, nil
}

func hitsToResponse(hits []hit.Hit) []HitResponse {
	out := make([]HitResponse, len(hits))
	for i, h := range hits {
		md := h.Metadata()
		out[i] = HitResponse{
			ID:       h.ID(),
			Name:     h.Name(),
			Type:     md.Type(),
			Distance: h.Distance(),
			Text:     h.Text(),
			Metadata: md,
		}
	}
	return out
}

func retrieveToResponse(res *result.Result) RetrieveResponse {
	sum := res.Summary()
	return RetrieveResponse{
		Hits:           hitsToResponse(res.Hits()),
		Trace:          nonNil(res.Trace()),
		Iterations:     sum.Iterations,
		Rejected:       sum.Rejected,
		StopReason:     string(sum.StopReason),
		CutoffStrategy: string(sum.Cutoff),
		Entities:       sum.Entities,
	}
}

func nonNil(lines []string) []string {
	if lines == nil {
		return []string{}
	}
	return lines
}
