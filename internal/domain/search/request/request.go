package request

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/lorekeeper/internal/domain"
)

// Retrieval parameter limits.
const (
	// MaxQuestionLength is the maximum allowed question length.
	MaxQuestionLength        = 4096
	DefaultK                 = 15
	MaxK                     = 100
	DefaultDistanceThreshold = 0.4
	DefaultMaxIterations     = 3
	MaxIterations            = 10
)

// Request is a validated retrieval query.
type Request struct {
	question          string
	k                 int
	distanceThreshold float64
	filtering         bool
	maxIterations     int
}

// New validates and normalizes retrieval parameters.
// Zero values fall back to defaults: k=15, threshold=0.4, maxIterations=3.
func New(
	question string,
	k int,
	distanceThreshold float64,
	filtering bool,
	maxIterations int,
) (Request, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Request{}, fmt.Errorf("question is required: %w", domain.ErrInvalidRequest)
	}
	if len(question) > MaxQuestionLength {
		return Request{}, fmt.Errorf("question too long (max %d chars): %w", MaxQuestionLength, domain.ErrInvalidRequest)
	}
	if k <= 0 {
		k = DefaultK
	}
	if k > MaxK {
		k = MaxK
	}
	if distanceThreshold < 0 {
		return Request{}, fmt.Errorf("distance_threshold must be non-negative: %w", domain.ErrInvalidRequest)
	}
	if distanceThreshold == 0 {
		distanceThreshold = DefaultDistanceThreshold
	}
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	if maxIterations > MaxIterations {
		maxIterations = MaxIterations
	}

	return Request{
		question:          question,
		k:                 k,
		distanceThreshold: distanceThreshold,
		filtering:         filtering,
		maxIterations:     maxIterations,
	}, nil
}

// Question returns the natural-language question.
func (r *Request) Question() string { return r.question }

// K returns the target number of passages.
func (r *Request) K() int { return r.k }

// DistanceThreshold returns the allowed distance above the best hit.
func (r *Request) DistanceThreshold() float64 { return r.distanceThreshold }

// Filtering reports whether query_must predicates are applied.
func (r *Request) Filtering() bool { return r.filtering }

// MaxIterations returns the re-query budget.
func (r *Request) MaxIterations() int { return r.maxIterations }
