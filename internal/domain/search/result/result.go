package result

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/lorekeeper/internal/domain/search/hit"
)

// StopReason explains why the retrieval loop ended.
type StopReason string

// Loop termination reasons.
const (
	StopTargetReached   StopReason = "target_reached"
	StopExhausted       StopReason = "exhausted"
	StopNoRejections    StopReason = "no_rejections"
	StopIterationBudget StopReason = "iteration_budget"
)

// CutoffStrategy names the rule that chose how many hits to keep.
type CutoffStrategy string

// Cutoff strategies.
const (
	CutoffNone      CutoffStrategy = "none"
	CutoffGap       CutoffStrategy = "gap"
	CutoffThreshold CutoffStrategy = "threshold"
)

// Trace accumulates human-readable diagnostic lines. The zero value is ready to use.
type Trace struct {
	lines []string
}

// Addf appends a formatted line.
func (t *Trace) Addf(format string, args ...any) {
	t.lines = append(t.lines, fmt.Sprintf(format, args...))
}

// Lines returns a copy of the recorded lines.
func (t *Trace) Lines() []string {
	out := make([]string, len(t.lines))
	copy(out, t.lines)
	return out
}

// Summary describes how a result was produced.
type Summary struct {
	Iterations int
	Rejected   int
	StopReason StopReason
	Cutoff     CutoffStrategy
	Entities   []string
}

// Result is the ordered grounding context for one question.
type Result struct {
	hits    []hit.Hit
	trace   []string
	summary Summary
}

// New creates a retrieval result.
func New(hits []hit.Hit, trace []string, summary Summary) Result {
	return Result{hits: hits, trace: trace, summary: summary}
}

// Hits returns the hits, most relevant first.
func (r *Result) Hits() []hit.Hit { return r.hits }

// Trace returns the diagnostic lines.
func (r *Result) Trace() []string { return r.trace }

// TraceText returns the trace joined by newlines.
func (r *Result) TraceText() string { return strings.Join(r.trace, "\n") }

// Summary returns loop and cutoff details.
func (r *Result) Summary() Summary { return r.summary }

// Len returns the number of hits.
func (r *Result) Len() int { return len(r.hits) }

// IsEmpty reports whether no passage was retrieved.
func (r *Result) IsEmpty() bool { return len(r.hits) == 0 }
