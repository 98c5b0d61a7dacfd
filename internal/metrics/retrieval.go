package metrics

import "github.com/prometheus/client_golang/prometheus"

// Retrieval Prometheus metrics.
var (
	RetrievalRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lorekeeper",
			Name:      "retrieval_requests_total",
			Help:      "Completed retrievals by loop stop reason",
		},
		[]string{"stop_reason"},
	)

	RetrievalIterations = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "lorekeeper",
			Name:      "retrieval_iterations",
			Help:      "Vector store round trips per retrieval",
			Buckets:   []float64{1, 2, 3, 4, 5, 7, 10},
		},
	)

	RetrievalPassages = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "lorekeeper",
			Name:      "retrieval_passages",
			Help:      "Passages returned per retrieval after cutoff",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21, 34, 55, 100},
		},
	)

	PredicateRejectionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "lorekeeper",
			Name:      "predicate_rejections_total",
			Help:      "Passages rejected by query_must predicates",
		},
	)

	CutoffStrategyTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lorekeeper",
			Name:      "cutoff_strategy_total",
			Help:      "Cutoff decisions by strategy",
		},
		[]string{"strategy"}, // "gap" / "threshold" / "none"
	)

	AugmentationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lorekeeper",
			Name:      "augmentation_total",
			Help:      "Result augmentation events",
		},
		[]string{"event"},
	)
)

// Augmentation event labels.
const (
	AugmentEntityRepositioned = "entity_repositioned"
	AugmentEntityLookup       = "entity_lookup"
	AugmentCategoryInjected   = "category_injected"
	AugmentCategoryFailed     = "category_failed"
)

var retrievalMetricsRegistered bool

// RegisterRetrievalMetrics registers retrieval metrics. Must be called once from main.
func RegisterRetrievalMetrics() {
	if retrievalMetricsRegistered {
		return
	}
	prometheus.MustRegister(RetrievalRequestsTotal)
	prometheus.MustRegister(RetrievalIterations)
	prometheus.MustRegister(RetrievalPassages)
	prometheus.MustRegister(PredicateRejectionsTotal)
	prometheus.MustRegister(CutoffStrategyTotal)
	prometheus.MustRegister(AugmentationTotal)
	retrievalMetricsRegistered = true
}

// ObserveRetrieval records the outcome of one retrieval.
func ObserveRetrieval(stopReason, strategy string, iterations, rejected, passages int) {
	RetrievalRequestsTotal.WithLabelValues(stopReason).Inc()
	RetrievalIterations.Observe(float64(iterations))
	RetrievalPassages.Observe(float64(passages))
	PredicateRejectionsTotal.Add(float64(rejected))
	CutoffStrategyTotal.WithLabelValues(strategy).Inc()
}
