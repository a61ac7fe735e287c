package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Search outcomes
const (
	OutcomeSuccess       = "success"
	OutcomeInvalid       = "invalid_request"
	OutcomeEmbeddingFail = "embedding_failure"
	OutcomeIndexFail     = "index_failure"
	OutcomeError         = "error"
)

var (
	SearchRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medsearch_search_requests_total",
			Help: "Total number of vector searches by entity type and outcome",
		},
		[]string{"entity_type", "outcome"},
	)

	SearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "medsearch_search_duration_seconds",
			Help:    "Duration of embed + index + normalize in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"entity_type"},
	)

	IntentFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medsearch_intent_fallbacks_total",
			Help: "Total number of times query understanding fell back to the rule engine",
		},
		[]string{"reason"},
	)

	EmbeddingCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medsearch_embedding_cache_total",
			Help: "Embedding cache lookups by layer and result",
		},
		[]string{"layer", "result"},
	)
)
