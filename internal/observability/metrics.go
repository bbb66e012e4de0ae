package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intentsql_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "intentsql_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	resolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intentsql_resolutions_total",
			Help: "Total number of resolved questions by outcome status and refusal reason.",
		},
		[]string{"status", "reason"},
	)
	resolutionConfidence = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "intentsql_resolution_confidence",
			Help:    "Confidence of accepted resolutions.",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
		},
	)
	validationRounds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "intentsql_validation_rounds",
			Help:    "Number of validation rounds per resolution.",
			Buckets: []float64{1, 2},
		},
	)
	semanticFallbackTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "intentsql_semantic_fallback_total",
			Help: "Total number of accepted resolutions whose metric was inferred from the question.",
		},
	)
	resolutionDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "intentsql_resolution_duration_seconds",
			Help:    "End to end resolution latency, including extraction and execution.",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDurationSeconds,
		resolutionsTotal,
		resolutionConfidence,
		validationRounds,
		semanticFallbackTotal,
		resolutionDurationSeconds,
	)
}

// Resolution summarizes one finished question for metrics.
type Resolution struct {
	Status           string
	Reason           string
	Confidence       float64
	Rounds           int
	SemanticFallback bool
	Elapsed          time.Duration
}

func ObserveResolution(r Resolution) {
	resolutionsTotal.WithLabelValues(r.Status, r.Reason).Inc()
	if r.Rounds > 0 {
		validationRounds.Observe(float64(r.Rounds))
	}
	if r.Reason == "" {
		resolutionConfidence.Observe(r.Confidence)
	}
	if r.SemanticFallback {
		semanticFallbackTotal.Inc()
	}
	resolutionDurationSeconds.WithLabelValues(r.Status).Observe(r.Elapsed.Seconds())
}
