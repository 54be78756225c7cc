package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the matching service.
// Metrics are organized by subsystem: duplicate detection strategies,
// disambiguation, metadata fetches, and the HTTP surface. All metrics are
// registered via promauto with the default Prometheus registry.
type Metrics struct {
	// StrategyRuns counts search strategy executions, labeled by strategy.
	StrategyRuns *prometheus.CounterVec

	// StrategyFailures counts strategy executions whose repository query
	// failed, labeled by strategy.
	StrategyFailures *prometheus.CounterVec

	// StrategyCandidates observes how many candidates one strategy run
	// produced, labeled by strategy.
	StrategyCandidates *prometheus.HistogramVec

	// DetectionRuns counts duplicate detection pipelines executed.
	DetectionRuns prometheus.Counter

	// DetectionDuration observes the end-to-end duplicate detection
	// duration in seconds.
	DetectionDuration prometheus.Histogram

	// DuplicatesFound counts detections that reported at least one
	// duplicate candidate.
	DuplicatesFound prometheus.Counter

	// DisambiguationRuns counts DOI disambiguation pipelines executed.
	DisambiguationRuns prometheus.Counter

	// DisambiguationCandidates observes how many candidate DOIs survived
	// normalization per disambiguation.
	DisambiguationCandidates prometheus.Histogram

	// MetadataFetches counts metadata fetches, labeled by outcome
	// (found, not_found, error).
	MetadataFetches *prometheus.CounterVec

	// HTTPRequestsTotal counts HTTP requests, labeled by path and status.
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPRequestDuration observes HTTP request duration in seconds,
	// labeled by path.
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		StrategyRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "strategy_runs_total",
			Help:      "Total number of candidate search strategy executions by strategy",
		}, []string{"strategy"}),
		StrategyFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "strategy_failures_total",
			Help:      "Total number of strategy executions that failed by strategy",
		}, []string{"strategy"}),
		StrategyCandidates: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "strategy_candidates",
			Help:      "Number of candidates produced per strategy run",
			Buckets:   []float64{0, 1, 2, 5, 10, 20},
		}, []string{"strategy"}),

		DetectionRuns: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detection_runs_total",
			Help:      "Total number of duplicate detection runs",
		}),
		DetectionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "detection_duration_seconds",
			Help:      "Duration of duplicate detection runs in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		DuplicatesFound: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicates_found_total",
			Help:      "Total number of detection runs that found duplicates",
		}),

		DisambiguationRuns: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "disambiguation_runs_total",
			Help:      "Total number of DOI disambiguation runs",
		}),
		DisambiguationCandidates: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "disambiguation_candidates",
			Help:      "Number of candidate DOIs per disambiguation after normalization",
			Buckets:   []float64{0, 1, 2, 3, 5, 10},
		}),

		MetadataFetches: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "metadata_fetches_total",
			Help:      "Total number of metadata fetches by outcome",
		}, []string{"outcome"}),

		HTTPRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by path and status",
		}, []string{"path", "status"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds by path",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"path"}),
	}
}
