// Package metrics provides Prometheus instrumentation for pacer controllers.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds all metric instances for pacer controllers.
type Registry struct {
	// Shared across controllers
	ExecutionsTotal  *prometheus.CounterVec
	ErrorsTotal      *prometheus.CounterVec
	RejectionsTotal  *prometheus.CounterVec
	ExecutionSeconds *prometheus.HistogramVec

	// Rate limiting
	RateLimitRemaining *prometheus.GaugeVec

	// Queue
	QueueDepth        *prometheus.GaugeVec
	QueueInFlight     *prometheus.GaugeVec
	QueueExpiredTotal *prometheus.CounterVec

	// Batch
	BatchSize         *prometheus.HistogramVec
	BatchItemsTotal   *prometheus.CounterVec
	BatchFailedItems  *prometheus.GaugeVec

	// Retry
	RetryAttemptsTotal *prometheus.CounterVec
	RetryBackoffSecs   *prometheus.HistogramVec
}

// DefaultRegistry is the default metrics registry used by pacer controllers.
var DefaultRegistry *Registry

func init() {
	DefaultRegistry = NewRegistry(prometheus.DefaultRegisterer)
}

// NewRegistry creates a new metrics registry with the given Prometheus registerer.
func NewRegistry(reg prometheus.Registerer) *Registry {
	factory := promauto.With(reg)

	return &Registry{
		ExecutionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pacer",
				Name:      "executions_total",
				Help:      "Total number of wrapped-function executions",
			},
			[]string{"controller", "name"},
		),

		ErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pacer",
				Name:      "errors_total",
				Help:      "Total number of wrapped-function errors",
			},
			[]string{"controller", "name"},
		),

		RejectionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pacer",
				Name:      "rejections_total",
				Help:      "Total number of calls rejected by capacity or admission control",
			},
			[]string{"controller", "name"},
		),

		ExecutionSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "pacer",
				Name:      "execution_duration_seconds",
				Help:      "Time spent executing the wrapped function",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"controller", "name"},
		),

		RateLimitRemaining: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "pacer",
				Subsystem: "ratelimit",
				Name:      "remaining_in_window",
				Help:      "Executions remaining in the current window",
			},
			[]string{"name"},
		),

		QueueDepth: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "pacer",
				Subsystem: "queue",
				Name:      "depth",
				Help:      "Current number of buffered items",
			},
			[]string{"name"},
		),

		QueueInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "pacer",
				Subsystem: "queue",
				Name:      "in_flight",
				Help:      "Number of items currently being processed",
			},
			[]string{"name"},
		),

		QueueExpiredTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pacer",
				Subsystem: "queue",
				Name:      "expired_total",
				Help:      "Total number of items dropped by expiration sweeps",
			},
			[]string{"name"},
		),

		BatchSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "pacer",
				Subsystem: "batch",
				Name:      "size",
				Help:      "Number of items per executed batch",
				Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250, 500},
			},
			[]string{"name"},
		),

		BatchItemsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pacer",
				Subsystem: "batch",
				Name:      "items_processed_total",
				Help:      "Total number of items processed across all batches",
			},
			[]string{"name"},
		),

		BatchFailedItems: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "pacer",
				Subsystem: "batch",
				Name:      "failed_items",
				Help:      "Number of items currently held in the failed-items buffer",
			},
			[]string{"name"},
		),

		RetryAttemptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pacer",
				Subsystem: "retry",
				Name:      "attempts_total",
				Help:      "Total number of retry attempts, including first attempts",
			},
			[]string{"name"},
		),

		RetryBackoffSecs: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "pacer",
				Subsystem: "retry",
				Name:      "backoff_duration_seconds",
				Help:      "Backoff delays slept between retry attempts",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"name"},
		),
	}
}
