package ratelimit

import (
	"time"

	"github.com/gnrllybttr/pacer/pkg/metrics"
)

// MetricsRateLimiter wraps a RateLimiter with Prometheus metrics collection.
type MetricsRateLimiter[T any] struct {
	limiter  *RateLimiter[T]
	name     string
	registry *metrics.Registry
	enabled  bool
}

// NewWithMetrics creates a rate limiter reporting to the given metrics
// configuration. With metrics disabled the bare limiter is returned
// unwrapped behavior-wise; the wrapper simply forwards.
func NewWithMetrics[T any](fn func(T), opts Options[T], name string, metricsConfig metrics.Config) (*MetricsRateLimiter[T], error) {
	limiter, err := New(fn, opts)
	if err != nil {
		return nil, err
	}

	registry := metrics.DefaultRegistry
	if metricsConfig.Registry != nil {
		registry = metrics.NewRegistry(metricsConfig.Registry)
	}

	return &MetricsRateLimiter[T]{
		limiter:  limiter,
		name:     name,
		registry: registry,
		enabled:  metricsConfig.Enabled,
	}, nil
}

// MaybeExecute forwards to the wrapped limiter and records admission,
// rejection, execution duration and remaining capacity.
func (m *MetricsRateLimiter[T]) MaybeExecute(arg T) bool {
	start := time.Now()
	admitted := m.limiter.MaybeExecute(arg)

	if m.enabled {
		if admitted {
			m.registry.ExecutionsTotal.WithLabelValues(module, m.name).Inc()
			m.registry.ExecutionSeconds.WithLabelValues(module, m.name).Observe(time.Since(start).Seconds())
		} else {
			m.registry.RejectionsTotal.WithLabelValues(module, m.name).Inc()
		}
		m.registry.RateLimitRemaining.WithLabelValues(m.name).Set(float64(m.limiter.RemainingInWindow()))
	}

	return admitted
}

// RemainingInWindow forwards to the wrapped limiter and refreshes the
// remaining-capacity gauge.
func (m *MetricsRateLimiter[T]) RemainingInWindow() int {
	remaining := m.limiter.RemainingInWindow()
	if m.enabled {
		m.registry.RateLimitRemaining.WithLabelValues(m.name).Set(float64(remaining))
	}
	return remaining
}

// UntilNextWindow forwards to the wrapped limiter.
func (m *MetricsRateLimiter[T]) UntilNextWindow() time.Duration {
	return m.limiter.UntilNextWindow()
}

// Reset forwards to the wrapped limiter and refreshes the gauge.
func (m *MetricsRateLimiter[T]) Reset() {
	m.limiter.Reset()
	if m.enabled {
		m.registry.RateLimitRemaining.WithLabelValues(m.name).Set(float64(m.limiter.RemainingInWindow()))
	}
}

// SetOptions forwards to the wrapped limiter.
func (m *MetricsRateLimiter[T]) SetOptions(opts Options[T]) error {
	return m.limiter.SetOptions(opts)
}

// Options returns the wrapped limiter's options.
func (m *MetricsRateLimiter[T]) Options() Options[T] {
	return m.limiter.Options()
}

// State returns the wrapped limiter's state snapshot.
func (m *MetricsRateLimiter[T]) State() State {
	return m.limiter.State()
}

// Subscribe registers a listener on the wrapped limiter.
func (m *MetricsRateLimiter[T]) Subscribe(fn func(State)) func() {
	return m.limiter.Subscribe(fn)
}
