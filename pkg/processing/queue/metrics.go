package queue

import (
	"time"

	"github.com/gnrllybttr/pacer/pkg/metrics"
)

// MetricsQueuer wraps a Queuer with Prometheus metrics collection.
type MetricsQueuer[T any] struct {
	queuer   *Queuer[T]
	name     string
	registry *metrics.Registry
	enabled  bool
}

// NewWithMetrics creates a queuer reporting depth, processed items,
// rejections and expirations to the given metrics configuration.
func NewWithMetrics[T any](fn func(T), opts Options[T], name string, metricsConfig metrics.Config) (*MetricsQueuer[T], error) {
	registry := metrics.DefaultRegistry
	if metricsConfig.Registry != nil {
		registry = metrics.NewRegistry(metricsConfig.Registry)
	}

	m := &MetricsQueuer[T]{
		name:     name,
		registry: registry,
		enabled:  metricsConfig.Enabled,
	}

	instrumented := fn
	if m.enabled {
		instrumented = func(item T) {
			start := time.Now()
			fn(item)
			registry.ExecutionsTotal.WithLabelValues(module, name).Inc()
			registry.ExecutionSeconds.WithLabelValues(module, name).Observe(time.Since(start).Seconds())
		}
	}

	queuer, err := New(instrumented, opts)
	if err != nil {
		return nil, err
	}
	m.queuer = queuer
	return m, nil
}

// AddItem forwards to the wrapped queuer and records depth and rejections.
func (m *MetricsQueuer[T]) AddItem(item T, pos ...Position) bool {
	accepted := m.queuer.AddItem(item, pos...)
	if m.enabled {
		if !accepted {
			m.registry.RejectionsTotal.WithLabelValues(module, m.name).Inc()
		}
		m.observeDepth()
	}
	return accepted
}

// GetNextItem forwards to the wrapped queuer and refreshes the depth gauge.
func (m *MetricsQueuer[T]) GetNextItem() (T, bool) {
	before := m.queuer.State().ExpirationCount
	item, ok := m.queuer.GetNextItem()
	if m.enabled {
		if swept := m.queuer.State().ExpirationCount - before; swept > 0 {
			m.registry.QueueExpiredTotal.WithLabelValues(m.name).Add(float64(swept))
		}
		m.observeDepth()
	}
	return item, ok
}

// Peek forwards to the wrapped queuer.
func (m *MetricsQueuer[T]) Peek() (T, bool) {
	return m.queuer.Peek()
}

// Start forwards to the wrapped queuer.
func (m *MetricsQueuer[T]) Start() {
	m.queuer.Start()
}

// Stop forwards to the wrapped queuer.
func (m *MetricsQueuer[T]) Stop() {
	m.queuer.Stop()
}

// Flush forwards to the wrapped queuer and refreshes the depth gauge.
func (m *MetricsQueuer[T]) Flush() {
	m.queuer.Flush()
	if m.enabled {
		m.observeDepth()
	}
}

// Clear forwards to the wrapped queuer and refreshes the depth gauge.
func (m *MetricsQueuer[T]) Clear() {
	m.queuer.Clear()
	if m.enabled {
		m.observeDepth()
	}
}

// Reset forwards to the wrapped queuer and refreshes the depth gauge.
func (m *MetricsQueuer[T]) Reset() {
	m.queuer.Reset()
	if m.enabled {
		m.observeDepth()
	}
}

// Size returns the wrapped queuer's buffered item count.
func (m *MetricsQueuer[T]) Size() int {
	return m.queuer.Size()
}

// SetOptions forwards to the wrapped queuer.
func (m *MetricsQueuer[T]) SetOptions(opts Options[T]) error {
	return m.queuer.SetOptions(opts)
}

// Options returns the wrapped queuer's options.
func (m *MetricsQueuer[T]) Options() Options[T] {
	return m.queuer.Options()
}

// State returns the wrapped queuer's state snapshot.
func (m *MetricsQueuer[T]) State() State {
	return m.queuer.State()
}

// Subscribe registers a listener on the wrapped queuer.
func (m *MetricsQueuer[T]) Subscribe(fn func(State)) func() {
	return m.queuer.Subscribe(fn)
}

func (m *MetricsQueuer[T]) observeDepth() {
	m.registry.QueueDepth.WithLabelValues(m.name).Set(float64(m.queuer.Size()))
}
