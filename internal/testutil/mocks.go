package testutil

import (
	"sync"
	"time"
)

// MockClock implements the Clock interface for testing with controllable time.
// This is used across rate limiter and retryer tests to avoid actual delays.
type MockClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewMockClock creates a new MockClock starting at the given time.
// If zero time is provided, uses current time.
func NewMockClock(start time.Time) *MockClock {
	if start.IsZero() {
		start = time.Now()
	}
	return &MockClock{now: start}
}

// Now returns the current mock time.
func (m *MockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the mock clock forward by the given duration.
func (m *MockClock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

// Set sets the mock clock to a specific time.
func (m *MockClock) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t
}

// CallRecorder records invocations of a wrapped function so tests can
// assert how many times a controller executed and with which arguments.
type CallRecorder[T any] struct {
	mu    sync.Mutex
	calls []T
}

// Record appends one invocation's argument.
func (r *CallRecorder[T]) Record(arg T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, arg)
}

// Count returns the number of recorded invocations.
func (r *CallRecorder[T]) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

// Calls returns a copy of all recorded arguments in invocation order.
func (r *CallRecorder[T]) Calls() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]T, len(r.calls))
	copy(out, r.calls)
	return out
}

// Last returns the most recent recorded argument, if any.
func (r *CallRecorder[T]) Last() (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var zero T
	if len(r.calls) == 0 {
		return zero, false
	}
	return r.calls[len(r.calls)-1], true
}

// Reset discards all recorded invocations.
func (r *CallRecorder[T]) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}
