package throttle

import (
	"context"
	"time"
)

// Func returns a throttled trigger for fn with default options (both
// edges) and a cancel function discarding any pending trailing execution.
// It panics on invalid arguments; use New for error-returning construction.
func Func[T any](wait time.Duration, fn func(T)) (trigger func(T), cancel func()) {
	t, err := New(fn, Options[T]{Wait: wait})
	if err != nil {
		panic(err)
	}
	return t.MaybeExecute, t.Cancel
}

// AsyncFunc returns a throttled trigger for a context-aware fn with
// default options. In-window calls fail with ErrThrottled.
func AsyncFunc[T, R any](wait time.Duration, fn func(context.Context, T) (R, error)) func(context.Context, T) (R, error) {
	t, err := NewAsync(fn, AsyncOptions[T, R]{Wait: wait})
	if err != nil {
		panic(err)
	}
	return t.MaybeExecute
}
