package debounce

import (
	"context"
	"time"
)

// Func returns a debounced trigger for fn with default options (trailing
// edge only) and a cancel function discarding any pending execution.
// It panics on invalid arguments; use New for error-returning construction.
func Func[T any](wait time.Duration, fn func(T)) (trigger func(T), cancel func()) {
	d, err := New(fn, Options[T]{Wait: wait})
	if err != nil {
		panic(err)
	}
	return d.MaybeExecute, d.Cancel
}

// AsyncFunc returns a debounced trigger for a context-aware fn with
// default options. Callers coalesced into one quiet window share the
// eventual execution's result.
func AsyncFunc[T, R any](wait time.Duration, fn func(context.Context, T) (R, error)) func(context.Context, T) (R, error) {
	d, err := NewAsync(fn, AsyncOptions[T, R]{Wait: wait})
	if err != nil {
		panic(err)
	}
	return d.MaybeExecute
}
