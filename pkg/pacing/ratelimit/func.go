package ratelimit

import (
	"context"
	"time"
)

// Func returns a rate-limited trigger for fn with default options (fixed
// window). The trigger reports whether the call was admitted. It panics on
// invalid arguments; use New for error-returning construction.
func Func[T any](limit int, window time.Duration, fn func(T)) func(T) bool {
	r, err := New(fn, Options[T]{Limit: limit, Window: window})
	if err != nil {
		panic(err)
	}
	return r.MaybeExecute
}

// AsyncFunc returns a rate-limited trigger for a context-aware fn with
// default options. The middle return value reports admission.
func AsyncFunc[T, R any](limit int, window time.Duration, fn func(context.Context, T) (R, error)) func(context.Context, T) (R, bool, error) {
	r, err := NewAsync(fn, AsyncOptions[T, R]{Limit: limit, Window: window})
	if err != nil {
		panic(err)
	}
	return r.MaybeExecute
}
