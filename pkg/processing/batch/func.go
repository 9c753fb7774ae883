package batch

import (
	"context"
	"time"
)

// Func returns an add function for fn with the given size threshold and
// timeout and triggers started, plus a flush function draining the buffer
// immediately. It panics on invalid arguments; use New for error-returning
// construction.
func Func[T any](maxSize int, wait time.Duration, fn func([]T)) (add func(T), flush func()) {
	b, err := New(fn, Options[T]{MaxSize: maxSize, Wait: wait})
	if err != nil {
		panic(err)
	}
	return b.AddItem, b.Flush
}

// AsyncFunc returns an add function for a context-aware fn with the given
// size threshold and timeout and triggers started, plus a synchronous
// execute function returning the flushed batch's result.
func AsyncFunc[T, R any](maxSize int, wait time.Duration, fn func(context.Context, []T) (R, error)) (add func(T), execute func(context.Context) (R, error)) {
	b, err := NewAsync(fn, AsyncOptions[T, R]{MaxSize: maxSize, Wait: wait})
	if err != nil {
		panic(err)
	}
	return b.AddItem, b.Execute
}
