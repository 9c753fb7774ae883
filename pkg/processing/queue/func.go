package queue

import "context"

// Func returns an enqueue function for fn with default options and
// processing started, plus a stop function pausing the loop. It panics on
// invalid arguments; use New for error-returning construction.
func Func[T any](fn func(T)) (enqueue func(T) bool, stop func()) {
	q, err := New(fn, Options[T]{})
	if err != nil {
		panic(err)
	}
	return func(item T) bool { return q.AddItem(item) }, q.Stop
}

// AsyncFunc returns an enqueue function for a context-aware fn with
// default options (concurrency 1) and processing started, plus the
// results channel and a stop function.
func AsyncFunc[T, R any](fn func(context.Context, T) (R, error)) (enqueue func(T) bool, results <-chan ItemResult[T, R], stop func()) {
	q, err := NewAsync(fn, AsyncOptions[T, R]{})
	if err != nil {
		panic(err)
	}
	return func(item T) bool { return q.AddItem(item) }, q.Results(), q.Stop
}
