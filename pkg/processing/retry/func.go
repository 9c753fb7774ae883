package retry

import "context"

// Func returns a retrying wrapper around fn with default options: three
// attempts, exponential backoff from 100ms. It panics on invalid
// arguments; use New for error-returning construction.
func Func[T, R any](fn func(context.Context, T) (R, error)) func(context.Context, T) (R, error) {
	r, err := New(fn, Options[T, R]{})
	if err != nil {
		panic(err)
	}
	return r.Execute
}
