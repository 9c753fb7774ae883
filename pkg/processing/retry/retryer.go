package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/gnrllybttr/pacer/pkg/common/clock"
	pacerctx "github.com/gnrllybttr/pacer/pkg/common/context"
	perrors "github.com/gnrllybttr/pacer/pkg/common/errors"
	"github.com/gnrllybttr/pacer/pkg/common/state"
	"github.com/gnrllybttr/pacer/pkg/common/validation"
)

// Retryer retries a context-aware function up to MaxAttempts times with a
// configurable backoff between attempts, subject to per-attempt and total
// time budgets.
type Retryer[T, R any] struct {
	fn       func(context.Context, T) (R, error)
	notifier state.Notifier[State]

	mu      sync.Mutex
	opts    Options[T, R]
	st      State
	clk     clock.Clock
	abortCh chan struct{}
	aborted bool
}

// New creates a Retryer wrapping fn with the given options.
func New[T, R any](fn func(context.Context, T) (R, error), opts Options[T, R]) (*Retryer[T, R], error) {
	if err := validation.NotNil(module, "fn", fn); err != nil {
		return nil, err
	}
	if err := validateOptions(opts); err != nil {
		return nil, err
	}

	clk := opts.Clock
	if clk == nil {
		clk = clock.System{}
	}

	return &Retryer[T, R]{
		fn:      fn,
		opts:    opts,
		clk:     clk,
		st:      State{Status: initialStatus(opts.Disabled)},
		abortCh: make(chan struct{}),
	}, nil
}

type attemptOutcome[R any] struct {
	result R
	err    error
}

// Execute runs fn until it succeeds or the sequence gives up: attempts are
// exhausted, the total budget runs out, the caller's context is done, or
// Abort is called. Failed attempts sleep the configured backoff before the
// next try. Exhaustion returns an error wrapping ErrAttemptsExhausted and
// the last attempt's error, unless SuppressErrors is set.
func (r *Retryer[T, R]) Execute(ctx context.Context, arg T) (R, error) {
	var zero R

	r.mu.Lock()
	if r.opts.Disabled {
		r.mu.Unlock()
		return zero, perrors.ErrDisabled
	}
	if r.aborted {
		r.aborted = false
		r.abortCh = make(chan struct{})
	}
	opts := r.opts
	abortCh := r.abortCh
	start := r.clk.Now()
	r.st.IsExecuting = true
	r.st.Status = state.Executing
	snap := r.st
	r.mu.Unlock()
	r.notifier.Notify(snap)

	var lastErr error
	for attempt := 1; attempt <= opts.maxAttempts(); attempt++ {
		if opts.MaxTotalExecutionTime > 0 && r.clk.Now().Sub(start) >= opts.MaxTotalExecutionTime {
			return r.settle(zero, fmt.Errorf("%w: total execution budget exhausted after %d attempts",
				perrors.ErrTimeout, attempt-1), opts, arg)
		}
		if attempt > 1 {
			if opts.OnRetry != nil {
				opts.OnRetry(attempt)
			}
		}

		r.mu.Lock()
		r.st.CurrentAttempt = attempt
		r.st.AttemptCount++
		snap = r.st
		r.mu.Unlock()
		r.notifier.Notify(snap)

		result, err := r.attempt(ctx, abortCh, opts, arg)
		if err == nil {
			return r.settleSuccess(result, opts, arg)
		}
		if isControlError(err) {
			return r.settle(zero, err, opts, arg)
		}

		lastErr = err
		r.mu.Lock()
		r.st.ErrorCount++
		snap = r.st
		r.mu.Unlock()
		if opts.OnError != nil {
			opts.OnError(err)
		}
		r.notifier.Notify(snap)

		if attempt < opts.maxAttempts() {
			if err := r.sleep(ctx, abortCh, r.backoff(opts, attempt)); err != nil {
				return r.settle(zero, err, opts, arg)
			}
		}
	}

	err := fmt.Errorf("%w: %w", perrors.ErrAttemptsExhausted, lastErr)
	res, err := r.settle(zero, err, opts, arg)
	if opts.SuppressErrors {
		return zero, nil
	}
	return res, err
}

// Abort cancels the in-flight sequence: the pending Execute returns
// ErrAborted, OnAbort fires and the status returns to idle. Abort is
// idempotent; a late completion of the aborted attempt is discarded.
func (r *Retryer[T, R]) Abort() {
	r.mu.Lock()
	if r.aborted || !r.st.IsExecuting {
		r.mu.Unlock()
		return
	}
	r.aborted = true
	close(r.abortCh)
	onAbort := r.opts.OnAbort
	r.mu.Unlock()

	if onAbort != nil {
		onAbort()
	}
}

// SetOptions replaces the options wholesale. The in-flight sequence, if
// any, keeps the options it started with.
func (r *Retryer[T, R]) SetOptions(opts Options[T, R]) error {
	if err := validateOptions(opts); err != nil {
		return err
	}

	r.mu.Lock()
	r.opts = opts
	if opts.Clock != nil {
		r.clk = opts.Clock
	}
	if opts.Disabled && !r.st.IsExecuting {
		r.st.Status = state.Disabled
	} else if !opts.Disabled && r.st.Status == state.Disabled {
		r.st.Status = state.Idle
	}
	snap := r.st
	r.mu.Unlock()
	r.notifier.Notify(snap)
	return nil
}

// Options returns the current options.
func (r *Retryer[T, R]) Options() Options[T, R] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.opts
}

// State returns the current state snapshot.
func (r *Retryer[T, R]) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.st
}

// Subscribe registers a listener notified with a snapshot after every
// state change. The returned function removes the listener.
func (r *Retryer[T, R]) Subscribe(fn func(State)) func() {
	return r.notifier.Subscribe(fn)
}

// attempt runs fn once with the per-attempt budget applied. The function
// runs on its own goroutine so an abort or context cancellation can
// preempt a hung attempt; the late completion is then discarded.
func (r *Retryer[T, R]) attempt(ctx context.Context, abortCh <-chan struct{}, opts Options[T, R], arg T) (R, error) {
	var zero R

	actx, cancel := pacerctx.WithOptionalTimeout(ctx, opts.MaxExecutionTime)
	defer cancel()

	done := make(chan attemptOutcome[R], 1)
	go func() {
		result, err := r.fn(actx, arg)
		done <- attemptOutcome[R]{result: result, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil && opts.MaxExecutionTime > 0 && pacerctx.IsTimedOut(actx) {
			return zero, fmt.Errorf("%w: attempt exceeded %s", perrors.ErrTimeout, opts.MaxExecutionTime)
		}
		return out.result, out.err
	case <-abortCh:
		return zero, perrors.ErrAborted
	case <-actx.Done():
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		// Per-attempt budget ran out while the function was still going;
		// the attempt fails and the sequence may retry.
		return zero, fmt.Errorf("%w: attempt exceeded %s", perrors.ErrTimeout, opts.MaxExecutionTime)
	}
}

// backoff computes the delay before the attempt following a failed
// attempt n (1-based).
func (r *Retryer[T, R]) backoff(opts Options[T, R], n int) time.Duration {
	base := opts.baseWait()

	var delay time.Duration
	switch opts.Backoff {
	case BackoffLinear:
		delay = base * time.Duration(n)
	case BackoffFixed:
		delay = base
	default:
		delay = base << (n - 1)
	}
	if opts.Jitter > 0 {
		delay += time.Duration(rand.Int63n(int64(opts.Jitter)))
	}
	if opts.MaxWait > 0 && delay > opts.MaxWait {
		delay = opts.MaxWait
	}
	return delay
}

func (r *Retryer[T, R]) sleep(ctx context.Context, abortCh <-chan struct{}, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-abortCh:
		return perrors.ErrAborted
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Retryer[T, R]) settleSuccess(result R, opts Options[T, R], arg T) (R, error) {
	r.mu.Lock()
	r.st.ExecutionCount++
	r.st.SuccessCount++
	r.st.SettleCount++
	r.st.CurrentAttempt = 0
	r.st.IsExecuting = false
	r.st.Status = initialStatus(r.opts.Disabled)
	snap := r.st
	r.mu.Unlock()

	if opts.OnSuccess != nil {
		opts.OnSuccess(result)
	}
	if opts.OnExecute != nil {
		opts.OnExecute(arg)
	}
	if opts.OnSettled != nil {
		opts.OnSettled()
	}
	r.notifier.Notify(snap)
	return result, nil
}

func (r *Retryer[T, R]) settle(zero R, err error, opts Options[T, R], _ T) (R, error) {
	r.mu.Lock()
	r.st.SettleCount++
	r.st.CurrentAttempt = 0
	r.st.IsExecuting = false
	r.st.Status = initialStatus(r.opts.Disabled)
	snap := r.st
	r.mu.Unlock()

	if opts.OnSettled != nil {
		opts.OnSettled()
	}
	r.notifier.Notify(snap)
	return zero, err
}

// isControlError reports whether err terminates the sequence regardless
// of remaining attempts.
func isControlError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, perrors.ErrAborted)
}
