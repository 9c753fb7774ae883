package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/gnrllybttr/pacer/pkg/common/clock"
	perrors "github.com/gnrllybttr/pacer/pkg/common/errors"
	"github.com/gnrllybttr/pacer/pkg/common/state"
	"github.com/gnrllybttr/pacer/pkg/common/validation"
)

// AsyncRateLimiter applies window admission to a context-aware function
// returning a result. Rejection is reported through the admitted flag, not
// through an error, so callers can distinguish "rate limited" from "ran and
// failed".
type AsyncRateLimiter[T, R any] struct {
	fn       func(context.Context, T) (R, error)
	notifier state.Notifier[AsyncState]

	mu             sync.Mutex
	opts           AsyncOptions[T, R]
	st             AsyncState
	clk            clock.Clock
	executionTimes []time.Time
}

// NewAsync creates an AsyncRateLimiter wrapping fn with the given options.
func NewAsync[T, R any](fn func(context.Context, T) (R, error), opts AsyncOptions[T, R]) (*AsyncRateLimiter[T, R], error) {
	if err := validation.NotNil(module, "fn", fn); err != nil {
		return nil, err
	}
	if err := validateOptions(opts.Limit, opts.Window); err != nil {
		return nil, err
	}

	clk := opts.Clock
	if clk == nil {
		clk = clock.System{}
	}

	return &AsyncRateLimiter[T, R]{
		fn:   fn,
		opts: opts,
		clk:  clk,
		st:   AsyncState{Status: initialStatus(opts.Disabled)},
	}, nil
}

// MaybeExecute runs fn on the caller's goroutine if the window admits it.
// The second return value reports admission: a rejected call returns
// (zero, false, nil) after firing OnReject. Function errors from admitted
// executions are gated by ThrowOnError.
func (r *AsyncRateLimiter[T, R]) MaybeExecute(ctx context.Context, arg T) (R, bool, error) {
	var zero R

	r.mu.Lock()
	if r.opts.Disabled {
		r.mu.Unlock()
		return zero, false, perrors.ErrDisabled
	}

	now := r.clk.Now()
	r.pruneLocked(now)

	if len(r.executionTimes) >= r.opts.Limit {
		r.st.RejectionCount++
		r.st.IsExceeded = true
		onReject := r.opts.OnReject
		snap := r.st
		r.mu.Unlock()

		if onReject != nil {
			onReject(arg)
		}
		r.notifier.Notify(snap)
		return zero, false, nil
	}

	r.executionTimes = append(r.executionTimes, now)
	r.st.Status = state.Executing
	snap := r.st
	r.mu.Unlock()
	r.notifier.Notify(snap)

	result, err := r.fn(ctx, arg)

	r.mu.Lock()
	r.st.ExecutionCount++
	if err != nil {
		r.st.ErrorCount++
	} else {
		r.st.SuccessCount++
	}
	r.st.SettleCount++
	r.st.IsExceeded = false
	r.st.Status = initialStatus(r.opts.Disabled)
	opts := r.opts
	snap = r.st
	r.mu.Unlock()

	if err != nil {
		if opts.OnError != nil {
			opts.OnError(err)
		}
	} else if opts.OnSuccess != nil {
		opts.OnSuccess(result)
	}
	if opts.OnSettled != nil {
		opts.OnSettled()
	}
	r.notifier.Notify(snap)

	if err != nil && !opts.ThrowOnError {
		return zero, true, nil
	}
	return result, true, err
}

// RemainingInWindow returns how many executions the window rooted at
// now-window still admits.
func (r *AsyncRateLimiter[T, R]) RemainingInWindow() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.clk.Now().Add(-r.opts.Window)
	used := 0
	for _, ts := range r.executionTimes {
		if ts.After(cutoff) {
			used++
		}
	}
	remaining := r.opts.Limit - used
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// UntilNextWindow returns how long until the oldest relevant execution
// ages out of the window, or zero when there is no history.
func (r *AsyncRateLimiter[T, R]) UntilNextWindow() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clk.Now()
	r.pruneLocked(now)
	if len(r.executionTimes) == 0 {
		return 0
	}
	until := r.executionTimes[0].Add(r.opts.Window).Sub(now)
	if until < 0 {
		return 0
	}
	return until
}

// Reset clears the execution history and the exceeded flag.
func (r *AsyncRateLimiter[T, R]) Reset() {
	r.mu.Lock()
	r.executionTimes = r.executionTimes[:0]
	r.st.IsExceeded = false
	r.st.Status = initialStatus(r.opts.Disabled)
	snap := r.st
	r.mu.Unlock()
	r.notifier.Notify(snap)
}

// SetOptions replaces the options wholesale.
func (r *AsyncRateLimiter[T, R]) SetOptions(opts AsyncOptions[T, R]) error {
	if err := validateOptions(opts.Limit, opts.Window); err != nil {
		return err
	}

	r.mu.Lock()
	r.opts = opts
	if opts.Clock != nil {
		r.clk = opts.Clock
	}
	if opts.Disabled {
		r.st.Status = state.Disabled
	} else if r.st.Status == state.Disabled {
		r.st.Status = state.Idle
	}
	snap := r.st
	r.mu.Unlock()
	r.notifier.Notify(snap)
	return nil
}

// Options returns the current options.
func (r *AsyncRateLimiter[T, R]) Options() AsyncOptions[T, R] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.opts
}

// State returns the current state snapshot.
func (r *AsyncRateLimiter[T, R]) State() AsyncState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.st
}

// Subscribe registers a listener notified with a snapshot after every
// state change. The returned function removes the listener.
func (r *AsyncRateLimiter[T, R]) Subscribe(fn func(AsyncState)) func() {
	return r.notifier.Subscribe(fn)
}

func (r *AsyncRateLimiter[T, R]) pruneLocked(now time.Time) {
	anchor := now
	if r.opts.WindowType == WindowSliding && len(r.executionTimes) > 0 {
		anchor = r.executionTimes[len(r.executionTimes)-1]
	}
	cutoff := anchor.Add(-r.opts.Window)

	keep := 0
	for keep < len(r.executionTimes) && !r.executionTimes[keep].After(cutoff) {
		keep++
	}
	if keep > 0 {
		r.executionTimes = append(r.executionTimes[:0], r.executionTimes[keep:]...)
	}
}
