package ratelimit

import (
	"sync"
	"time"

	"github.com/gnrllybttr/pacer/pkg/common/clock"
	"github.com/gnrllybttr/pacer/pkg/common/state"
	"github.com/gnrllybttr/pacer/pkg/common/validation"
)

// RateLimiter admits at most Limit executions of a wrapped function per
// Window. Admission is decided synchronously at call time from the recorded
// history of past executions; this is the only pacer controller without an
// internal timer.
type RateLimiter[T any] struct {
	fn       func(T)
	notifier state.Notifier[State]

	mu             sync.Mutex
	opts           Options[T]
	st             State
	clk            clock.Clock
	executionTimes []time.Time
}

// New creates a RateLimiter wrapping fn with the given options.
func New[T any](fn func(T), opts Options[T]) (*RateLimiter[T], error) {
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

	return &RateLimiter[T]{
		fn:   fn,
		opts: opts,
		clk:  clk,
		st:   State{Status: initialStatus(opts.Disabled)},
	}, nil
}

// MaybeExecute runs fn(arg) if the current window has admissions left and
// reports whether the call was admitted. Rejection is not an error: the
// rejection counter and IsExceeded are updated, OnReject fires, and false
// is returned.
func (r *RateLimiter[T]) MaybeExecute(arg T) bool {
	r.mu.Lock()
	if r.opts.Disabled {
		r.mu.Unlock()
		return false
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
		return false
	}

	r.executionTimes = append(r.executionTimes, now)
	r.st.Status = state.Executing
	snap := r.st
	r.mu.Unlock()
	r.notifier.Notify(snap)

	r.fn(arg)

	r.mu.Lock()
	r.st.ExecutionCount++
	r.st.IsExceeded = false
	r.st.Status = initialStatus(r.opts.Disabled)
	onExecute := r.opts.OnExecute
	snap = r.st
	r.mu.Unlock()

	if onExecute != nil {
		onExecute(arg)
	}
	r.notifier.Notify(snap)
	return true
}

// RemainingInWindow returns how many executions the window rooted at
// now-window still admits.
func (r *RateLimiter[T]) RemainingInWindow() int {
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
func (r *RateLimiter[T]) UntilNextWindow() time.Duration {
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

// Reset clears the execution history and the exceeded flag. Counters are
// preserved.
func (r *RateLimiter[T]) Reset() {
	r.mu.Lock()
	r.executionTimes = r.executionTimes[:0]
	r.st.IsExceeded = false
	r.st.Status = initialStatus(r.opts.Disabled)
	snap := r.st
	r.mu.Unlock()
	r.notifier.Notify(snap)
}

// SetOptions replaces the options wholesale.
func (r *RateLimiter[T]) SetOptions(opts Options[T]) error {
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
func (r *RateLimiter[T]) Options() Options[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.opts
}

// State returns the current state snapshot.
func (r *RateLimiter[T]) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.st
}

// Subscribe registers a listener notified with a snapshot after every
// state change. The returned function removes the listener.
func (r *RateLimiter[T]) Subscribe(fn func(State)) func() {
	return r.notifier.Subscribe(fn)
}

// pruneLocked drops recorded executions outside the current window. The
// window is anchored at now for fixed windows and at the most recent
// execution for sliding windows.
func (r *RateLimiter[T]) pruneLocked(now time.Time) {
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
