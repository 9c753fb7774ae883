package throttle

import (
	"context"
	"sync"
	"time"

	perrors "github.com/gnrllybttr/pacer/pkg/common/errors"
	"github.com/gnrllybttr/pacer/pkg/common/state"
	"github.com/gnrllybttr/pacer/pkg/common/validation"
)

// AsyncThrottler throttles a context-aware function returning a result.
//
// Its window discipline differs observably from the sync Throttler: a call
// arriving inside an active window fails with ErrThrottled even when a
// trailing execution remains scheduled. The caller learns it was rejected;
// the trailing run still happens and reports through the hooks and state.
type AsyncThrottler[T, R any] struct {
	fn       func(context.Context, T) (R, error)
	notifier state.Notifier[AsyncState]

	mu       sync.Mutex
	opts     AsyncOptions[T, R]
	st       AsyncState
	timer    *time.Timer
	timerGen uint64
	lastArgs T
	lastCtx  context.Context
	hasArgs  bool
}

// NewAsync creates an AsyncThrottler wrapping fn with the given options.
func NewAsync[T, R any](fn func(context.Context, T) (R, error), opts AsyncOptions[T, R]) (*AsyncThrottler[T, R], error) {
	if err := validation.NotNil(module, "fn", fn); err != nil {
		return nil, err
	}
	if err := validateOptions(opts.Wait); err != nil {
		return nil, err
	}

	return &AsyncThrottler[T, R]{
		fn:   fn,
		opts: opts,
		st:   AsyncState{Status: initialStatus(opts.Disabled)},
	}, nil
}

// MaybeExecute attempts an execution. When the window is open and the
// leading edge is enabled, the function runs on the caller's goroutine and
// its result is returned (function errors gated by ThrowOnError). Calls
// inside an active window fail with ErrThrottled; when the trailing edge
// is enabled they additionally refresh the scheduled trailing execution.
func (t *AsyncThrottler[T, R]) MaybeExecute(ctx context.Context, arg T) (R, error) {
	var zero R

	t.mu.Lock()
	if t.opts.Disabled {
		t.mu.Unlock()
		return zero, perrors.ErrDisabled
	}

	now := time.Now()
	last := t.st.LastExecutionTime
	due := last.IsZero() || now.Sub(last) >= t.opts.Wait

	if due && t.opts.Edges.leading() {
		throwOnError := t.opts.ThrowOnError
		t.mu.Unlock()
		result, err := t.run(ctx, arg)
		if err != nil && !throwOnError {
			return zero, nil
		}
		return result, err
	}

	if t.opts.Edges.trailing() {
		t.lastArgs = arg
		t.lastCtx = ctx
		t.hasArgs = true
		if t.timer == nil {
			remaining := t.opts.Wait
			if !due {
				remaining = t.opts.Wait - now.Sub(last)
			}
			t.st.NextExecutionTime = now.Add(remaining)
			t.armTimerLocked(remaining)
		}
		t.st.Status = state.Pending
		t.st.IsPending = true
		snap := t.st
		t.mu.Unlock()
		t.notifier.Notify(snap)
		return zero, perrors.ErrThrottled
	}

	t.mu.Unlock()
	return zero, perrors.ErrThrottled
}

// Flush runs any pending trailing execution immediately, bypassing the
// remaining wait.
func (t *AsyncThrottler[T, R]) Flush() {
	t.mu.Lock()
	if t.timer == nil || !t.hasArgs {
		t.mu.Unlock()
		return
	}
	t.disarmTimerLocked()
	arg, ctx := t.lastArgs, t.lastCtx
	t.hasArgs = false
	t.st.NextExecutionTime = time.Time{}
	t.st.IsPending = false
	t.mu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}
	t.run(ctx, arg)
}

// Cancel discards the pending trailing execution without running it.
func (t *AsyncThrottler[T, R]) Cancel() {
	t.mu.Lock()
	t.disarmTimerLocked()
	t.hasArgs = false
	t.st.NextExecutionTime = time.Time{}
	t.st.IsPending = false
	t.st.Status = initialStatus(t.opts.Disabled)
	snap := t.st
	t.mu.Unlock()
	t.notifier.Notify(snap)
}

// SetOptions replaces the options wholesale. Disabling cancels any pending
// trailing execution.
func (t *AsyncThrottler[T, R]) SetOptions(opts AsyncOptions[T, R]) error {
	if err := validateOptions(opts.Wait); err != nil {
		return err
	}

	t.mu.Lock()
	t.opts = opts
	if opts.Disabled {
		t.disarmTimerLocked()
		t.hasArgs = false
		t.st.NextExecutionTime = time.Time{}
		t.st.IsPending = false
		t.st.Status = state.Disabled
	} else if t.st.Status == state.Disabled {
		t.st.Status = state.Idle
	}
	snap := t.st
	t.mu.Unlock()
	t.notifier.Notify(snap)
	return nil
}

// Options returns the current options.
func (t *AsyncThrottler[T, R]) Options() AsyncOptions[T, R] {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.opts
}

// State returns the current state snapshot.
func (t *AsyncThrottler[T, R]) State() AsyncState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.st
}

// Subscribe registers a listener notified with a snapshot after every
// state change. The returned function removes the listener.
func (t *AsyncThrottler[T, R]) Subscribe(fn func(AsyncState)) func() {
	return t.notifier.Subscribe(fn)
}

func (t *AsyncThrottler[T, R]) armTimerLocked(d time.Duration) {
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timerGen++
	gen := t.timerGen
	t.timer = time.AfterFunc(d, func() { t.onTimer(gen) })
}

func (t *AsyncThrottler[T, R]) disarmTimerLocked() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.timerGen++
}

func (t *AsyncThrottler[T, R]) onTimer(gen uint64) {
	t.mu.Lock()
	if gen != t.timerGen || t.timer == nil {
		t.mu.Unlock()
		return
	}
	t.timer = nil
	t.st.NextExecutionTime = time.Time{}
	t.st.IsPending = false
	if !t.hasArgs {
		t.st.Status = initialStatus(t.opts.Disabled)
		snap := t.st
		t.mu.Unlock()
		t.notifier.Notify(snap)
		return
	}
	arg, ctx := t.lastArgs, t.lastCtx
	t.hasArgs = false
	t.mu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}
	t.run(ctx, arg)
}

func (t *AsyncThrottler[T, R]) run(ctx context.Context, arg T) (R, error) {
	t.mu.Lock()
	t.st.Status = state.Executing
	snap := t.st
	t.mu.Unlock()
	t.notifier.Notify(snap)

	result, err := t.fn(ctx, arg)

	t.mu.Lock()
	t.st.ExecutionCount++
	if err != nil {
		t.st.ErrorCount++
	} else {
		t.st.SuccessCount++
	}
	t.st.SettleCount++
	t.st.LastExecutionTime = time.Now()
	switch {
	case t.timer != nil:
		t.st.Status = state.Pending
	case t.opts.Disabled:
		t.st.Status = state.Disabled
	default:
		t.st.Status = state.Idle
	}
	opts := t.opts
	snap = t.st
	t.mu.Unlock()

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
	t.notifier.Notify(snap)
	return result, err
}
