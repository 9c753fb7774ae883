package debounce

import (
	"context"
	"errors"
	"sync"
	"time"

	perrors "github.com/gnrllybttr/pacer/pkg/common/errors"
	"github.com/gnrllybttr/pacer/pkg/common/state"
	"github.com/gnrllybttr/pacer/pkg/common/validation"
)

// completion is the shared resolution of one debounced execution. Every
// caller coalesced into the same quiet window waits on the same completion.
type completion[R any] struct {
	done   chan struct{}
	once   sync.Once
	result R
	err    error
}

func newCompletion[R any]() *completion[R] {
	return &completion[R]{done: make(chan struct{})}
}

// resolve settles the completion exactly once. Later attempts are ignored,
// so an aborted completion keeps its aborted outcome even if the original
// execution finishes afterwards.
func (c *completion[R]) resolve(result R, err error) {
	c.once.Do(func() {
		c.result = result
		c.err = err
		close(c.done)
	})
}

// AsyncDebouncer debounces a context-aware function returning a result.
// All MaybeExecute callers within one quiet window block on the same
// pending execution and observe its outcome.
type AsyncDebouncer[T, R any] struct {
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
	canLead  bool
	pending  *completion[R]
}

// NewAsync creates an AsyncDebouncer wrapping fn with the given options.
func NewAsync[T, R any](fn func(context.Context, T) (R, error), opts AsyncOptions[T, R]) (*AsyncDebouncer[T, R], error) {
	if err := validation.NotNil(module, "fn", fn); err != nil {
		return nil, err
	}
	if err := validateOptions(opts.Wait); err != nil {
		return nil, err
	}

	return &AsyncDebouncer[T, R]{
		fn:      fn,
		opts:    opts,
		st:      AsyncState{Status: initialStatus(opts.Disabled)},
		canLead: true,
	}, nil
}

// MaybeExecute records a trigger and blocks until the execution it was
// coalesced into settles, returning its result. If the quiet window closes
// without an execution (trailing edge disabled), waiting callers receive
// the zero result and a nil error.
//
// Errors: ErrDisabled when the debouncer is disabled, ErrAborted when
// Cancel discarded the pending execution, the caller's context error when
// ctx ends before the execution settles, and the wrapped function's error
// when ThrowOnError is set.
func (d *AsyncDebouncer[T, R]) MaybeExecute(ctx context.Context, arg T) (R, error) {
	var zero R

	d.mu.Lock()
	if d.opts.Disabled {
		d.mu.Unlock()
		return zero, perrors.ErrDisabled
	}

	d.lastArgs = arg
	d.lastCtx = ctx
	d.hasArgs = true

	if d.pending == nil {
		d.pending = newCompletion[R]()
	}
	c := d.pending

	runLeading := d.opts.Edges.leading() && d.canLead
	if runLeading {
		d.canLead = false
		d.hasArgs = false
	}

	throwOnError := d.opts.ThrowOnError
	d.st.Status = state.Pending
	d.st.IsPending = true
	d.armTimerLocked()
	snap := d.st
	d.mu.Unlock()

	d.notifier.Notify(snap)
	if runLeading {
		d.run(ctx, arg, c)
	}

	select {
	case <-c.done:
	case <-ctx.Done():
		return zero, ctx.Err()
	}

	if c.err != nil {
		if throwOnError || errors.Is(c.err, perrors.ErrAborted) {
			return zero, c.err
		}
		return zero, nil
	}
	return c.result, nil
}

// Flush runs any pending trailing execution immediately, bypassing the
// remaining wait.
func (d *AsyncDebouncer[T, R]) Flush() {
	d.mu.Lock()
	if d.timer == nil {
		d.mu.Unlock()
		return
	}
	d.disarmTimerLocked()
	d.fire()
}

// Cancel discards the pending execution. Waiting callers fail with
// ErrAborted; a later completion of an already-started execution cannot
// overwrite that outcome.
func (d *AsyncDebouncer[T, R]) Cancel() {
	var zero R

	d.mu.Lock()
	d.disarmTimerLocked()
	d.hasArgs = false
	d.canLead = true
	c := d.pending
	d.pending = nil
	d.st.IsPending = false
	d.st.Status = initialStatus(d.opts.Disabled)
	snap := d.st
	d.mu.Unlock()

	if c != nil {
		c.resolve(zero, perrors.ErrAborted)
	}
	d.notifier.Notify(snap)
}

// SetOptions replaces the options wholesale. Disabling cancels any pending
// execution as Cancel does.
func (d *AsyncDebouncer[T, R]) SetOptions(opts AsyncOptions[T, R]) error {
	if err := validateOptions(opts.Wait); err != nil {
		return err
	}

	var zero R
	var c *completion[R]

	d.mu.Lock()
	d.opts = opts
	if opts.Disabled {
		d.disarmTimerLocked()
		d.hasArgs = false
		d.canLead = true
		c = d.pending
		d.pending = nil
		d.st.IsPending = false
		d.st.Status = state.Disabled
	} else if d.st.Status == state.Disabled {
		d.st.Status = state.Idle
	}
	snap := d.st
	d.mu.Unlock()

	if c != nil {
		c.resolve(zero, perrors.ErrAborted)
	}
	d.notifier.Notify(snap)
	return nil
}

// Options returns the current options.
func (d *AsyncDebouncer[T, R]) Options() AsyncOptions[T, R] {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opts
}

// State returns the current state snapshot.
func (d *AsyncDebouncer[T, R]) State() AsyncState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.st
}

// Subscribe registers a listener notified with a snapshot after every
// state change. The returned function removes the listener.
func (d *AsyncDebouncer[T, R]) Subscribe(fn func(AsyncState)) func() {
	return d.notifier.Subscribe(fn)
}

func (d *AsyncDebouncer[T, R]) armTimerLocked() {
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timerGen++
	gen := d.timerGen
	d.timer = time.AfterFunc(d.opts.Wait, func() { d.onTimer(gen) })
}

func (d *AsyncDebouncer[T, R]) disarmTimerLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.timerGen++
}

func (d *AsyncDebouncer[T, R]) onTimer(gen uint64) {
	d.mu.Lock()
	if gen != d.timerGen || d.timer == nil {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.fire()
}

// fire closes the quiet window. Called with the lock held; releases it.
func (d *AsyncDebouncer[T, R]) fire() {
	var zero R

	d.canLead = true
	d.st.IsPending = false

	if d.opts.Edges.trailing() && d.hasArgs {
		arg := d.lastArgs
		ctx := d.lastCtx
		d.hasArgs = false
		c := d.pending
		d.mu.Unlock()
		if ctx == nil {
			ctx = context.Background()
		}
		d.run(ctx, arg, c)
		return
	}

	// Window closed without an execution: release anyone still waiting.
	d.hasArgs = false
	c := d.pending
	d.pending = nil
	d.st.Status = initialStatus(d.opts.Disabled)
	snap := d.st
	d.mu.Unlock()

	if c != nil {
		c.resolve(zero, nil)
	}
	d.notifier.Notify(snap)
}

func (d *AsyncDebouncer[T, R]) run(ctx context.Context, arg T, c *completion[R]) {
	d.mu.Lock()
	d.st.Status = state.Executing
	snap := d.st
	d.mu.Unlock()
	d.notifier.Notify(snap)

	result, err := d.fn(ctx, arg)

	d.mu.Lock()
	d.st.ExecutionCount++
	if err != nil {
		d.st.ErrorCount++
	} else {
		d.st.SuccessCount++
	}
	d.st.SettleCount++
	if d.pending == c {
		d.pending = nil
	}
	switch {
	case d.timer != nil:
		d.st.Status = state.Pending
	case d.opts.Disabled:
		d.st.Status = state.Disabled
	default:
		d.st.Status = state.Idle
		d.st.IsPending = false
	}
	opts := d.opts
	snap = d.st
	d.mu.Unlock()

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
	if c != nil {
		c.resolve(result, err)
	}
	d.notifier.Notify(snap)
}
