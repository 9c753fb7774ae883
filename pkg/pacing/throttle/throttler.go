package throttle

import (
	"sync"
	"time"

	"github.com/gnrllybttr/pacer/pkg/common/state"
	"github.com/gnrllybttr/pacer/pkg/common/validation"
)

// Throttler caps execution of a wrapped function to at most once per Wait
// interval. In-window calls are coalesced into a single trailing execution
// carrying the latest arguments, or dropped when the trailing edge is
// disabled.
type Throttler[T any] struct {
	fn       func(T)
	notifier state.Notifier[State]

	mu       sync.Mutex
	opts     Options[T]
	st       State
	timer    *time.Timer
	timerGen uint64
	lastArgs T
	hasArgs  bool
}

// New creates a Throttler wrapping fn with the given options.
func New[T any](fn func(T), opts Options[T]) (*Throttler[T], error) {
	if err := validation.NotNil(module, "fn", fn); err != nil {
		return nil, err
	}
	if err := validateOptions(opts.Wait); err != nil {
		return nil, err
	}

	return &Throttler[T]{
		fn:   fn,
		opts: opts,
		st:   State{Status: initialStatus(opts.Disabled)},
	}, nil
}

// MaybeExecute records a trigger. A call arriving when the previous
// execution is at least Wait old runs immediately (leading edge); an
// in-window call refreshes the stored arguments for the trailing
// execution, or is dropped when the trailing edge is disabled. On a
// disabled throttler the call is silently ignored.
func (t *Throttler[T]) MaybeExecute(arg T) {
	t.mu.Lock()
	if t.opts.Disabled {
		t.mu.Unlock()
		return
	}

	now := time.Now()
	last := t.st.LastExecutionTime
	due := last.IsZero() || now.Sub(last) >= t.opts.Wait

	if due && t.opts.Edges.leading() {
		t.mu.Unlock()
		t.run(arg)
		return
	}

	if !t.opts.Edges.trailing() {
		// Still inside the window and no trailing edge: drop the call.
		t.mu.Unlock()
		return
	}

	t.lastArgs = arg
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
}

// Flush runs any pending trailing execution immediately, bypassing the
// remaining wait.
func (t *Throttler[T]) Flush() {
	t.mu.Lock()
	if t.timer == nil || !t.hasArgs {
		t.mu.Unlock()
		return
	}
	t.disarmTimerLocked()
	arg := t.lastArgs
	t.hasArgs = false
	t.st.NextExecutionTime = time.Time{}
	t.st.IsPending = false
	t.mu.Unlock()
	t.run(arg)
}

// Cancel discards the pending trailing execution without running it.
func (t *Throttler[T]) Cancel() {
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
func (t *Throttler[T]) SetOptions(opts Options[T]) error {
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
func (t *Throttler[T]) Options() Options[T] {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.opts
}

// State returns the current state snapshot.
func (t *Throttler[T]) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.st
}

// Subscribe registers a listener notified with a snapshot after every
// state change. The returned function removes the listener.
func (t *Throttler[T]) Subscribe(fn func(State)) func() {
	return t.notifier.Subscribe(fn)
}

func (t *Throttler[T]) armTimerLocked(d time.Duration) {
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timerGen++
	gen := t.timerGen
	t.timer = time.AfterFunc(d, func() { t.onTimer(gen) })
}

func (t *Throttler[T]) disarmTimerLocked() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.timerGen++
}

func (t *Throttler[T]) onTimer(gen uint64) {
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
	arg := t.lastArgs
	t.hasArgs = false
	t.mu.Unlock()
	t.run(arg)
}

func (t *Throttler[T]) run(arg T) {
	t.mu.Lock()
	t.st.Status = state.Executing
	snap := t.st
	t.mu.Unlock()
	t.notifier.Notify(snap)

	t.fn(arg)

	t.mu.Lock()
	t.st.ExecutionCount++
	t.st.LastExecutionTime = time.Now()
	switch {
	case t.timer != nil:
		t.st.Status = state.Pending
	case t.opts.Disabled:
		t.st.Status = state.Disabled
	default:
		t.st.Status = state.Idle
	}
	onExecute := t.opts.OnExecute
	snap = t.st
	t.mu.Unlock()

	if onExecute != nil {
		onExecute(arg)
	}
	t.notifier.Notify(snap)
}
