package debounce

import (
	"sync"
	"time"

	"github.com/gnrllybttr/pacer/pkg/common/state"
	"github.com/gnrllybttr/pacer/pkg/common/validation"
)

// Debouncer delays execution of a wrapped function until Wait has elapsed
// since the last trigger. Rapid bursts of MaybeExecute calls coalesce into
// one execution using the latest call's arguments.
type Debouncer[T any] struct {
	fn       func(T)
	notifier state.Notifier[State]

	mu       sync.Mutex
	opts     Options[T]
	st       State
	timer    *time.Timer
	timerGen uint64
	lastArgs T
	hasArgs  bool
	canLead  bool
}

// New creates a Debouncer wrapping fn with the given options.
func New[T any](fn func(T), opts Options[T]) (*Debouncer[T], error) {
	if err := validation.NotNil(module, "fn", fn); err != nil {
		return nil, err
	}
	if err := validateOptions(opts.Wait); err != nil {
		return nil, err
	}

	return &Debouncer[T]{
		fn:      fn,
		opts:    opts,
		st:      State{Status: initialStatus(opts.Disabled)},
		canLead: true,
	}, nil
}

// MaybeExecute records a trigger. Depending on the configured edges the
// wrapped function runs immediately, after the quiet window, or both.
// On a disabled debouncer the call is silently ignored.
func (d *Debouncer[T]) MaybeExecute(arg T) {
	d.mu.Lock()
	if d.opts.Disabled {
		d.mu.Unlock()
		return
	}

	d.lastArgs = arg
	d.hasArgs = true

	runLeading := d.opts.Edges.leading() && d.canLead
	if runLeading {
		d.canLead = false
		d.hasArgs = false
	}

	d.st.Status = state.Pending
	d.st.IsPending = true
	d.armTimerLocked()
	snap := d.st
	d.mu.Unlock()

	d.notifier.Notify(snap)
	if runLeading {
		d.run(arg)
	}
}

// Flush runs any pending trailing execution immediately, bypassing the
// remaining wait.
func (d *Debouncer[T]) Flush() {
	d.mu.Lock()
	if d.timer == nil {
		d.mu.Unlock()
		return
	}
	d.disarmTimerLocked()
	d.fire()
}

// Cancel discards the pending trailing execution without running it and
// returns the debouncer to an idle, reusable state.
func (d *Debouncer[T]) Cancel() {
	d.mu.Lock()
	d.disarmTimerLocked()
	d.hasArgs = false
	d.canLead = true
	d.st.IsPending = false
	d.st.Status = initialStatus(d.opts.Disabled)
	snap := d.st
	d.mu.Unlock()
	d.notifier.Notify(snap)
}

// SetOptions replaces the options wholesale. Disabling cancels any pending
// execution.
func (d *Debouncer[T]) SetOptions(opts Options[T]) error {
	if err := validateOptions(opts.Wait); err != nil {
		return err
	}

	d.mu.Lock()
	d.opts = opts
	if opts.Disabled {
		d.disarmTimerLocked()
		d.hasArgs = false
		d.canLead = true
		d.st.IsPending = false
		d.st.Status = state.Disabled
	} else if d.st.Status == state.Disabled {
		d.st.Status = state.Idle
	}
	snap := d.st
	d.mu.Unlock()
	d.notifier.Notify(snap)
	return nil
}

// Options returns the current options.
func (d *Debouncer[T]) Options() Options[T] {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opts
}

// State returns the current state snapshot.
func (d *Debouncer[T]) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.st
}

// Subscribe registers a listener notified with a snapshot after every
// state change. The returned function removes the listener.
func (d *Debouncer[T]) Subscribe(fn func(State)) func() {
	return d.notifier.Subscribe(fn)
}

// armTimerLocked stops any outstanding timer and arms a fresh one. The
// generation counter guarantees a stopped timer that already fired cannot
// act after being replaced.
func (d *Debouncer[T]) armTimerLocked() {
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timerGen++
	gen := d.timerGen
	d.timer = time.AfterFunc(d.opts.Wait, func() { d.onTimer(gen) })
}

func (d *Debouncer[T]) disarmTimerLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.timerGen++
}

func (d *Debouncer[T]) onTimer(gen uint64) {
	d.mu.Lock()
	if gen != d.timerGen || d.timer == nil {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.fire()
}

// fire closes the quiet window. Called with the lock held; releases it.
func (d *Debouncer[T]) fire() {
	d.canLead = true
	d.st.IsPending = false

	runTrailing := d.opts.Edges.trailing() && d.hasArgs
	var arg T
	if runTrailing {
		arg = d.lastArgs
		d.hasArgs = false
		d.mu.Unlock()
		d.run(arg)
		return
	}

	d.hasArgs = false
	d.st.Status = initialStatus(d.opts.Disabled)
	snap := d.st
	d.mu.Unlock()
	d.notifier.Notify(snap)
}

func (d *Debouncer[T]) run(arg T) {
	d.mu.Lock()
	d.st.Status = state.Executing
	snap := d.st
	d.mu.Unlock()
	d.notifier.Notify(snap)

	d.fn(arg)

	d.mu.Lock()
	d.st.ExecutionCount++
	switch {
	case d.timer != nil:
		d.st.Status = state.Pending
	case d.opts.Disabled:
		d.st.Status = state.Disabled
	default:
		d.st.Status = state.Idle
		d.st.IsPending = false
	}
	onExecute := d.opts.OnExecute
	snap = d.st
	d.mu.Unlock()

	if onExecute != nil {
		onExecute(arg)
	}
	d.notifier.Notify(snap)
}
