package batch

import (
	"sync"
	"time"

	"github.com/gnrllybttr/pacer/pkg/common/state"
	"github.com/gnrllybttr/pacer/pkg/common/validation"
)

// Batcher accumulates items and flushes them to a wrapped function as a
// single grouped call when a size threshold, custom predicate or timeout
// is met.
type Batcher[T any] struct {
	fn       func([]T)
	notifier state.Notifier[State]

	mu       sync.Mutex
	opts     Options[T]
	st       State
	items    []T
	timer    *time.Timer
	timerGen uint64
}

// New creates a Batcher wrapping fn with the given options.
func New[T any](fn func([]T), opts Options[T]) (*Batcher[T], error) {
	if err := validation.NotNil(module, "fn", fn); err != nil {
		return nil, err
	}
	if err := validateOptions(opts.MaxSize, opts.Wait); err != nil {
		return nil, err
	}

	b := &Batcher[T]{
		fn:   fn,
		opts: opts,
		st:   State{Status: initialStatus(opts.Disabled)},
	}
	if !opts.Stopped && !opts.Disabled {
		b.st.IsRunning = true
		b.st.Status = state.Running
	}
	return b, nil
}

// AddItem appends an item to the buffer. While running, a buffer that
// satisfies the predicate (or reaches MaxSize) is flushed synchronously
// from this call; otherwise the timeout timer is armed once per batch.
// Items are silently dropped when the controller is disabled.
func (b *Batcher[T]) AddItem(item T) {
	b.mu.Lock()
	if b.opts.Disabled {
		b.mu.Unlock()
		return
	}

	b.items = append(b.items, item)
	b.st.Size = len(b.items)
	onItemsChange := b.opts.OnItemsChange
	itemsSnap := b.itemsLocked()
	shouldFlush := b.st.IsRunning && b.shouldExecuteLocked()
	if !shouldFlush && b.st.IsRunning && b.opts.Wait > 0 && b.timer == nil {
		b.armTimerLocked()
	}
	snap := b.st
	b.mu.Unlock()

	if onItemsChange != nil {
		onItemsChange(itemsSnap)
	}
	b.notifier.Notify(snap)

	if shouldFlush {
		b.Execute()
	}
}

// Execute flushes the current buffer, cancelling any pending timeout.
// An empty buffer is a no-op.
func (b *Batcher[T]) Execute() {
	b.mu.Lock()
	if len(b.items) == 0 {
		b.mu.Unlock()
		return
	}
	batch := b.items
	b.items = nil
	b.st.Size = 0
	b.disarmTimerLocked()
	b.st.IsPending = false
	b.st.Status = state.Executing
	onItemsChange := b.opts.OnItemsChange
	snap := b.st
	b.mu.Unlock()

	if onItemsChange != nil {
		onItemsChange(nil)
	}
	b.notifier.Notify(snap)

	b.fn(batch)

	b.mu.Lock()
	b.st.ExecutionCount++
	b.st.TotalItemsProcessed += len(batch)
	if b.st.IsRunning {
		b.st.Status = state.Running
	} else {
		b.st.Status = initialStatus(b.opts.Disabled)
	}
	onExecute := b.opts.OnExecute
	snap = b.st
	b.mu.Unlock()

	if onExecute != nil {
		onExecute(batch)
	}
	b.notifier.Notify(snap)
}

// Flush is Execute under a friendlier name for call sites that drain
// the buffer explicitly.
func (b *Batcher[T]) Flush() {
	b.Execute()
}

// Start activates the triggers. A non-empty buffer is re-evaluated
// immediately, so a batch already past its threshold flushes now.
func (b *Batcher[T]) Start() {
	b.mu.Lock()
	if b.opts.Disabled || b.st.IsRunning {
		b.mu.Unlock()
		return
	}
	b.st.IsRunning = true
	b.st.Status = state.Running
	shouldFlush := b.shouldExecuteLocked()
	if !shouldFlush && len(b.items) > 0 && b.opts.Wait > 0 && b.timer == nil {
		b.armTimerLocked()
	}
	snap := b.st
	b.mu.Unlock()
	b.notifier.Notify(snap)

	if shouldFlush {
		b.Execute()
	}
}

// Stop cancels the pending timeout without clearing the buffer, leaving
// items ready for a manual Execute or Flush.
func (b *Batcher[T]) Stop() {
	b.mu.Lock()
	if !b.st.IsRunning {
		b.mu.Unlock()
		return
	}
	b.st.IsRunning = false
	b.disarmTimerLocked()
	b.st.IsPending = false
	b.st.Status = initialStatus(b.opts.Disabled)
	snap := b.st
	b.mu.Unlock()
	b.notifier.Notify(snap)
}

// Clear discards all buffered items. Counters are preserved.
func (b *Batcher[T]) Clear() {
	b.mu.Lock()
	b.items = nil
	b.st.Size = 0
	b.disarmTimerLocked()
	b.st.IsPending = false
	onItemsChange := b.opts.OnItemsChange
	snap := b.st
	b.mu.Unlock()

	if onItemsChange != nil {
		onItemsChange(nil)
	}
	b.notifier.Notify(snap)
}

// Reset discards all buffered items and zeroes every counter.
func (b *Batcher[T]) Reset() {
	b.mu.Lock()
	b.items = nil
	b.disarmTimerLocked()
	running := b.st.IsRunning
	status := b.st.Status
	b.st = State{IsRunning: running, Status: status}
	onItemsChange := b.opts.OnItemsChange
	snap := b.st
	b.mu.Unlock()

	if onItemsChange != nil {
		onItemsChange(nil)
	}
	b.notifier.Notify(snap)
}

// Peek returns a copy of the current buffer.
func (b *Batcher[T]) Peek() []T {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.itemsLocked()
}

// Size returns the current number of buffered items.
func (b *Batcher[T]) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// SetOptions replaces the options wholesale. Disabling stops triggers and
// cancels the pending timeout; buffered items are kept.
func (b *Batcher[T]) SetOptions(opts Options[T]) error {
	if err := validateOptions(opts.MaxSize, opts.Wait); err != nil {
		return err
	}

	b.mu.Lock()
	b.opts = opts
	if opts.Disabled {
		b.st.IsRunning = false
		b.disarmTimerLocked()
		b.st.IsPending = false
		b.st.Status = state.Disabled
	} else if b.st.Status == state.Disabled {
		b.st.Status = state.Idle
	}
	snap := b.st
	b.mu.Unlock()
	b.notifier.Notify(snap)
	return nil
}

// Options returns the current options.
func (b *Batcher[T]) Options() Options[T] {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.opts
}

// State returns the current state snapshot.
func (b *Batcher[T]) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.st
}

// Subscribe registers a listener notified with a snapshot after every
// state change. The returned function removes the listener.
func (b *Batcher[T]) Subscribe(fn func(State)) func() {
	return b.notifier.Subscribe(fn)
}

// shouldExecuteLocked evaluates the flush trigger: the custom predicate
// when supplied, else the MaxSize threshold.
func (b *Batcher[T]) shouldExecuteLocked() bool {
	if len(b.items) == 0 {
		return false
	}
	if b.opts.ShouldExecute != nil {
		return b.opts.ShouldExecute(b.itemsLocked())
	}
	return b.opts.MaxSize > 0 && len(b.items) >= b.opts.MaxSize
}

func (b *Batcher[T]) armTimerLocked() {
	b.timerGen++
	gen := b.timerGen
	b.st.IsPending = true
	b.timer = time.AfterFunc(b.opts.Wait, func() { b.onTimer(gen) })
}

func (b *Batcher[T]) disarmTimerLocked() {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.timerGen++
}

func (b *Batcher[T]) onTimer(gen uint64) {
	b.mu.Lock()
	if gen != b.timerGen || b.timer == nil {
		b.mu.Unlock()
		return
	}
	b.timer = nil
	b.st.IsPending = false
	b.mu.Unlock()

	b.Execute()
}

func (b *Batcher[T]) itemsLocked() []T {
	out := make([]T, len(b.items))
	copy(out, b.items)
	return out
}
