package batch

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gnrllybttr/pacer/pkg/common/state"
	"github.com/gnrllybttr/pacer/pkg/common/validation"
)

// AsyncBatcher accumulates items and flushes them to a context-aware
// function returning a result. Threshold and timeout flushes run in the
// background; Execute flushes synchronously and returns the batch result.
// Failed batches are retained in a failed-items buffer for inspection or
// reprocessing.
type AsyncBatcher[T, R any] struct {
	fn       func(context.Context, []T) (R, error)
	notifier state.Notifier[AsyncState]
	group    errgroup.Group

	mu          sync.Mutex
	opts        AsyncOptions[T, R]
	st          AsyncState
	items       []T
	failedItems []T
	timer       *time.Timer
	timerGen    uint64
}

// NewAsync creates an AsyncBatcher wrapping fn with the given options.
func NewAsync[T, R any](fn func(context.Context, []T) (R, error), opts AsyncOptions[T, R]) (*AsyncBatcher[T, R], error) {
	if err := validation.NotNil(module, "fn", fn); err != nil {
		return nil, err
	}
	if err := validateOptions(opts.MaxSize, opts.Wait); err != nil {
		return nil, err
	}

	b := &AsyncBatcher[T, R]{
		fn:   fn,
		opts: opts,
		st:   AsyncState{Status: initialStatus(opts.Disabled)},
	}
	if !opts.Stopped && !opts.Disabled {
		b.st.IsRunning = true
		b.st.Status = state.Running
	}
	return b, nil
}

// AddItem appends an item to the buffer. While running, a buffer that
// satisfies the predicate (or reaches MaxSize) is flushed in the
// background; otherwise the timeout timer is armed once per batch.
// Items are silently dropped when the controller is disabled.
func (b *AsyncBatcher[T, R]) AddItem(item T) {
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
		b.Flush()
	}
}

// Execute flushes the current buffer synchronously and returns the batch
// result. An empty buffer returns the zero result and no error. Function
// errors are gated by ThrowOnError.
func (b *AsyncBatcher[T, R]) Execute(ctx context.Context) (R, error) {
	var zero R

	batch, ok := b.takeBatch()
	if !ok {
		return zero, nil
	}
	result, err := b.process(ctx, batch)
	if err != nil && !b.throwOnError() {
		return zero, nil
	}
	return result, err
}

// Flush triggers a background flush of the current buffer and returns
// without waiting for it to settle.
func (b *AsyncBatcher[T, R]) Flush() {
	batch, ok := b.takeBatch()
	if !ok {
		return
	}
	b.group.Go(func() error {
		b.process(context.Background(), batch)
		return nil
	})
}

// FailedItems returns a copy of the items from batches that settled with
// an error, in flush order.
func (b *AsyncBatcher[T, R]) FailedItems() []T {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]T, len(b.failedItems))
	copy(out, b.failedItems)
	return out
}

// ClearFailedItems empties the failed-items buffer.
func (b *AsyncBatcher[T, R]) ClearFailedItems() {
	b.mu.Lock()
	b.failedItems = nil
	b.st.FailedItemCount = 0
	snap := b.st
	b.mu.Unlock()
	b.notifier.Notify(snap)
}

// Start activates the triggers. A non-empty buffer is re-evaluated
// immediately.
func (b *AsyncBatcher[T, R]) Start() {
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
		b.Flush()
	}
}

// Stop cancels the pending timeout without clearing the buffer. Flushes
// already in flight settle normally.
func (b *AsyncBatcher[T, R]) Stop() {
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

// Clear discards all buffered items. Counters and failed items are kept.
func (b *AsyncBatcher[T, R]) Clear() {
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

// Reset discards buffered and failed items and zeroes every counter.
func (b *AsyncBatcher[T, R]) Reset() {
	b.mu.Lock()
	b.items = nil
	b.failedItems = nil
	b.disarmTimerLocked()
	running := b.st.IsRunning
	status := b.st.Status
	b.st = AsyncState{IsRunning: running, Status: status}
	onItemsChange := b.opts.OnItemsChange
	snap := b.st
	b.mu.Unlock()

	if onItemsChange != nil {
		onItemsChange(nil)
	}
	b.notifier.Notify(snap)
}

// Peek returns a copy of the current buffer.
func (b *AsyncBatcher[T, R]) Peek() []T {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.itemsLocked()
}

// Size returns the current number of buffered items.
func (b *AsyncBatcher[T, R]) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// SetOptions replaces the options wholesale. Disabling stops triggers and
// cancels the pending timeout; buffered items are kept.
func (b *AsyncBatcher[T, R]) SetOptions(opts AsyncOptions[T, R]) error {
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
func (b *AsyncBatcher[T, R]) Options() AsyncOptions[T, R] {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.opts
}

// State returns the current state snapshot.
func (b *AsyncBatcher[T, R]) State() AsyncState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.st
}

// Subscribe registers a listener notified with a snapshot after every
// state change. The returned function removes the listener.
func (b *AsyncBatcher[T, R]) Subscribe(fn func(AsyncState)) func() {
	return b.notifier.Subscribe(fn)
}

// takeBatch snapshots and clears the buffer, cancelling any pending
// timeout. It reports false when the buffer is empty.
func (b *AsyncBatcher[T, R]) takeBatch() ([]T, bool) {
	b.mu.Lock()
	if len(b.items) == 0 {
		b.mu.Unlock()
		return nil, false
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
	return batch, true
}

func (b *AsyncBatcher[T, R]) process(ctx context.Context, batch []T) (R, error) {
	result, err := b.fn(ctx, batch)

	b.mu.Lock()
	if err != nil {
		b.st.ErrorCount++
		b.failedItems = append(b.failedItems, batch...)
		b.st.FailedItemCount = len(b.failedItems)
	} else {
		b.st.ExecutionCount++
		b.st.SuccessCount++
		b.st.TotalItemsProcessed += len(batch)
	}
	b.st.SettleCount++
	if b.st.IsRunning {
		b.st.Status = state.Running
	} else {
		b.st.Status = initialStatus(b.opts.Disabled)
	}
	opts := b.opts
	snap := b.st
	b.mu.Unlock()

	if err != nil {
		if opts.OnError != nil {
			opts.OnError(err)
		}
	} else if opts.OnSuccess != nil {
		opts.OnSuccess(result)
	}
	if opts.OnExecute != nil {
		opts.OnExecute(batch)
	}
	if opts.OnSettled != nil {
		opts.OnSettled()
	}
	b.notifier.Notify(snap)
	return result, err
}

func (b *AsyncBatcher[T, R]) throwOnError() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.opts.ThrowOnError
}

func (b *AsyncBatcher[T, R]) shouldExecuteLocked() bool {
	if len(b.items) == 0 {
		return false
	}
	if b.opts.ShouldExecute != nil {
		return b.opts.ShouldExecute(b.itemsLocked())
	}
	return b.opts.MaxSize > 0 && len(b.items) >= b.opts.MaxSize
}

func (b *AsyncBatcher[T, R]) armTimerLocked() {
	b.timerGen++
	gen := b.timerGen
	b.st.IsPending = true
	b.timer = time.AfterFunc(b.opts.Wait, func() { b.onTimer(gen) })
}

func (b *AsyncBatcher[T, R]) disarmTimerLocked() {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.timerGen++
}

func (b *AsyncBatcher[T, R]) onTimer(gen uint64) {
	b.mu.Lock()
	if gen != b.timerGen || b.timer == nil {
		b.mu.Unlock()
		return
	}
	b.timer = nil
	b.st.IsPending = false
	b.mu.Unlock()

	b.Flush()
}

func (b *AsyncBatcher[T, R]) itemsLocked() []T {
	out := make([]T, len(b.items))
	copy(out, b.items)
	return out
}
