package queue

import (
	"sync"
	"time"

	"github.com/gnrllybttr/pacer/pkg/common/clock"
	"github.com/gnrllybttr/pacer/pkg/common/state"
	"github.com/gnrllybttr/pacer/pkg/common/validation"
)

type entry[T any] struct {
	item       T
	insertedAt time.Time
}

// Queuer buffers items and processes them serially with a wrapped function.
// Items are always buffered first and pulled on the queue's own schedule;
// there is no execute-immediately shortcut. Ordering is FIFO by default and
// configurable via AddItemsTo/GetItemsFrom.
type Queuer[T any] struct {
	fn       func(T)
	notifier state.Notifier[State]

	mu    sync.Mutex
	idle  *sync.Cond
	opts  Options[T]
	st    State
	clk   clock.Clock
	items []entry[T]
	timer *time.Timer
	busy  bool
}

// New creates a Queuer wrapping fn with the given options.
func New[T any](fn func(T), opts Options[T]) (*Queuer[T], error) {
	if err := validation.NotNil(module, "fn", fn); err != nil {
		return nil, err
	}
	if err := validateOptions(opts.MaxSize, opts.Wait, opts.ExpirationDuration); err != nil {
		return nil, err
	}

	clk := opts.Clock
	if clk == nil {
		clk = clock.System{}
	}

	q := &Queuer[T]{
		fn:   fn,
		opts: opts,
		clk:  clk,
		st:   State{Status: initialStatus(opts.Disabled)},
	}
	q.idle = sync.NewCond(&q.mu)
	if !opts.Stopped && !opts.Disabled {
		q.st.IsRunning = true
		q.st.Status = state.Running
	}
	return q, nil
}

// AddItem buffers an item, inserting at the configured end unless an
// explicit position is given. It reports false when the controller is
// disabled or the size cap rejects the item; rejection leaves the buffer
// untouched.
func (q *Queuer[T]) AddItem(item T, pos ...Position) bool {
	q.mu.Lock()
	if q.opts.Disabled {
		q.mu.Unlock()
		return false
	}

	if q.opts.MaxSize > 0 && len(q.items) >= q.opts.MaxSize {
		q.st.RejectionCount++
		onReject := q.opts.OnReject
		snap := q.st
		q.mu.Unlock()

		if onReject != nil {
			onReject(item)
		}
		q.notifier.Notify(snap)
		return false
	}

	p := q.opts.AddItemsTo
	if len(pos) > 0 {
		p = pos[0]
	}
	e := entry[T]{item: item, insertedAt: q.clk.Now()}
	if p.front(PositionBack) {
		q.items = append([]entry[T]{e}, q.items...)
	} else {
		q.items = append(q.items, e)
	}
	q.st.AddItemCount++
	q.st.Size = len(q.items)
	if q.st.IsRunning {
		q.scheduleLocked()
	}
	onItemsChange := q.opts.OnItemsChange
	itemsSnap := q.itemsLocked()
	snap := q.st
	q.mu.Unlock()

	if onItemsChange != nil {
		onItemsChange(itemsSnap)
	}
	q.notifier.Notify(snap)
	return true
}

// GetNextItem removes and returns the next item per GetItemsFrom, after
// sweeping out expired items. The second return value is false when the
// buffer is empty after the sweep.
func (q *Queuer[T]) GetNextItem() (T, bool) {
	q.mu.Lock()
	expired := q.sweepLocked()
	item, ok := q.popLocked()
	onExpire := q.opts.OnExpire
	onItemsChange := q.opts.OnItemsChange
	var itemsSnap []T
	if ok || len(expired) > 0 {
		itemsSnap = q.itemsLocked()
	}
	snap := q.st
	q.mu.Unlock()

	if onExpire != nil {
		for _, it := range expired {
			onExpire(it)
		}
	}
	if itemsSnap != nil && onItemsChange != nil {
		onItemsChange(itemsSnap)
	}
	if ok || len(expired) > 0 {
		q.notifier.Notify(snap)
	}
	return item, ok
}

// Peek returns the next item per GetItemsFrom without removing it.
func (q *Queuer[T]) Peek() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	if q.opts.GetItemsFrom.front(PositionFront) {
		return q.items[0].item, true
	}
	return q.items[len(q.items)-1].item, true
}

// Start begins processing buffered items.
func (q *Queuer[T]) Start() {
	q.mu.Lock()
	if q.opts.Disabled || q.st.IsRunning {
		q.mu.Unlock()
		return
	}
	q.st.IsRunning = true
	q.st.Status = state.Running
	q.scheduleLocked()
	snap := q.st
	q.mu.Unlock()
	q.notifier.Notify(snap)
}

// Stop pauses processing. The item currently in flight, if any, completes;
// buffered items are kept.
func (q *Queuer[T]) Stop() {
	q.mu.Lock()
	if !q.st.IsRunning {
		q.mu.Unlock()
		return
	}
	q.st.IsRunning = false
	q.st.Status = initialStatus(q.opts.Disabled)
	if q.timer != nil {
		if q.timer.Stop() {
			q.busy = false
		}
		q.timer = nil
	}
	snap := q.st
	q.mu.Unlock()
	q.notifier.Notify(snap)
}

// Flush synchronously processes every buffered item, bypassing Wait.
// Expired items are swept out first. A step already in flight finishes
// before the drain begins, preserving serial execution of fn.
func (q *Queuer[T]) Flush() {
	q.mu.Lock()
	for {
		if q.timer != nil {
			// Stop reports false when the callback already fired; that
			// step holds busy and is about to run, so wait it out.
			if q.timer.Stop() {
				q.busy = false
			}
			q.timer = nil
		}
		if !q.busy {
			break
		}
		q.idle.Wait()
	}
	q.busy = true
	q.mu.Unlock()

	for {
		item, ok := q.GetNextItem()
		if !ok {
			break
		}
		q.process(item)
	}

	q.mu.Lock()
	q.busy = false
	q.idle.Broadcast()
	q.scheduleLocked()
	q.mu.Unlock()
}

// Clear discards all buffered items. Counters are preserved.
func (q *Queuer[T]) Clear() {
	q.mu.Lock()
	q.items = nil
	q.st.Size = 0
	onItemsChange := q.opts.OnItemsChange
	snap := q.st
	q.mu.Unlock()

	if onItemsChange != nil {
		onItemsChange(nil)
	}
	q.notifier.Notify(snap)
}

// Reset discards all buffered items and zeroes every counter.
func (q *Queuer[T]) Reset() {
	q.mu.Lock()
	q.items = nil
	running := q.st.IsRunning
	q.st = State{IsRunning: running, Status: q.st.Status}
	onItemsChange := q.opts.OnItemsChange
	snap := q.st
	q.mu.Unlock()

	if onItemsChange != nil {
		onItemsChange(nil)
	}
	q.notifier.Notify(snap)
}

// Size returns the current number of buffered items.
func (q *Queuer[T]) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// SetOptions replaces the options wholesale. Disabling stops processing.
func (q *Queuer[T]) SetOptions(opts Options[T]) error {
	if err := validateOptions(opts.MaxSize, opts.Wait, opts.ExpirationDuration); err != nil {
		return err
	}

	q.mu.Lock()
	q.opts = opts
	if opts.Clock != nil {
		q.clk = opts.Clock
	}
	if opts.Disabled {
		q.st.IsRunning = false
		q.st.Status = state.Disabled
		if q.timer != nil {
			if q.timer.Stop() {
				q.busy = false
			}
			q.timer = nil
		}
	} else if q.st.Status == state.Disabled {
		q.st.Status = state.Idle
	}
	snap := q.st
	q.mu.Unlock()
	q.notifier.Notify(snap)
	return nil
}

// Options returns the current options.
func (q *Queuer[T]) Options() Options[T] {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.opts
}

// State returns the current state snapshot.
func (q *Queuer[T]) State() State {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.st
}

// Subscribe registers a listener notified with a snapshot after every
// state change. The returned function removes the listener.
func (q *Queuer[T]) Subscribe(fn func(State)) func() {
	return q.notifier.Subscribe(fn)
}

// scheduleLocked arranges the next processing step when the loop is
// running, the buffer is non-empty and no step is already in flight.
func (q *Queuer[T]) scheduleLocked() {
	if !q.st.IsRunning || q.busy || len(q.items) == 0 {
		return
	}
	q.busy = true
	if q.opts.Wait > 0 {
		q.timer = time.AfterFunc(q.opts.Wait, q.step)
		return
	}
	go q.step()
}

func (q *Queuer[T]) step() {
	q.mu.Lock()
	q.timer = nil
	if !q.st.IsRunning {
		q.busy = false
		q.idle.Broadcast()
		q.mu.Unlock()
		return
	}
	expired := q.sweepLocked()
	item, ok := q.popLocked()
	if !ok {
		q.busy = false
		q.idle.Broadcast()
		onExpire := q.opts.OnExpire
		snap := q.st
		q.mu.Unlock()

		if onExpire != nil {
			for _, it := range expired {
				onExpire(it)
			}
		}
		if len(expired) > 0 {
			q.notifier.Notify(snap)
		}
		return
	}
	q.st.Status = state.Executing
	onExpire := q.opts.OnExpire
	onItemsChange := q.opts.OnItemsChange
	itemsSnap := q.itemsLocked()
	snap := q.st
	q.mu.Unlock()

	if onExpire != nil {
		for _, it := range expired {
			onExpire(it)
		}
	}
	if onItemsChange != nil {
		onItemsChange(itemsSnap)
	}
	q.notifier.Notify(snap)

	q.process(item)

	q.mu.Lock()
	q.busy = false
	q.idle.Broadcast()
	if q.st.IsRunning {
		q.st.Status = state.Running
	}
	q.scheduleLocked()
	q.mu.Unlock()
}

func (q *Queuer[T]) process(item T) {
	q.fn(item)

	q.mu.Lock()
	q.st.ExecutionCount++
	onExecute := q.opts.OnExecute
	snap := q.st
	q.mu.Unlock()

	if onExecute != nil {
		onExecute(item)
	}
	q.notifier.Notify(snap)
}

// sweepLocked drops expired items and returns them for OnExpire delivery.
func (q *Queuer[T]) sweepLocked() []T {
	if q.opts.ExpirationDuration <= 0 || len(q.items) == 0 {
		return nil
	}
	cutoff := q.clk.Now().Add(-q.opts.ExpirationDuration)

	var expired []T
	kept := q.items[:0]
	for _, e := range q.items {
		if e.insertedAt.Before(cutoff) {
			expired = append(expired, e.item)
			continue
		}
		kept = append(kept, e)
	}
	q.items = kept
	q.st.Size = len(q.items)
	q.st.ExpirationCount += len(expired)
	return expired
}

func (q *Queuer[T]) popLocked() (T, bool) {
	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	var e entry[T]
	if q.opts.GetItemsFrom.front(PositionFront) {
		e = q.items[0]
		q.items = q.items[1:]
	} else {
		e = q.items[len(q.items)-1]
		q.items = q.items[:len(q.items)-1]
	}
	q.st.Size = len(q.items)
	return e.item, true
}

func (q *Queuer[T]) itemsLocked() []T {
	out := make([]T, len(q.items))
	for i, e := range q.items {
		out[i] = e.item
	}
	return out
}
