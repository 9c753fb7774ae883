package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gnrllybttr/pacer/pkg/common/clock"
	perrors "github.com/gnrllybttr/pacer/pkg/common/errors"
	"github.com/gnrllybttr/pacer/pkg/common/state"
	"github.com/gnrllybttr/pacer/pkg/common/validation"
)

// ItemResult is the settled outcome of one queued item, delivered on the
// Results channel.
type ItemResult[T, R any] struct {
	// Item is the queued value.
	Item T

	// Result is the wrapped function's return value on success.
	Result R

	// Err is ErrAborted for items rejected by Abort, ErrExpired for
	// items dropped by an expiration sweep, or the function's error
	// when ThrowOnError is set.
	Err error

	// Duration is the wall time the item spent executing.
	Duration time.Duration
}

type inflight[T, R any] struct {
	item  T
	start time.Time
	once  sync.Once
}

// AsyncQueuer buffers items and processes them with a context-aware
// function, up to Concurrency items in flight at once. Settled outcomes
// are observable through the hooks and the Results channel; one item's
// failure never stalls the rest of the queue.
type AsyncQueuer[T, R any] struct {
	fn       func(context.Context, T) (R, error)
	notifier state.Notifier[AsyncState]

	mu          sync.Mutex
	opts        AsyncOptions[T, R]
	st          AsyncState
	clk         clock.Clock
	items       []entry[T]
	timer       *time.Timer
	waiting     bool
	tickReady   bool
	dispatching bool
	group       *errgroup.Group
	ctx         context.Context
	cancel      context.CancelFunc
	active      map[*inflight[T, R]]struct{}
	results     chan ItemResult[T, R]
	aborted     bool
}

// NewAsync creates an AsyncQueuer wrapping fn with the given options.
func NewAsync[T, R any](fn func(context.Context, T) (R, error), opts AsyncOptions[T, R]) (*AsyncQueuer[T, R], error) {
	if err := validation.NotNil(module, "fn", fn); err != nil {
		return nil, err
	}
	if err := validateOptions(opts.MaxSize, opts.Wait, opts.ExpirationDuration); err != nil {
		return nil, err
	}
	if err := validation.NonNegative(module, "concurrency", opts.Concurrency); err != nil {
		return nil, err
	}

	clk := opts.Clock
	if clk == nil {
		clk = clock.System{}
	}
	buf := 16
	if opts.MaxSize > buf {
		buf = opts.MaxSize
	}

	ctx, cancel := context.WithCancel(context.Background())
	q := &AsyncQueuer[T, R]{
		fn:      fn,
		opts:    opts,
		clk:     clk,
		st:      AsyncState{Status: initialStatus(opts.Disabled)},
		group:   newGroup(opts.Concurrency),
		ctx:     ctx,
		cancel:  cancel,
		active:  make(map[*inflight[T, R]]struct{}),
		results: make(chan ItemResult[T, R], buf),
	}
	if !opts.Stopped && !opts.Disabled {
		q.st.IsRunning = true
		q.st.Status = state.Running
	}
	return q, nil
}

func newGroup(concurrency int) *errgroup.Group {
	if concurrency <= 0 {
		concurrency = 1
	}
	g := &errgroup.Group{}
	g.SetLimit(concurrency)
	return g
}

// AddItem buffers an item, inserting at the configured end unless an
// explicit position is given. It reports false when the controller is
// disabled or the size cap rejects the item.
func (q *AsyncQueuer[T, R]) AddItem(item T, pos ...Position) bool {
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
	expired := q.scheduleLocked()
	onItemsChange := q.opts.OnItemsChange
	itemsSnap := q.itemsLocked()
	snap := q.st
	q.mu.Unlock()

	q.deliverExpired(expired)
	if onItemsChange != nil {
		onItemsChange(itemsSnap)
	}
	q.notifier.Notify(snap)
	return true
}

// Results returns the channel on which settled item outcomes are
// delivered. The channel is buffered; outcomes are dropped when the
// buffer is full and nobody is receiving.
func (q *AsyncQueuer[T, R]) Results() <-chan ItemResult[T, R] {
	return q.results
}

// Peek returns the next item per GetItemsFrom without removing it.
func (q *AsyncQueuer[T, R]) Peek() (T, bool) {
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

// Start begins processing buffered items. After an Abort it also clears
// the aborted condition.
func (q *AsyncQueuer[T, R]) Start() {
	q.mu.Lock()
	if q.opts.Disabled || q.st.IsRunning {
		q.mu.Unlock()
		return
	}
	if q.aborted {
		q.aborted = false
		q.ctx, q.cancel = context.WithCancel(context.Background())
	}
	q.st.IsRunning = true
	q.st.Status = state.Running
	expired := q.scheduleLocked()
	snap := q.st
	q.mu.Unlock()

	q.deliverExpired(expired)
	q.notifier.Notify(snap)
}

// Stop pauses processing. In-flight items complete; buffered items are kept.
func (q *AsyncQueuer[T, R]) Stop() {
	q.mu.Lock()
	if !q.st.IsRunning {
		q.mu.Unlock()
		return
	}
	q.st.IsRunning = false
	q.st.Status = initialStatus(q.opts.Disabled)
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
		q.waiting = false
	}
	q.tickReady = false
	snap := q.st
	q.mu.Unlock()
	q.notifier.Notify(snap)
}

// Flush dispatches every buffered item for processing immediately,
// bypassing Wait. It does not block for completions; concurrency still
// bounds how many run at once, with the remainder dispatched as slots
// free up.
func (q *AsyncQueuer[T, R]) Flush() {
	q.mu.Lock()
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
		q.waiting = false
	}
	expired := q.sweepLocked()
	var launches []*inflight[T, R]
	for len(q.items) > 0 && q.st.InFlight < q.concurrencyLocked() {
		fl, ok := q.takeLocked()
		if !ok {
			break
		}
		launches = append(launches, fl)
	}
	ctx := q.ctx
	snap := q.st
	q.mu.Unlock()

	q.deliverExpired(expired)
	for _, fl := range launches {
		q.launch(ctx, fl)
	}
	q.notifier.Notify(snap)
}

// Abort halts processing and settles every in-flight item with ErrAborted.
// A late completion of an aborted item is discarded. Buffered items are
// kept; Start resumes processing.
func (q *AsyncQueuer[T, R]) Abort() {
	q.mu.Lock()
	if q.aborted {
		q.mu.Unlock()
		return
	}
	q.aborted = true
	q.st.IsRunning = false
	q.st.Status = initialStatus(q.opts.Disabled)
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
		q.waiting = false
	}
	q.tickReady = false
	q.cancel()
	pending := make([]*inflight[T, R], 0, len(q.active))
	for fl := range q.active {
		pending = append(pending, fl)
	}
	q.mu.Unlock()

	var zero R
	for _, fl := range pending {
		q.settle(fl, zero, perrors.ErrAborted)
	}
}

// Clear discards all buffered items. Counters are preserved.
func (q *AsyncQueuer[T, R]) Clear() {
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
func (q *AsyncQueuer[T, R]) Reset() {
	q.mu.Lock()
	q.items = nil
	running := q.st.IsRunning
	inFlight := q.st.InFlight
	status := q.st.Status
	q.st = AsyncState{IsRunning: running, InFlight: inFlight, Status: status}
	onItemsChange := q.opts.OnItemsChange
	snap := q.st
	q.mu.Unlock()

	if onItemsChange != nil {
		onItemsChange(nil)
	}
	q.notifier.Notify(snap)
}

// Size returns the current number of buffered items.
func (q *AsyncQueuer[T, R]) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// SetOptions replaces the options wholesale. Disabling stops processing;
// a changed Concurrency applies to items dispatched from now on.
func (q *AsyncQueuer[T, R]) SetOptions(opts AsyncOptions[T, R]) error {
	if err := validateOptions(opts.MaxSize, opts.Wait, opts.ExpirationDuration); err != nil {
		return err
	}
	if err := validation.NonNegative(module, "concurrency", opts.Concurrency); err != nil {
		return err
	}

	q.mu.Lock()
	if opts.Concurrency != q.opts.Concurrency {
		q.group = newGroup(opts.Concurrency)
	}
	q.opts = opts
	if opts.Clock != nil {
		q.clk = opts.Clock
	}
	if opts.Disabled {
		q.st.IsRunning = false
		q.st.Status = state.Disabled
		if q.timer != nil {
			q.timer.Stop()
			q.timer = nil
			q.waiting = false
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
func (q *AsyncQueuer[T, R]) Options() AsyncOptions[T, R] {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.opts
}

// State returns the current state snapshot.
func (q *AsyncQueuer[T, R]) State() AsyncState {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.st
}

// Subscribe registers a listener notified with a snapshot after every
// state change. The returned function removes the listener.
func (q *AsyncQueuer[T, R]) Subscribe(fn func(AsyncState)) func() {
	return q.notifier.Subscribe(fn)
}

func (q *AsyncQueuer[T, R]) concurrencyLocked() int {
	if q.opts.Concurrency <= 0 {
		return 1
	}
	return q.opts.Concurrency
}

// scheduleLocked arranges for buffered items to be dispatched, returning
// any items dropped by the expiration sweep. With Wait set, the timer
// paces dispatches one per tick; otherwise the dispatcher goroutine is
// woken. Dispatching never happens on the caller's stack: errgroup.Go
// blocks while the concurrency limit is saturated, so a worker's own
// completion path must not call it.
func (q *AsyncQueuer[T, R]) scheduleLocked() []T {
	if !q.st.IsRunning || q.aborted || len(q.items) == 0 {
		return nil
	}
	expired := q.sweepLocked()
	if len(q.items) == 0 || q.st.InFlight >= q.concurrencyLocked() {
		return expired
	}

	if q.opts.Wait > 0 && !q.tickReady {
		if !q.waiting {
			q.waiting = true
			q.timer = time.AfterFunc(q.opts.Wait, q.onTick)
		}
		return expired
	}

	q.wakeLocked()
	return expired
}

func (q *AsyncQueuer[T, R]) onTick() {
	q.mu.Lock()
	q.timer = nil
	q.waiting = false
	if !q.st.IsRunning || q.aborted {
		q.mu.Unlock()
		return
	}
	q.tickReady = true
	q.wakeLocked()
	q.mu.Unlock()
}

// wakeLocked ensures a dispatcher goroutine is draining the buffer.
func (q *AsyncQueuer[T, R]) wakeLocked() {
	if q.dispatching {
		return
	}
	q.dispatching = true
	go q.dispatch()
}

// dispatch pops items and hands them to the worker group until the
// buffer empties, the concurrency limit is reached or the next dispatch
// is waiting on the Wait timer. It runs without holding the lock across
// group.Go, so a worker about to return can release its slot freely.
func (q *AsyncQueuer[T, R]) dispatch() {
	for {
		q.mu.Lock()
		if !q.st.IsRunning || q.aborted || len(q.items) == 0 || q.st.InFlight >= q.concurrencyLocked() {
			q.dispatching = false
			q.mu.Unlock()
			return
		}
		if q.opts.Wait > 0 {
			if !q.tickReady {
				if !q.waiting {
					q.waiting = true
					q.timer = time.AfterFunc(q.opts.Wait, q.onTick)
				}
				q.dispatching = false
				q.mu.Unlock()
				return
			}
			q.tickReady = false
		}
		expired := q.sweepLocked()
		fl, ok := q.takeLocked()
		ctx := q.ctx
		snap := q.st
		q.mu.Unlock()

		q.deliverExpired(expired)
		if !ok {
			continue
		}
		q.notifier.Notify(snap)
		q.launch(ctx, fl)
	}
}

// takeLocked pops one item and registers it as in flight.
func (q *AsyncQueuer[T, R]) takeLocked() (*inflight[T, R], bool) {
	item, ok := q.popLocked()
	if !ok {
		return nil, false
	}
	fl := &inflight[T, R]{item: item, start: time.Now()}
	q.active[fl] = struct{}{}
	q.st.InFlight++
	q.st.Status = state.Executing
	return fl, true
}

func (q *AsyncQueuer[T, R]) launch(ctx context.Context, fl *inflight[T, R]) {
	q.group.Go(func() error {
		q.run(ctx, fl)
		return nil
	})
}

func (q *AsyncQueuer[T, R]) run(ctx context.Context, fl *inflight[T, R]) {
	result, err := q.fn(ctx, fl.item)
	q.settle(fl, result, err)

	q.mu.Lock()
	expired := q.scheduleLocked()
	q.mu.Unlock()
	q.deliverExpired(expired)
}

// settle records one item's outcome exactly once. The first settle wins:
// an abort followed by a late function completion keeps the abort.
func (q *AsyncQueuer[T, R]) settle(fl *inflight[T, R], result R, err error) {
	fl.once.Do(func() {
		q.mu.Lock()
		delete(q.active, fl)
		q.st.InFlight--
		if err != nil {
			q.st.ErrorCount++
		} else {
			q.st.ExecutionCount++
			q.st.SuccessCount++
		}
		q.st.SettleCount++
		if q.st.InFlight == 0 && q.st.Status == state.Executing {
			if q.st.IsRunning {
				q.st.Status = state.Running
			} else {
				q.st.Status = initialStatus(q.opts.Disabled)
			}
		}
		opts := q.opts
		snap := q.st
		q.mu.Unlock()

		if err != nil {
			if opts.OnError != nil {
				opts.OnError(err)
			}
		} else if opts.OnSuccess != nil {
			opts.OnSuccess(result)
		}
		if opts.OnExecute != nil {
			opts.OnExecute(fl.item)
		}
		if opts.OnSettled != nil {
			opts.OnSettled()
		}

		out := ItemResult[T, R]{Item: fl.item, Duration: time.Since(fl.start)}
		switch {
		case err == nil:
			out.Result = result
		case opts.ThrowOnError || errors.Is(err, perrors.ErrAborted):
			out.Err = err
		}
		select {
		case q.results <- out:
		default:
		}

		q.notifier.Notify(snap)
	})
}

func (q *AsyncQueuer[T, R]) deliverExpired(expired []T) {
	if len(expired) == 0 {
		return
	}
	q.mu.Lock()
	onExpire := q.opts.OnExpire
	q.mu.Unlock()
	for _, it := range expired {
		if onExpire != nil {
			onExpire(it)
		}
		select {
		case q.results <- ItemResult[T, R]{Item: it, Err: perrors.ErrExpired}:
		default:
		}
	}
}

// sweepLocked drops expired items and returns them for OnExpire delivery.
func (q *AsyncQueuer[T, R]) sweepLocked() []T {
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

func (q *AsyncQueuer[T, R]) popLocked() (T, bool) {
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

func (q *AsyncQueuer[T, R]) itemsLocked() []T {
	out := make([]T, len(q.items))
	for i, e := range q.items {
		out[i] = e.item
	}
	return out
}
