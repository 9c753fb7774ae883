/*
Package throttle caps how often a wrapped function may run: at most once
per Wait interval, with configurable leading and trailing edges.

Unlike debouncing, which waits for quiet, throttling guarantees steady
forward progress under sustained load. Scroll and resize handlers are the
canonical use case.

Basic usage:

	th, _ := throttle.New(renderFrame, throttle.Options[Position]{
		Wait: 100 * time.Millisecond,
	})
	th.MaybeExecute(pos) // runs immediately (leading edge)
	th.MaybeExecute(pos) // coalesced into one trailing run at +100ms

By default both edges are active: the first call of a window runs
immediately and the latest in-window call runs when the window ends.
EdgeLeading drops in-window calls instead; EdgeTrailing defers even the
first call.

Flush runs a pending trailing execution early; Cancel discards it.

Async variant:

AsyncThrottler distinguishes callers rejected by an active window from
ordinary coalescing: an in-window MaybeExecute returns ErrThrottled to its
caller even while a trailing execution remains scheduled. The trailing
run's outcome is observable through OnSuccess/OnError/OnSettled and state
snapshots, not through the rejected caller's return values.

	at, _ := throttle.NewAsync(persist, throttle.AsyncOptions[Doc, Receipt]{
		Wait: time.Second,
	})
	receipt, err := at.MaybeExecute(ctx, doc)
	if errors.Is(err, pacererrors.ErrThrottled) {
		// persisted later by the trailing execution
	}

Thread Safety:

All operations are safe for concurrent use.
*/
package throttle
