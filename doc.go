/*
Package pacer provides execution-pacing primitives for Go applications:
debouncing, throttling, rate limiting, queueing, batching, and retrying.

Each primitive wraps a user-supplied function and controls when and how
often it runs. They target interactive and bursty workloads (search-as-you-type,
scroll handlers, bulk API calls) where uncontrolled invocation causes excess
work, exceeded quotas, or jank.

Event Pacing (pkg/pacing):
  - debounce: run only after a quiet period, coalescing rapid calls
  - throttle: cap frequency with leading/trailing edge control
  - ratelimit: fixed or sliding window admission control

Item Processing (pkg/processing):
  - queue: FIFO/LIFO buffering with concurrency and expiration
  - batch: group items by size threshold, predicate, or timeout
  - retry: backoff-driven retry with attempt and time budgets

All controllers share a common shape: an immutable Options struct, an
immutable State snapshot replaced atomically on every observable change,
and a Subscribe method broadcasting each new snapshot to registered
listeners. Sync controllers take plain functions; async controllers take
context-aware functions returning a result and an error.

Example usage:

	import (
		"github.com/gnrllybttr/pacer/pkg/pacing/debounce"
		"github.com/gnrllybttr/pacer/pkg/processing/batch"
	)

	search, cancel := debounce.Func(300*time.Millisecond, runSearch)
	defer cancel()
	search("go pacing") // runs once input goes quiet

	b, _ := batch.New(sendBulk, batch.Options[Event]{MaxSize: 50, Wait: time.Second})
	b.AddItem(Event{Name: "click"})
*/
package pacer
