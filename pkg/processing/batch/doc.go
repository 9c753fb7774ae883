/*
Package batch accumulates items and flushes them to a wrapped function as
a single grouped call when a size threshold, custom predicate or timeout
is met.

Basic usage:

	b, _ := batch.New(insertRows, batch.Options[Row]{
		MaxSize: 100,
		Wait:    time.Second,
	})
	b.AddItem(row) // flushes []Row once 100 accumulate or 1s passes

The triggers run from construction unless Stopped is set, in which case
items buffer until Start.

A flush snapshots the buffer, clears it and cancels the pending timeout,
then invokes the function with the snapshot. The timeout timer is armed
when the first item of a batch arrives and fires at most once per batch.

The ShouldExecute predicate replaces the MaxSize check when supplied; it
sees the full buffer after every insertion:

	batch.Options[Event]{
		ShouldExecute: func(evs []Event) bool { return hasUrgent(evs) },
	}

Stop cancels the pending timeout but keeps the buffer, so items stay
ready for a manual Flush.

Async variant:

AsyncBatcher wraps a context-aware function returning a result. Threshold
and timeout flushes run in the background and report through hooks;
Execute flushes synchronously and returns the result. Items from batches
that settled with an error accumulate in a failed-items buffer:

	ab, _ := batch.NewAsync(bulkIndex, batch.AsyncOptions[Doc, Receipt]{
		MaxSize: 500,
	})
	ab.AddItem(doc)
	failed := ab.FailedItems() // re-add for another attempt if desired

Thread Safety:

All operations are safe for concurrent use.
*/
package batch
