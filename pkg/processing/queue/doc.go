/*
Package queue buffers items and processes them with a wrapped function on
the queue's own schedule, subject to capacity, ordering, concurrency and
expiration rules.

Items are always buffered first. Unlike the batch controller there is no
execute-immediately shortcut: processing happens only while the loop is
running, pulled one item at a time (sync) or up to Concurrency at once
(async). The loop runs from construction unless Stopped is set.

Basic usage:

	q, _ := queue.New(uploadChunk, queue.Options[Chunk]{
		MaxSize: 1000,
	})
	if !q.AddItem(chunk) {
		// queue full, chunk was not buffered
	}

Ordering:

AddItemsTo and GetItemsFrom pick which end of the buffer insertions and
retrievals touch. The defaults (back insertion, front retrieval) give
FIFO; back retrieval gives LIFO. AddItem also accepts an explicit
position override per call:

	q.AddItem(urgent, queue.PositionFront)

Expiration:

With ExpirationDuration set, every retrieval first sweeps out items that
have been buffered too long. Each swept item fires OnExpire and counts
toward ExpirationCount.

Async variant:

AsyncQueuer processes items with a context-aware function, bounds
in-flight work with Concurrency and reports each settled item on the
Results channel. One item's failure never stalls the rest; Abort halts
processing and settles in-flight items with ErrAborted:

	aq, _ := queue.NewAsync(fetchPage, queue.AsyncOptions[string, Page]{
		Concurrency: 4,
	})
	aq.AddItem(url)
	res := <-aq.Results()

Metrics:

NewWithMetrics wraps a queuer with Prometheus gauges and counters for
depth, processed items, rejections and expirations.

Thread Safety:

All operations are safe for concurrent use.
*/
package queue
