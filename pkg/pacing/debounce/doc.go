/*
Package debounce delays execution of a wrapped function until a quiet
period has elapsed since the last trigger, coalescing rapid call bursts
into a single execution.

Basic usage:

	d, _ := debounce.New(runSearch, debounce.Options[string]{
		Wait: 300 * time.Millisecond,
	})
	d.MaybeExecute("go pac")
	d.MaybeExecute("go pacing") // restarts the quiet window; only this runs

Each trigger replaces the stored arguments, so the trailing execution
always uses the most recent call's arguments. This is intentional
coalescing: intermediate arguments are discarded, not queued.

Edges:

By default the function runs on the trailing edge, once the quiet window
ends. EdgeLeading runs it immediately on the first call of a burst instead,
and EdgeBoth does both (the trailing run fires only when further calls
arrived during the window):

	d, _ := debounce.New(save, debounce.Options[Doc]{
		Wait:  time.Second,
		Edges: debounce.EdgeBoth,
	})

Async variant:

AsyncDebouncer wraps a context-aware function returning a result. All
callers that trigger during one quiet window block on the same pending
execution and observe its outcome:

	ad, _ := debounce.NewAsync(fetch, debounce.AsyncOptions[string, []Result]{
		Wait: 250 * time.Millisecond,
	})
	results, err := ad.MaybeExecute(ctx, query)

Convenience wrapper:

	search, cancel := debounce.Func(300*time.Millisecond, runSearch)
	search("query")
	defer cancel()

State and observation:

Both controllers expose State() snapshots and Subscribe for change
notifications after every observable mutation. Snapshots are plain
values and safe to compare.

Thread Safety:

All operations are safe for concurrent use.
*/
package debounce
