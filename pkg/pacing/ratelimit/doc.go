/*
Package ratelimit admits at most a configured number of executions of a
wrapped function per time window, rejecting the rest.

Unlike the debounce and throttle controllers, a rate limiter never defers
work: admission is decided synchronously when MaybeExecute is called, from
the recorded timestamps of past admitted executions.

Basic usage:

	rl, _ := ratelimit.New(sendNotification, ratelimit.Options[Notification]{
		Limit:  100,
		Window: time.Minute,
	})
	if !rl.MaybeExecute(n) {
		log.Printf("notification dropped, next slot in %s", rl.UntilNextWindow())
	}

Window types:

WindowFixed (the default) anchors the window at now-window on every call.
WindowSliding anchors it at the most recent admitted execution, so a
sustained burst keeps older executions counted until they age out relative
to the burst's tail.

Rejection is not an error. The sync limiter returns false, the async
limiter returns (zero, false, nil); both bump RejectionCount, set
IsExceeded and fire OnReject. Reset clears the history and the exceeded
flag.

Metrics:

NewWithMetrics wraps a limiter with Prometheus counters for admissions and
rejections and a gauge for remaining window capacity:

	rl, _ := ratelimit.NewWithMetrics(send, opts, "notifications", metrics.Config{Enabled: true})

Thread Safety:

All operations are safe for concurrent use.
*/
package ratelimit
