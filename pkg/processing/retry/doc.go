/*
Package retry runs a context-aware function until it succeeds or the
sequence gives up, sleeping a configurable backoff between attempts.

Basic usage:

	r, _ := retry.New(fetchUser, retry.Options[string, User]{
		MaxAttempts: 5,
		BaseWait:    200 * time.Millisecond,
		Backoff:     retry.BackoffExponential,
	})
	user, err := r.Execute(ctx, id)

A sequence ends on the first success, when MaxAttempts is exhausted, when
a time budget runs out, when the caller's context is done, or when Abort
is called from another goroutine. Exhaustion returns an error wrapping
ErrAttemptsExhausted and the last attempt's error.

Backoff:

BackoffExponential doubles the delay per attempt (BaseWait, 2*BaseWait,
4*BaseWait, ...), BackoffLinear grows it arithmetically and BackoffFixed
keeps it constant. Jitter adds a random delay in [0, Jitter) to each
wait, and MaxWait caps the final value.

Budgets:

MaxExecutionTime bounds each attempt through a context deadline; an
attempt that exceeds it fails and the sequence may retry.
MaxTotalExecutionTime bounds the whole sequence and is checked before
each attempt.

Abort:

Abort cancels the in-flight sequence: the pending Execute returns
ErrAborted and OnAbort fires. A completion racing the abort is discarded,
so the aborted outcome is final.

Thread Safety:

All operations are safe for concurrent use.
*/
package retry
