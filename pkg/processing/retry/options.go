package retry

import (
	"time"

	"github.com/gnrllybttr/pacer/pkg/common/clock"
	"github.com/gnrllybttr/pacer/pkg/common/state"
	"github.com/gnrllybttr/pacer/pkg/common/validation"
)

// Backoff selects how the delay before each retry grows with the attempt
// number. The zero value is BackoffExponential.
type Backoff int

const (
	// BackoffExponential waits BaseWait*2^(n-1) before attempt n+1.
	BackoffExponential Backoff = iota

	// BackoffLinear waits BaseWait*n before attempt n+1.
	BackoffLinear

	// BackoffFixed waits BaseWait before every retry.
	BackoffFixed
)

const (
	defaultMaxAttempts = 3
	defaultBaseWait    = 100 * time.Millisecond
)

// Options configures a Retryer. Options are treated as immutable;
// SetOptions replaces them wholesale rather than merging.
type Options[T, R any] struct {
	// Disabled stops the controller from executing. Execute on a disabled
	// retryer fails with ErrDisabled.
	Disabled bool

	// Key is an optional identifier reported in state snapshots and metrics.
	Key string

	// MaxAttempts is the total number of attempts, including the first.
	// Zero means 3.
	MaxAttempts int

	// Backoff selects the delay growth curve. Default: BackoffExponential.
	Backoff Backoff

	// BaseWait is the base delay fed to the backoff formula. Zero means
	// 100ms.
	BaseWait time.Duration

	// MaxWait caps the computed delay, jitter included; zero means no cap.
	MaxWait time.Duration

	// Jitter adds a random delay in [0, Jitter) to every backoff wait.
	Jitter time.Duration

	// SuppressErrors makes Execute return the zero result and a nil error
	// when all attempts fail. Errors still reach OnError per attempt.
	// Aborts, context cancellation and budget timeouts are returned
	// regardless.
	SuppressErrors bool

	// MaxExecutionTime bounds each individual attempt via a context
	// deadline; zero means unbounded.
	MaxExecutionTime time.Duration

	// MaxTotalExecutionTime bounds the whole retry sequence. It is
	// checked before each attempt; zero means unbounded.
	MaxTotalExecutionTime time.Duration

	// Clock supplies the current time for the total budget check.
	// Defaults to the system clock.
	Clock clock.Clock

	// OnExecute is called after a terminal success with the arguments used.
	OnExecute func(arg T)

	// OnRetry is called before each retry with the upcoming 1-based
	// attempt number.
	OnRetry func(attempt int)

	// OnError is called after every failed attempt with the error.
	OnError func(err error)

	// OnSuccess is called after a terminal success with the result.
	OnSuccess func(result R)

	// OnSettled is called exactly once per Execute, after the sequence
	// settles either way.
	OnSettled func()

	// OnAbort is called when Abort cancels an in-flight sequence.
	OnAbort func()
}

// State is an immutable snapshot of a Retryer.
type State struct {
	// CurrentAttempt is the 1-based attempt in flight, zero when idle.
	CurrentAttempt int

	// AttemptCount is the number of attempts started across all sequences.
	AttemptCount int

	// ExecutionCount is the number of completed executions: sequences
	// that settled successfully.
	ExecutionCount int

	// SuccessCount is the number of sequences that settled successfully.
	SuccessCount int

	// ErrorCount is the number of failed attempts across all sequences.
	ErrorCount int

	// SettleCount is the number of sequences that settled either way.
	SettleCount int

	// IsExecuting reports whether a sequence is in flight.
	IsExecuting bool

	// Status reflects the most recent transition.
	Status state.Status
}

const module = "retry"

func validateOptions[T, R any](opts Options[T, R]) error {
	if err := validation.NonNegative(module, "maxAttempts", opts.MaxAttempts); err != nil {
		return err
	}
	for _, d := range []struct {
		field string
		value time.Duration
	}{
		{"baseWait", opts.BaseWait},
		{"maxWait", opts.MaxWait},
		{"jitter", opts.Jitter},
		{"maxExecutionTime", opts.MaxExecutionTime},
		{"maxTotalExecutionTime", opts.MaxTotalExecutionTime},
	} {
		if err := validation.NonNegativeDuration(module, d.field, d.value); err != nil {
			return err
		}
	}
	return nil
}

func (o Options[T, R]) maxAttempts() int {
	if o.MaxAttempts <= 0 {
		return defaultMaxAttempts
	}
	return o.MaxAttempts
}

func (o Options[T, R]) baseWait() time.Duration {
	if o.BaseWait <= 0 {
		return defaultBaseWait
	}
	return o.BaseWait
}

func initialStatus(disabled bool) state.Status {
	if disabled {
		return state.Disabled
	}
	return state.Idle
}
