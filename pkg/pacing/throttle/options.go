package throttle

import (
	"time"

	"github.com/gnrllybttr/pacer/pkg/common/state"
	"github.com/gnrllybttr/pacer/pkg/common/validation"
)

// Edges selects which edges of the throttle window trigger execution.
// The zero value is EdgeBoth, the conventional throttle behavior.
type Edges int

const (
	// EdgeBoth runs the first call of a window immediately and the latest
	// in-window call when the window ends.
	EdgeBoth Edges = iota

	// EdgeLeading runs the first call of a window immediately and drops
	// in-window calls.
	EdgeLeading

	// EdgeTrailing defers every call to the end of its window.
	EdgeTrailing
)

func (e Edges) leading() bool  { return e == EdgeLeading || e == EdgeBoth }
func (e Edges) trailing() bool { return e == EdgeTrailing || e == EdgeBoth }

// Options configures a Throttler. Options are treated as immutable;
// SetOptions replaces them wholesale rather than merging.
type Options[T any] struct {
	// Disabled stops the controller from accepting triggers.
	Disabled bool

	// Key is an optional identifier reported in state snapshots and metrics.
	Key string

	// Wait is the minimum spacing between executions.
	Wait time.Duration

	// Edges selects leading/trailing behavior. Default: EdgeBoth.
	Edges Edges

	// OnExecute is called after every execution with the arguments used.
	OnExecute func(arg T)
}

// AsyncOptions configures an AsyncThrottler.
type AsyncOptions[T, R any] struct {
	// Disabled stops the controller from accepting triggers. Calls on a
	// disabled async throttler fail with ErrDisabled.
	Disabled bool

	// Key is an optional identifier reported in state snapshots and metrics.
	Key string

	// Wait is the minimum spacing between executions.
	Wait time.Duration

	// Edges selects leading/trailing behavior. Default: EdgeBoth.
	Edges Edges

	// ThrowOnError controls whether wrapped-function errors are returned
	// to the caller whose call executed. When false (the default) a failed
	// execution returns the zero result and a nil error; the error is
	// still reported through OnError.
	ThrowOnError bool

	// OnSuccess is called after a successful execution with its result.
	OnSuccess func(result R)

	// OnError is called after a failed execution with the error.
	OnError func(err error)

	// OnSettled is called exactly once per execution, after success or failure.
	OnSettled func()
}

// State is an immutable snapshot of a Throttler.
type State struct {
	// ExecutionCount is the number of completed executions.
	ExecutionCount int

	// Status reflects the most recent transition.
	Status state.Status

	// LastExecutionTime is when the wrapped function last ran, zero if never.
	LastExecutionTime time.Time

	// NextExecutionTime is when the pending trailing execution is due,
	// zero if none is scheduled.
	NextExecutionTime time.Time

	// IsPending reports whether a trailing execution is scheduled.
	IsPending bool
}

// AsyncState is an immutable snapshot of an AsyncThrottler.
type AsyncState struct {
	ExecutionCount int
	SuccessCount   int
	ErrorCount     int
	SettleCount    int

	Status state.Status

	LastExecutionTime time.Time
	NextExecutionTime time.Time
	IsPending         bool
}

const module = "throttle"

func validateOptions(wait time.Duration) error {
	return validation.PositiveDuration(module, "wait", wait)
}

func initialStatus(disabled bool) state.Status {
	if disabled {
		return state.Disabled
	}
	return state.Idle
}
