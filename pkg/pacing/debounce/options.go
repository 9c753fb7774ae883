package debounce

import (
	"time"

	"github.com/gnrllybttr/pacer/pkg/common/state"
	"github.com/gnrllybttr/pacer/pkg/common/validation"
)

// Edges selects which edge of the quiet window triggers execution.
// The zero value is EdgeTrailing, the conventional debounce behavior.
type Edges int

const (
	// EdgeTrailing runs the function once the quiet window ends.
	EdgeTrailing Edges = iota

	// EdgeLeading runs the function immediately on the first call of a
	// burst and suppresses execution for the rest of the window.
	EdgeLeading

	// EdgeBoth runs on the leading edge and, when further calls arrive
	// during the window, again on the trailing edge.
	EdgeBoth
)

func (e Edges) leading() bool  { return e == EdgeLeading || e == EdgeBoth }
func (e Edges) trailing() bool { return e == EdgeTrailing || e == EdgeBoth }

// Options configures a Debouncer. Options are treated as immutable;
// SetOptions replaces them wholesale rather than merging.
type Options[T any] struct {
	// Disabled stops the controller from accepting triggers.
	Disabled bool

	// Key is an optional identifier reported in state snapshots and metrics.
	Key string

	// Wait is the quiet period that must elapse after the last trigger
	// before the trailing execution fires.
	Wait time.Duration

	// Edges selects leading/trailing behavior. Default: EdgeTrailing.
	Edges Edges

	// OnExecute is called after every execution with the arguments used.
	OnExecute func(arg T)
}

// AsyncOptions configures an AsyncDebouncer.
type AsyncOptions[T, R any] struct {
	// Disabled stops the controller from accepting triggers. Calls on a
	// disabled async debouncer fail with ErrDisabled.
	Disabled bool

	// Key is an optional identifier reported in state snapshots and metrics.
	Key string

	// Wait is the quiet period that must elapse after the last trigger
	// before the trailing execution fires.
	Wait time.Duration

	// Edges selects leading/trailing behavior. Default: EdgeTrailing.
	Edges Edges

	// ThrowOnError controls whether wrapped-function errors are returned
	// to waiting callers. When false (the default) a failed execution
	// resolves callers with the zero result and a nil error; the error is
	// still reported through OnError. Aborts are always returned.
	ThrowOnError bool

	// OnSuccess is called after a successful execution with its result.
	OnSuccess func(result R)

	// OnError is called after a failed execution with the error.
	OnError func(err error)

	// OnSettled is called exactly once per execution, after success or failure.
	OnSettled func()
}

// State is an immutable snapshot of a Debouncer. A new snapshot replaces
// the previous one on every observable change.
type State struct {
	// ExecutionCount is the number of completed executions.
	ExecutionCount int

	// Status reflects the most recent transition.
	Status state.Status

	// IsPending reports whether a quiet-window timer is armed.
	IsPending bool
}

// AsyncState is an immutable snapshot of an AsyncDebouncer.
type AsyncState struct {
	// ExecutionCount is the number of completed executions.
	ExecutionCount int

	// SuccessCount is the number of executions that returned no error.
	SuccessCount int

	// ErrorCount is the number of executions that returned an error.
	ErrorCount int

	// SettleCount is the number of executions that settled either way.
	SettleCount int

	// Status reflects the most recent transition.
	Status state.Status

	// IsPending reports whether a quiet-window timer is armed.
	IsPending bool
}

const module = "debounce"

func validateOptions(wait time.Duration) error {
	return validation.NonNegativeDuration(module, "wait", wait)
}

func initialStatus(disabled bool) state.Status {
	if disabled {
		return state.Disabled
	}
	return state.Idle
}
