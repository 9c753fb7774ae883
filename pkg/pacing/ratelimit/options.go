package ratelimit

import (
	"time"

	"github.com/gnrllybttr/pacer/pkg/common/clock"
	"github.com/gnrllybttr/pacer/pkg/common/state"
	"github.com/gnrllybttr/pacer/pkg/common/validation"
)

// WindowType selects how the admission window is anchored.
// The zero value is WindowFixed.
type WindowType int

const (
	// WindowFixed anchors the window at now-window on every call.
	WindowFixed WindowType = iota

	// WindowSliding anchors the window at the most recent execution,
	// so a burst keeps the window open until executions age out.
	WindowSliding
)

// Options configures a RateLimiter. Options are treated as immutable;
// SetOptions replaces them wholesale rather than merging.
type Options[T any] struct {
	// Disabled stops the controller from admitting calls.
	Disabled bool

	// Key is an optional identifier reported in state snapshots and metrics.
	Key string

	// Limit is the maximum number of executions admitted per window.
	Limit int

	// Window is the duration over which executions are counted.
	Window time.Duration

	// WindowType selects fixed or sliding anchoring. Default: WindowFixed.
	WindowType WindowType

	// Clock supplies the current time. Defaults to the system clock.
	Clock clock.Clock

	// OnExecute is called after every admitted execution with its arguments.
	OnExecute func(arg T)

	// OnReject is called for every rejected call with its arguments.
	OnReject func(arg T)
}

// AsyncOptions configures an AsyncRateLimiter.
type AsyncOptions[T, R any] struct {
	// Disabled stops the controller from admitting calls. Calls on a
	// disabled async rate limiter fail with ErrDisabled.
	Disabled bool

	// Key is an optional identifier reported in state snapshots and metrics.
	Key string

	// Limit is the maximum number of executions admitted per window.
	Limit int

	// Window is the duration over which executions are counted.
	Window time.Duration

	// WindowType selects fixed or sliding anchoring. Default: WindowFixed.
	WindowType WindowType

	// Clock supplies the current time. Defaults to the system clock.
	Clock clock.Clock

	// ThrowOnError controls whether wrapped-function errors are returned
	// to the caller. When false (the default) a failed execution returns
	// the zero result and a nil error; the error is still reported through
	// OnError.
	ThrowOnError bool

	// OnReject is called for every rejected call with its arguments.
	OnReject func(arg T)

	// OnSuccess is called after a successful execution with its result.
	OnSuccess func(result R)

	// OnError is called after a failed execution with the error.
	OnError func(err error)

	// OnSettled is called exactly once per execution, after success or failure.
	OnSettled func()
}

// State is an immutable snapshot of a RateLimiter.
type State struct {
	// ExecutionCount is the number of admitted executions.
	ExecutionCount int

	// RejectionCount is the number of rejected calls.
	RejectionCount int

	// IsExceeded reports whether the most recent call was rejected.
	// Reset clears it.
	IsExceeded bool

	// Status reflects the most recent transition.
	Status state.Status
}

// AsyncState is an immutable snapshot of an AsyncRateLimiter.
type AsyncState struct {
	// ExecutionCount is the number of admitted executions.
	ExecutionCount int

	// RejectionCount is the number of rejected calls.
	RejectionCount int

	// SuccessCount is the number of executions that returned no error.
	SuccessCount int

	// ErrorCount is the number of executions that returned an error.
	ErrorCount int

	// SettleCount is the number of executions that settled either way.
	SettleCount int

	// IsExceeded reports whether the most recent call was rejected.
	IsExceeded bool

	// Status reflects the most recent transition.
	Status state.Status
}

const module = "ratelimit"

func validateOptions(limit int, window time.Duration) error {
	if err := validation.Positive(module, "limit", limit); err != nil {
		return err
	}
	return validation.PositiveDuration(module, "window", window)
}

func initialStatus(disabled bool) state.Status {
	if disabled {
		return state.Disabled
	}
	return state.Idle
}
