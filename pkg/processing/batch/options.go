package batch

import (
	"time"

	"github.com/gnrllybttr/pacer/pkg/common/state"
	"github.com/gnrllybttr/pacer/pkg/common/validation"
)

// Options configures a Batcher. Options are treated as immutable;
// SetOptions replaces them wholesale rather than merging.
type Options[T any] struct {
	// Disabled stops the controller from accepting items.
	Disabled bool

	// Key is an optional identifier reported in state snapshots and metrics.
	Key string

	// MaxSize flushes the buffer as soon as it reaches this many items;
	// zero disables the size trigger.
	MaxSize int

	// Wait flushes the buffer this long after the first buffered item;
	// zero disables the timeout trigger.
	Wait time.Duration

	// ShouldExecute, when set, replaces the MaxSize check: it is called
	// with the full buffer after every insertion and a true return
	// flushes immediately.
	ShouldExecute func(items []T) bool

	// Stopped creates the batcher paused so items buffer until Start is
	// called. The zero value evaluates the flush triggers as items arrive.
	Stopped bool

	// OnExecute is called after every flush with the batch processed.
	OnExecute func(items []T)

	// OnItemsChange is called with the buffer contents after every
	// insertion or flush.
	OnItemsChange func(items []T)
}

// AsyncOptions configures an AsyncBatcher.
type AsyncOptions[T, R any] struct {
	// Disabled stops the controller from accepting items.
	Disabled bool

	// Key is an optional identifier reported in state snapshots and metrics.
	Key string

	// MaxSize flushes the buffer as soon as it reaches this many items;
	// zero disables the size trigger.
	MaxSize int

	// Wait flushes the buffer this long after the first buffered item;
	// zero disables the timeout trigger.
	Wait time.Duration

	// ShouldExecute, when set, replaces the MaxSize check.
	ShouldExecute func(items []T) bool

	// Stopped creates the batcher paused so items buffer until Start is
	// called. The zero value evaluates the flush triggers as items arrive.
	Stopped bool

	// ThrowOnError controls whether Execute returns a failed batch's
	// error to its caller. When false (the default) Execute returns the
	// zero result and a nil error; the error still reports through
	// OnError and the failed snapshot is appended to FailedItems either
	// way. Background flushes have no caller and always use the hooks.
	ThrowOnError bool

	// OnExecute is called after every settled flush with the batch processed.
	OnExecute func(items []T)

	// OnItemsChange is called with the buffer contents after every
	// insertion or flush.
	OnItemsChange func(items []T)

	// OnSuccess is called after a successful flush with its result.
	OnSuccess func(result R)

	// OnError is called after a failed flush with the error.
	OnError func(err error)

	// OnSettled is called exactly once per flush, after success or failure.
	OnSettled func()
}

// State is an immutable snapshot of a Batcher.
type State struct {
	// Size is the current number of buffered items.
	Size int

	// ExecutionCount is the number of flushes performed.
	ExecutionCount int

	// TotalItemsProcessed is the number of items flushed across all batches.
	TotalItemsProcessed int

	// IsRunning reports whether triggers are active.
	IsRunning bool

	// IsPending reports whether a timeout flush is armed.
	IsPending bool

	// Status reflects the most recent transition.
	Status state.Status
}

// AsyncState is an immutable snapshot of an AsyncBatcher.
type AsyncState struct {
	// Size is the current number of buffered items.
	Size int

	// ExecutionCount is the number of flushes that settled successfully.
	ExecutionCount int

	// TotalItemsProcessed is the number of items flushed across all batches.
	TotalItemsProcessed int

	// SuccessCount is the number of flushes that settled without error.
	SuccessCount int

	// ErrorCount is the number of flushes that settled with an error.
	ErrorCount int

	// SettleCount is the number of flushes that settled either way.
	SettleCount int

	// FailedItemCount is the number of items currently held in the
	// failed-items buffer.
	FailedItemCount int

	// IsRunning reports whether triggers are active.
	IsRunning bool

	// IsPending reports whether a timeout flush is armed.
	IsPending bool

	// Status reflects the most recent transition.
	Status state.Status
}

const module = "batch"

func validateOptions(maxSize int, wait time.Duration) error {
	if err := validation.NonNegative(module, "maxSize", maxSize); err != nil {
		return err
	}
	return validation.NonNegativeDuration(module, "wait", wait)
}

func initialStatus(disabled bool) state.Status {
	if disabled {
		return state.Disabled
	}
	return state.Idle
}
