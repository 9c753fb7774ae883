package queue

import (
	"time"

	"github.com/gnrllybttr/pacer/pkg/common/clock"
	"github.com/gnrllybttr/pacer/pkg/common/state"
	"github.com/gnrllybttr/pacer/pkg/common/validation"
)

// Position selects which end of the buffer an operation touches.
// PositionDefault resolves to the conventional end for each option:
// PositionBack for AddItemsTo, PositionFront for GetItemsFrom, which
// together give FIFO ordering.
type Position int

const (
	// PositionDefault defers to the option's conventional end.
	PositionDefault Position = iota

	// PositionFront addresses the head of the buffer.
	PositionFront

	// PositionBack addresses the tail of the buffer.
	PositionBack
)

// Options configures a Queuer. Options are treated as immutable;
// SetOptions replaces them wholesale rather than merging.
type Options[T any] struct {
	// Disabled stops the controller from accepting items.
	Disabled bool

	// Key is an optional identifier reported in state snapshots and metrics.
	Key string

	// MaxSize caps the buffer; zero means unbounded. Items arriving at a
	// full buffer are rejected, leaving the buffer untouched.
	MaxSize int

	// AddItemsTo selects which end AddItem inserts at. Default: back.
	AddItemsTo Position

	// GetItemsFrom selects which end retrieval removes from. Default: front.
	// Back-insertion with front-retrieval is FIFO; back with back is LIFO.
	GetItemsFrom Position

	// Wait is an optional delay between successive pulls while processing.
	Wait time.Duration

	// ExpirationDuration drops items buffered longer than this before
	// every retrieval; zero disables expiration.
	ExpirationDuration time.Duration

	// Stopped creates the queue paused so items buffer until Start is
	// called. The zero value processes items as they arrive.
	Stopped bool

	// Clock supplies the current time for expiration checks. Defaults to
	// the system clock.
	Clock clock.Clock

	// OnExecute is called after every processed item.
	OnExecute func(item T)

	// OnItemsChange is called with the buffer contents after every
	// insertion or removal.
	OnItemsChange func(items []T)

	// OnReject is called for every item rejected by the size cap.
	OnReject func(item T)

	// OnExpire is called for every item dropped by an expiration sweep.
	OnExpire func(item T)
}

// AsyncOptions configures an AsyncQueuer.
type AsyncOptions[T, R any] struct {
	// Disabled stops the controller from accepting items.
	Disabled bool

	// Key is an optional identifier reported in state snapshots and metrics.
	Key string

	// MaxSize caps the buffer; zero means unbounded.
	MaxSize int

	// AddItemsTo selects which end AddItem inserts at. Default: back.
	AddItemsTo Position

	// GetItemsFrom selects which end retrieval removes from. Default: front.
	GetItemsFrom Position

	// Wait is an optional delay between successive pulls while processing.
	Wait time.Duration

	// ExpirationDuration drops items buffered longer than this before
	// every retrieval; zero disables expiration.
	ExpirationDuration time.Duration

	// Concurrency bounds simultaneous in-flight executions. Zero means 1.
	Concurrency int

	// Stopped creates the queue paused so items buffer until Start is
	// called. The zero value processes items as they arrive.
	Stopped bool

	// Clock supplies the current time for expiration checks. Defaults to
	// the system clock.
	Clock clock.Clock

	// ThrowOnError controls whether a failed item's error appears in its
	// ItemResult. When false (the default) a failed item settles with the
	// zero result and a nil Err; the error is still reported through
	// OnError and the error counter. Aborted items always carry ErrAborted.
	ThrowOnError bool

	// OnExecute is called after every settled item.
	OnExecute func(item T)

	// OnItemsChange is called with the buffer contents after every
	// insertion or removal.
	OnItemsChange func(items []T)

	// OnReject is called for every item rejected by the size cap.
	OnReject func(item T)

	// OnExpire is called for every item dropped by an expiration sweep.
	OnExpire func(item T)

	// OnSuccess is called after a successful execution with its result.
	OnSuccess func(result R)

	// OnError is called after a failed execution with the error.
	OnError func(err error)

	// OnSettled is called exactly once per execution, after success or failure.
	OnSettled func()
}

// State is an immutable snapshot of a Queuer.
type State struct {
	// Size is the current number of buffered items.
	Size int

	// ExecutionCount is the number of processed items.
	ExecutionCount int

	// AddItemCount is the number of accepted insertions.
	AddItemCount int

	// RejectionCount is the number of insertions refused by the size cap.
	RejectionCount int

	// ExpirationCount is the number of items dropped by expiration sweeps.
	ExpirationCount int

	// IsRunning reports whether the processing loop is active.
	IsRunning bool

	// Status reflects the most recent transition.
	Status state.Status
}

// AsyncState is an immutable snapshot of an AsyncQueuer.
type AsyncState struct {
	// Size is the current number of buffered items.
	Size int

	// InFlight is the number of items currently executing.
	InFlight int

	// ExecutionCount is the number of items processed successfully.
	ExecutionCount int

	// AddItemCount is the number of accepted insertions.
	AddItemCount int

	// RejectionCount is the number of insertions refused by the size cap.
	RejectionCount int

	// ExpirationCount is the number of items dropped by expiration sweeps.
	ExpirationCount int

	// SuccessCount is the number of items that settled without error.
	SuccessCount int

	// ErrorCount is the number of items that settled with an error.
	ErrorCount int

	// SettleCount is the number of items that settled either way.
	SettleCount int

	// IsRunning reports whether the processing loop is active.
	IsRunning bool

	// Status reflects the most recent transition.
	Status state.Status
}

const module = "queue"

func validateOptions(maxSize int, wait, expiration time.Duration) error {
	if err := validation.NonNegative(module, "maxSize", maxSize); err != nil {
		return err
	}
	if err := validation.NonNegativeDuration(module, "wait", wait); err != nil {
		return err
	}
	return validation.NonNegativeDuration(module, "expirationDuration", expiration)
}

func initialStatus(disabled bool) state.Status {
	if disabled {
		return state.Disabled
	}
	return state.Idle
}

func (p Position) front(def Position) bool {
	if p == PositionDefault {
		p = def
	}
	return p == PositionFront
}
