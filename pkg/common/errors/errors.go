package errors

import "errors"

// Common error types used across the pacer library

var (
	// ErrDisabled indicates that a mutating call was made on a disabled controller
	ErrDisabled = errors.New("controller is disabled")

	// ErrThrottled indicates that a call arrived inside an active throttle window
	ErrThrottled = errors.New("call throttled")

	// ErrRateLimited indicates that a call was rejected by window admission control
	ErrRateLimited = errors.New("rate limited")

	// ErrQueueFull indicates that an item was rejected because the queue is at capacity
	ErrQueueFull = errors.New("queue is full")

	// ErrAborted indicates that a pending operation was explicitly aborted
	ErrAborted = errors.New("operation aborted")

	// ErrExpired indicates that a queued item outlived its expiration duration
	ErrExpired = errors.New("item expired")

	// ErrAttemptsExhausted indicates that a retry sequence used all allowed attempts
	ErrAttemptsExhausted = errors.New("retry attempts exhausted")

	// ErrTimeout indicates that an operation exceeded its time budget
	ErrTimeout = errors.New("operation timed out")

	// ErrInvalidConfiguration indicates invalid configuration parameters
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// IsRetryable returns true if the error indicates a condition that might
// be resolved by retrying the operation
func IsRetryable(err error) bool {
	return errors.Is(err, ErrThrottled) || errors.Is(err, ErrRateLimited)
}

// IsRejection returns true if the error indicates a capacity or admission
// rejection rather than a failure of the wrapped function
func IsRejection(err error) bool {
	return errors.Is(err, ErrQueueFull) || errors.Is(err, ErrRateLimited)
}
