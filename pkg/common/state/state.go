// Package state holds the status enum and change-notification broadcast
// shared by every pacer controller.
package state

// Status describes what a controller is currently doing. Every controller
// state snapshot carries a Status; it always reflects the most recent
// transition.
type Status int

const (
	// Disabled means the controller's options have Enabled=false and
	// mutating calls are rejected or ignored.
	Disabled Status = iota

	// Idle means the controller has no pending timer and no work in flight.
	Idle

	// Pending means a timer is armed for a deferred execution.
	Pending

	// Executing means the wrapped function is currently running.
	Executing

	// Running means a queue-style controller is started and processing
	// items as they become available.
	Running
)

// String returns a human-readable name for the status.
func (s Status) String() string {
	switch s {
	case Disabled:
		return "disabled"
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Executing:
		return "executing"
	case Running:
		return "running"
	default:
		return "unknown"
	}
}
