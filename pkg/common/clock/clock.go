// Package clock provides the time source abstraction used by controllers
// that compare wall-clock timestamps. Injecting a Clock makes window
// arithmetic and expiration sweeps deterministic in tests.
package clock

import "time"

// Clock provides the current time. It can be mocked for testing.
type Clock interface {
	Now() time.Time
}

// System implements Clock using the system time.
type System struct{}

// Now returns the current system time.
func (System) Now() time.Time {
	return time.Now()
}
