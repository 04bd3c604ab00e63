// Package system provides a real clock implementation.
package system

import "time"

// Clock implements watch.Clock using time.Now.
type Clock struct{}

// New creates a new Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current local time. Active-hours decisions are wall-clock
// local by contract.
func (Clock) Now() time.Time {
	return time.Now()
}
