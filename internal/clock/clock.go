// Package clock lets time-dependent code take the current time as a
// dependency.
package clock

import "time"

//go:generate mockgen -destination=mock/mock_clock.go -package=mockclock -source=clock.go

// Clock provides the current time
type Clock interface {
	Now() time.Time
}

// Real reads the system clock
type Real struct{}

// Now returns the current UTC time
func (c *Real) Now() time.Time {
	return time.Now().UTC()
}

// New returns the system clock
func New() Clock {
	return &Real{}
}
