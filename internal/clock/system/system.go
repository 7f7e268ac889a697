// Package system provides the wall-clock Clock implementation.
package system

import "time"

// Clock returns the real current time.
type Clock struct{}

// New constructs a system Clock.
func New() Clock { return Clock{} }

// Now returns time.Now in UTC.
func (Clock) Now() time.Time { return time.Now().UTC() }
