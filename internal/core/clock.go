package core

import (
	"time"

	"github.com/google/uuid"
)

// IDGenerator returns a new collision-resistant identifier.
type IDGenerator func() string

// NewID is the default IDGenerator.
func NewID() string {
	return uuid.NewString()
}

// Clock is the wall-clock and calendar source.
type Clock interface {
	Now() time.Time
	// Today returns the local calendar day.
	Today() Date
}

// SystemClock reads the system time in Location (time.Local when nil).
type SystemClock struct {
	Location *time.Location
}

func (c SystemClock) Now() time.Time {
	if c.Location == nil {
		return time.Now()
	}
	return time.Now().In(c.Location)
}

func (c SystemClock) Today() Date {
	return DateOf(c.Now())
}

// FixedClock always returns the same instant. Useful in tests.
type FixedClock struct {
	T time.Time
}

func (c FixedClock) Now() time.Time { return c.T }
func (c FixedClock) Today() Date    { return DateOf(c.T) }
