package application

import "time"

// Clock abstraction so time-dependent logic stays testable
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
