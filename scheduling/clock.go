package scheduling

import "time"

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

type runtimeClock struct{}

// NewClock returns a Clock that uses time.Now.
func NewClock() Clock {
	return runtimeClock{}
}

func (runtimeClock) Now() time.Time {
	return time.Now()
}
