package clock

import "time"

// Clock tells the time. The CLI asks it for "now" when no explicit window is
// given, which keeps the default window reproducible in tests.
type Clock interface {
	// Now returns the current time
	Now() time.Time
}

// New returns a Clock backed by time.Now
func New() Clock {
	return &realClock{}
}

type realClock struct{}

func (r *realClock) Now() time.Time {
	return time.Now()
}
