package services

import "time"

// Clock abstracts wall-clock time so wait computations are testable
// without real delay.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

// SystemClock returns a Clock backed by the system time in UTC
func SystemClock() Clock {
	return systemClock{}
}
