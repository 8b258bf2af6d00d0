package session

import "time"

// Timer is a cancellable scheduled task handle.
type Timer interface {
	Stop() bool
}

// Clock abstracts timer scheduling so the expiry state machine can be
// driven by a fake clock in tests instead of wall-clock delays.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

// NewClock returns a Clock backed by the runtime timers.
func NewClock() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
