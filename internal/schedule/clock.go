package schedule

import "time"

// Clock abstracts wall-clock reads and delayed callbacks so the scheduler
// can be tested deterministically with a fake instead of real sleeps.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
	// AfterFunc waits for the duration to elapse and then calls f in its
	// own goroutine. The returned Timer cancels the pending call.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a pending AfterFunc callback.
type Timer interface {
	// Stop prevents the timer from firing. Returns false if the timer has
	// already fired or been stopped.
	Stop() bool
}

// realClock implements Clock with the standard time package.
type realClock struct{}

// NewRealClock returns a Clock backed by the system clock.
func NewRealClock() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return realTimer{timer: time.AfterFunc(d, f)}
}

// realTimer wraps *time.Timer to satisfy the Timer interface.
type realTimer struct {
	timer *time.Timer
}

func (t realTimer) Stop() bool {
	return t.timer.Stop()
}
