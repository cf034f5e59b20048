package util

import "time"

// Timer measures the processing time reported on engine responses.
type Timer struct {
	start time.Time
}

// StartTimer creates a new timer starting at current time.
func StartTimer() Timer {
	return Timer{start: time.Now()}
}

// ElapsedSeconds returns the elapsed time in fractional seconds.
func (t Timer) ElapsedSeconds() float64 {
	if t.start.IsZero() {
		return 0
	}
	return time.Since(t.start).Seconds()
}
