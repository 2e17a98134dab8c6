package clock

import "time"

// Clock provides time operations that can be mocked for testing
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the system clock
type RealClock struct{}

// New creates a new RealClock
func New() *RealClock {
	return &RealClock{}
}

// Now returns the current time truncated to millisecond precision, the resolution
// timestamps are persisted at
func (c *RealClock) Now() time.Time {
	return time.Now().Truncate(time.Millisecond)
}

// ToMillis converts t to epoch milliseconds
func ToMillis(t time.Time) int64 {
	return t.UnixMilli()
}

// FromMillis converts epoch milliseconds to a UTC time
func FromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
