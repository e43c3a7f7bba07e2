package clock

import (
	"sync"
	"time"
)

// Clock abstracts the wall clock so date-dependent logic can be tested.
type Clock interface {
	Now() time.Time
}

// Today returns the current calendar date of c at midnight UTC.
func Today(c Clock) time.Time {
	y, m, d := c.Now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// RealClock reads the system clock.
type RealClock struct{}

// NewRealClock returns a Clock backed by time.Now.
func NewRealClock() Clock {
	return RealClock{}
}

// Now returns the current local time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// MockClock is a settable Clock for tests. It is safe for concurrent use.
type MockClock struct {
	mu          sync.Mutex
	currentTime time.Time
}

// NewMockClock returns a MockClock frozen at t.
func NewMockClock(t time.Time) *MockClock {
	return &MockClock{currentTime: t}
}

// Now returns the frozen time.
func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentTime
}

// Set moves the clock to t.
func (c *MockClock) Set(t time.Time) {
	c.mu.Lock()
	c.currentTime = t
	c.mu.Unlock()
}

// Add advances the clock by d.
func (c *MockClock) Add(d time.Duration) {
	c.mu.Lock()
	c.currentTime = c.currentTime.Add(d)
	c.mu.Unlock()
}
