package clock

import (
	"sync"
	"time"
)

// Clock supplies wall-clock timestamps to the presence and message services
type Clock interface {
	Now() time.Time
}

// System reads the host clock
type System struct{}

// Now returns the current local time
func (System) Now() time.Time {
	return time.Now()
}

// Manual is a Clock that only moves when told to. Used by tests to drive
// presence expiry without sleeping.
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

// NewManual creates a manual clock frozen at start
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now returns the frozen time
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock forward by d
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

// Set moves the clock to t
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t
}
