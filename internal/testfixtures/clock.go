package testfixtures

import (
	"sync"
	"time"
)

// Clock is a settable time source. Camp-day helpers interpret wall-clock
// times in the clock's location.
type Clock struct {
	mu      sync.Mutex
	current time.Time
	loc     *time.Location
}

// NewClock starts at start, or at ReferenceTime when start is zero. The
// location of start is used for the camp-day helpers.
func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = ReferenceTime()
	}
	return &Clock{current: start, loc: start.Location()}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// NowFunc exposes Now for injection into services.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}

func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.current = t
	c.mu.Unlock()
}

// Advance moves the clock forward by d and returns the new time.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
	return c.current
}

// SetTimeOfDay moves the clock to hour:minute on its current camp day.
func (c *Clock) SetTimeOfDay(hour, minute int) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	y, m, d := c.current.In(c.loc).Date()
	c.current = time.Date(y, m, d, hour, minute, 0, 0, c.loc)
	return c.current
}

// NextDay moves the clock to the same wall-clock time on the following camp day.
func (c *Clock) NextDay() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.In(c.loc).AddDate(0, 0, 1)
	return c.current
}
