// Package clock provides the driver's time source.
//
// All deadline arithmetic and activity timestamps in the driver go through a
// Clock so that tests can substitute a deterministic source instead of
// sleeping against the wall clock. The polling loops also yield through the
// Clock, which lets a fake advance time exactly by the yield amount.
package clock

import "time"

// Clock supplies timestamps and cooperative sleeps.
type Clock struct {
	nowFn   func() time.Time
	sleepFn func(time.Duration)
}

// New creates a Clock backed by the system clock.
func New() *Clock {
	return &Clock{
		nowFn:   time.Now,
		sleepFn: time.Sleep,
	}
}

// NewWithSource creates a Clock with substituted time and sleep functions.
// Either may be nil to keep the system behavior. Intended for tests and for
// callers that need to rate-limit yields differently.
func NewWithSource(now func() time.Time, sleep func(time.Duration)) *Clock {
	c := New()
	if now != nil {
		c.nowFn = now
	}
	if sleep != nil {
		c.sleepFn = sleep
	}
	return c
}

// Now returns the current time.
func (c *Clock) Now() time.Time {
	return c.nowFn()
}

// Sleep pauses the calling task for d. Polling loops use it as their yield
// point between empty reads.
func (c *Clock) Sleep(d time.Duration) {
	c.sleepFn(d)
}

// Since returns the time elapsed since t.
func (c *Clock) Since(t time.Time) time.Duration {
	return c.nowFn().Sub(t)
}
