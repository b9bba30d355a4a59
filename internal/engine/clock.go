package engine

import "sync/atomic"

// Clock is a monotonic logical clock. Every journal record is stamped with
// a strictly increasing seq from it; wall time is never used for ordering.
//
// Clock is safe for concurrent use, though the engine only calls it from
// the goroutine running an operation.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock resuming after start, typically the journal's
// last seq.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next increments the clock and returns the new value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last value handed out without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
