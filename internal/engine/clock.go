package engine

import "sync/atomic"

// Clock hands out execution sequence numbers.
//
// Numbers are strictly increasing and unique across goroutines. They order
// log lines and results, never wall-clock time.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}
