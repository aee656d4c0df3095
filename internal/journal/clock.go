package journal

import "sync/atomic"

// Clock hands out the strictly increasing seq numbers that order journal
// entries. Seq is logical; wall-clock time is never recorded, so two runs
// of the same edits produce the same journal.
//
// Clock is safe for concurrent use.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock whose next value is start+1. Open uses it to
// resume after the last entry already in the database.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next seq number.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last seq number handed out.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

// Reset sets the clock back to 0 so a replayed run numbers its entries
// from 1 again.
func (c *Clock) Reset() {
	c.seq.Store(0)
}
