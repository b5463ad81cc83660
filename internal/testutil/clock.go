package testutil

import "sync"

// DeterministicClock is a resettable logical clock for tests. It satisfies
// reconfig.Sequencer, so scenarios can be replayed with identical seq
// values.
//
// Safe for concurrent use.
type DeterministicClock struct {
	mu    sync.Mutex
	start int64
	seq   int64
}

// NewDeterministicClock creates a clock whose first Next returns start+1.
func NewDeterministicClock(start int64) *DeterministicClock {
	return &DeterministicClock{start: start, seq: start}
}

// Next returns the next sequence number.
func (c *DeterministicClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// Current returns the last issued sequence number.
func (c *DeterministicClock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Reset rewinds the clock to its start value.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = c.start
}
