package reconfig

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// Sequencer stamps events with increasing sequence numbers. Implemented by
// Clock in production and testutil.DeterministicClock in tests.
type Sequencer interface {
	Next() int64
	Current() int64
}

// Clock is a monotonic logical clock. Every event is stamped with a
// strictly increasing seq; wall time is never used for ordering.
//
// Safe for concurrent use.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock that resumes after start, e.g. the last seq
// found in a journal.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last issued sequence number.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

// IDGenerator produces pass IDs. Implemented by UUIDv7Generator in
// production and testutil.SequentialIDs in tests.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 pass IDs.
//
// Stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a hyphenated UUIDv7. It panics if the system random
// source fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
