package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDs generates pass IDs "<prefix>-0001", "<prefix>-0002", ...
// so journals and golden files are stable across runs.
//
// Safe for concurrent use.
type SequentialIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialIDs creates a generator. An empty prefix means "pass".
func NewSequentialIDs(prefix string) *SequentialIDs {
	if prefix == "" {
		prefix = "pass"
	}
	return &SequentialIDs{prefix: prefix}
}

// Generate returns the next ID.
func (g *SequentialIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}
