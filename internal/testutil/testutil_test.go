package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mldulaney/scopehal-apps/internal/graph"
)

func TestDeterministicClock_StartAndReset(t *testing.T) {
	clock := NewDeterministicClock(10)
	assert.Equal(t, int64(10), clock.Current())
	assert.Equal(t, int64(11), clock.Next())
	assert.Equal(t, int64(12), clock.Next())

	clock.Reset()
	assert.Equal(t, int64(10), clock.Current())
	assert.Equal(t, int64(11), clock.Next())
}

func TestDeterministicClock_ThreadSafe(t *testing.T) {
	clock := NewDeterministicClock(0)
	const goroutines, calls = 50, 100

	var mu sync.Mutex
	seen := make(map[int64]bool)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < calls; j++ {
				v := clock.Next()
				mu.Lock()
				seen[v] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, goroutines*calls)
	assert.Equal(t, int64(goroutines*calls), clock.Current())
}

func TestSequentialIDs(t *testing.T) {
	gen := NewSequentialIDs("")
	assert.Equal(t, "pass-0001", gen.Generate())
	assert.Equal(t, "pass-0002", gen.Generate())

	other := NewSequentialIDs("scn")
	assert.Equal(t, "scn-0001", other.Generate())
}

func TestBench(t *testing.T) {
	b := NewBench(t)

	require.Len(t, b.Graph.Channels(), 4)
	assert.Equal(t, 2, b.LA.StreamCount())

	sub := b.Node(t, "Subtract")
	b.Bind(t, sub, 0, Stream(b.CH1))
	assert.Equal(t, "scope.CH1", sub.Input(0).Ref())
	assert.Equal(t, []*graph.Node{sub}, b.Graph.Downstream(b.CH1))
}
