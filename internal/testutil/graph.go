package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mldulaney/scopehal-apps/internal/filters"
	"github.com/mldulaney/scopehal-apps/internal/graph"
	"github.com/mldulaney/scopehal-apps/internal/unit"
)

// Bench is a small oscilloscope setup shared by tests: one four-channel
// scope, a current clamp channel and a two-line logic analyzer pod.
//
//	scope.CH1, scope.CH2  analog, volts
//	scope.I1              analog, amps
//	scope.LA.clk          digital
//	scope.LA.data         digital
type Bench struct {
	Graph   *graph.Graph
	Filters *filters.Registry
	Scope   *graph.Instrument
	CH1     *graph.Channel
	CH2     *graph.Channel
	I1      *graph.Channel
	LA      *graph.Channel
}

// NewBench builds the bench with no processing nodes.
func NewBench(t testing.TB) *Bench {
	t.Helper()

	b := &Bench{
		Graph:   graph.New(),
		Filters: filters.Builtin(),
		Scope:   graph.NewInstrument("scope"),
	}
	var err error
	b.CH1, err = b.Scope.AddChannel("CH1", graph.Stream{Name: "data", Type: graph.StreamAnalog, Unit: unit.Volts})
	require.NoError(t, err)
	b.CH2, err = b.Scope.AddChannel("CH2", graph.Stream{Name: "data", Type: graph.StreamAnalog, Unit: unit.Volts})
	require.NoError(t, err)
	b.I1, err = b.Scope.AddChannel("I1", graph.Stream{Name: "data", Type: graph.StreamAnalog, Unit: unit.Amps})
	require.NoError(t, err)
	b.LA, err = b.Scope.AddChannel("LA",
		graph.Stream{Name: "clk", Type: graph.StreamDigital},
		graph.Stream{Name: "data", Type: graph.StreamDigital},
	)
	require.NoError(t, err)
	require.NoError(t, b.Graph.AddInstrument(b.Scope))
	return b
}

// Node instantiates a built-in filter type on the bench.
func (b *Bench) Node(t testing.TB, typeName string) *graph.Node {
	t.Helper()
	n, err := b.Filters.New(b.Graph, typeName, "")
	require.NoError(t, err)
	return n
}

// Bind sets a node input directly, bypassing validation.
func (b *Bench) Bind(t testing.TB, n *graph.Node, input int, s graph.StreamDescriptor) {
	t.Helper()
	_, err := n.SetInput(input, s)
	require.NoError(t, err)
}

// Stream wraps a single-stream producer in a descriptor.
func Stream(p graph.Producer) graph.StreamDescriptor {
	return graph.StreamDescriptor{Producer: p}
}
