// Package catalog enumerates every stream a node input could be bound to.
package catalog

import "github.com/mldulaney/scopehal-apps/internal/graph"

// Registry exposes the producers of a graph. *graph.Graph implements it.
type Registry interface {
	Channels() []*graph.Channel
	Nodes() []*graph.Node
}

// Enumerate lists the sentinel, then every stream of every hardware
// channel, then every stream of every processing node. Producers appear in
// registration order and streams in index order. The result is computed
// from current state on every call.
func Enumerate(reg Registry) []graph.StreamDescriptor {
	out := []graph.StreamDescriptor{graph.None()}
	for _, c := range reg.Channels() {
		out = appendStreams(out, c)
	}
	for _, n := range reg.Nodes() {
		out = appendStreams(out, n)
	}
	return out
}

func appendStreams(out []graph.StreamDescriptor, p graph.Producer) []graph.StreamDescriptor {
	for i := 0; i < p.StreamCount(); i++ {
		out = append(out, graph.StreamDescriptor{Producer: p, Index: i})
	}
	return out
}

// Filter keeps the descriptors for which keep returns true, preserving
// order.
func Filter(all []graph.StreamDescriptor, keep func(graph.StreamDescriptor) bool) []graph.StreamDescriptor {
	out := make([]graph.StreamDescriptor, 0, len(all))
	for _, d := range all {
		if keep(d) {
			out = append(out, d)
		}
	}
	return out
}

// IndexOf returns the position of d in list, or -1.
func IndexOf(list []graph.StreamDescriptor, d graph.StreamDescriptor) int {
	for i, cur := range list {
		if cur.Equal(d) {
			return i
		}
	}
	return -1
}
