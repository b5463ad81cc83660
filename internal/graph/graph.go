// Package graph holds the producer graph: instruments and their hardware
// channels, processing nodes, and the stream bindings between them.
package graph

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
)

// Rebind records one input reset to the sentinel because its producer was
// removed.
type Rebind struct {
	Node  *Node
	Input int
	Was   StreamDescriptor
}

// Graph is the registry of every producer. Instruments and nodes are kept in
// registration order.
type Graph struct {
	instruments []*Instrument
	nodes       []*Node
	revision    atomic.Uint64
	counters    map[string]int
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{counters: make(map[string]int)}
}

func (g *Graph) bump() {
	g.revision.Add(1)
}

// Revision increases on every structural or binding change.
func (g *Graph) Revision() uint64 {
	return g.revision.Load()
}

// AddInstrument registers an instrument.
func (g *Graph) AddInstrument(inst *Instrument) error {
	if inst.graph != nil {
		return fmt.Errorf("instrument %q already registered", inst.name)
	}
	if g.Instrument(inst.name) != nil {
		return fmt.Errorf("instrument %q already exists", inst.name)
	}
	inst.graph = g
	g.instruments = append(g.instruments, inst)
	g.bump()
	return nil
}

// AddNode registers a node.
func (g *Graph) AddNode(n *Node) error {
	if n.graph != nil {
		return fmt.Errorf("node %q already registered", n.hwname)
	}
	if g.Node(n.hwname) != nil {
		return fmt.Errorf("node %q already exists", n.hwname)
	}
	n.graph = g
	g.nodes = append(g.nodes, n)
	g.bump()
	return nil
}

// NextName returns a fresh instance name for a node type: "Subtract1",
// "Subtract2", and so on, skipping names already taken.
func (g *Graph) NextName(typeName string) string {
	for {
		g.counters[typeName]++
		name := typeName + strconv.Itoa(g.counters[typeName])
		if g.Node(name) == nil {
			return name
		}
	}
}

// RemoveNode rebinds every input that consumes n to the sentinel, then
// unregisters n. The returned list names the rebound inputs.
func (g *Graph) RemoveNode(n *Node) ([]Rebind, error) {
	idx := -1
	for i, cur := range g.nodes {
		if cur == n {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("node %q is not registered", n.hwname)
	}

	rebinds := g.detach(func(p Producer) bool { return p == n })
	g.nodes = append(g.nodes[:idx], g.nodes[idx+1:]...)
	n.graph = nil
	g.bump()
	return rebinds, nil
}

// RemoveInstrument rebinds every input that consumes one of the
// instrument's channels to the sentinel, then unregisters it.
func (g *Graph) RemoveInstrument(name string) ([]Rebind, error) {
	idx := -1
	for i, inst := range g.instruments {
		if inst.name == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("instrument %q is not registered", name)
	}
	inst := g.instruments[idx]

	rebinds := g.detach(func(p Producer) bool {
		c, ok := p.(*Channel)
		return ok && c.instrument == inst
	})
	g.instruments = append(g.instruments[:idx], g.instruments[idx+1:]...)
	inst.graph = nil
	g.bump()
	return rebinds, nil
}

func (g *Graph) detach(match func(Producer) bool) []Rebind {
	var out []Rebind
	for _, n := range g.nodes {
		for i, b := range n.bindings {
			if b.Producer != nil && match(b.Producer) {
				out = append(out, Rebind{Node: n, Input: i, Was: b})
				n.bindings[i] = None()
			}
		}
	}
	return out
}

// Instruments returns the instruments in registration order.
func (g *Graph) Instruments() []*Instrument {
	return append([]*Instrument(nil), g.instruments...)
}

// Instrument returns the named instrument or nil.
func (g *Graph) Instrument(name string) *Instrument {
	for _, inst := range g.instruments {
		if inst.name == name {
			return inst
		}
	}
	return nil
}

// Channels returns every hardware channel, instrument by instrument.
func (g *Graph) Channels() []*Channel {
	var out []*Channel
	for _, inst := range g.instruments {
		out = append(out, inst.channels...)
	}
	return out
}

// Nodes returns the nodes in registration order.
func (g *Graph) Nodes() []*Node {
	return append([]*Node(nil), g.nodes...)
}

// Node returns the node with the given instance name or nil.
func (g *Graph) Node(hwname string) *Node {
	for _, n := range g.nodes {
		if n.hwname == hwname {
			return n
		}
	}
	return nil
}

// Downstream returns the nodes with at least one input bound to an output
// of p, in registration order.
func (g *Graph) Downstream(p Producer) []*Node {
	var out []*Node
	for _, n := range g.nodes {
		for _, b := range n.bindings {
			if b.Producer == p {
				out = append(out, n)
				break
			}
		}
	}
	return out
}

// Resolve parses a stream reference as produced by StreamDescriptor.Ref.
// Accepted forms: "NULL" or "", "instrument.channel", "instrument.channel.stream",
// "node" and "node.stream". The stream part may be a name or an index.
func (g *Graph) Resolve(ref string) (StreamDescriptor, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" || ref == "NULL" {
		return None(), nil
	}
	parts := strings.Split(ref, ".")

	if n := g.Node(parts[0]); n != nil {
		switch len(parts) {
		case 1:
			return defaultStream(n, ref)
		case 2:
			return streamByName(n, parts[1], ref)
		}
		return None(), fmt.Errorf("unknown stream %q", ref)
	}

	if inst := g.Instrument(parts[0]); inst != nil && len(parts) >= 2 {
		c := inst.Channel(parts[1])
		if c == nil {
			return None(), fmt.Errorf("unknown stream %q: instrument %q has no channel %q", ref, parts[0], parts[1])
		}
		switch len(parts) {
		case 2:
			return defaultStream(c, ref)
		case 3:
			return streamByName(c, parts[2], ref)
		}
	}
	return None(), fmt.Errorf("unknown stream %q", ref)
}

func defaultStream(p Producer, ref string) (StreamDescriptor, error) {
	if p.StreamCount() == 0 {
		return None(), fmt.Errorf("stream %q: producer has no outputs", ref)
	}
	if p.StreamCount() > 1 {
		return None(), fmt.Errorf("stream %q is ambiguous: producer has %d outputs", ref, p.StreamCount())
	}
	return StreamDescriptor{Producer: p, Index: 0}, nil
}

func streamByName(p Producer, name, ref string) (StreamDescriptor, error) {
	for i := 0; i < p.StreamCount(); i++ {
		s, _ := p.Stream(i)
		if s.Name == name {
			return StreamDescriptor{Producer: p, Index: i}, nil
		}
	}
	if i, err := strconv.Atoi(name); err == nil && i >= 0 && i < p.StreamCount() {
		return StreamDescriptor{Producer: p, Index: i}, nil
	}
	return None(), fmt.Errorf("unknown stream %q", ref)
}
