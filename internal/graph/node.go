package graph

import (
	"fmt"

	"github.com/mldulaney/scopehal-apps/internal/param"
)

// InputPort declares one input of a node.
type InputPort struct {
	Name string

	// Accepts lists the stream types the input can consume. Empty means any.
	Accepts []StreamType

	// Optional inputs may stay unbound (the sentinel) in a valid graph.
	Optional bool
}

// AcceptsType reports whether t is in Accepts, or Accepts is empty.
func (p InputPort) AcceptsType(t StreamType) bool {
	if len(p.Accepts) == 0 {
		return true
	}
	for _, a := range p.Accepts {
		if a == t {
			return true
		}
	}
	return false
}

// NodeConfig is everything needed to construct a node.
type NodeConfig struct {
	Type    string // node type name, e.g. "Subtract"
	HWName  string // instance name, unique in a graph
	Inputs  []InputPort
	Outputs []Stream
	Params  []param.Parameter
}

// Node is a processing element: it consumes bound input streams, owns a
// parameter store and produces output streams.
type Node struct {
	typeName         string
	hwname           string
	displayName      string
	usingDefaultName bool
	inputs           []InputPort
	bindings         []StreamDescriptor
	params           *param.Store
	outputs          []Stream
	graph            *Graph
}

func (*Node) producer() {}

// NewNode builds an unattached node. All inputs start bound to the sentinel
// and the display name equals the instance name with default naming on.
func NewNode(cfg NodeConfig) (*Node, error) {
	if cfg.HWName == "" {
		return nil, fmt.Errorf("node of type %q: instance name cannot be empty", cfg.Type)
	}
	params := param.NewStore()
	for _, p := range cfg.Params {
		if err := params.Declare(p); err != nil {
			return nil, fmt.Errorf("node %q: %w", cfg.HWName, err)
		}
	}
	return &Node{
		typeName:         cfg.Type,
		hwname:           cfg.HWName,
		displayName:      cfg.HWName,
		usingDefaultName: true,
		inputs:           append([]InputPort(nil), cfg.Inputs...),
		bindings:         make([]StreamDescriptor, len(cfg.Inputs)),
		params:           params,
		outputs:          append([]Stream(nil), cfg.Outputs...),
	}, nil
}

// Type returns the node type name.
func (n *Node) Type() string { return n.typeName }

// HWName returns the immutable instance name.
func (n *Node) HWName() string { return n.hwname }

// DisplayName returns the current display name.
func (n *Node) DisplayName() string { return n.displayName }

// UsingDefaultName reports whether the display name is derived.
func (n *Node) UsingDefaultName() bool { return n.usingDefaultName }

// ProducerName is the display name; stream labels follow renames.
func (n *Node) ProducerName() string { return n.displayName }

// Rename sets a user-chosen display name and turns default naming off.
func (n *Node) Rename(name string) {
	n.displayName = name
	n.usingDefaultName = false
}

// ApplyDefaultName sets a generated display name and turns default naming on.
func (n *Node) ApplyDefaultName(name string) {
	n.displayName = name
	n.usingDefaultName = true
}

// Params returns the node's parameter store.
func (n *Node) Params() *param.Store { return n.params }

// InputCount returns the number of declared inputs.
func (n *Node) InputCount() int { return len(n.inputs) }

// InputPort returns the i'th input declaration.
func (n *Node) InputPort(i int) (InputPort, bool) {
	if i < 0 || i >= len(n.inputs) {
		return InputPort{}, false
	}
	return n.inputs[i], true
}

// InputIndex returns the index of the named input.
func (n *Node) InputIndex(name string) (int, bool) {
	for i, p := range n.inputs {
		if p.Name == name {
			return i, true
		}
	}
	return -1, false
}

// Input returns the stream bound to input i.
func (n *Node) Input(i int) StreamDescriptor {
	if i < 0 || i >= len(n.bindings) {
		return None()
	}
	return n.bindings[i]
}

// Inputs returns a copy of the binding list.
func (n *Node) Inputs() []StreamDescriptor {
	return append([]StreamDescriptor(nil), n.bindings...)
}

// SetInput binds input i to s. It performs no compatibility checks; callers
// validate first. It reports whether the binding changed.
func (n *Node) SetInput(i int, s StreamDescriptor) (bool, error) {
	if i < 0 || i >= len(n.bindings) {
		return false, fmt.Errorf("node %q: input %d out of range [0,%d)", n.hwname, i, len(n.bindings))
	}
	if n.bindings[i].Equal(s) {
		return false, nil
	}
	n.bindings[i] = s
	if n.graph != nil {
		n.graph.bump()
	}
	return true, nil
}

// StreamCount returns the number of output streams.
func (n *Node) StreamCount() int { return len(n.outputs) }

// Stream returns the i'th output stream.
func (n *Node) Stream(i int) (Stream, bool) {
	if i < 0 || i >= len(n.outputs) {
		return Stream{}, false
	}
	return n.outputs[i], true
}

// DependsOn reports whether n consumes, directly or transitively, any output
// of p. A node depends on itself.
func (n *Node) DependsOn(p Producer) bool {
	seen := make(map[*Node]bool)
	var walk func(*Node) bool
	walk = func(cur *Node) bool {
		if Producer(cur) == p {
			return true
		}
		if seen[cur] {
			return false
		}
		seen[cur] = true
		for _, b := range cur.bindings {
			if b.Producer == p {
				return true
			}
			if up, ok := b.Node(); ok && walk(up) {
				return true
			}
		}
		return false
	}
	return walk(n)
}
