package compiler

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/mldulaney/scopehal-apps/internal/filters"
	"github.com/mldulaney/scopehal-apps/internal/graph"
	"github.com/mldulaney/scopehal-apps/internal/param"
	"github.com/mldulaney/scopehal-apps/internal/unit"
)

// CompileGraph parses, validates and builds a graph description.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(src)
//	g, err := CompileGraph(v, filters.Builtin())
//
// The first problem found is returned; use ParseGraph and Validate to
// collect them all.
func CompileGraph(v cue.Value, reg *filters.Registry) (*graph.Graph, error) {
	spec, err := ParseGraph(v)
	if err != nil {
		return nil, err
	}
	if errs := Validate(spec, reg); len(errs) > 0 {
		return nil, errs[0]
	}
	return Build(spec, reg)
}

// Build instantiates a description. Bindings are checked with the same
// rules the reconfiguration controller uses, so a built graph only holds
// bindings a user could have chosen.
//
// Default names are applied upstream first, so a node's name sees the
// final names of the streams it reads.
func Build(spec *GraphSpec, reg *filters.Registry) (*graph.Graph, error) {
	g := graph.New()

	for _, is := range spec.Instruments {
		inst := graph.NewInstrument(is.Name)
		for _, cs := range is.Channels {
			streams := make([]graph.Stream, len(cs.Streams))
			for i, ss := range cs.Streams {
				s, err := buildStream(ss)
				if err != nil {
					return nil, &CompileError{
						Field:   fmt.Sprintf("instrument.%s.channel.%s.stream[%d]", is.Name, cs.Name, i),
						Message: err.Error(),
						Pos:     ss.Pos,
					}
				}
				streams[i] = s
			}
			if _, err := inst.AddChannel(cs.Name, streams...); err != nil {
				return nil, &CompileError{Field: fmt.Sprintf("instrument.%s.channel.%s", is.Name, cs.Name), Message: err.Error(), Pos: cs.Pos}
			}
		}
		if err := g.AddInstrument(inst); err != nil {
			return nil, &CompileError{Field: "instrument." + is.Name, Message: err.Error(), Pos: is.Pos}
		}
	}

	nodes := make([]*graph.Node, len(spec.Nodes))
	for i, ns := range spec.Nodes {
		n, err := reg.New(g, ns.Type, ns.HWName)
		if err != nil {
			return nil, &CompileError{Field: fmt.Sprintf("node.%s.type", ns.HWName), Message: err.Error(), Pos: ns.Pos}
		}
		nodes[i] = n
	}

	for i, ns := range spec.Nodes {
		if err := applyParams(nodes[i], ns); err != nil {
			return nil, err
		}
	}

	validators := reg.Validators()
	for i, ns := range spec.Nodes {
		if err := applyInputs(g, validators, nodes[i], ns); err != nil {
			return nil, err
		}
	}

	named := make(map[*graph.Node]bool, len(nodes))
	overrides := make(map[*graph.Node]string, len(nodes))
	for i, ns := range spec.Nodes {
		if ns.Name != "" {
			overrides[nodes[i]] = ns.Name
		}
	}
	var name func(n *graph.Node)
	name = func(n *graph.Node) {
		if named[n] {
			return
		}
		named[n] = true
		for _, in := range n.Inputs() {
			if up, ok := in.Node(); ok {
				name(up)
			}
		}
		if override, ok := overrides[n]; ok {
			n.Rename(override)
			return
		}
		if dn, ok := reg.DefaultName(n); ok {
			n.ApplyDefaultName(dn)
		}
	}
	for _, n := range nodes {
		name(n)
	}
	return g, nil
}

func buildStream(ss StreamSpec) (graph.Stream, error) {
	t, err := graph.ParseStreamType(ss.Type)
	if err != nil {
		return graph.Stream{}, err
	}
	s := graph.Stream{Name: ss.Name, Type: t}
	if ss.Unit != "" {
		u, ok := unit.Lookup(ss.Unit)
		if !ok {
			return graph.Stream{}, fmt.Errorf("unknown unit %q", ss.Unit)
		}
		s.Unit = u
	}
	return s, nil
}

func applyParams(n *graph.Node, ns NodeSpec) error {
	store := n.Params()
	for _, ps := range ns.Params {
		field := fmt.Sprintf("node.%s.param.%s", ns.HWName, ps.Name)
		cur, ok := store.Get(ps.Name)
		if !ok {
			return &CompileError{Field: field, Message: param.ErrUnknownParameter.Error(), Pos: ps.Pos}
		}
		v, err := param.Parse(cur, ps.Text)
		if err != nil {
			return &CompileError{Field: field, Message: err.Error(), Pos: ps.Pos}
		}
		if _, err := store.Set(ps.Name, v); err != nil {
			return &CompileError{Field: field, Message: err.Error(), Pos: ps.Pos}
		}
	}
	return nil
}

// bindingChecker is the subset of *binding.Table Build needs.
type bindingChecker interface {
	Check(n *graph.Node, input int, s graph.StreamDescriptor) error
}

func applyInputs(g *graph.Graph, rules bindingChecker, n *graph.Node, ns NodeSpec) error {
	for _, bs := range ns.Inputs {
		field := fmt.Sprintf("node.%s.input.%s", ns.HWName, bs.Port)
		i, ok := n.InputIndex(bs.Port)
		if !ok {
			return &CompileError{Field: field, Message: fmt.Sprintf("%s has no input %q", ns.Type, bs.Port), Pos: bs.Pos}
		}
		s, err := g.Resolve(bs.Stream)
		if err != nil {
			return &CompileError{Field: field, Message: err.Error(), Pos: bs.Pos}
		}
		if err := rules.Check(n, i, s); err != nil {
			return &CompileError{Field: field, Message: err.Error(), Pos: bs.Pos}
		}
		if _, err := n.SetInput(i, s); err != nil {
			return &CompileError{Field: field, Message: err.Error(), Pos: bs.Pos}
		}
	}
	return nil
}
