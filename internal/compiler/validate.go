package compiler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mldulaney/scopehal-apps/internal/filters"
	"github.com/mldulaney/scopehal-apps/internal/graph"
	"github.com/mldulaney/scopehal-apps/internal/param"
	"github.com/mldulaney/scopehal-apps/internal/unit"
)

// Validation error codes (E100-E199)
const (
	ErrUnknownNodeType   = "E101" // node type not in the filter registry
	ErrDuplicateName     = "E102" // instrument and node share a name
	ErrUnknownPort       = "E103" // input port not declared by the type
	ErrUnknownStreamType = "E104" // stream type name not recognised
	ErrUnknownUnit       = "E105" // unit name not recognised
	ErrUnknownParameter  = "E106" // parameter not declared by the type
	ErrInvalidParamText  = "E107" // parameter text does not parse
	ErrUnsupportedParam  = "E108" // parameter kind has no text form
	ErrUnresolvedStream  = "E110" // stream reference names nothing
	ErrBindingCycle      = "E111" // nodes feed each other
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a graph description against the filter registry.
// Returns all errors found (does not fail-fast). A description that passes
// builds without error except for binding rules that depend on the built
// graph, such as matching units.
func Validate(spec *GraphSpec, reg *filters.Registry) []ValidationError {
	var errs []ValidationError
	idx := newSpecIndex(spec, reg)

	for _, inst := range spec.Instruments {
		if idx.nodes[inst.Name] != nil {
			errs = append(errs, ValidationError{
				Field:   "instrument." + inst.Name,
				Message: fmt.Sprintf("name %q is used by both an instrument and a node", inst.Name),
				Code:    ErrDuplicateName,
				Line:    inst.Pos.Line(),
			})
		}
		for _, ch := range inst.Channels {
			for i, s := range ch.Streams {
				field := fmt.Sprintf("instrument.%s.channel.%s.stream[%d]", inst.Name, ch.Name, i)
				if _, err := graph.ParseStreamType(s.Type); err != nil {
					errs = append(errs, ValidationError{
						Field:   field + ".type",
						Message: err.Error(),
						Code:    ErrUnknownStreamType,
						Line:    s.Pos.Line(),
					})
				}
				if s.Unit != "" {
					if _, ok := unit.Lookup(s.Unit); !ok {
						errs = append(errs, ValidationError{
							Field:   field + ".unit",
							Message: fmt.Sprintf("unknown unit %q, want one of %v", s.Unit, unit.Names()),
							Code:    ErrUnknownUnit,
							Line:    s.Pos.Line(),
						})
					}
				}
			}
		}
	}

	for _, n := range spec.Nodes {
		errs = append(errs, validateNode(n, idx)...)
	}

	for _, c := range AnalyzeCycles(spec) {
		errs = append(errs, ValidationError{
			Field:   "node." + c.Path[0] + ".input",
			Message: c.Message,
			Code:    ErrBindingCycle,
		})
	}
	return errs
}

func validateNode(n NodeSpec, idx *specIndex) []ValidationError {
	var errs []ValidationError

	t, ok := idx.reg.Lookup(n.Type)
	if !ok {
		return append(errs, ValidationError{
			Field:   fmt.Sprintf("node.%s.type", n.HWName),
			Message: fmt.Sprintf("unknown node type %q, want one of %v", n.Type, idx.reg.Names()),
			Code:    ErrUnknownNodeType,
			Line:    n.Pos.Line(),
		})
	}

	for _, in := range n.Inputs {
		field := fmt.Sprintf("node.%s.input.%s", n.HWName, in.Port)
		if !hasPort(t.Inputs, in.Port) {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("%s has no input %q", n.Type, in.Port),
				Code:    ErrUnknownPort,
				Line:    in.Pos.Line(),
			})
		}
		if err := idx.resolve(in.Stream); err != nil {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: err.Error(),
				Code:    ErrUnresolvedStream,
				Line:    in.Pos.Line(),
			})
		}
	}

	var decls []param.Parameter
	if t.Params != nil {
		decls = t.Params()
	}
	for _, ps := range n.Params {
		field := fmt.Sprintf("node.%s.param.%s", n.HWName, ps.Name)
		decl, ok := findParam(decls, ps.Name)
		if !ok {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("%s has no parameter %q", n.Type, ps.Name),
				Code:    ErrUnknownParameter,
				Line:    ps.Pos.Line(),
			})
			continue
		}
		if _, err := param.Parse(decl, ps.Text); err != nil {
			code := ErrInvalidParamText
			if errors.Is(err, param.ErrUnsupportedKind) {
				code = ErrUnsupportedParam
			}
			errs = append(errs, ValidationError{
				Field:   field,
				Message: err.Error(),
				Code:    code,
				Line:    ps.Pos.Line(),
			})
		}
	}
	return errs
}

// specIndex answers name lookups over a description without building it.
type specIndex struct {
	reg         *filters.Registry
	instruments map[string]*InstrumentSpec
	nodes       map[string]*NodeSpec
}

func newSpecIndex(spec *GraphSpec, reg *filters.Registry) *specIndex {
	idx := &specIndex{
		reg:         reg,
		instruments: make(map[string]*InstrumentSpec, len(spec.Instruments)),
		nodes:       make(map[string]*NodeSpec, len(spec.Nodes)),
	}
	for i := range spec.Instruments {
		idx.instruments[spec.Instruments[i].Name] = &spec.Instruments[i]
	}
	for i := range spec.Nodes {
		idx.nodes[spec.Nodes[i].HWName] = &spec.Nodes[i]
	}
	return idx
}

// resolve mirrors graph.Graph.Resolve over the description.
func (idx *specIndex) resolve(ref string) error {
	ref = strings.TrimSpace(ref)
	if ref == "" || ref == "NULL" {
		return nil
	}
	parts := strings.Split(ref, ".")

	if n := idx.nodes[parts[0]]; n != nil {
		t, ok := idx.reg.Lookup(n.Type)
		if !ok {
			// Reported against the node itself.
			return nil
		}
		names := make([]string, len(t.Outputs))
		for i, s := range t.Outputs {
			names[i] = s.Name
		}
		return pickStream(ref, parts[1:], names)
	}

	if inst := idx.instruments[parts[0]]; inst != nil && len(parts) >= 2 {
		for _, ch := range inst.Channels {
			if ch.Name != parts[1] {
				continue
			}
			names := make([]string, len(ch.Streams))
			for i, s := range ch.Streams {
				names[i] = s.Name
			}
			return pickStream(ref, parts[2:], names)
		}
		return fmt.Errorf("unknown stream %q: instrument %q has no channel %q", ref, parts[0], parts[1])
	}
	return fmt.Errorf("unknown stream %q", ref)
}

func pickStream(ref string, rest, names []string) error {
	switch len(rest) {
	case 0:
		if len(names) == 0 {
			return fmt.Errorf("stream %q: producer has no outputs", ref)
		}
		if len(names) > 1 {
			return fmt.Errorf("stream %q is ambiguous: producer has %d outputs", ref, len(names))
		}
		return nil
	case 1:
		for _, name := range names {
			if name == rest[0] {
				return nil
			}
		}
		if i, err := strconv.Atoi(rest[0]); err == nil && i >= 0 && i < len(names) {
			return nil
		}
	}
	return fmt.Errorf("unknown stream %q", ref)
}

func hasPort(ports []graph.InputPort, name string) bool {
	for _, p := range ports {
		if p.Name == name {
			return true
		}
	}
	return false
}

func findParam(decls []param.Parameter, name string) (param.Parameter, bool) {
	for _, p := range decls {
		if p.Name == name {
			return p, true
		}
	}
	return param.Parameter{}, false
}
