// Package binding decides which streams may feed a node's inputs.
package binding

import (
	"errors"
	"fmt"

	"github.com/mldulaney/scopehal-apps/internal/graph"
)

var (
	// ErrIncompatibleStream means a candidate failed validation.
	ErrIncompatibleStream = errors.New("incompatible stream")

	// ErrInputOutOfRange means the input index does not exist on the node.
	ErrInputOutOfRange = errors.New("input index out of range")
)

// Validator is a node-type specific predicate over (input, candidate).
// Implementations must be pure.
type Validator interface {
	Valid(n *graph.Node, input int, s graph.StreamDescriptor) bool
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc func(n *graph.Node, input int, s graph.StreamDescriptor) bool

// Valid calls f.
func (f ValidatorFunc) Valid(n *graph.Node, input int, s graph.StreamDescriptor) bool {
	return f(n, input, s)
}

// All combines validators; a candidate must pass every one.
func All(vs ...Validator) Validator {
	return ValidatorFunc(func(n *graph.Node, input int, s graph.StreamDescriptor) bool {
		for _, v := range vs {
			if v != nil && !v.Valid(n, input, s) {
				return false
			}
		}
		return true
	})
}

// Check applies the structural rules every node shares, then extra.
//
// The sentinel is accepted for every input. A stream produced by n, or by
// anything that already consumes n, is rejected. The stream type must be
// one the input port declares.
func Check(n *graph.Node, input int, s graph.StreamDescriptor, extra Validator) error {
	port, ok := n.InputPort(input)
	if !ok {
		return fmt.Errorf("%w: node %q input %d", ErrInputOutOfRange, n.HWName(), input)
	}
	if s.IsNone() {
		return nil
	}
	if s.Producer == graph.Producer(n) {
		return fmt.Errorf("%w: %s would feed node %q from its own output", ErrIncompatibleStream, s.Ref(), n.HWName())
	}
	if up, isNode := s.Node(); isNode && up.DependsOn(n) {
		return fmt.Errorf("%w: %s depends on node %q and would form a cycle", ErrIncompatibleStream, s.Ref(), n.HWName())
	}
	st, ok := s.Stream()
	if !ok {
		return fmt.Errorf("%w: %s does not exist", ErrIncompatibleStream, s.Ref())
	}
	if !port.AcceptsType(st.Type) {
		return fmt.Errorf("%w: input %q of %q does not accept %s stream %s",
			ErrIncompatibleStream, port.Name, n.HWName(), st.Type, s.Ref())
	}
	if extra != nil && !extra.Valid(n, input, s) {
		return fmt.Errorf("%w: %s rejected by %s rules for input %q",
			ErrIncompatibleStream, s.Ref(), n.Type(), port.Name)
	}
	return nil
}

// Table maps node type names to their extra validators.
type Table struct {
	rules map[string]Validator
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{rules: make(map[string]Validator)}
}

// Register sets the validator for a node type, replacing any previous one.
func (t *Table) Register(typeName string, v Validator) {
	t.rules[typeName] = v
}

// Validator returns the validator for a node type, or nil.
func (t *Table) Validator(typeName string) Validator {
	if t == nil {
		return nil
	}
	return t.rules[typeName]
}

// Check runs Check with the node type's validator.
func (t *Table) Check(n *graph.Node, input int, s graph.StreamDescriptor) error {
	return Check(n, input, s, t.Validator(n.Type()))
}

// Valid is Check as a predicate.
func (t *Table) Valid(n *graph.Node, input int, s graph.StreamDescriptor) bool {
	return t.Check(n, input, s) == nil
}
