// Package filters describes the processing node types a graph can contain:
// their inputs, outputs, parameters, binding rules and default names.
package filters

import (
	"fmt"
	"sort"
	"sync"

	"github.com/mldulaney/scopehal-apps/internal/binding"
	"github.com/mldulaney/scopehal-apps/internal/graph"
	"github.com/mldulaney/scopehal-apps/internal/param"
)

// NameFunc derives a node's default display name from its current bindings
// and parameters. It must be deterministic.
type NameFunc func(n *graph.Node) string

// Type is one node type.
type Type struct {
	Name    string
	Inputs  []graph.InputPort
	Outputs []graph.Stream

	// Params returns fresh parameter declarations for a new instance.
	Params func() []param.Parameter

	// Validator holds binding rules beyond the shared structural ones.
	Validator binding.Validator

	// DefaultName is nil for types whose default name is the instance name.
	DefaultName NameFunc
}

// Registry holds node types by name.
type Registry struct {
	mu    sync.RWMutex
	types map[string]*Type
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{types: make(map[string]*Type)}
}

// Register adds a node type. Names must be unique.
func (r *Registry) Register(t Type) error {
	if t.Name == "" {
		return fmt.Errorf("filter type name cannot be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.types[t.Name]; ok {
		return fmt.Errorf("filter type %q already registered", t.Name)
	}
	r.types[t.Name] = &t
	return nil
}

// Lookup returns the named type.
func (r *Registry) Lookup(name string) (*Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[name]
	return t, ok
}

// Names returns the registered type names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.types))
	for name := range r.types {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// New instantiates a node of the named type and registers it with g. An
// empty hwname picks the next free "<Type>N" name. The node starts with all
// inputs unbound and its default name applied.
func (r *Registry) New(g *graph.Graph, typeName, hwname string) (*graph.Node, error) {
	t, ok := r.Lookup(typeName)
	if !ok {
		return nil, fmt.Errorf("unknown filter type %q", typeName)
	}
	if hwname == "" {
		hwname = g.NextName(typeName)
	}
	var params []param.Parameter
	if t.Params != nil {
		params = t.Params()
	}
	n, err := graph.NewNode(graph.NodeConfig{
		Type:    t.Name,
		HWName:  hwname,
		Inputs:  t.Inputs,
		Outputs: t.Outputs,
		Params:  params,
	})
	if err != nil {
		return nil, err
	}
	if err := g.AddNode(n); err != nil {
		return nil, err
	}
	if name, ok := r.DefaultName(n); ok {
		n.ApplyDefaultName(name)
	}
	return n, nil
}

// DefaultName computes n's default display name from its type's policy.
// Types without a policy fall back to the instance name.
func (r *Registry) DefaultName(n *graph.Node) (string, bool) {
	t, ok := r.Lookup(n.Type())
	if !ok {
		return "", false
	}
	if t.DefaultName == nil {
		return n.HWName(), true
	}
	return t.DefaultName(n), true
}

// Validators builds a binding table from every registered type.
func (r *Registry) Validators() *binding.Table {
	r.mu.RLock()
	defer r.mu.RUnlock()
	table := binding.NewTable()
	for name, t := range r.types {
		if t.Validator != nil {
			table.Register(name, t.Validator)
		}
	}
	return table
}
