package param

import (
	"errors"
	"fmt"

	"github.com/mldulaney/scopehal-apps/internal/unit"
)

var (
	// ErrUnknownParameter is returned for names the store never declared.
	ErrUnknownParameter = errors.New("unknown parameter")

	// ErrKindMismatch is returned when a value's kind differs from the
	// declared kind of the parameter it is written to.
	ErrKindMismatch = errors.New("parameter kind mismatch")

	// ErrDuplicateParameter is returned when a name is declared twice.
	ErrDuplicateParameter = errors.New("duplicate parameter")
)

// Parameter is a named, typed value with the unit used to display it.
type Parameter struct {
	Name  string
	Value Value
	Unit  unit.Unit
	Enum  *EnumTable // set for KindEnum parameters only
}

// Kind returns the declared kind of the parameter.
func (p Parameter) Kind() Kind {
	if p.Value == nil {
		return 0
	}
	return p.Value.Kind()
}

// Store is the ordered parameter set owned by one node.
//
// Enumeration follows declaration order. A parameter's kind never changes after
// Declare; Set only replaces the payload.
type Store struct {
	order  []string
	params map[string]*Parameter
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{params: make(map[string]*Parameter)}
}

// Declare adds a parameter. The initial value fixes its kind.
func (s *Store) Declare(p Parameter) error {
	if p.Name == "" {
		return errors.New("parameter name cannot be empty")
	}
	if p.Value == nil {
		return fmt.Errorf("parameter %q: value cannot be nil", p.Name)
	}
	if p.Value.Kind() == KindEnum && p.Enum == nil {
		return fmt.Errorf("parameter %q: enum parameter requires an enum table", p.Name)
	}
	if _, exists := s.params[p.Name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateParameter, p.Name)
	}

	p.Value = clone(p.Value)
	s.params[p.Name] = &p
	s.order = append(s.order, p.Name)
	return nil
}

// Get returns a copy of the named parameter.
func (s *Store) Get(name string) (Parameter, bool) {
	p, ok := s.params[name]
	if !ok {
		return Parameter{}, false
	}
	out := *p
	out.Value = clone(p.Value)
	return out, true
}

// Set replaces the payload of the named parameter and reports whether the
// stored value changed. The store is untouched on error.
func (s *Store) Set(name string, v Value) (bool, error) {
	p, ok := s.params[name]
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownParameter, name)
	}
	if v == nil || v.Kind() != p.Value.Kind() {
		got := Kind(0)
		if v != nil {
			got = v.Kind()
		}
		return false, fmt.Errorf("%w: %q is %s, got %s", ErrKindMismatch, name, p.Value.Kind(), got)
	}
	if Equal(p.Value, v) {
		return false, nil
	}
	p.Value = clone(v)
	return true, nil
}

// Len returns the number of declared parameters.
func (s *Store) Len() int {
	return len(s.order)
}

// Names returns parameter names in declaration order.
func (s *Store) Names() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// All returns a snapshot of every parameter in declaration order.
func (s *Store) All() []Parameter {
	out := make([]Parameter, 0, len(s.order))
	for _, name := range s.order {
		p, _ := s.Get(name)
		out = append(out, p)
	}
	return out
}

// Clone returns a deep copy of the store.
func (s *Store) Clone() *Store {
	c := NewStore()
	for _, p := range s.All() {
		_ = c.Declare(p)
	}
	return c
}

// Float returns the payload of a KindFloat parameter.
func (s *Store) Float(name string) (float64, error) {
	v, err := s.typed(name, KindFloat)
	if err != nil {
		return 0, err
	}
	return float64(v.(FloatValue)), nil
}

// Int returns the payload of a KindInt parameter.
func (s *Store) Int(name string) (int64, error) {
	v, err := s.typed(name, KindInt)
	if err != nil {
		return 0, err
	}
	return int64(v.(IntValue)), nil
}

// Bool returns the payload of a KindBool parameter.
func (s *Store) Bool(name string) (bool, error) {
	v, err := s.typed(name, KindBool)
	if err != nil {
		return false, err
	}
	return bool(v.(BoolValue)), nil
}

// Enum returns the code of a KindEnum parameter.
func (s *Store) Enum(name string) (int32, error) {
	v, err := s.typed(name, KindEnum)
	if err != nil {
		return 0, err
	}
	return int32(v.(EnumValue)), nil
}

// Text returns the payload of a KindString parameter.
func (s *Store) Text(name string) (string, error) {
	v, err := s.typed(name, KindString)
	if err != nil {
		return "", err
	}
	return string(v.(StringValue)), nil
}

// Filename returns the payload of a KindFilename parameter.
func (s *Store) Filename(name string) (string, error) {
	v, err := s.typed(name, KindFilename)
	if err != nil {
		return "", err
	}
	return string(v.(FilenameValue)), nil
}

func (s *Store) typed(name string, k Kind) (Value, error) {
	p, ok := s.params[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownParameter, name)
	}
	if p.Value.Kind() != k {
		return nil, fmt.Errorf("%w: %q is %s, not %s", ErrKindMismatch, name, p.Value.Kind(), k)
	}
	return p.Value, nil
}
