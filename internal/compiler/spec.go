package compiler

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// GraphSpec is a graph description as written, before any name is resolved.
//
// The CUE form is:
//
//	instrument: scope: channel: {
//		CH1: stream: [{name: "data", type: "analog", unit: "volts"}]
//	}
//	node: Subtract1: {
//		type: "Subtract"
//		name: "diff"                  // optional; omitted means default naming
//		input: {"IN+": "scope.CH1"}  // port name -> stream reference
//		param: {"Threshold": "3.3 V"} // parameter name -> edit text
//	}
type GraphSpec struct {
	Instruments []InstrumentSpec
	Nodes       []NodeSpec
}

// InstrumentSpec is one instrument and its channels in declaration order.
type InstrumentSpec struct {
	Name     string
	Channels []ChannelSpec
	Pos      token.Pos
}

// ChannelSpec is one hardware channel.
type ChannelSpec struct {
	Name    string
	Streams []StreamSpec
	Pos     token.Pos
}

// StreamSpec is one channel output. Type and Unit are names checked by
// Validate.
type StreamSpec struct {
	Name string
	Type string
	Unit string
	Pos  token.Pos
}

// NodeSpec is one processing node.
type NodeSpec struct {
	HWName string
	Type   string
	Name   string // display name override, empty for default naming
	Inputs []BindingSpec
	Params []ParamSpec
	Pos    token.Pos
}

// BindingSpec binds an input port to a stream reference.
type BindingSpec struct {
	Port   string
	Stream string
	Pos    token.Pos
}

// ParamSpec sets a parameter from edit text.
type ParamSpec struct {
	Name string
	Text string
	Pos  token.Pos
}

// ParseGraph reads a graph description from a CUE value holding the
// top-level "instrument" and "node" structs. Both are optional.
func ParseGraph(v cue.Value) (*GraphSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &GraphSpec{}
	var err error
	spec.Instruments, err = parseInstruments(v)
	if err != nil {
		return nil, err
	}
	spec.Nodes, err = parseNodes(v)
	if err != nil {
		return nil, err
	}
	return spec, nil
}

func parseInstruments(v cue.Value) ([]InstrumentSpec, error) {
	var out []InstrumentSpec

	instVal := v.LookupPath(cue.ParsePath("instrument"))
	if !instVal.Exists() {
		return out, nil
	}
	iter, err := instVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	for iter.Next() {
		inst := InstrumentSpec{Name: iter.Label(), Pos: iter.Value().Pos()}

		chanVal := iter.Value().LookupPath(cue.ParsePath("channel"))
		if !chanVal.Exists() {
			return nil, &CompileError{
				Field:   fmt.Sprintf("instrument.%s.channel", inst.Name),
				Message: "an instrument needs at least one channel",
				Pos:     inst.Pos,
			}
		}
		chanIter, err := chanVal.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for chanIter.Next() {
			ch, err := parseChannel(inst.Name, chanIter.Label(), chanIter.Value())
			if err != nil {
				return nil, err
			}
			inst.Channels = append(inst.Channels, ch)
		}
		out = append(out, inst)
	}
	return out, nil
}

func parseChannel(inst, name string, v cue.Value) (ChannelSpec, error) {
	ch := ChannelSpec{Name: name, Pos: v.Pos()}
	field := fmt.Sprintf("instrument.%s.channel.%s.stream", inst, name)

	streamsVal := v.LookupPath(cue.ParsePath("stream"))
	if !streamsVal.Exists() {
		return ch, &CompileError{Field: field, Message: "channel streams are required", Pos: ch.Pos}
	}
	iter, err := streamsVal.List()
	if err != nil {
		return ch, formatCUEError(err)
	}
	for iter.Next() {
		sv := iter.Value()
		s := StreamSpec{Pos: sv.Pos()}

		// name and unit are optional; type is not.
		if s.Name, err = optionalString(sv, "name"); err != nil {
			return ch, err
		}
		if s.Unit, err = optionalString(sv, "unit"); err != nil {
			return ch, err
		}
		typeVal := sv.LookupPath(cue.ParsePath("type"))
		if !typeVal.Exists() {
			return ch, &CompileError{Field: field + ".type", Message: "stream type is required", Pos: s.Pos}
		}
		if s.Type, err = typeVal.String(); err != nil {
			return ch, formatCUEError(err)
		}
		ch.Streams = append(ch.Streams, s)
	}
	if len(ch.Streams) == 0 {
		return ch, &CompileError{Field: field, Message: "a channel needs at least one stream", Pos: ch.Pos}
	}
	return ch, nil
}

func parseNodes(v cue.Value) ([]NodeSpec, error) {
	var out []NodeSpec

	nodeVal := v.LookupPath(cue.ParsePath("node"))
	if !nodeVal.Exists() {
		return out, nil
	}
	iter, err := nodeVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	for iter.Next() {
		nv := iter.Value()
		n := NodeSpec{HWName: iter.Label(), Pos: nv.Pos()}

		typeVal := nv.LookupPath(cue.ParsePath("type"))
		if !typeVal.Exists() {
			return nil, &CompileError{
				Field:   fmt.Sprintf("node.%s.type", n.HWName),
				Message: "node type is required",
				Pos:     n.Pos,
			}
		}
		if n.Type, err = typeVal.String(); err != nil {
			return nil, formatCUEError(err)
		}
		if n.Name, err = optionalString(nv, "name"); err != nil {
			return nil, err
		}

		inputVal := nv.LookupPath(cue.ParsePath("input"))
		if inputVal.Exists() {
			inIter, err := inputVal.Fields()
			if err != nil {
				return nil, formatCUEError(err)
			}
			for inIter.Next() {
				ref, err := inIter.Value().String()
				if err != nil {
					return nil, formatCUEError(err)
				}
				n.Inputs = append(n.Inputs, BindingSpec{Port: inIter.Label(), Stream: ref, Pos: inIter.Value().Pos()})
			}
		}

		paramVal := nv.LookupPath(cue.ParsePath("param"))
		if paramVal.Exists() {
			pIter, err := paramVal.Fields()
			if err != nil {
				return nil, formatCUEError(err)
			}
			for pIter.Next() {
				text, err := paramText(pIter.Value())
				if err != nil {
					return nil, err
				}
				n.Params = append(n.Params, ParamSpec{Name: pIter.Label(), Text: text, Pos: pIter.Value().Pos()})
			}
		}

		out = append(out, n)
	}
	return out, nil
}

// paramText accepts strings as written and numbers or bools in their JSON
// form, so `Order: 4` and `Order: "4"` mean the same.
func paramText(v cue.Value) (string, error) {
	switch v.Kind() {
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return "", formatCUEError(err)
		}
		return s, nil
	case cue.IntKind, cue.FloatKind, cue.NumberKind, cue.BoolKind:
		b, err := v.MarshalJSON()
		if err != nil {
			return "", formatCUEError(err)
		}
		return string(b), nil
	default:
		return "", &CompileError{
			Field:   "param",
			Message: fmt.Sprintf("parameter values must be strings, numbers or bools, not %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

func optionalString(v cue.Value, path string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(path))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return strings.TrimSpace(s), nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// First error with position info wins.
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
