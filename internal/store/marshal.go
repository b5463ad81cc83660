package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Pass is one journaled reconfiguration pass.
type Pass struct {
	ID               string
	Seq              int64
	Node             string // instance name
	NodeType         string
	DisplayName      string // after the pass
	UsingDefaultName bool
	Inputs           []Binding // bindings after the pass, in input order
	Changes          []Change  // in commit order
}

// Binding is one input's stream reference.
type Binding struct {
	Input  string `json:"input"`
	Stream string `json:"stream"`
}

// Change is one field a pass changed.
type Change struct {
	Kind  string // "input", "param" or "name"
	Field string
	Old   string
	New   string
	Value string // exact parameter text; empty for other kinds
}

// marshalInputs converts bindings to JSON TEXT for storage. HTML escaping
// is off so stream names like "CH1 - CH2" are stored as typed.
func marshalInputs(inputs []Binding) (string, error) {
	if inputs == nil {
		inputs = []Binding{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(inputs); err != nil {
		return "", fmt.Errorf("marshal inputs: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func unmarshalInputs(data string) ([]Binding, error) {
	out := []Binding{}
	if data == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		return nil, fmt.Errorf("unmarshal inputs: %w", err)
	}
	return out, nil
}
