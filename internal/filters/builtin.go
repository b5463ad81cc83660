package filters

import (
	"fmt"
	"strings"

	"github.com/mldulaney/scopehal-apps/internal/binding"
	"github.com/mldulaney/scopehal-apps/internal/graph"
	"github.com/mldulaney/scopehal-apps/internal/param"
	"github.com/mldulaney/scopehal-apps/internal/unit"
)

var analogOnly = []graph.StreamType{graph.StreamAnalog}

// Builtin returns a registry with the stock node types.
func Builtin() *Registry {
	r := NewRegistry()
	for _, t := range []Type{subtract(), fft(), lowPass(), threshold(), eye(), uart()} {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
	return r
}

func subtract() Type {
	return Type{
		Name: "Subtract",
		Inputs: []graph.InputPort{
			{Name: "IN+", Accepts: analogOnly},
			{Name: "IN-", Accepts: analogOnly},
		},
		Outputs:   []graph.Stream{{Name: "data", Type: graph.StreamAnalog, Unit: unit.Volts}},
		Validator: binding.ValidatorFunc(sameUnitAsOtherInput),
		DefaultName: func(n *graph.Node) string {
			return inputLabel(n, 0) + " - " + inputLabel(n, 1)
		},
	}
}

func fft() Type {
	return Type{
		Name:    "FFT",
		Inputs:  []graph.InputPort{{Name: "din", Accepts: analogOnly}},
		Outputs: []graph.Stream{{Name: "magnitude", Type: graph.StreamSpectrum, Unit: unit.DBm}},
		Params: func() []param.Parameter {
			return []param.Parameter{
				{Name: "Window", Value: param.EnumValue(1), Enum: param.NewEnumTable(
					param.EnumEntry{Name: "Rectangular", Code: 0},
					param.EnumEntry{Name: "Hann", Code: 1},
					param.EnumEntry{Name: "Hamming", Code: 2},
					param.EnumEntry{Name: "Blackman-Harris", Code: 3},
				)},
				{Name: "Range", Value: param.FloatValue(70), Unit: unit.Decibels},
			}
		},
		DefaultName: func(n *graph.Node) string {
			return fmt.Sprintf("FFT(%s)", inputLabel(n, 0))
		},
	}
}

func lowPass() Type {
	return Type{
		Name:    "LowPass",
		Inputs:  []graph.InputPort{{Name: "din", Accepts: analogOnly}},
		Outputs: []graph.Stream{{Name: "data", Type: graph.StreamAnalog, Unit: unit.Volts}},
		Params: func() []param.Parameter {
			return []param.Parameter{
				{Name: "Cutoff Frequency", Value: param.FloatValue(1e6), Unit: unit.Hertz},
				{Name: "Order", Value: param.IntValue(4), Unit: unit.Counts},
			}
		},
		DefaultName: func(n *graph.Node) string {
			return fmt.Sprintf("LPF(%s, %s)", inputLabel(n, 0), paramText(n, "Cutoff Frequency"))
		},
	}
}

func threshold() Type {
	return Type{
		Name:    "Threshold",
		Inputs:  []graph.InputPort{{Name: "din", Accepts: analogOnly}},
		Outputs: []graph.Stream{{Name: "data", Type: graph.StreamDigital}},
		Params: func() []param.Parameter {
			return []param.Parameter{
				{Name: "Threshold", Value: param.FloatValue(0), Unit: unit.Volts},
				{Name: "Hysteresis", Value: param.FloatValue(0), Unit: unit.Volts},
			}
		},
		DefaultName: func(n *graph.Node) string {
			return fmt.Sprintf("Threshold(%s, %s)", inputLabel(n, 0), paramText(n, "Threshold"))
		},
	}
}

func eye() Type {
	return Type{
		Name: "Eye",
		Inputs: []graph.InputPort{
			{Name: "din", Accepts: analogOnly},
			{Name: "clk", Accepts: []graph.StreamType{graph.StreamDigital}},
		},
		Outputs: []graph.Stream{{Name: "eye", Type: graph.StreamEye, Unit: unit.Volts}},
		Params: func() []param.Parameter {
			return []param.Parameter{
				{Name: "Center Voltage", Value: param.FloatValue(0), Unit: unit.Volts},
				{Name: "Saturation Level", Value: param.FloatValue(0.25), Unit: unit.Percent},
				{Name: "Mask", Value: param.FilenameValue("")},
				{Name: "Clock Edge", Value: param.EnumValue(0), Enum: param.NewEnumTable(
					param.EnumEntry{Name: "Rising", Code: 0},
					param.EnumEntry{Name: "Falling", Code: 1},
					param.EnumEntry{Name: "Both", Code: 2},
				)},
			}
		},
		DefaultName: func(n *graph.Node) string {
			return fmt.Sprintf("Eye(%s)", inputLabel(n, 0))
		},
	}
}

func uart() Type {
	return Type{
		Name: "UART",
		Inputs: []graph.InputPort{
			{Name: "din", Accepts: []graph.StreamType{graph.StreamAnalog, graph.StreamDigital}},
		},
		Outputs: []graph.Stream{{Name: "bytes", Type: graph.StreamProtocol}},
		Params: func() []param.Parameter {
			return []param.Parameter{
				{Name: "Baud Rate", Value: param.IntValue(115200), Unit: unit.Baud},
				{Name: "Parity", Value: param.EnumValue(0), Enum: param.NewEnumTable(
					param.EnumEntry{Name: "None", Code: 0},
					param.EnumEntry{Name: "Odd", Code: 1},
					param.EnumEntry{Name: "Even", Code: 2},
				)},
				{Name: "Invert", Value: param.BoolValue(false)},
				{Name: "Idle Pattern", Value: param.PatternValue{{Control: true, Byte: 0xbc}}},
				{Name: "Label", Value: param.StringValue("")},
			}
		},
		DefaultName: func(n *graph.Node) string {
			name := fmt.Sprintf("UART(%s, %s)", inputLabel(n, 0), paramText(n, "Baud Rate"))
			if label, err := n.Params().Text("Label"); err == nil && strings.TrimSpace(label) != "" {
				name += " " + strings.TrimSpace(label)
			}
			return name
		},
	}
}

// sameUnitAsOtherInput requires both inputs of a two-input node to carry
// the same vertical unit once the other one is bound.
func sameUnitAsOtherInput(n *graph.Node, input int, s graph.StreamDescriptor) bool {
	other := n.Input(1 - input)
	if other.IsNone() {
		return true
	}
	a, _ := other.Stream()
	b, _ := s.Stream()
	return a.Unit.Name == b.Unit.Name
}

func inputLabel(n *graph.Node, i int) string {
	return n.Input(i).Name()
}

func paramText(n *graph.Node, name string) string {
	p, ok := n.Params().Get(name)
	if !ok {
		return "?"
	}
	return param.Describe(p)
}
