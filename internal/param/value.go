package param

import (
	"fmt"
	"slices"
)

// Kind identifies which variant a Value holds. A parameter's kind is fixed
// when the owning node declares it.
type Kind int

const (
	KindFloat Kind = iota + 1
	KindInt
	KindBool
	KindEnum
	KindFilename
	KindString
	KindPattern
)

// String returns the lowercase kind name used in graph files and CLI output.
func (k Kind) String() string {
	switch k {
	case KindFloat:
		return "float"
	case KindInt:
		return "int"
	case KindBool:
		return "bool"
	case KindEnum:
		return "enum"
	case KindFilename:
		return "filename"
	case KindString:
		return "string"
	case KindPattern:
		return "pattern"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	for k := KindFloat; k <= KindPattern; k++ {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown parameter kind %q", s)
}

// Value is a sealed interface over the parameter variants.
// Only FloatValue, IntValue, BoolValue, EnumValue, FilenameValue, StringValue
// and PatternValue implement it.
type Value interface {
	Kind() Kind
	paramValue()
}

// FloatValue is a floating-point parameter payload.
type FloatValue float64

func (FloatValue) Kind() Kind { return KindFloat }
func (FloatValue) paramValue() {}

// IntValue is a 64-bit integer payload. It never passes through float64.
type IntValue int64

func (IntValue) Kind() Kind { return KindInt }
func (IntValue) paramValue() {}

// BoolValue is a boolean payload.
type BoolValue bool

func (BoolValue) Kind() Kind { return KindBool }
func (BoolValue) paramValue() {}

// EnumValue holds the code of an enumerated constant; the owning
// Parameter's EnumTable maps it to a name.
type EnumValue int32

func (EnumValue) Kind() Kind { return KindEnum }
func (EnumValue) paramValue() {}

// FilenameValue is a file path payload.
type FilenameValue string

func (FilenameValue) Kind() Kind { return KindFilename }
func (FilenameValue) paramValue() {}

// StringValue is an arbitrary string payload.
type StringValue string

func (StringValue) Kind() Kind { return KindString }
func (StringValue) paramValue() {}

// PatternValue is an 8b/10b symbol sequence, as used by pattern-matching
// triggers and serial decoders.
type PatternValue []Symbol

func (PatternValue) Kind() Kind { return KindPattern }
func (PatternValue) paramValue() {}

// Symbol is one 8b/10b symbol: a data (D) or control (K) code.
type Symbol struct {
	Control bool
	Byte    uint8
}

// String renders the symbol in Dx.y / Kx.y notation.
func (s Symbol) String() string {
	kind := "D"
	if s.Control {
		kind = "K"
	}
	return fmt.Sprintf("%s%d.%d", kind, s.Byte&0x1f, s.Byte>>5)
}

// Equal reports whether a and b are the same variant with the same payload.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch av := a.(type) {
	case FloatValue:
		return av == b.(FloatValue)
	case IntValue:
		return av == b.(IntValue)
	case BoolValue:
		return av == b.(BoolValue)
	case EnumValue:
		return av == b.(EnumValue)
	case FilenameValue:
		return av == b.(FilenameValue)
	case StringValue:
		return av == b.(StringValue)
	case PatternValue:
		return slices.Equal(av, b.(PatternValue))
	default:
		return false
	}
}

// Zero returns the zero payload for k.
func Zero(k Kind) (Value, error) {
	switch k {
	case KindFloat:
		return FloatValue(0), nil
	case KindInt:
		return IntValue(0), nil
	case KindBool:
		return BoolValue(false), nil
	case KindEnum:
		return EnumValue(0), nil
	case KindFilename:
		return FilenameValue(""), nil
	case KindString:
		return StringValue(""), nil
	case KindPattern:
		return PatternValue{}, nil
	default:
		return nil, fmt.Errorf("unknown parameter kind %d", int(k))
	}
}

func clone(v Value) Value {
	if p, ok := v.(PatternValue); ok {
		return slices.Clone(p)
	}
	return v
}
