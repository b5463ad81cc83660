package param

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/mldulaney/scopehal-apps/internal/unit"
)

// ErrUnsupportedKind is returned when a kind has no text form. Such
// parameters are shown as unsupported and never coerced.
var ErrUnsupportedKind = errors.New("parameter kind has no text form")

// Editable reports whether values of kind k can be edited as text.
func Editable(k Kind) bool {
	switch k {
	case KindFloat, KindInt, KindBool, KindEnum, KindFilename, KindString:
		return true
	case KindPattern:
		return false
	default:
		return false
	}
}

// Format renders the parameter's current value as edit text.
func Format(p Parameter) (string, error) {
	switch v := p.Value.(type) {
	case FloatValue:
		return p.Unit.Format(float64(v)), nil
	case IntValue:
		return p.Unit.FormatInt(int64(v)), nil
	case BoolValue:
		if v {
			return "true", nil
		}
		return "false", nil
	case EnumValue:
		if p.Enum == nil {
			return "", fmt.Errorf("parameter %q: missing enum table", p.Name)
		}
		name, ok := p.Enum.Name(int32(v))
		if !ok {
			return fmt.Sprintf("%d", int32(v)), nil
		}
		return name, nil
	case FilenameValue:
		return string(v), nil
	case StringValue:
		return string(v), nil
	case PatternValue:
		return "", fmt.Errorf("%w: %q is %s", ErrUnsupportedKind, p.Name, KindPattern)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedKind, p.Name)
	}
}

// Exact renders the value as text Parse turns back into the same value.
// Floats keep every digit instead of the display precision; other kinds
// use their edit text.
func Exact(p Parameter) (string, error) {
	if v, ok := p.Value.(FloatValue); ok {
		return p.Unit.FormatExact(float64(v)), nil
	}
	return Format(p)
}

// Describe renders the value for display, including kinds that cannot be
// edited as text.
func Describe(p Parameter) string {
	if pv, ok := p.Value.(PatternValue); ok {
		parts := make([]string, len(pv))
		for i, s := range pv {
			parts[i] = s.String()
		}
		return strings.Join(parts, " ")
	}
	text, err := Format(p)
	if err != nil {
		return "(unsupported)"
	}
	return text
}

// Parse converts edit text into a value of the parameter's declared kind.
// Malformed text fails with an error wrapping unit.ErrInvalidFormat.
func Parse(p Parameter, text string) (Value, error) {
	switch p.Value.(type) {
	case FloatValue:
		f, err := p.Unit.Parse(text)
		if err != nil {
			return nil, err
		}
		return FloatValue(f), nil
	case IntValue:
		n, err := p.Unit.ParseInt(text)
		if err != nil {
			return nil, err
		}
		return IntValue(n), nil
	case BoolValue:
		b, ok := parseBool(text)
		if !ok {
			return nil, fmt.Errorf("%w: %q is not a boolean", unit.ErrInvalidFormat, text)
		}
		return BoolValue(b), nil
	case EnumValue:
		if p.Enum == nil {
			return nil, fmt.Errorf("parameter %q: missing enum table", p.Name)
		}
		code, ok := p.Enum.Code(strings.TrimSpace(norm.NFC.String(text)))
		if !ok {
			return nil, fmt.Errorf("%w: %q is not one of %v", unit.ErrInvalidFormat, text, p.Enum.Names())
		}
		return EnumValue(code), nil
	case FilenameValue:
		return FilenameValue(strings.TrimSpace(norm.NFC.String(text))), nil
	case StringValue:
		return StringValue(norm.NFC.String(text)), nil
	case PatternValue:
		return nil, fmt.Errorf("%w: %q is %s", ErrUnsupportedKind, p.Name, KindPattern)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedKind, p.Name)
	}
}

func parseBool(text string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "true", "on", "yes", "1":
		return true, true
	case "false", "off", "no", "0":
		return false, true
	default:
		return false, false
	}
}
