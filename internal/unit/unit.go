package unit

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cockroachdb/apd/v3"
	"golang.org/x/text/unicode/norm"
)

// ErrInvalidFormat is returned when text is not a recognized number with an
// optional SI prefix and unit suffix.
var ErrInvalidFormat = errors.New("invalid format")

// DefaultPrecision is the number of significant digits Format prints when a
// Unit does not set its own.
const DefaultPrecision = 6

// Unit converts between a stored numeric value and its human-readable text.
//
// The stored value multiplied by 10^ScaleExp is the display value in the base
// unit. The femtosecond time axis, for example, stores integers of fs and
// displays seconds (ScaleExp -15); percentages store fractions and display
// hundredths (ScaleExp 2).
type Unit struct {
	Name      string   // registry key, e.g. "volts"
	Symbol    string   // display suffix, e.g. "V"; empty for dimensionless values
	Aliases   []string // extra suffixes accepted by Parse
	ScaleExp  int      // display = stored * 10^ScaleExp
	Prefixed  bool     // whether SI prefixes are applied
	Precision int      // significant digits printed by Format (0 = DefaultPrecision)
}

type siPrefix struct {
	symbol string
	exp    int
}

// prefixes lists the SI prefixes Format may choose, largest first.
// Micro uses U+03BC, the NFKC form of the micro sign.
var prefixes = []siPrefix{
	{"T", 12},
	{"G", 9},
	{"M", 6},
	{"k", 3},
	{"", 0},
	{"m", -3},
	{"μ", -6},
	{"n", -9},
	{"p", -12},
	{"f", -15},
}

const (
	maxPrefixExp = 12
	minPrefixExp = -15
)

// parsePrefixes also accepts the ASCII spellings people actually type.
var parsePrefixes = map[string]int{
	"T": 12,
	"G": 9,
	"M": 6,
	"k": 3,
	"K": 3,
	"m": -3,
	"μ": -6,
	"u": -6,
	"n": -9,
	"p": -12,
	"f": -15,
}

func (u Unit) precision() int {
	if u.Precision <= 0 {
		return DefaultPrecision
	}
	return u.Precision
}

// Format renders v with an SI prefix and the unit symbol. It never fails;
// non-finite values render as NaN, +Inf or -Inf followed by the symbol.
func (u Unit) Format(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return u.join(strconv.FormatFloat(v, 'g', -1, 64), "")
	}

	display := v * math.Pow10(u.ScaleExp)
	prec := u.precision()
	if v != 0 && !isNormal(display) {
		return u.formatDecimal(strconv.FormatFloat(v, 'g', prec, 64))
	}
	if !u.Prefixed || display == 0 {
		return u.join(strconv.FormatFloat(display, 'g', prec, 64), "")
	}

	exp := clampPrefix(floorDiv(int(math.Floor(math.Log10(math.Abs(display)))), 3) * 3)
	text := strconv.FormatFloat(display/math.Pow10(exp), 'g', prec, 64)

	// Log10 and rounding can leave the mantissa just outside [1,1000).
	for i := 0; i < 2; i++ {
		m, _ := strconv.ParseFloat(text, 64)
		switch {
		case math.Abs(m) >= 1000 && exp < maxPrefixExp:
			exp += 3
		case math.Abs(m) < 1 && exp > minPrefixExp:
			exp -= 3
		default:
			return u.join(text, prefixSymbol(exp))
		}
		text = strconv.FormatFloat(display/math.Pow10(exp), 'g', prec, 64)
	}
	return u.join(text, prefixSymbol(exp))
}

// FormatExact renders v with every digit Parse needs to return v itself.
// It uses no SI prefix. Journals store this form; Format is for people.
func (u Unit) FormatExact(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return u.join(strconv.FormatFloat(v, 'g', -1, 64), "")
	}
	d, _, err := apd.NewFromString(strconv.FormatFloat(v, 'g', -1, 64))
	if err != nil {
		return u.join(strconv.FormatFloat(v, 'g', -1, 64), "")
	}
	d.Exponent += int32(u.ScaleExp)
	d.Reduce(d)
	return u.join(decimalText(d), "")
}

// formatDecimal scales num to display units in decimal arithmetic. Format
// falls back to it when the float scale would overflow or lose precision.
func (u Unit) formatDecimal(num string) string {
	d, _, err := apd.NewFromString(num)
	if err != nil {
		return u.join(num, "")
	}
	d.Exponent += int32(u.ScaleExp)
	exp := 0
	if u.Prefixed && !d.IsZero() {
		mag := int(d.NumDigits()) - 1 + int(d.Exponent)
		exp = clampPrefix(floorDiv(mag, 3) * 3)
	}
	d.Exponent -= int32(exp)
	d.Reduce(d)
	return u.join(decimalText(d), prefixSymbol(exp))
}

// decimalText prints d positionally unless that would run to dozens of
// zeros.
func decimalText(d *apd.Decimal) string {
	adj := int(d.NumDigits()) - 1 + int(d.Exponent)
	if adj < -20 || adj > 20 {
		return d.Text('G')
	}
	return d.Text('f')
}

func isNormal(f float64) bool {
	a := math.Abs(f)
	return a >= 0x1p-1022 && !math.IsInf(a, 0)
}

// Parse is the inverse of Format.
func (u Unit) Parse(s string) (float64, error) {
	d, err := u.parseDecimal(s)
	if err != nil {
		return 0, err
	}
	f, err := d.Float64()
	if err != nil || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %q is out of range", ErrInvalidFormat, s)
	}
	return f, nil
}

// FormatInt renders n exactly. Unlike Format it never rounds: every digit of a
// 64-bit value survives the trip through text.
func (u Unit) FormatInt(n int64) string {
	if n == 0 {
		return u.join("0", "")
	}

	d := apd.New(n, int32(u.ScaleExp))
	exp := 0
	if u.Prefixed {
		mag := int(d.NumDigits()) - 1 + int(d.Exponent)
		exp = clampPrefix(floorDiv(mag, 3) * 3)
	}
	d.Exponent -= int32(exp)
	d.Reduce(d)
	return u.join(d.Text('f'), prefixSymbol(exp))
}

// ParseInt is the inverse of FormatInt. Text that denotes a fractional value
// or one outside the int64 range fails with ErrInvalidFormat.
func (u Unit) ParseInt(s string) (int64, error) {
	d, err := u.parseDecimal(s)
	if err != nil {
		return 0, err
	}
	if d.IsZero() {
		return 0, nil
	}
	// int64 has 19 digits; anything scaled further can't fit.
	if int64(d.Exponent)+d.NumDigits() > 20 {
		return 0, fmt.Errorf("%w: %q is out of range", ErrInvalidFormat, s)
	}
	n, err := d.Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an integer: %v", ErrInvalidFormat, s, err)
	}
	return n, nil
}

// Tolerance is how far Parse(Format(v)) may drift from v. Values whose
// display form would leave the float range are scaled in decimal, so the
// bound is relative everywhere and zero round-trips exactly.
func (u Unit) Tolerance(v float64) float64 {
	return math.Abs(v) * math.Pow10(1-u.precision())
}

// String returns the unit's registry name.
func (u Unit) String() string {
	return u.Name
}

// parseDecimal splits s into mantissa, prefix and symbol and returns the
// stored value as an exact decimal.
func (u Unit) parseDecimal(s string) (*apd.Decimal, error) {
	t := strings.TrimSpace(norm.NFKC.String(s))
	n := scanNumber(t)
	if n == 0 {
		return nil, fmt.Errorf("%w: %q has no leading number", ErrInvalidFormat, s)
	}

	num := strings.TrimPrefix(t[:n], "+")
	exp, ok := u.suffixExp(strings.TrimSpace(t[n:]))
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a %s value", ErrInvalidFormat, s, u.Name)
	}

	d, _, err := apd.NewFromString(num)
	if err != nil || d.Form != apd.Finite {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}
	shift := int64(d.Exponent) + int64(exp-u.ScaleExp)
	if shift > math.MaxInt32/2 || shift < math.MinInt32/2 {
		return nil, fmt.Errorf("%w: %q is out of range", ErrInvalidFormat, s)
	}
	d.Exponent = int32(shift)
	return d, nil
}

// suffixExp strips the unit symbol (or an alias) from rest and returns the
// power of ten of whatever SI prefix remains. Symbols match case exactly:
// "b" is not "B".
func (u Unit) suffixExp(rest string) (int, bool) {
	for _, sym := range u.symbols() {
		if strings.HasSuffix(rest, sym) {
			rest = strings.TrimSpace(rest[:len(rest)-len(sym)])
			break
		}
	}
	if rest == "" {
		return 0, true
	}
	if !u.Prefixed {
		return 0, false
	}
	exp, ok := parsePrefixes[rest]
	return exp, ok
}

// symbols returns the symbol and aliases, longest first so that "dBm" wins
// over "m".
func (u Unit) symbols() []string {
	var out []string
	if u.Symbol != "" {
		out = append(out, u.Symbol)
	}
	out = append(out, u.Aliases...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && len(out[j]) > len(out[j-1]); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func (u Unit) join(num, prefix string) string {
	suffix := prefix + u.Symbol
	if suffix == "" {
		return num
	}
	return num + " " + suffix
}

// scanNumber returns the length of the decimal number at the start of s,
// or 0 if there is none. An exponent is only consumed when digits follow it.
func scanNumber(s string) int {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && isDigit(s[i]) {
			i++
			digits++
		}
	}
	if digits == 0 {
		return 0
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		k := j
		for k < len(s) && isDigit(s[k]) {
			k++
		}
		if k > j {
			i = k
		}
	}
	return i
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func clampPrefix(exp int) int {
	if exp > maxPrefixExp {
		return maxPrefixExp
	}
	if exp < minPrefixExp {
		return minPrefixExp
	}
	return exp
}

func prefixSymbol(exp int) string {
	for _, p := range prefixes {
		if p.exp == exp {
			return p.symbol
		}
	}
	return ""
}
