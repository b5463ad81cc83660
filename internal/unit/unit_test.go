package unit

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name string
		unit Unit
		in   float64
		want string
	}{
		{"volts plain", Volts, 3.3, "3.3 V"},
		{"millivolts", Volts, 0.0033, "3.3 mV"},
		{"kilohertz", Hertz, 123456.7, "123.457 kHz"},
		{"megahertz", Hertz, 2.5e6, "2.5 MHz"},
		{"zero", Volts, 0, "0 V"},
		{"negative", Volts, -0.5, "-500 mV"},
		{"femtosecond axis", Femtoseconds, 1500, "1.5 ps"},
		{"nanoseconds", Femtoseconds, 1e6, "1 ns"},
		{"percent", Percent, 0.25, "25 %"},
		{"decibels unprefixed", Decibels, -3, "-3 dB"},
		{"counts", Counts, 42, "42"},
		{"rounds up into next prefix", Volts, 999.9999999, "1 kV"},
		{"nan", Volts, math.NaN(), "NaN V"},
		{"inf", Volts, math.Inf(1), "+Inf V"},
		{"percent past float range", Percent, 1.7e308, "1.7E+310 %"},
		{"femtoseconds below float range", Femtoseconds, 1e-300, "1E-300 fs"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.unit.Format(tt.in))
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		unit Unit
		in   string
		want float64
	}{
		{"volts", Volts, "3.3 V", 3.3},
		{"millivolts no space", Volts, "3.3mV", 0.0033},
		{"prefix without symbol", Volts, "3.3 m", 0.0033},
		{"bare number", Volts, "12", 12},
		{"lowercase hertz alias", Hertz, "10 khz", 10000},
		{"capital K alias", Hertz, "10 KHz", 10000},
		{"ascii micro", Amps, "5 uA", 5e-6},
		{"micro sign", Amps, "5 µA", 5e-6},
		{"greek mu", Amps, "5 μA", 5e-6},
		{"exponent", Volts, "1e3 V", 1000},
		{"leading plus", Volts, "+2 V", 2},
		{"surrounding space", Volts, "  1.5 V  ", 1.5},
		{"femtoseconds from ns", Femtoseconds, "2 ns", 2e6},
		{"femtoseconds alias", Femtoseconds, "1 sec", 1e15},
		{"percent", Percent, "25%", 0.25},
		{"ohm sign", Ohms, "50 Ω", 50},
		{"ohm alias", Ohms, "1 kohm", 1000},
		{"sample rate", SampleRate, "10 GS/s", 1e10},
		{"dBm", DBm, "-10 dBm", -10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.unit.Parse(tt.in)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, math.Abs(tt.want)*1e-12)
		})
	}
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name string
		unit Unit
		in   string
	}{
		{"empty", Volts, ""},
		{"not a number", Volts, "not_a_number"},
		{"wrong unit", Volts, "3 Hz"},
		{"unknown prefix", Volts, "3 xV"},
		{"prefix on unprefixed unit", Decibels, "3 kdB"},
		{"dBm on dB", Decibels, "3 dBm"},
		{"dangling exponent is a suffix", Volts, "3e"},
		{"only sign", Volts, "-"},
		{"overflow", Volts, "1e400"},
		{"symbol case: bytes are not bits", Bits, "5 B"},
		{"symbol case: lowercase volts", Volts, "5 v"},
		{"symbol case: uppercase hertz", Hertz, "5 HZ"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.unit.Parse(tt.in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidFormat))
		})
	}
}

func TestFormatParseRoundTrip(t *testing.T) {
	values := []float64{
		3.3, 0.0033, -12.5, 1, 999.5, 1234.5678, 1e-14, 7.77e11,
		123456789, 0.1, -0.000123, 42, 2.5e9, 1.0 / 3.0,
	}

	for _, u := range []Unit{Volts, Hertz, Femtoseconds, Percent, Decibels, Counts, Ohms} {
		for _, v := range values {
			text := u.Format(v)
			got, err := u.Parse(text)
			require.NoError(t, err, "unit %s text %q", u.Name, text)
			assert.InDelta(t, v, got, u.Tolerance(v), "unit %s text %q", u.Name, text)
		}
	}
}

func TestFormatParseRoundTrip_ExtremeMagnitudes(t *testing.T) {
	for _, tt := range []struct {
		unit Unit
		v    float64
	}{
		{Percent, 1.7e308},
		{Percent, -math.MaxFloat64},
		{Femtoseconds, 1e-300},
		{Femtoseconds, 5e-324},
		{Volts, 3e-310},
	} {
		text := tt.unit.Format(tt.v)
		got, err := tt.unit.Parse(text)
		require.NoError(t, err, "unit %s text %q", tt.unit.Name, text)
		assert.InDelta(t, tt.v, got, tt.unit.Tolerance(tt.v), "unit %s text %q", tt.unit.Name, text)
	}
}

func TestFormatExact(t *testing.T) {
	tests := []struct {
		name string
		unit Unit
		in   float64
		want string
	}{
		{"keeps digits Format rounds", Hertz, 1234567.8, "1234567.8 Hz"},
		{"no prefix", Volts, 0.1, "0.1 V"},
		{"whole number", Hertz, 2e7, "20000000 Hz"},
		{"percent scales in decimal", Percent, 0.123456789, "12.3456789 %"},
		{"femtosecond axis", Femtoseconds, 1500, "0.0000000000015 s"},
		{"tiny", Volts, 1e-30, "1E-30 V"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.unit.FormatExact(tt.in))
		})
	}
}

func TestFormatExactRoundTripIsExact(t *testing.T) {
	values := []float64{
		1234567.8, 0.1, 1.0 / 3.0, -2.718281828459045, 1e-14, 7.77e11,
		123456789.123456789, 5e-324, math.MaxFloat64 / 1000,
	}
	for _, u := range []Unit{Volts, Hertz, Femtoseconds, Percent, Decibels, Counts} {
		for _, v := range values {
			text := u.FormatExact(v)
			got, err := u.Parse(text)
			require.NoError(t, err, "unit %s text %q", u.Name, text)
			assert.Equal(t, v, got, "unit %s text %q", u.Name, text)
		}
	}
}

func TestFormatInt(t *testing.T) {
	tests := []struct {
		name string
		unit Unit
		in   int64
		want string
	}{
		{"zero", Femtoseconds, 0, "0 s"},
		{"picoseconds", Femtoseconds, 1500, "1.5 ps"},
		{"exact nanoseconds", Femtoseconds, 1234567, "1.234567 ns"},
		{"counts keep every digit", Counts, 9007199254740993, "9007199254740993"},
		{"max int64", Counts, math.MaxInt64, "9223372036854775807"},
		{"min int64", Counts, math.MinInt64, "-9223372036854775808"},
		{"prefixed large", Samples, 9007199254740993, "9007.199254740993 TSa"},
		{"kilo", Hertz, 12000, "12 kHz"},
		{"below one", Femtoseconds, 1, "1 fs"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.unit.FormatInt(tt.in))
		})
	}
}

func TestParseInt(t *testing.T) {
	got, err := Femtoseconds.ParseInt("1.5 ps")
	require.NoError(t, err)
	assert.Equal(t, int64(1500), got)

	got, err = Counts.ParseInt("9007199254740993")
	require.NoError(t, err)
	assert.Equal(t, int64(9007199254740993), got)

	got, err = Hertz.ParseInt("1.0 kHz")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), got)

	got, err = Counts.ParseInt("-0")
	require.NoError(t, err)
	assert.Equal(t, int64(0), got)

	for _, bad := range []string{"1.5", "1 fs extra", "9223372036854775808", "1e30", "abc", "0.5 fs"} {
		_, err := Femtoseconds.ParseInt(bad)
		if bad == "1.5" {
			// 1.5 s is an exact number of femtoseconds.
			require.NoError(t, err)
			continue
		}
		assert.ErrorIs(t, err, ErrInvalidFormat, "input %q", bad)
	}

	_, err = Counts.ParseInt("1.5")
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestFormatIntRoundTripIsExact(t *testing.T) {
	values := []int64{
		0, 1, -1, 999, 1000, 1001, 123456789012345,
		9007199254740993, math.MaxInt64, math.MinInt64 + 1,
	}
	for _, u := range []Unit{Counts, Femtoseconds, Hertz, Samples} {
		for _, v := range values {
			text := u.FormatInt(v)
			got, err := u.ParseInt(text)
			require.NoError(t, err, "unit %s text %q", u.Name, text)
			assert.Equal(t, v, got, "unit %s text %q", u.Name, text)
		}
	}
}

func TestLookup(t *testing.T) {
	u, ok := Lookup("volts")
	require.True(t, ok)
	assert.Equal(t, "V", u.Symbol)

	_, ok = Lookup("furlongs")
	assert.False(t, ok)

	assert.Contains(t, Names(), "fs")
	assert.Panics(t, func() { MustLookup("furlongs") })
}
