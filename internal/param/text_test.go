package param

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mldulaney/scopehal-apps/internal/unit"
)

func TestExact(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Set("threshold", FloatValue(1.23456789))
	require.NoError(t, err)

	p, _ := s.Get("threshold")
	text, err := Exact(p)
	require.NoError(t, err)
	assert.Equal(t, "1.23456789 V", text)
	v, err := Parse(p, text)
	require.NoError(t, err)
	assert.Equal(t, FloatValue(1.23456789), v)

	p, _ = s.Get("holdoff")
	text, err = Exact(p)
	require.NoError(t, err)
	assert.Equal(t, "1.5 ps", text)

	p, _ = s.Get("pattern")
	_, err = Exact(p)
	assert.ErrorIs(t, err, ErrUnsupportedKind)
}

func TestFormat(t *testing.T) {
	s := newTestStore(t)

	tests := map[string]string{
		"threshold": "3.3 V",
		"holdoff":   "1.5 ps",
		"invert":    "false",
		"window":    "Hann",
		"path":      "/tmp/a.csv",
		"label":     "tap",
	}
	for name, want := range tests {
		p, ok := s.Get(name)
		require.True(t, ok)
		got, err := Format(p)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	p, _ := s.Get("pattern")
	_, err := Format(p)
	assert.ErrorIs(t, err, ErrUnsupportedKind)
	assert.Equal(t, "K28.5", Describe(p))
}

func TestParse(t *testing.T) {
	s := newTestStore(t)
	get := func(name string) Parameter {
		p, ok := s.Get(name)
		require.True(t, ok)
		return p
	}

	v, err := Parse(get("threshold"), "1.8 V")
	require.NoError(t, err)
	assert.Equal(t, FloatValue(1.8), v)

	v, err = Parse(get("holdoff"), "2 ns")
	require.NoError(t, err)
	assert.Equal(t, IntValue(2000000), v)

	v, err = Parse(get("invert"), " On ")
	require.NoError(t, err)
	assert.Equal(t, BoolValue(true), v)

	v, err = Parse(get("window"), "blackman-harris")
	require.NoError(t, err)
	assert.Equal(t, EnumValue(2), v)

	v, err = Parse(get("path"), "  /data/cap.bin ")
	require.NoError(t, err)
	assert.Equal(t, FilenameValue("/data/cap.bin"), v)

	// Decomposed e + combining acute is normalized to the precomposed form.
	v, err = Parse(get("label"), "cafe\u0301")
	require.NoError(t, err)
	assert.Equal(t, StringValue("caf\u00e9"), v)
}

func TestParseInvalid(t *testing.T) {
	s := newTestStore(t)

	for name, text := range map[string]string{
		"threshold": "not_a_number",
		"holdoff":   "0.5 fs",
		"invert":    "maybe",
		"window":    "Kaiser",
	} {
		p, _ := s.Get(name)
		_, err := Parse(p, text)
		assert.ErrorIs(t, err, unit.ErrInvalidFormat, name)
	}

	p, _ := s.Get("pattern")
	_, err := Parse(p, "K28.5")
	assert.ErrorIs(t, err, ErrUnsupportedKind)
}

func TestIntParameterKeepsFullPrecision(t *testing.T) {
	p := Parameter{Name: "depth", Value: IntValue(math.MaxInt64 - 1), Unit: unit.Samples}

	text, err := Format(p)
	require.NoError(t, err)

	v, err := Parse(p, text)
	require.NoError(t, err)
	assert.Equal(t, IntValue(math.MaxInt64-1), v)
}

func TestEditable(t *testing.T) {
	assert.True(t, Editable(KindFloat))
	assert.True(t, Editable(KindEnum))
	assert.False(t, Editable(KindPattern))
	assert.False(t, Editable(Kind(99)))
}
