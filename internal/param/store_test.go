package param

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mldulaney/scopehal-apps/internal/unit"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s := NewStore()
	require.NoError(t, s.Declare(Parameter{Name: "threshold", Value: FloatValue(3.3), Unit: unit.Volts}))
	require.NoError(t, s.Declare(Parameter{Name: "holdoff", Value: IntValue(1500), Unit: unit.Femtoseconds}))
	require.NoError(t, s.Declare(Parameter{Name: "invert", Value: BoolValue(false)}))
	require.NoError(t, s.Declare(Parameter{
		Name:  "window",
		Value: EnumValue(1),
		Enum:  NewEnumTable(EnumEntry{"Rectangular", 0}, EnumEntry{"Hann", 1}, EnumEntry{"Blackman-Harris", 2}),
	}))
	require.NoError(t, s.Declare(Parameter{Name: "path", Value: FilenameValue("/tmp/a.csv")}))
	require.NoError(t, s.Declare(Parameter{Name: "label", Value: StringValue("tap")}))
	require.NoError(t, s.Declare(Parameter{Name: "pattern", Value: PatternValue{{Control: true, Byte: 0xbc}}}))
	return s
}

func TestStore_DeclarationOrder(t *testing.T) {
	s := newTestStore(t)

	assert.Equal(t, []string{"threshold", "holdoff", "invert", "window", "path", "label", "pattern"}, s.Names())
	assert.Equal(t, 7, s.Len())

	all := s.All()
	require.Len(t, all, 7)
	assert.Equal(t, "threshold", all[0].Name)
	assert.Equal(t, KindPattern, all[6].Kind())
}

func TestStore_DeclareRejects(t *testing.T) {
	s := NewStore()

	assert.Error(t, s.Declare(Parameter{Name: "", Value: FloatValue(1)}))
	assert.Error(t, s.Declare(Parameter{Name: "x"}))
	assert.Error(t, s.Declare(Parameter{Name: "mode", Value: EnumValue(0)}))

	require.NoError(t, s.Declare(Parameter{Name: "x", Value: FloatValue(1)}))
	assert.ErrorIs(t, s.Declare(Parameter{Name: "x", Value: FloatValue(2)}), ErrDuplicateParameter)
}

func TestStore_SetKeepsKind(t *testing.T) {
	s := newTestStore(t)

	changed, err := s.Set("threshold", IntValue(3))
	assert.ErrorIs(t, err, ErrKindMismatch)
	assert.False(t, changed)

	f, err := s.Float("threshold")
	require.NoError(t, err)
	assert.Equal(t, 3.3, f)

	_, err = s.Set("threshold", nil)
	assert.ErrorIs(t, err, ErrKindMismatch)

	_, err = s.Set("missing", FloatValue(1))
	assert.ErrorIs(t, err, ErrUnknownParameter)
}

func TestStore_SetReportsChange(t *testing.T) {
	s := newTestStore(t)

	changed, err := s.Set("threshold", FloatValue(3.3))
	require.NoError(t, err)
	assert.False(t, changed, "same value is not a change")

	changed, err = s.Set("threshold", FloatValue(1.8))
	require.NoError(t, err)
	assert.True(t, changed)

	f, err := s.Float("threshold")
	require.NoError(t, err)
	assert.Equal(t, 1.8, f)

	changed, err = s.Set("pattern", PatternValue{{Control: true, Byte: 0xbc}})
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestStore_TypedGetters(t *testing.T) {
	s := newTestStore(t)

	n, err := s.Int("holdoff")
	require.NoError(t, err)
	assert.Equal(t, int64(1500), n)

	b, err := s.Bool("invert")
	require.NoError(t, err)
	assert.False(t, b)

	code, err := s.Enum("window")
	require.NoError(t, err)
	assert.Equal(t, int32(1), code)

	path, err := s.Filename("path")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/a.csv", path)

	label, err := s.Text("label")
	require.NoError(t, err)
	assert.Equal(t, "tap", label)

	_, err = s.Int("threshold")
	assert.ErrorIs(t, err, ErrKindMismatch)

	_, err = s.Bool("nope")
	assert.ErrorIs(t, err, ErrUnknownParameter)
}

func TestStore_SnapshotsAreCopies(t *testing.T) {
	s := newTestStore(t)

	p, ok := s.Get("pattern")
	require.True(t, ok)
	p.Value.(PatternValue)[0].Byte = 0x00

	again, _ := s.Get("pattern")
	assert.Equal(t, uint8(0xbc), again.Value.(PatternValue)[0].Byte)

	c := s.Clone()
	_, err := c.Set("threshold", FloatValue(9))
	require.NoError(t, err)
	f, _ := s.Float("threshold")
	assert.Equal(t, 3.3, f)
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(FloatValue(1), FloatValue(1)))
	assert.False(t, Equal(FloatValue(1), IntValue(1)))
	assert.True(t, Equal(PatternValue{{Byte: 1}}, PatternValue{{Byte: 1}}))
	assert.False(t, Equal(PatternValue{{Byte: 1}}, PatternValue{{Byte: 1, Control: true}}))
	assert.True(t, Equal(nil, nil))
	assert.False(t, Equal(nil, BoolValue(true)))
}

func TestKindStringRoundTrip(t *testing.T) {
	for k := KindFloat; k <= KindPattern; k++ {
		got, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)

		zero, err := Zero(k)
		require.NoError(t, err)
		assert.Equal(t, k, zero.Kind())
	}

	_, err := ParseKind("complex")
	assert.Error(t, err)
}

func TestSymbolString(t *testing.T) {
	assert.Equal(t, "K28.5", Symbol{Control: true, Byte: 0xbc}.String())
	assert.Equal(t, "D21.5", Symbol{Byte: 0xb5}.String())
}
