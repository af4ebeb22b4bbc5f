package settings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValue_QuotedString(t *testing.T) {
	v, err := parseValue("'C:\\Users\\pycam\\Data\\Images'")

	require.NoError(t, err)
	assert.Equal(t, KindString, v.Kind)

	s, err := v.Str()
	require.NoError(t, err)
	assert.Equal(t, "C:\\Users\\pycam\\Data\\Images", s)
}

func TestParseValue_QuotedStringList(t *testing.T) {
	v, err := parseValue("'fltrA.png','fltrB.png'")

	require.NoError(t, err)
	assert.Equal(t, KindStringList, v.Kind)

	list, err := v.StrList()
	require.NoError(t, err)
	assert.Equal(t, []string{"fltrA.png", "fltrB.png"}, list)
}

func TestParseValue_SingleStringAsList(t *testing.T) {
	v, err := parseValue("'only.png'")

	require.NoError(t, err)
	list, err := v.StrList()
	require.NoError(t, err)
	assert.Equal(t, []string{"only.png"}, list)
}

func TestParseValue_UnterminatedQuote(t *testing.T) {
	_, err := parseValue("'broken")

	assert.Error(t, err)
}

func TestParseValue_Int(t *testing.T) {
	v, err := parseValue("100")

	require.NoError(t, err)
	assert.Equal(t, KindInt, v.Kind)

	i, err := v.Int()
	require.NoError(t, err)
	assert.Equal(t, int64(100), i)

	// Integers are accepted where floats are expected.
	f, err := v.Float()
	require.NoError(t, err)
	assert.Equal(t, 100.0, f)
}

func TestParseValue_Float(t *testing.T) {
	v, err := parseValue("0.5")

	require.NoError(t, err)
	assert.Equal(t, KindFloat, v.Kind)

	f, err := v.Float()
	require.NoError(t, err)
	assert.Equal(t, 0.5, f)
}

func TestParseValue_ScientificNotation(t *testing.T) {
	v, err := parseValue("5e16")

	require.NoError(t, err)
	assert.Equal(t, KindFloat, v.Kind)

	f, err := v.Float()
	require.NoError(t, err)
	assert.Equal(t, 5e16, f)
}

func TestParseValue_NegativeScientificNotation(t *testing.T) {
	v, err := parseValue("-2.5e17")

	require.NoError(t, err)
	f, err := v.Float()
	require.NoError(t, err)
	assert.Equal(t, -2.5e17, f)
}

func TestParseValue_IntList(t *testing.T) {
	v, err := parseValue("[151, 150, 372, 239]")

	require.NoError(t, err)
	assert.Equal(t, KindIntList, v.Kind)

	ints, err := v.IntList()
	require.NoError(t, err)
	assert.Equal(t, []int{151, 150, 372, 239}, ints)
}

func TestParseValue_IntListBadElement(t *testing.T) {
	_, err := parseValue("[151, abc, 372, 239]")

	assert.Error(t, err)
}

func TestParseValue_UnterminatedList(t *testing.T) {
	_, err := parseValue("[151, 150")

	assert.Error(t, err)
}

func TestFlag_ZeroAndOne(t *testing.T) {
	v, err := parseValue("1")
	require.NoError(t, err)
	b, err := v.Flag()
	require.NoError(t, err)
	assert.True(t, b)

	v, err = parseValue("0")
	require.NoError(t, err)
	b, err = v.Flag()
	require.NoError(t, err)
	assert.False(t, b)
}

func TestFlag_RejectsOtherIntegers(t *testing.T) {
	v, err := parseValue("2")
	require.NoError(t, err)

	_, err = v.Flag()
	assert.Error(t, err)
}

func TestKindMismatch(t *testing.T) {
	v, err := parseValue("[1, 2, 3, 4]")
	require.NoError(t, err)

	_, err = v.Str()
	assert.Error(t, err)
	_, err = v.Int()
	assert.Error(t, err)
	_, err = v.Float()
	assert.Error(t, err)
}

func TestConstructors_RoundTrip(t *testing.T) {
	cases := []Value{
		String("2019-09-18T074335_fltrA_1ag_999904ss_Clear.png"),
		StringList("a.png", "b.png"),
		Int(42),
		Flag(true),
		Float(5e16),
		Float(1.1),
		IntList(151, 150, 372, 239),
	}

	for _, original := range cases {
		parsed, err := parseValue(original.Raw())
		require.NoError(t, err, "raw literal %q", original.Raw())
		assert.Equal(t, original.Interface(), parsed.Interface(), "raw literal %q", original.Raw())
	}
}
