package dtype

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRoundTrip(t *testing.T) {
	names := []string{
		"bool", "int8", "int16", "int32", "int64",
		"uint8", "uint16", "uint32", "uint64",
		"float32", "float64", "complex64", "complex128",
	}
	for _, name := range names {
		dt, err := Parse(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, dt.String())
		assert.NotZero(t, dt.Size(), name)
	}

	_, err := Parse("float16")
	require.Error(t, err)
}

func TestSizes(t *testing.T) {
	assert.Equal(t, uint64(1), Bool.Size())
	assert.Equal(t, uint64(2), Int16.Size())
	assert.Equal(t, uint64(4), Float32.Size())
	assert.Equal(t, uint64(8), Complex64.Size())
	assert.Equal(t, uint64(16), Complex128.Size())
}

func TestFillValueFromJSONIntegers(t *testing.T) {
	fv, err := FillValueFromJSON(Int32, float64(-2))
	require.NoError(t, err)
	assert.Equal(t, FillValue{0xfe, 0xff, 0xff, 0xff}, fv)

	fv, err = FillValueFromJSON(UInt16, float64(513))
	require.NoError(t, err)
	assert.Equal(t, FillValue{0x01, 0x02}, fv)

	_, err = FillValueFromJSON(Int32, 1.5)
	require.Error(t, err)
	_, err = FillValueFromJSON(UInt8, float64(-1))
	require.Error(t, err)
	_, err = FillValueFromJSON(Int32, "0")
	require.Error(t, err)
}

func TestFillValueFromJSONBool(t *testing.T) {
	fv, err := FillValueFromJSON(Bool, true)
	require.NoError(t, err)
	assert.Equal(t, FillValue{1}, fv)

	_, err = FillValueFromJSON(Bool, float64(1))
	require.Error(t, err)
}

func TestFillValueFromJSONFloatSpecials(t *testing.T) {
	fv, err := FillValueFromJSON(Float64, "NaN")
	require.NoError(t, err)
	back, err := FillValueToJSON(Float64, fv)
	require.NoError(t, err)
	assert.Equal(t, "NaN", back)

	fv, err = FillValueFromJSON(Float32, "-Infinity")
	require.NoError(t, err)
	back, err = FillValueToJSON(Float32, fv)
	require.NoError(t, err)
	assert.Equal(t, "-Infinity", back)

	fv, err = FillValueFromJSON(Float64, 2.5)
	require.NoError(t, err)
	back, err = FillValueToJSON(Float64, fv)
	require.NoError(t, err)
	assert.Equal(t, 2.5, back)
}

func TestFillValueFromJSONComplex(t *testing.T) {
	fv, err := FillValueFromJSON(Complex128, []any{1.0, "Infinity"})
	require.NoError(t, err)
	require.Len(t, fv, 16)
	back, err := FillValueToJSON(Complex128, fv)
	require.NoError(t, err)
	pair, ok := back.([]any)
	require.True(t, ok)
	assert.Equal(t, 1.0, pair[0])
	assert.Equal(t, "Infinity", pair[1])

	_, err = FillValueFromJSON(Complex64, 1.0)
	require.Error(t, err)
}

func TestFillValueToJSONSizeMismatch(t *testing.T) {
	_, err := FillValueToJSON(Int32, FillValue{0})
	require.Error(t, err)
}

func TestEqualsAll(t *testing.T) {
	fv := FillValue{0x01, 0x02}
	assert.True(t, fv.EqualsAll([]byte{1, 2, 1, 2}))
	assert.True(t, fv.EqualsAll(nil))
	assert.False(t, fv.EqualsAll([]byte{1, 2, 2, 1}))
	assert.False(t, fv.EqualsAll([]byte{1, 2, 1}))
}

func TestEqual(t *testing.T) {
	assert.True(t, FillValue{1, 2}.Equal(FillValue{1, 2}))
	assert.False(t, FillValue{1, 2}.Equal(FillValue{1}))
	assert.False(t, FillValue{1, 2}.Equal(FillValue{2, 1}))
}

func TestNaNFillBitsAreStable(t *testing.T) {
	a, err := FillValueFromJSON(Float64, "NaN")
	require.NoError(t, err)
	b, err := FillValueFromJSON(Float64, "NaN")
	require.NoError(t, err)
	assert.True(t, a.Equal(b))

	// The canonical NaN byte pattern compares equal bytewise even though the
	// float values do not.
	f := math.NaN()
	assert.False(t, f == f)
}
