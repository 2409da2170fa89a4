package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormatStride(t *testing.T) {
	cases := []struct {
		spec   string
		stride int
		fields int
	}{
		{"d", 8, 1},
		{"ddd", 24, 3},
		{"3d", 24, 3},
		{"BBB", 3, 3},
		{"3B", 3, 3},
		{"<hH", 4, 2},
		{">ifq", 16, 3},
		{"2h3B", 7, 5},
		{"!Q", 8, 1},
	}
	for _, tc := range cases {
		f, err := ParseFormat(tc.spec)
		require.NoError(t, err, tc.spec)
		assert.Equal(t, tc.stride, f.Stride(), tc.spec)
		assert.Equal(t, tc.fields, f.NumFields(), tc.spec)
		assert.Equal(t, tc.spec, f.Spec())
	}
}

func TestParseFormatErrors(t *testing.T) {
	for _, spec := range []string{"", "x", "d3", "<", "3", "d!d"} {
		_, err := ParseFormat(spec)
		assert.Error(t, err, "spec %q", spec)
	}
}

func TestPackUnpackRoundTrip(t *testing.T) {
	cases := []struct {
		spec string
		vals []float64
	}{
		{"ddd", []float64{1.0, 2.0, 3.0}},
		{"fff", []float64{0.5, -0.25, 12.75}},
		{"bB", []float64{-128, 255}},
		{"hH", []float64{-32768, 65535}},
		{"iI", []float64{-2147483648, 4294967295}},
		{"qQ", []float64{-1 << 52, 1 << 52}},
		{">d", []float64{3.141592653589793}},
	}
	for _, tc := range cases {
		f, err := ParseFormat(tc.spec)
		require.NoError(t, err, tc.spec)
		buf := make([]byte, f.Stride())
		require.NoError(t, f.pack(buf, tc.vals), tc.spec)
		assert.Equal(t, tc.vals, f.unpack(buf), tc.spec)
	}
}

func TestPackByteOrder(t *testing.T) {
	le, err := ParseFormat("<H")
	require.NoError(t, err)
	be, err := ParseFormat(">H")
	require.NoError(t, err)

	buf := make([]byte, 2)
	require.NoError(t, le.pack(buf, []float64{0x0102}))
	assert.Equal(t, []byte{0x02, 0x01}, buf)
	require.NoError(t, be.pack(buf, []float64{0x0102}))
	assert.Equal(t, []byte{0x01, 0x02}, buf)
}

func TestPackWrongArity(t *testing.T) {
	f, err := ParseFormat("dd")
	require.NoError(t, err)
	buf := make([]byte, f.Stride())
	assert.Error(t, f.pack(buf, []float64{1.0}))
	assert.Error(t, f.pack(buf, []float64{1.0, 2.0, 3.0}))
}
