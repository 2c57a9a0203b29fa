package encoding_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/textkit/textkit/encoding"
	textkiterrors "github.com/textkit/textkit/internal/errors"
)

func TestUTF8RoundTrip(t *testing.T) {
	r := encoding.NewRegistry()
	dec, err := r.Get("utf-8")
	require.NoError(t, err)

	for _, cp := range []encoding.Codepoint{'a', 0x00E9, 0x4E2D, 0x1F600} {
		bytes := dec.EncodeCodepoint(cp)
		got, size, valid := dec.NextCodepoint(bytes, 0, len(bytes))
		require.True(t, valid)
		require.Equal(t, len(bytes), size)
		require.Equal(t, cp, got)
	}
}

func TestUTF8InvalidByteSubstitutesReplacement(t *testing.T) {
	r := encoding.NewRegistry()
	dec, _ := r.Get("utf-8")

	data := []byte{0x61, 0xFF, 0x62} // a, invalid, b
	cp, size, valid := dec.NextCodepoint(data, 1, len(data))
	require.False(t, valid)
	require.Equal(t, 1, size)
	require.Equal(t, encoding.ReplacementCodepoint, cp)
}

func TestUTF16SurrogatePairRoundTrip(t *testing.T) {
	r := encoding.NewRegistry()
	dec, err := r.Get("utf-16le")
	require.NoError(t, err)

	cp := encoding.Codepoint(0x1F600) // outside BMP, requires surrogate pair
	bytes := dec.EncodeCodepoint(cp)
	require.Len(t, bytes, 4)

	got, size, valid := dec.NextCodepoint(bytes, 0, len(bytes))
	require.True(t, valid)
	require.Equal(t, 4, size)
	require.Equal(t, cp, got)
}

func TestUTF16LoneSurrogateIsReplacement(t *testing.T) {
	r := encoding.NewRegistry()
	dec, _ := r.Get("utf-16le")

	// Lone high surrogate 0xD800, little-endian: 00 D8
	data := []byte{0x00, 0xD8}
	cp, size, valid := dec.NextCodepoint(data, 0, len(data))
	require.False(t, valid)
	require.Equal(t, 1, size)
	require.Equal(t, encoding.ReplacementCodepoint, cp)
}

func TestRegistryRefusesDuplicates(t *testing.T) {
	r := encoding.NewRegistry()
	err := r.Register(fakeDecoder{name: "utf-8"})
	require.Error(t, err)
	require.True(t, textkiterrors.IsType(err, textkiterrors.ErrDuplicateEncoding))
}

func TestRegistryUnknownNameSuggestsClosest(t *testing.T) {
	r := encoding.NewRegistry()
	_, err := r.Get("utf8") // missing the hyphen
	require.Error(t, err)
	require.True(t, textkiterrors.IsType(err, textkiterrors.ErrUnknownEncoding))
	require.Contains(t, err.Error(), `did you mean "utf-8"`)
}

func TestDefaultEncodingSettable(t *testing.T) {
	r := encoding.NewRegistry()
	require.Equal(t, "utf-8", r.Default())
	require.NoError(t, r.SetDefault("utf-16le"))
	require.Equal(t, "utf-16le", r.Default())
}

type fakeDecoder struct{ name string }

func (f fakeDecoder) Name() string            { return f.name }
func (f fakeDecoder) MaxCodepointLength() int { return 1 }
func (f fakeDecoder) NextCodepoint(data []byte, pos, end int) (encoding.Codepoint, int, bool) {
	return 0, 1, true
}
func (f fakeDecoder) EncodeCodepoint(cp encoding.Codepoint) []byte { return []byte{byte(cp)} }
