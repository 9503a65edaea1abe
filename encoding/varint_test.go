package encoding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVarInt_RoundTrip(t *testing.T) {
	cases := []uint32{0, 1, 127, 128, 16383, 16384, 2097151, 2097152, MaxVarInt}
	for _, v := range cases {
		dst := EncodeVarInt(nil, v)
		assert.Len(t, dst, SizeVarInt(v))
		got, n, err := DecodeVarInt(dst)
		require.NoError(t, err)
		assert.Equal(t, v, got)
		assert.Equal(t, len(dst), n)
	}
}

func TestVarInt_200000000MatchesReferenceEncoding(t *testing.T) {
	dst := EncodeVarInt(nil, 200000000)
	assert.Equal(t, []byte{0x80, 0x84, 0xaf, 0x5f}, dst)

	v, n, err := DecodeVarInt(dst)
	require.NoError(t, err)
	assert.Equal(t, uint32(200000000), v)
	assert.Equal(t, 4, n)
}

func TestVarInt_AllContinuationBitsSetIsMalformed(t *testing.T) {
	_, _, err := DecodeVarInt([]byte{0xff, 0xff, 0xff, 0xff})
	assert.ErrorIs(t, err, ErrMalformedVarInt)
}

func TestVarInt_ProperPrefixIsNotEnoughData(t *testing.T) {
	full := EncodeVarInt(nil, 16384) // 3-byte encoding
	for i := 1; i < len(full); i++ {
		_, _, err := DecodeVarInt(full[:i])
		assert.ErrorIs(t, err, ErrNotEnoughData, "prefix length %d", i)
	}
}

func TestVarInt_EncodePanicsOverMax(t *testing.T) {
	assert.Panics(t, func() { EncodeVarInt(nil, MaxVarInt+1) })
}
