package stream

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriterPrimitivesRoundTripWithReader(t *testing.T) {
	w := NewWriter(0)
	w.WriteU8(0x7F)
	w.WriteU16(0xBEEF)
	w.WriteU32(0xDEADBEEF)
	w.WriteU64(0x0123456789ABCDEF)
	w.WriteCString("hello")
	w.WriteGUID([16]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16})

	r := NewReader(w.Bytes())

	u8, err := r.ReadU8()
	require.NoError(t, err)
	require.Equal(t, uint8(0x7F), u8)

	u16, err := r.ReadU16()
	require.NoError(t, err)
	require.Equal(t, uint16(0xBEEF), u16)

	u32, err := r.ReadU32()
	require.NoError(t, err)
	require.Equal(t, uint32(0xDEADBEEF), u32)

	u64, err := r.ReadU64()
	require.NoError(t, err)
	require.Equal(t, uint64(0x0123456789ABCDEF), u64)

	s, err := r.ReadCString()
	require.NoError(t, err)
	require.Equal(t, "hello", s)

	guid, err := r.ReadGUID()
	require.NoError(t, err)
	require.Equal(t, [16]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}, guid)
}

func TestWriteNumericNarrowestEncoding(t *testing.T) {
	cases := []struct {
		value uint64
		bytes int // total bytes written, including the leading u16 prefix
	}{
		{0, 2},
		{0x7FFF, 2},
		{0x8000, 4},   // needs LF_USHORT prefix
		{0xFFFF, 4},
		{0x10000, 6},  // needs LF_ULONG prefix
		{0xFFFFFFFF, 6},
		{0x100000000, 10}, // needs LF_UQUADWORD prefix
	}
	for _, c := range cases {
		w := NewWriter(0)
		w.WriteNumeric(c.value)
		require.Equal(t, c.bytes, w.Len(), "value %#x", c.value)

		r := NewReader(w.Bytes())
		got, err := r.ReadNumeric()
		require.NoError(t, err)
		require.Equal(t, c.value, got, "value %#x", c.value)
	}
}

func TestWriteSignedNumericRoundTrip(t *testing.T) {
	values := []int64{0, 1, -1, 127, -128, 32767, -32768, 70000, -70000, 1 << 40, -(1 << 40)}
	for _, v := range values {
		w := NewWriter(0)
		w.WriteSignedNumeric(v)

		r := NewReader(w.Bytes())
		got, err := r.ReadNumeric()
		require.NoError(t, err)
		require.Equal(t, uint64(v), got, "value %d", v)
	}
}
