package cvrecord

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	bodies := [][]byte{
		{},
		{0x01},
		{0x01, 0x02},
		{0x01, 0x02, 0x03},
		[]byte("a name that is not 4-byte aligned"),
	}

	for _, body := range bodies {
		encoded := Encode(nil, 0x1234, body)
		rec, err := Decode(encoded)
		require.NoError(t, err)
		require.Equal(t, uint16(0x1234), rec.Kind)
		require.Equal(t, body, rec.Body)
		require.Equal(t, len(encoded), rec.Size)
		require.Zero(t, (rec.Size)%4)
	}
}

func TestDecodeRejectsInvalidPadding(t *testing.T) {
	encoded := Encode(nil, 0x0001, []byte{0xAA})
	// Corrupt the final padding byte so it is neither zero nor 0xF0..0xFF.
	encoded[len(encoded)-1] = 0x42
	_, err := Decode(encoded)
	require.ErrorIs(t, err, ErrInvalidPadding)
}

func TestDecodeTooShort(t *testing.T) {
	_, err := Decode([]byte{0x01, 0x00})
	require.ErrorIs(t, err, ErrTooShort)
}

func TestIterateVisitsEveryRecord(t *testing.T) {
	var data []byte
	data = Encode(data, 0x0001, []byte("alpha"))
	data = Encode(data, 0x0002, []byte("beta"))
	data = Encode(data, 0x0003, nil)

	var kinds []uint16
	err := Iterate(data, func(rec Record, offset int) error {
		kinds = append(kinds, rec.Kind)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []uint16{0x0001, 0x0002, 0x0003}, kinds)
}
