package pdb

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseFPORecords(t *testing.T) {
	data := []byte{
		0x00, 0x10, 0x00, 0x00, // offset
		0x20, 0x00, 0x00, 0x00, // size
		0x02, 0x00, 0x00, 0x00, // num_locals
		0x01, 0x00, // num_params
		0x00, 0x00, // attributes
	}
	records := parseFPORecords(data)
	require.Len(t, records, 1)
	require.Equal(t, uint32(0x1000), records[0].Offset)
	require.Equal(t, uint32(0x20), records[0].Size)
	require.Equal(t, uint32(2), records[0].NumLocals)
	require.Equal(t, uint16(1), records[0].NumParams)
}

func TestParseFrameDataRecordsWithoutRelocPointer(t *testing.T) {
	data := make([]byte, frameDataRecordSize)
	data[0] = 0x34
	data[1] = 0x12
	records := parseFrameDataRecords(data)
	require.Len(t, records, 1)
	require.Equal(t, uint32(0x1234), records[0].RVAStart)
}

func TestParseFrameDataRecordsSkipsLeadingRelocPointer(t *testing.T) {
	data := make([]byte, frameDataRecordSize+4)
	data[4] = 0x78
	data[5] = 0x56
	records := parseFrameDataRecords(data)
	require.Len(t, records, 1)
	require.Equal(t, uint32(0x5678), records[0].RVAStart)
}
