package tpi

import (
	"testing"

	"github.com/jac3km4/pdb-sdk/internal/stream"
	"github.com/stretchr/testify/require"
)

func TestEncodeHeaderRoundTripsWithParseStream(t *testing.T) {
	h := Header{
		Version:                 TPIVersionV80,
		HeaderSize:              TPIHeaderSize,
		TypeIndexBegin:          FirstUserTypeIndex,
		TypeIndexEnd:            FirstUserTypeIndex + 1,
		TypeRecordBytes:         0,
		HashStreamIndex:         7,
		HashAuxStreamIndex:      0xFFFF,
		HashKeySize:             4,
		NumHashBuckets:          0x3FFFF,
		HashValueBufferOffset:   0,
		HashValueBufferLength:   4,
		IndexOffsetBufferOffset: 4,
		IndexOffsetBufferLength: 0,
		HashAdjBufferOffset:     4,
		HashAdjBufferLength:     0,
	}

	encoded := EncodeHeader(h)
	require.Len(t, encoded, TPIHeaderSize)

	s, err := ParseStream(encoded)
	require.NoError(t, err)
	require.Equal(t, h, s.Header)
}

func TestBuildStreamAssignsSequentialIndicesAndParsesBack(t *testing.T) {
	records := []TypeRecordInput{
		{Kind: LF_ARGLIST, Body: []byte{0x00, 0x00, 0x00, 0x00}, Name: ""},
		{Kind: LF_POINTER, Body: []byte{0x34, 0x12, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}, Name: "MyPointer"},
	}

	streamBytes, hashSidecar := BuildStream(records, 9)
	require.Len(t, hashSidecar, len(records)*4)

	s, err := ParseStream(streamBytes)
	require.NoError(t, err)
	require.Equal(t, FirstUserTypeIndex, s.TypeIndexBegin())
	require.Equal(t, FirstUserTypeIndex+TypeIndex(len(records)), s.TypeIndexEnd())
	require.Equal(t, uint32(len(records)), s.TypeCount())
	require.Equal(t, uint16(9), s.Header.HashStreamIndex)

	for i, want := range records {
		rec, err := s.GetTypeRecord(FirstUserTypeIndex + TypeIndex(i))
		require.NoError(t, err)
		require.Equal(t, want.Kind, rec.Kind)
		require.Equal(t, want.Body, rec.Data)
	}
}

func TestBuildStreamHashesNamedRecordsOnly(t *testing.T) {
	records := []TypeRecordInput{
		{Kind: LF_ARGLIST, Body: []byte{0x00, 0x00, 0x00, 0x00}},
		{Kind: LF_POINTER, Body: []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}, Name: "Named"},
	}

	_, hashSidecar := BuildStream(records, 0)
	require.Len(t, hashSidecar, 8)

	r := stream.NewReader(hashSidecar)
	unnamed, err := r.ReadU32()
	require.NoError(t, err)
	require.Equal(t, uint32(0), unnamed)

	named, err := r.ReadU32()
	require.NoError(t, err)
	require.NotZero(t, named)
	require.Less(t, named, uint32(0x3FFFF))
}
