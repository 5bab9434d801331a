package tpi

import (
	"github.com/jac3km4/pdb-sdk/internal/cvrecord"
	"github.com/jac3km4/pdb-sdk/internal/hashutil"
	"github.com/jac3km4/pdb-sdk/internal/stream"
)

// EncodeHeader serializes h as the fixed 56-byte TPI/IPI header.
func EncodeHeader(h Header) []byte {
	w := stream.NewWriter(TPIHeaderSize)
	w.WriteU32(h.Version)
	w.WriteU32(h.HeaderSize)
	w.WriteU32(uint32(h.TypeIndexBegin))
	w.WriteU32(uint32(h.TypeIndexEnd))
	w.WriteU32(h.TypeRecordBytes)
	w.WriteU16(h.HashStreamIndex)
	w.WriteU16(h.HashAuxStreamIndex)
	w.WriteU32(h.HashKeySize)
	w.WriteU32(h.NumHashBuckets)
	w.WriteI32(h.HashValueBufferOffset)
	w.WriteU32(h.HashValueBufferLength)
	w.WriteI32(h.IndexOffsetBufferOffset)
	w.WriteU32(h.IndexOffsetBufferLength)
	w.WriteI32(h.HashAdjBufferOffset)
	w.WriteU32(h.HashAdjBufferLength)
	return w.Bytes()
}

// TypeRecordInput is one not-yet-framed type or ID record awaiting
// assignment of the next sequential index.
type TypeRecordInput struct {
	Kind TypeRecordKind
	Body []byte
	// Name, if non-empty, is hashed into the hash sidecar stream's
	// hash_values region at this record's position.
	Name string
}

// BuildStream frames each input record in turn, assigning indices
// sequentially from FirstUserTypeIndex, and returns the stream bytes
// (header + concatenated records) plus the paired hash sidecar stream
// (hash_values only; index_offsets and hash_adjusters are left empty, per
// the Open Question on index_offsets sparsity).
func BuildStream(records []TypeRecordInput, hashStreamIndex uint16) (streamBytes []byte, hashSidecar []byte) {
	var recordBytes []byte
	hashValues := stream.NewWriter(len(records) * 4)

	for _, rec := range records {
		recordBytes = cvrecord.Encode(recordBytes, uint16(rec.Kind), rec.Body)
		if rec.Name != "" {
			hashValues.WriteU32(hashutil.HashV1String(rec.Name) % 0x3FFFF)
		} else {
			hashValues.WriteU32(0)
		}
	}

	header := Header{
		Version:            TPIVersionV80,
		HeaderSize:         TPIHeaderSize,
		TypeIndexBegin:     FirstUserTypeIndex,
		TypeIndexEnd:       FirstUserTypeIndex + TypeIndex(len(records)),
		TypeRecordBytes:    uint32(len(recordBytes)),
		HashStreamIndex:    hashStreamIndex,
		HashAuxStreamIndex: 0xFFFF,
		HashKeySize:        4,
		NumHashBuckets:     0x3FFFF,
		HashValueBufferOffset:  0,
		HashValueBufferLength:  uint32(hashValues.Len()),
		IndexOffsetBufferOffset: int32(hashValues.Len()),
		IndexOffsetBufferLength: 0,
		HashAdjBufferOffset:     int32(hashValues.Len()),
		HashAdjBufferLength:     0,
	}

	streamBytes = append(EncodeHeader(header), recordBytes...)
	return streamBytes, hashValues.Bytes()
}
