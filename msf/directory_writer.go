package msf

import "encoding/binary"

// EncodeDirectory serializes a StreamDirectory to its on-disk byte form:
// num_streams, then each stream's byte size (NilStreamSize for absent
// streams), then each stream's block-index list in turn. It is the
// write-side mirror of ParseDirectory.
func EncodeDirectory(dir *StreamDirectory) []byte {
	out := make([]byte, 0, 4+len(dir.StreamSizes)*4+64)

	var u32 [4]byte
	binary.LittleEndian.PutUint32(u32[:], dir.NumStreams)
	out = append(out, u32[:]...)

	for _, size := range dir.StreamSizes {
		binary.LittleEndian.PutUint32(u32[:], size)
		out = append(out, u32[:]...)
	}

	for _, blocks := range dir.StreamBlocks {
		for _, b := range blocks {
			binary.LittleEndian.PutUint32(u32[:], b)
			out = append(out, u32[:]...)
		}
	}

	return out
}

// NewDirectory builds a StreamDirectory from parallel slices of stream
// sizes and their assigned block lists. A size of NilStreamSize marks an
// absent stream and its block list must be nil.
func NewDirectory(sizes []uint32, blocks [][]uint32) *StreamDirectory {
	return &StreamDirectory{
		NumStreams:   uint32(len(sizes)),
		StreamSizes:  sizes,
		StreamBlocks: blocks,
	}
}
