package msf

import (
	"encoding/binary"
	"errors"
	"io"
)

// ErrEmptyDirectory is returned when Commit is asked to finalize a
// container whose directory stream ended up occupying zero blocks.
var ErrEmptyDirectory = errors.New("msf: directory occupies no blocks")

// Sink is the destination a Committer writes an MSF container to: a
// single sequential pass of writes, followed by two seeks back to patch
// the Free Page Map and the super-block.
type Sink interface {
	io.Writer
	io.Seeker
}

// blockAllocator hands out monotonically increasing block indices for a
// single Committer, transparently writing zero placeholder blocks over
// any index reserved for the Free Page Map (index % blockSize ∈ {1, 2}).
// Its final cursor is, by construction, the container's num_blocks.
type blockAllocator struct {
	sink      Sink
	blockSize uint32
	next      uint32
	zero      []byte
}

func newBlockAllocator(sink Sink, blockSize uint32) *blockAllocator {
	return &blockAllocator{sink: sink, blockSize: blockSize, zero: make([]byte, blockSize)}
}

// isFPMSlot reports whether block index idx is reserved for the Free Page
// Map rather than available for stream payload.
func (a *blockAllocator) isFPMSlot(idx uint32) bool {
	m := idx % a.blockSize
	return m == 1 || m == 2
}

// alloc reserves and returns the next payload block index, writing zero
// placeholder blocks over any FPM slots it passes on the way.
func (a *blockAllocator) alloc() (uint32, error) {
	for a.isFPMSlot(a.next) {
		if _, err := a.sink.Write(a.zero); err != nil {
			return 0, err
		}
		a.next++
	}
	b := a.next
	a.next++
	return b, nil
}

// StreamWriter writes one logical stream's bytes through a shared
// blockAllocator, block by block, and records the resulting block list.
type StreamWriter struct {
	alloc  *blockAllocator
	blocks []uint32
}

// write emits data as a sequence of block-sized (zero-padded) chunks,
// allocating one block per chunk.
func (sw *StreamWriter) write(data []byte) error {
	blockSize := int(sw.alloc.blockSize)
	for offset := 0; offset < len(data); offset += blockSize {
		b, err := sw.alloc.alloc()
		if err != nil {
			return err
		}
		sw.blocks = append(sw.blocks, b)

		end := offset + blockSize
		if end > len(data) {
			end = len(data)
		}
		chunk := data[offset:end]
		if len(chunk) < blockSize {
			padded := make([]byte, blockSize)
			copy(padded, chunk)
			chunk = padded
		}
		if _, err := sw.alloc.sink.Write(chunk); err != nil {
			return err
		}
	}
	return nil
}

// Committer drives the full MSF write path: three placeholder blocks for
// the super-block and the two FPM blocks, then one StreamWriter per
// payload stream, then the directory, its block-map stream, the FPM bit
// pattern, and finally the super-block itself.
type Committer struct {
	sink      Sink
	blockSize uint32
	alloc     *blockAllocator

	streamSizes  []uint32
	streamBlocks [][]uint32
}

// NewCommitter begins a commit: it writes the three leading placeholder
// blocks (super-block, FPM #1, FPM #2) and returns a Committer ready to
// accept payload streams.
func NewCommitter(sink Sink, blockSize uint32) (*Committer, error) {
	if blockSize == 0 {
		blockSize = BlockSize4096
	}

	c := &Committer{sink: sink, blockSize: blockSize, alloc: newBlockAllocator(sink, blockSize)}

	zero := make([]byte, blockSize)
	for i := 0; i < 3; i++ {
		if _, err := sink.Write(zero); err != nil {
			return nil, err
		}
		c.alloc.next++
	}

	return c, nil
}

// WriteStream commits data as the next stream index (streams are indexed
// by the order in which WriteStream is called, starting at 0) and returns
// that index. An empty stream still occupies a directory slot but no
// blocks, matching NilStreamSize semantics when data is nil.
func (c *Committer) WriteStream(data []byte) (uint32, error) {
	index := uint32(len(c.streamSizes))

	if data == nil {
		c.streamSizes = append(c.streamSizes, NilStreamSize)
		c.streamBlocks = append(c.streamBlocks, nil)
		return index, nil
	}

	sw := &StreamWriter{alloc: c.alloc}
	if err := sw.write(data); err != nil {
		return 0, err
	}

	c.streamSizes = append(c.streamSizes, uint32(len(data)))
	c.streamBlocks = append(c.streamBlocks, sw.blocks)
	return index, nil
}

// Finish emits the stream directory and its block-map stream, computes
// num_blocks from the allocator's final cursor, rewrites every FPM slot
// with the fully-allocated bit pattern, and writes the final super-block.
// After Finish returns successfully the sink holds a complete MSF file.
func (c *Committer) Finish() error {
	dir := NewDirectory(c.streamSizes, c.streamBlocks)
	dirBytes := EncodeDirectory(dir)

	dirWriter := &StreamWriter{alloc: c.alloc}
	if err := dirWriter.write(dirBytes); err != nil {
		return err
	}

	blockMapBytes := make([]byte, len(dirWriter.blocks)*4)
	for i, b := range dirWriter.blocks {
		binary.LittleEndian.PutUint32(blockMapBytes[i*4:], b)
	}

	blockMapWriter := &StreamWriter{alloc: c.alloc}
	if err := blockMapWriter.write(blockMapBytes); err != nil {
		return err
	}
	if len(blockMapWriter.blocks) == 0 {
		return ErrEmptyDirectory
	}

	numBlocks := c.alloc.next

	allOnes := make([]byte, c.blockSize)
	for i := range allOnes {
		allOnes[i] = 0xFF
	}
	for idx := uint32(1); idx < numBlocks; idx++ {
		if c.alloc.isFPMSlot(idx) {
			if err := c.writeBlockAt(idx, allOnes); err != nil {
				return err
			}
		}
	}

	sb := SuperBlock{
		BlockSize:         c.blockSize,
		FreeBlockMapBlock: 1,
		NumBlocks:         numBlocks,
		NumDirectoryBytes: uint32(len(dirBytes)),
		BlockMapAddr:      blockMapWriter.blocks[0],
	}
	copy(sb.FileMagic[:], Magic)

	return c.writeSuperBlock(&sb)
}

func (c *Committer) writeBlockAt(blockIdx uint32, data []byte) error {
	if _, err := c.sink.Seek(int64(blockIdx)*int64(c.blockSize), io.SeekStart); err != nil {
		return err
	}
	_, err := c.sink.Write(data)
	return err
}

func (c *Committer) writeSuperBlock(sb *SuperBlock) error {
	if _, err := c.sink.Seek(0, io.SeekStart); err != nil {
		return err
	}
	return binary.Write(c.sink, binary.LittleEndian, sb)
}
