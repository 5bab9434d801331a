package hashutil

import (
	"encoding/binary"
	"errors"
)

// ErrTruncatedBitVector is returned when a BitVector's declared word count
// does not fit in the remaining bytes.
var ErrTruncatedBitVector = errors.New("hashutil: truncated bit vector")

// BitVector is the PDB on-disk bitmap format: a word count followed by
// that many little-endian 32-bit words, bits addressed LSB-first within
// each byte.
type BitVector struct {
	words []uint32
}

// NewBitVector returns an empty vector capable of holding at least n bits.
func NewBitVector(n int) *BitVector {
	wordCount := (n + 31) / 32
	return &BitVector{words: make([]uint32, wordCount)}
}

// ReadBitVector decodes a BitVector from data, returning the number of
// bytes consumed.
func ReadBitVector(data []byte) (*BitVector, int, error) {
	if len(data) < 4 {
		return nil, 0, ErrTruncatedBitVector
	}
	wordCount := binary.LittleEndian.Uint32(data)
	need := 4 + int(wordCount)*4
	if len(data) < need {
		return nil, 0, ErrTruncatedBitVector
	}

	words := make([]uint32, wordCount)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(data[4+i*4:])
	}
	return &BitVector{words: words}, need, nil
}

// Set marks bit i as present, growing the backing storage if needed.
func (b *BitVector) Set(i int) {
	word := i / 32
	for word >= len(b.words) {
		b.words = append(b.words, 0)
	}
	b.words[word] |= 1 << uint(i%32)
}

// Test reports whether bit i is present.
func (b *BitVector) Test(i int) bool {
	word := i / 32
	if word >= len(b.words) {
		return false
	}
	return b.words[word]&(1<<uint(i%32)) != 0
}

// Words returns the backing word slice (read-only use expected).
func (b *BitVector) Words() []uint32 {
	return b.words
}

// Indices returns, in ascending order, every bit index currently set.
func (b *BitVector) Indices() []int {
	var out []int
	for wi, w := range b.words {
		for bit := 0; bit < 32; bit++ {
			if w&(1<<uint(bit)) != 0 {
				out = append(out, wi*32+bit)
			}
		}
	}
	return out
}

// Encode appends the BitVector's on-disk representation to dst.
func (b *BitVector) Encode(dst []byte) []byte {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(b.words)))
	dst = append(dst, lenBuf[:]...)
	for _, w := range b.words {
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], w)
		dst = append(dst, buf[:]...)
	}
	return dst
}
