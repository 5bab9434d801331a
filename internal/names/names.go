// Package names implements the `/names` string table stream: a
// null-terminated string buffer plus a hash-bucket array used by readers
// that want to resolve a name back to its buffer offset.
package names

import (
	"encoding/binary"
	"errors"
)

// signature is the fixed magic at the start of every names stream.
const signature uint32 = 0xEFFEEFFE

// HashVersion selects the name-hash algorithm used by the bucket array.
// Writers always emit V1.
const (
	HashVersionV1 uint32 = 1
	HashVersionV2 uint32 = 2
)

var (
	// ErrBadSignature is returned when the stream does not start with the
	// fixed names-stream magic.
	ErrBadSignature = errors.New("names: bad signature")
	// ErrTruncated is returned when the stream ends before a declared
	// length is satisfied.
	ErrTruncated = errors.New("names: truncated stream")
)

// Strings is a parsed or built `/names` stream: the string buffer plus its
// hash-bucket array.
type Strings struct {
	HashVersion uint32
	buf         []byte
	buckets     []uint32
	nameCount   uint32
}

// Get returns the null-terminated string starting at offset, and whether
// offset lies within the buffer.
func (s *Strings) Get(offset uint32) (string, bool) {
	if int(offset) >= len(s.buf) {
		return "", false
	}
	end := offset
	for end < uint32(len(s.buf)) && s.buf[end] != 0 {
		end++
	}
	return string(s.buf[offset:end]), true
}

// NameCount returns the number of names the stream was built from.
func (s *Strings) NameCount() uint32 {
	return s.nameCount
}

// BucketCount returns the size of the on-disk hash-bucket array.
func (s *Strings) BucketCount() int {
	return len(s.buckets)
}

// Encode appends the stream's on-disk representation to dst.
func (s *Strings) Encode(dst []byte) []byte {
	var hdr [12]byte
	binary.LittleEndian.PutUint32(hdr[0:], signature)
	binary.LittleEndian.PutUint32(hdr[4:], s.HashVersion)
	binary.LittleEndian.PutUint32(hdr[8:], uint32(len(s.buf)))
	dst = append(dst, hdr[:]...)
	dst = append(dst, s.buf...)

	var bucketHdr [4]byte
	binary.LittleEndian.PutUint32(bucketHdr[:], uint32(len(s.buckets)))
	dst = append(dst, bucketHdr[:]...)
	for _, b := range s.buckets {
		var w [4]byte
		binary.LittleEndian.PutUint32(w[:], b)
		dst = append(dst, w[:]...)
	}

	var countBuf [4]byte
	binary.LittleEndian.PutUint32(countBuf[:], s.nameCount)
	dst = append(dst, countBuf[:]...)
	return dst
}

// Parse decodes a `/names` stream.
func Parse(data []byte) (*Strings, error) {
	if len(data) < 12 {
		return nil, ErrTruncated
	}
	sig := binary.LittleEndian.Uint32(data)
	if sig != signature {
		return nil, ErrBadSignature
	}
	hashVersion := binary.LittleEndian.Uint32(data[4:])
	bufSize := binary.LittleEndian.Uint32(data[8:])
	offset := 12

	if len(data) < offset+int(bufSize) {
		return nil, ErrTruncated
	}
	buf := append([]byte(nil), data[offset:offset+int(bufSize)]...)
	offset += int(bufSize)

	if len(data) < offset+4 {
		return nil, ErrTruncated
	}
	bucketCount := binary.LittleEndian.Uint32(data[offset:])
	offset += 4

	if len(data) < offset+int(bucketCount)*4 {
		return nil, ErrTruncated
	}
	buckets := make([]uint32, bucketCount)
	for i := range buckets {
		buckets[i] = binary.LittleEndian.Uint32(data[offset+i*4:])
	}
	offset += int(bucketCount) * 4

	if len(data) < offset+4 {
		return nil, ErrTruncated
	}
	nameCount := binary.LittleEndian.Uint32(data[offset:])

	return &Strings{
		HashVersion: hashVersion,
		buf:         buf,
		buckets:     buckets,
		nameCount:   nameCount,
	}, nil
}

// Builder accumulates names into a string buffer for Build.
// Offset 0 always holds the empty string, matching the convention that a
// zero bucket slot means "empty".
type Builder struct {
	buf     []byte
	offsets []uint32
}

// NewBuilder returns an empty Builder with the buffer's leading NUL byte
// already reserved at offset 0.
func NewBuilder() *Builder {
	return &Builder{buf: []byte{0}}
}

// Add appends name to the buffer and returns its byte offset.
func (b *Builder) Add(name string) uint32 {
	offset := uint32(len(b.buf))
	b.buf = append(b.buf, name...)
	b.buf = append(b.buf, 0)
	b.offsets = append(b.offsets, offset)
	return offset
}

// Build assembles the final Strings value.
//
// The bucket array is sized by bucketCount (the smallest bucket count
// whose 3/4 threshold is at least the number of added names) but is never
// populated: the insertion loop this mirrors only ever overwrites a slot
// it finds already non-zero, so starting from an all-zero array no name
// is ever placed. This reproduces the original builder's behavior
// byte-for-byte rather than fixing it; see DESIGN.md.
func (b *Builder) Build() *Strings {
	buckets := make([]uint32, bucketCount(uint32(len(b.offsets))))
	return &Strings{
		HashVersion: HashVersionV1,
		buf:         b.buf,
		buckets:     buckets,
		nameCount:   uint32(len(b.offsets)),
	}
}

// bucketCount returns the smallest bucket count in the sequence
// 1, 2, 4, 7, 11, 17, ... (each term = prev*3/2 + 1) whose 3/4 threshold
// is at least n, matching the original source's
// bucket_counts::get_bucket_count.
func bucketCount(n uint32) uint32 {
	cur := uint32(1)
	for cur*3/4 < n {
		cur = cur*3/2 + 1
	}
	return cur
}
