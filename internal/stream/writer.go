package stream

import (
	"encoding/binary"
	"math"
)

// Writer accumulates binary data for PDB streams. All multi-byte values
// are written in little-endian order, mirroring Reader's decode rules.
type Writer struct {
	buf []byte
}

// NewWriter creates an empty Writer, optionally pre-sizing its buffer.
func NewWriter(sizeHint int) *Writer {
	return &Writer{buf: make([]byte, 0, sizeHint)}
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int {
	return len(w.buf)
}

// Bytes returns the accumulated bytes. The returned slice aliases the
// Writer's internal buffer.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// WriteU8 appends a single byte.
func (w *Writer) WriteU8(v uint8) {
	w.buf = append(w.buf, v)
}

// WriteI8 appends a signed byte.
func (w *Writer) WriteI8(v int8) {
	w.WriteU8(uint8(v))
}

// WriteU16 appends a little-endian uint16.
func (w *Writer) WriteU16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// WriteI16 appends a little-endian int16.
func (w *Writer) WriteI16(v int16) {
	w.WriteU16(uint16(v))
}

// WriteU32 appends a little-endian uint32.
func (w *Writer) WriteU32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// WriteI32 appends a little-endian int32.
func (w *Writer) WriteI32(v int32) {
	w.WriteU32(uint32(v))
}

// WriteU64 appends a little-endian uint64.
func (w *Writer) WriteU64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// WriteI64 appends a little-endian int64.
func (w *Writer) WriteI64(v int64) {
	w.WriteU64(uint64(v))
}

// WriteFloat32 appends a little-endian IEEE-754 single.
func (w *Writer) WriteFloat32(v float32) {
	w.WriteU32(math.Float32bits(v))
}

// WriteFloat64 appends a little-endian IEEE-754 double.
func (w *Writer) WriteFloat64(v float64) {
	w.WriteU64(math.Float64bits(v))
}

// WriteBytes appends raw bytes verbatim.
func (w *Writer) WriteBytes(b []byte) {
	w.buf = append(w.buf, b...)
}

// WriteCString appends s followed by a NUL terminator.
func (w *Writer) WriteCString(s string) {
	w.buf = append(w.buf, s...)
	w.buf = append(w.buf, 0)
}

// WriteFixedString appends s truncated or zero-padded to exactly n bytes.
func (w *Writer) WriteFixedString(s string, n int) {
	var b = make([]byte, n)
	copy(b, s)
	w.buf = append(w.buf, b...)
}

// WriteGUID appends a 16-byte GUID verbatim.
func (w *Writer) WriteGUID(g [16]byte) {
	w.buf = append(w.buf, g[:]...)
}

// Align pads with zero bytes until Len() is a multiple of n.
func (w *Writer) Align(n int) {
	for len(w.buf)%n != 0 {
		w.buf = append(w.buf, 0)
	}
}

// WriteNumeric encodes v using the narrowest unsigned numeric-leaf form:
// values below 0x8000 self-encode as a bare u16; wider values get the
// appropriate LF_* prefix. This mirrors Reader.ReadNumeric's decode table.
func (w *Writer) WriteNumeric(v uint64) {
	const (
		lfChar      = 0x8000
		lfShort     = 0x8001
		lfUShort    = 0x8002
		lfLong      = 0x8003
		lfULong     = 0x8004
		lfQuadword  = 0x8009
		lfUQuadword = 0x800a
	)

	switch {
	case v < 0x8000:
		w.WriteU16(uint16(v))
	case v <= math.MaxUint16:
		w.WriteU16(lfUShort)
		w.WriteU16(uint16(v))
	case v <= math.MaxUint32:
		w.WriteU16(lfULong)
		w.WriteU32(uint32(v))
	default:
		w.WriteU16(lfUQuadword)
		w.WriteU64(v)
	}
}

// WriteSignedNumeric encodes a negative numeric leaf using the narrowest
// signed LF_* form. Non-negative values are delegated to WriteNumeric.
func (w *Writer) WriteSignedNumeric(v int64) {
	const (
		lfChar     = 0x8000
		lfShort    = 0x8001
		lfLong     = 0x8003
		lfQuadword = 0x8009
	)

	if v >= 0 {
		w.WriteNumeric(uint64(v))
		return
	}

	switch {
	case v >= math.MinInt8:
		w.WriteU16(lfChar)
		w.WriteI8(int8(v))
	case v >= math.MinInt16:
		w.WriteU16(lfShort)
		w.WriteI16(int16(v))
	case v >= math.MinInt32:
		w.WriteU16(lfLong)
		w.WriteI32(int32(v))
	default:
		w.WriteU16(lfQuadword)
		w.WriteI64(v)
	}
}
