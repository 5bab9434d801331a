// Package cvrecord implements the CodeView record framing convention shared
// by the TPI, IPI, and symbol streams: a u16 length prefix, a u16 kind tag,
// a body, and trailing padding to a 4-byte boundary whose first byte names
// the remaining pad count.
package cvrecord

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrTooShort is returned when fewer than 4 bytes remain for a record
// header (length + kind).
var ErrTooShort = errors.New("cvrecord: too short for record header")

// ErrInvalidPadding is returned when a trailing byte in a record's window
// is neither zero nor in the 0xF0..0xFF padding-marker range.
var ErrInvalidPadding = errors.New("cvrecord: invalid padding byte")

// padMarker is the high nibble every non-zero padding byte must carry;
// the low nibble counts the total pad bytes remaining, including itself.
const padMarker = 0xF0

// Encode appends the framed record for (kind, body) to dst and returns the
// new slice. The emitted length field excludes itself but includes the
// kind tag, the body, and any padding.
func Encode(dst []byte, kind uint16, body []byte) []byte {
	size := 2 + len(body) // kind + body
	padded := size
	for (padded+2)%4 != 0 {
		padded++
	}
	padCount := padded - size

	var hdr [4]byte
	binary.LittleEndian.PutUint16(hdr[0:], uint16(padded))
	binary.LittleEndian.PutUint16(hdr[2:], kind)
	dst = append(dst, hdr[:]...)
	dst = append(dst, body...)

	for i := 0; i < padCount; i++ {
		if i == 0 {
			dst = append(dst, byte(padMarker|padCount))
		} else {
			dst = append(dst, 0)
		}
	}
	return dst
}

// Record is a decoded, but not yet interpreted, CodeView record: its kind
// tag and the raw bytes of its body window with trailing padding stripped.
type Record struct {
	Kind uint16
	Body []byte
	// Size is the total byte length of the framed record, including the
	// u16 length field itself. Callers use it to advance to the next
	// record.
	Size int
}

// Decode reads one framed record from the front of data, validating that
// any trailing bytes are legal padding.
func Decode(data []byte) (Record, error) {
	if len(data) < 4 {
		return Record{}, ErrTooShort
	}

	length := binary.LittleEndian.Uint16(data)
	total := int(length) + 2
	if total > len(data) {
		return Record{}, fmt.Errorf("cvrecord: record claims %d bytes, only %d available: %w", total, len(data), ErrTooShort)
	}

	kind := binary.LittleEndian.Uint16(data[2:])
	window := data[4:total]

	bodyEnd := len(window)
	for bodyEnd > 0 {
		b := window[bodyEnd-1]
		if b == 0 {
			bodyEnd--
			continue
		}
		if b&0xF0 == padMarker {
			n := int(b & 0x0F)
			if n == 0 || bodyEnd-1+n != len(window) {
				return Record{}, fmt.Errorf("%w: pad count %d at tail", ErrInvalidPadding, n)
			}
			bodyEnd--
			break
		}
		// A byte that a preceding pad marker claims as padding must be zero.
		for p := bodyEnd - 2; p >= 0 && p >= bodyEnd-3; p-- {
			if m := window[p]; m&0xF0 == padMarker && p+int(m&0x0F) >= bodyEnd {
				return Record{}, fmt.Errorf("%w: byte 0x%02x at offset %d", ErrInvalidPadding, b, bodyEnd-1)
			}
		}
		break
	}

	// Validate every byte we decided to treat as padding really is one.
	for i := bodyEnd; i < len(window); i++ {
		b := window[i]
		if b != 0 && b&0xF0 != padMarker {
			return Record{}, fmt.Errorf("%w: byte 0x%02x at offset %d", ErrInvalidPadding, b, i)
		}
	}

	return Record{Kind: kind, Body: window[:bodyEnd], Size: total}, nil
}

// Iterate calls fn for every framed record in data in order, stopping at
// the first error returned by Decode or by fn.
func Iterate(data []byte, fn func(rec Record, offset int) error) error {
	offset := 0
	for offset < len(data) {
		rec, err := Decode(data[offset:])
		if err != nil {
			return fmt.Errorf("cvrecord: at offset %d: %w", offset, err)
		}
		if err := fn(rec, offset); err != nil {
			return err
		}
		offset += rec.Size
	}
	return nil
}
