package hashutil

import (
	"encoding/binary"
	"errors"
)

// ErrTruncatedTable is returned when a Table's header sizes do not fit the
// remaining bytes.
var ErrTruncatedTable = errors.New("hashutil: truncated table")

// entry is one (key, value) slot in a persisted Table.
type entry struct {
	key   uint32
	value uint32
}

// Table is the open-addressed (key: u32, value: u32) map used by the named
// stream table and by the TPI hash-adjuster sidecar. On disk it is
// size, cap, a present BitVector, a deleted BitVector, then size entries
// (only those marked present in the BitVector are meaningful).
type Table struct {
	Cap     uint32
	Present *BitVector
	Deleted *BitVector
	Entries []entry
}

// NewTable builds a Table from an ordered list of (key, value) pairs,
// preserving insertion order in the entries array and marking every slot
// present.
func NewTable(pairs [][2]uint32) *Table {
	cap := uint32(len(pairs))
	if cap < 8 {
		cap = 8
	}
	t := &Table{
		Cap:     cap,
		Present: NewBitVector(len(pairs)),
		Deleted: NewBitVector(0),
		Entries: make([]entry, len(pairs)),
	}
	for i, p := range pairs {
		t.Entries[i] = entry{key: p[0], value: p[1]}
		t.Present.Set(i)
	}
	return t
}

// ReadTable decodes a Table from data, returning the number of bytes
// consumed.
func ReadTable(data []byte) (*Table, int, error) {
	if len(data) < 8 {
		return nil, 0, ErrTruncatedTable
	}
	size := binary.LittleEndian.Uint32(data)
	capacity := binary.LittleEndian.Uint32(data[4:])
	offset := 8

	present, n, err := ReadBitVector(data[offset:])
	if err != nil {
		return nil, 0, err
	}
	offset += n

	deleted, n, err := ReadBitVector(data[offset:])
	if err != nil {
		return nil, 0, err
	}
	offset += n

	need := offset + int(size)*8
	if len(data) < need {
		return nil, 0, ErrTruncatedTable
	}

	entries := make([]entry, size)
	for i := range entries {
		entries[i].key = binary.LittleEndian.Uint32(data[offset+i*8:])
		entries[i].value = binary.LittleEndian.Uint32(data[offset+i*8+4:])
	}

	return &Table{
		Cap:     capacity,
		Present: present,
		Deleted: deleted,
		Entries: entries,
	}, need, nil
}

// Lookup performs a linear scan over present entries, returning the value
// for the first entry whose key matches and whose candidacy is confirmed
// by matches(key). The PDB named-stream table uses this with matches
// comparing the string found at the key, which there is a byte offset
// into the names buffer.
func (t *Table) Lookup(matches func(key uint32) bool) (uint32, bool) {
	for i, e := range t.Entries {
		if !t.Present.Test(i) {
			continue
		}
		if matches(e.key) {
			return e.value, true
		}
	}
	return 0, false
}

// Encode appends the Table's on-disk representation to dst.
func (t *Table) Encode(dst []byte) []byte {
	var hdr [8]byte
	binary.LittleEndian.PutUint32(hdr[0:], uint32(len(t.Entries)))
	binary.LittleEndian.PutUint32(hdr[4:], t.Cap)
	dst = append(dst, hdr[:]...)
	dst = t.Present.Encode(dst)
	dst = t.Deleted.Encode(dst)
	for _, e := range t.Entries {
		var buf [8]byte
		binary.LittleEndian.PutUint32(buf[0:], e.key)
		binary.LittleEndian.PutUint32(buf[4:], e.value)
		dst = append(dst, buf[:]...)
	}
	return dst
}
