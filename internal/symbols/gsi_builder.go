package symbols

import (
	"encoding/binary"
	"sort"
	"strings"

	"github.com/jac3km4/pdb-sdk/internal/hashutil"
)

// gsiVersionSignature and gsiVersionHeader are the fixed GsiHashHeader
// constants every global/public symbol index carries.
const (
	gsiVersionSignature uint32 = 0xFFFFFFFF
	gsiVersionHeader    uint32 = 0xEFFE0000 + 19990810
)

// SymbolEntry is one (name, symbol-stream-offset) pair contributed to a
// global or public symbol index.
type SymbolEntry struct {
	Name   string
	Offset uint32
}

// lessCaseInsensitive implements the bucket ordering rule: compare names
// ASCII-case-insensitively, breaking ties by symbol offset.
func lessCaseInsensitive(a, b SymbolEntry) bool {
	la, lb := strings.ToLower(a.Name), strings.ToLower(b.Name)
	if la != lb {
		return la < lb
	}
	return a.Offset < b.Offset
}

// bucketize assigns each entry to its hash_v1 bucket, then returns the
// entries reordered so that every bucket occupies a contiguous run sorted
// per lessCaseInsensitive, plus the start index of each non-empty bucket.
func bucketize(entries []SymbolEntry) (ordered []SymbolEntry, bucketStart map[int]int) {
	n := len(entries)
	bucketOf := make([]int, n)
	counts := make([]int, IPHRHash)

	for i, e := range entries {
		b := int(hashutil.HashV1String(e.Name) % IPHRHash)
		bucketOf[i] = b
		counts[b]++
	}

	starts := make([]int, IPHRHash)
	sum := 0
	for b := 0; b < IPHRHash; b++ {
		starts[b] = sum
		sum += counts[b]
	}

	ordered = make([]SymbolEntry, n)
	cursor := append([]int(nil), starts...)
	for i, e := range entries {
		b := bucketOf[i]
		ordered[cursor[b]] = e
		cursor[b]++
	}

	bucketStart = make(map[int]int)
	for b := 0; b < IPHRHash; b++ {
		if counts[b] == 0 {
			continue
		}
		bucketStart[b] = starts[b]
		sort.SliceStable(ordered[starts[b]:starts[b]+counts[b]], func(i, j int) bool {
			return lessCaseInsensitive(ordered[starts[b]+i], ordered[starts[b]+j])
		})
	}

	return ordered, bucketStart
}

// BuildGSIBody constructs the GsiHashHeader-prefixed body shared by both
// the globals and publics streams: hash records, then the presence bitmap,
// then the bucket-start array. entries need not be pre-sorted; BuildGSIBody
// performs the hash_v1 bucketing and within-bucket ordering itself.
func BuildGSIBody(entries []SymbolEntry) []byte {
	ordered, bucketStart := bucketize(entries)

	hashRecords := make([]byte, len(ordered)*8)
	for i, e := range ordered {
		binary.LittleEndian.PutUint32(hashRecords[i*8:], e.Offset+1)
		binary.LittleEndian.PutUint32(hashRecords[i*8+4:], 1)
	}

	bitmap := make([]uint32, gsiBitmapWords)
	var buckets []byte
	for b := 0; b < IPHRHash; b++ {
		start, ok := bucketStart[b]
		if !ok {
			continue
		}
		bitmap[b/32] |= 1 << uint(b%32)
		var u32 [4]byte
		binary.LittleEndian.PutUint32(u32[:], uint32(start*12))
		buckets = append(buckets, u32[:]...)
	}

	bitmapBytes := make([]byte, gsiBitmapWords*4)
	for i, w := range bitmap {
		binary.LittleEndian.PutUint32(bitmapBytes[i*4:], w)
	}
	bucketSize := len(bitmapBytes) + len(buckets)

	out := make([]byte, 0, 16+len(hashRecords)+bucketSize)
	var hdr [16]byte
	binary.LittleEndian.PutUint32(hdr[0:], gsiVersionSignature)
	binary.LittleEndian.PutUint32(hdr[4:], gsiVersionHeader)
	binary.LittleEndian.PutUint32(hdr[8:], uint32(len(hashRecords)))
	binary.LittleEndian.PutUint32(hdr[12:], uint32(bucketSize))
	out = append(out, hdr[:]...)
	out = append(out, hashRecords...)
	out = append(out, bitmapBytes...)
	out = append(out, buckets...)

	return out
}

// PublicAddrEntry is one public symbol's record offset and the region
// offset (DataRegionOffset) used to sort the publics address map.
type PublicAddrEntry struct {
	SymOffset        uint32
	DataRegionOffset uint32
}

// BuildPSIBody constructs the full publics stream in the order the reader
// expects (ParsePSI): the PublicsHeader first, then the GSI body
// (globals-shaped hash table over the same entries), then the address map
// sorted by DataRegionOffset, then an empty thunk table.
func BuildPSIBody(entries []SymbolEntry, addrEntries []PublicAddrEntry) []byte {
	gsiBody := BuildGSIBody(entries)

	sorted := append([]PublicAddrEntry(nil), addrEntries...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].DataRegionOffset < sorted[j].DataRegionOffset
	})

	addrMap := make([]byte, len(sorted)*4)
	for i, e := range sorted {
		binary.LittleEndian.PutUint32(addrMap[i*4:], e.SymOffset)
	}

	var psiHdr [28]byte
	binary.LittleEndian.PutUint32(psiHdr[0:], uint32(len(gsiBody)))
	binary.LittleEndian.PutUint32(psiHdr[4:], uint32(len(addrMap)))
	// NumThunks, SizeOfThunk, ISectThunkTable, Padding, OffThunkTable,
	// NumSects are all zero: this implementation emits no thunk table.

	out := make([]byte, 0, len(psiHdr)+len(gsiBody)+len(addrMap))
	out = append(out, psiHdr[:]...)
	out = append(out, gsiBody...)
	out = append(out, addrMap...)
	return out
}
