// Package symbols provides parsing for CodeView symbol records.
package symbols

import (
	"sort"

	"github.com/jac3km4/pdb-sdk/internal/hashutil"
	"github.com/jac3km4/pdb-sdk/internal/stream"
)

// IPHRHash is the fixed bucket count (IPHR_HASH) used by every global and
// public symbol index.
const IPHRHash = 4096

// gsiBitmapWords is the number of u32 words backing the (IPHRHash+1)-bit
// presence bitmap that precedes the bucket-start array on disk.
const gsiBitmapWords = (IPHRHash + 32) / 32

// GSI (Global Symbol Index) provides hash-based symbol lookup.
// It parses the GSI stream format used by both global and public symbols.
type GSI struct {
	// hashRecords contains offsets into the symbol record stream
	hashRecords []HashRecord
	// bucketStart maps a non-empty bucket index (0..IPHRHash) to the first
	// position in hashRecords belonging to that bucket.
	bucketStart map[int]int
	// numBuckets is the number of hash buckets
	numBuckets uint32
}

// ParseGSI parses a Global Symbol Index stream.
//
// The bucket region is a fixed presence bitmap (129 u32 words covering the
// 4096 buckets plus one always-zero guard bit) followed by one u32 per set
// bit, each value equal to the bucket's first record index times 12 (the
// encoded HashRecords themselves are 8 bytes each). This mirrors the layout
// produced by Commit.
func ParseGSI(data []byte) (*GSI, error) {
	if len(data) < 16 {
		return nil, ErrUnexpectedEnd
	}

	r := stream.NewReader(data)

	// Read GSI header
	verSig, _ := r.ReadU32()
	verHdr, _ := r.ReadU32()
	hrSize, _ := r.ReadU32()
	bucketSize, _ := r.ReadU32()

	_ = verSig // 0xFFFFFFFF
	_ = verHdr // 0xeffe0000 + 19990810

	// Parse hash records
	numRecords := hrSize / 8 // Each record is 8 bytes
	hashRecords := make([]HashRecord, numRecords)

	for i := uint32(0); i < numRecords; i++ {
		offset, _ := r.ReadU32()
		cref, _ := r.ReadU32()
		hashRecords[i] = HashRecord{
			Offset: offset,
			CRef:   cref,
		}
	}

	bucketStart := make(map[int]int)
	numBuckets := uint32(IPHRHash)

	if bucketSize >= gsiBitmapWords*4 {
		bitmap := make([]uint32, gsiBitmapWords)
		for i := range bitmap {
			v, err := r.ReadU32()
			if err != nil {
				return nil, err
			}
			bitmap[i] = v
		}

		remaining := int(bucketSize) - gsiBitmapWords*4
		numSetBits := remaining / 4

		set := 0
		for bit := 0; bit < IPHRHash && set < numSetBits; bit++ {
			word := bitmap[bit/32]
			if word&(1<<uint(bit%32)) == 0 {
				continue
			}
			startTimes12, err := r.ReadU32()
			if err != nil {
				return nil, err
			}
			bucketStart[bit] = int(startTimes12 / 12)
			set++
		}
	}

	return &GSI{
		hashRecords: hashRecords,
		bucketStart: bucketStart,
		numBuckets:  numBuckets,
	}, nil
}

// BucketRange returns the [start, end) slice of hashRecords belonging to
// hash bucket b, using the next populated bucket (or the record count) as
// the exclusive end.
func (g *GSI) BucketRange(b int) (int, int) {
	start, ok := g.bucketStart[b]
	if !ok {
		return 0, 0
	}
	end := len(g.hashRecords)
	for nb := b + 1; nb < int(g.numBuckets); nb++ {
		if s, ok := g.bucketStart[nb]; ok {
			end = s
			break
		}
	}
	return start, end
}

// RecordOffsets returns all symbol record offsets in the GSI.
func (g *GSI) RecordOffsets() []uint32 {
	offsets := make([]uint32, 0, len(g.hashRecords))
	for _, rec := range g.hashRecords {
		if rec.Offset > 0 {
			// Offset is stored +1, so subtract 1 to get actual offset
			offsets = append(offsets, rec.Offset-1)
		}
	}
	return offsets
}

// PSI (Public Symbol Index) extends GSI with address-sorted lookup.
type PSI struct {
	*GSI
	header  PSIHeader
	addrMap []uint32 // Sorted offsets into symbol record stream by address
}

// ParsePSI parses a Public Symbol Index stream: the PublicsHeader at
// offset 0, followed by the GSI body (SymHash bytes), followed by the
// address map (AddrMapSize bytes).
func ParsePSI(data []byte) (*PSI, error) {
	if len(data) < 28 {
		return nil, ErrUnexpectedEnd
	}

	r := stream.NewReader(data)

	var header PSIHeader
	var err error

	header.SymHash, err = r.ReadU32()
	if err != nil {
		return nil, err
	}

	header.AddrMapSize, err = r.ReadU32()
	if err != nil {
		return nil, err
	}

	header.NumThunks, err = r.ReadU32()
	if err != nil {
		return nil, err
	}

	header.SizeOfThunk, err = r.ReadU32()
	if err != nil {
		return nil, err
	}

	header.ISectThunkTable, err = r.ReadU16()
	if err != nil {
		return nil, err
	}

	header.Padding, err = r.ReadU16()
	if err != nil {
		return nil, err
	}

	header.OffThunkTable, err = r.ReadU32()
	if err != nil {
		return nil, err
	}

	header.NumSects, err = r.ReadU32()
	if err != nil {
		return nil, err
	}

	gsiBody, err := r.ReadBytes(int(header.SymHash))
	if err != nil {
		return nil, err
	}

	numAddrs := header.AddrMapSize / 4
	addrMap := make([]uint32, 0, numAddrs)
	for i := uint32(0); i < numAddrs; i++ {
		offset, err := r.ReadU32()
		if err != nil {
			break
		}
		addrMap = append(addrMap, offset)
	}

	gsi, err := ParseGSI(gsiBody)
	if err != nil {
		return nil, err
	}

	return &PSI{
		GSI:     gsi,
		header:  header,
		addrMap: addrMap,
	}, nil
}

// AddressMap returns the address-sorted symbol offsets.
// These are offsets into the symbol record stream, sorted by symbol address.
func (p *PSI) AddressMap() []uint32 {
	return p.addrMap
}

// SymbolAddress represents a symbol's location for address lookup.
type SymbolAddress struct {
	Section uint16
	Offset  uint32
	SymOffset uint32 // Offset in symbol record stream
}

// AddressIndex provides fast address-based symbol lookup.
type AddressIndex struct {
	entries []SymbolAddress
}

// NewAddressIndex creates an address index from PSI address map and symbol data.
func NewAddressIndex(addrMap []uint32, symData []byte) *AddressIndex {
	entries := make([]SymbolAddress, 0, len(addrMap))

	for _, symOffset := range addrMap {
		if int(symOffset)+10 > len(symData) {
			continue
		}

		// Parse just enough of the symbol to get section:offset
		rec, _, err := ParseSymbolRecord(symData[symOffset:])
		if err != nil {
			continue
		}

		if rec.Kind != S_PUB32 {
			continue
		}

		// Parse public symbol to get address
		sym, err := ParsePublicSym32(rec.Data)
		if err != nil {
			continue
		}

		entries = append(entries, SymbolAddress{
			Section:   sym.Segment,
			Offset:    sym.Offset,
			SymOffset: symOffset,
		})
	}

	// Sort by section then offset
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Section != entries[j].Section {
			return entries[i].Section < entries[j].Section
		}
		return entries[i].Offset < entries[j].Offset
	})

	return &AddressIndex{entries: entries}
}

// FindByAddress finds the symbol at or before the given address.
// Returns the symbol offset and whether an exact match was found.
func (idx *AddressIndex) FindByAddress(section uint16, offset uint32) (symOffset uint32, exact bool, found bool) {
	if len(idx.entries) == 0 {
		return 0, false, false
	}

	// Binary search for the address
	i := sort.Search(len(idx.entries), func(i int) bool {
		if idx.entries[i].Section != section {
			return idx.entries[i].Section > section
		}
		return idx.entries[i].Offset >= offset
	})

	if i < len(idx.entries) && idx.entries[i].Section == section && idx.entries[i].Offset == offset {
		return idx.entries[i].SymOffset, true, true
	}

	// Return the symbol just before this address (containing symbol)
	if i > 0 {
		prev := idx.entries[i-1]
		if prev.Section == section {
			return prev.SymOffset, false, true
		}
	}

	return 0, false, false
}

// NameIndex provides hash-based symbol name lookup.
type NameIndex struct {
	buckets    [][]nameEntry
	numBuckets uint32
}

type nameEntry struct {
	name      string
	symOffset uint32
}

// NewNameIndex creates a name index from symbol data.
func NewNameIndex(symData []byte) *NameIndex {
	const numBuckets = 4096

	idx := &NameIndex{
		buckets:    make([][]nameEntry, numBuckets),
		numBuckets: numBuckets,
	}

	r := stream.NewReader(symData)
	for r.Remaining() > 4 {
		offset := r.Offset()
		rec, size, err := ParseSymbolRecord(symData[offset:])
		if err != nil {
			break
		}

		name := getSymbolName(rec)
		if name != "" {
			bucket := hashName(name) % numBuckets
			idx.buckets[bucket] = append(idx.buckets[bucket], nameEntry{
				name:      name,
				symOffset: uint32(offset),
			})
		}

		r.Skip(size)
	}

	return idx
}

// FindByName finds symbols with the given name.
// Returns offsets into the symbol record stream.
func (idx *NameIndex) FindByName(name string) []uint32 {
	bucket := hashName(name) % idx.numBuckets
	entries := idx.buckets[bucket]

	var results []uint32
	for _, e := range entries {
		if e.name == name {
			results = append(results, e.symOffset)
		}
	}
	return results
}

// hashName computes the v1 name hash used by the on-disk GSI/PSI buckets.
func hashName(name string) uint32 {
	return hashutil.HashV1String(name)
}

// getSymbolName extracts name from a symbol record.
func getSymbolName(rec *SymbolRecord) string {
	switch rec.Kind {
	case S_PUB32:
		if sym, err := ParsePublicSym32(rec.Data); err == nil {
			return sym.Name
		}
	case S_GPROC32, S_LPROC32, S_GPROC32_ID, S_LPROC32_ID:
		if sym, err := ParseProcSym(rec.Data); err == nil {
			return sym.Name
		}
	case S_GDATA32, S_LDATA32:
		if sym, err := ParseDataSym(rec.Data); err == nil {
			return sym.Name
		}
	case S_UDT:
		if sym, err := ParseUDTSym(rec.Data); err == nil {
			return sym.Name
		}
	case S_CONSTANT:
		if sym, err := ParseConstantSym(rec.Data); err == nil {
			return sym.Name
		}
	}
	return ""
}
