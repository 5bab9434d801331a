package symbols

import (
	"encoding/binary"
	"strings"
	"testing"

	"github.com/jac3km4/pdb-sdk/internal/hashutil"
	"github.com/stretchr/testify/require"
)

func TestBuildGSIBodyParsesBackWithParseGSI(t *testing.T) {
	entries := []SymbolEntry{
		{Name: "Zebra", Offset: 100},
		{Name: "apple", Offset: 10},
		{Name: "Apple", Offset: 20},
		{Name: "middle", Offset: 50},
	}

	body := BuildGSIBody(entries)

	gsi, err := ParseGSI(body)
	require.NoError(t, err)

	offsets := gsi.RecordOffsets()
	require.Len(t, offsets, len(entries))

	wantOffsets := make(map[uint32]bool)
	for _, e := range entries {
		wantOffsets[e.Offset] = true
	}
	for _, off := range offsets {
		require.True(t, wantOffsets[off])
	}

	bucket := int(hashutil.HashV1String("Zebra") % IPHRHash)
	start, end := gsi.BucketRange(bucket)
	require.Greater(t, end, start)
}

func TestBucketizeOrdersEachBucketCaseInsensitivelyThenByOffset(t *testing.T) {
	entries := []SymbolEntry{
		{Name: "same", Offset: 2},
		{Name: "Same", Offset: 1},
		{Name: "SAME", Offset: 3},
	}

	ordered, bucketStart := bucketize(entries)
	require.Len(t, ordered, 3)

	bucket := int(hashutil.HashV1String("same") % IPHRHash)
	start, ok := bucketStart[bucket]
	require.True(t, ok)

	run := ordered[start : start+3]
	for i := 1; i < len(run); i++ {
		require.True(t, strings.EqualFold(run[i-1].Name, run[i].Name))
		require.LessOrEqual(t, run[i-1].Offset, run[i].Offset)
	}
}

func TestBuildPSIBodyLayoutMatchesParsePSI(t *testing.T) {
	entries := []SymbolEntry{
		{Name: "_main", Offset: 0},
		{Name: "_helper", Offset: 40},
	}
	addrEntries := []PublicAddrEntry{
		{SymOffset: 1, DataRegionOffset: 0x2000},
		{SymOffset: 41, DataRegionOffset: 0x1000},
	}

	body := BuildPSIBody(entries, addrEntries)

	psi, err := ParsePSI(body)
	require.NoError(t, err)
	addrMap := psi.AddressMap()
	require.Len(t, addrMap, 2)

	// addrMap must be sorted by DataRegionOffset: the 0x1000 entry (SymOffset 41) first.
	require.Equal(t, uint32(41), addrMap[0])
	require.Equal(t, uint32(1), addrMap[1])

	offsets := psi.RecordOffsets()
	require.Len(t, offsets, len(entries))

	// The PublicsHeader must be the first 28 bytes on disk: SymHash names
	// the GSI body length that immediately follows it, and the GSI body's
	// own version signature (0xFFFFFFFF) must start at offset 28, not 0.
	symHash := binary.LittleEndian.Uint32(body[0:4])
	require.Equal(t, uint32(len(body)-28-8), symHash)
	require.Equal(t, uint32(0xFFFFFFFF), binary.LittleEndian.Uint32(body[28:32]))
}
