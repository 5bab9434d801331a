package hashutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashV1StringIsCaseInsensitive(t *testing.T) {
	require.Equal(t, HashV1String("Foo"), HashV1String("foo"))
	require.Equal(t, HashV1String("MyClass::Method"), HashV1String("myclass::method"))
}

func TestHashV1Deterministic(t *testing.T) {
	names := []string{"", "a", "ab", "abc", "abcd", "abcde", "a_very_long_mangled_symbol_name_0123456789"}
	for _, n := range names {
		require.Equal(t, HashV1String(n), HashV1String(n), "hash of %q must be stable", n)
	}
}

func TestHashV1DiffersForDifferentInputs(t *testing.T) {
	require.NotEqual(t, HashV1String("alpha"), HashV1String("beta"))
}

func TestBitVectorRoundTrip(t *testing.T) {
	bv := NewBitVector(70)
	bv.Set(0)
	bv.Set(5)
	bv.Set(63)
	bv.Set(64)
	bv.Set(69)

	encoded := bv.Encode(nil)
	decoded, n, err := ReadBitVector(encoded)
	require.NoError(t, err)
	require.Equal(t, len(encoded), n)

	for _, i := range []int{0, 5, 63, 64, 69} {
		require.True(t, decoded.Test(i), "bit %d should be set", i)
	}
	require.False(t, decoded.Test(1))
	require.Equal(t, []int{0, 5, 63, 64, 69}, decoded.Indices())
}

func TestReadBitVectorTruncated(t *testing.T) {
	_, _, err := ReadBitVector([]byte{0x02, 0x00, 0x00})
	require.ErrorIs(t, err, ErrTruncatedBitVector)
}

func TestTableRoundTrip(t *testing.T) {
	pairs := [][2]uint32{{1, 100}, {2, 200}, {3, 300}}
	table := NewTable(pairs)

	encoded := table.Encode(nil)
	decoded, n, err := ReadTable(encoded)
	require.NoError(t, err)
	require.Equal(t, len(encoded), n)

	val, ok := decoded.Lookup(func(key uint32) bool { return key == 2 })
	require.True(t, ok)
	require.Equal(t, uint32(200), val)

	_, ok = decoded.Lookup(func(key uint32) bool { return key == 99 })
	require.False(t, ok)
}

func TestNewTableDeletedVectorIsEmpty(t *testing.T) {
	table := NewTable([][2]uint32{{1, 100}})

	require.Equal(t, 0, len(table.Deleted.Words()))
	require.Equal(t, []byte{0, 0, 0, 0}, table.Deleted.Encode(nil))
}
