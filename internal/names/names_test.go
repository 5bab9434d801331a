package names

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBucketCountMatchesDocumentedSequence(t *testing.T) {
	cases := []struct {
		n    uint32
		want uint32
	}{
		{0, 1},
		{1, 2},
		{2, 4},
		{3, 4},
		{4, 7},
		{5, 7},
		{6, 11},
		{7, 11},
		{8, 11},
		{9, 17},
		{20482, 40963},
	}
	for _, c := range cases {
		require.Equal(t, c.want, bucketCount(c.n), "n=%d", c.n)
	}
}

func TestNewBuilderReservesEmptyStringAtOffsetZero(t *testing.T) {
	b := NewBuilder()
	s := b.Build()
	got, ok := s.Get(0)
	require.True(t, ok)
	require.Equal(t, "", got)
}

func TestBuilderEncodeParseRoundTripsNames(t *testing.T) {
	b := NewBuilder()
	off1 := b.Add("foo")
	off2 := b.Add("barbaz")

	s := b.Build()
	require.Equal(t, uint32(2), s.NameCount())

	encoded := s.Encode(nil)
	parsed, err := Parse(encoded)
	require.NoError(t, err)
	require.Equal(t, HashVersionV1, parsed.HashVersion)
	require.Equal(t, uint32(2), parsed.NameCount())

	got1, ok := parsed.Get(off1)
	require.True(t, ok)
	require.Equal(t, "foo", got1)

	got2, ok := parsed.Get(off2)
	require.True(t, ok)
	require.Equal(t, "barbaz", got2)
}

func TestBuildBucketArrayIsAlwaysEmptyRegardlessOfInput(t *testing.T) {
	b := NewBuilder()
	for _, name := range []string{"one", "two", "three", "four", "five"} {
		b.Add(name)
	}
	s := b.Build()

	require.Greater(t, s.BucketCount(), 0)
	for i := 0; i < s.BucketCount(); i++ {
		require.Equal(t, uint32(0), s.buckets[i])
	}
}

func TestParseRejectsBadSignature(t *testing.T) {
	data := make([]byte, 16)
	_, err := Parse(data)
	require.ErrorIs(t, err, ErrBadSignature)
}

func TestParseRejectsTruncatedStream(t *testing.T) {
	_, err := Parse([]byte{1, 2, 3})
	require.ErrorIs(t, err, ErrTruncated)
}
