package msf

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

// memSink is a growable in-memory buffer implementing Sink (io.Writer +
// io.Seeker), standing in for an *os.File in tests.
type memSink struct {
	buf []byte
	pos int64
}

func (m *memSink) Write(p []byte) (int, error) {
	end := m.pos + int64(len(p))
	if end > int64(len(m.buf)) {
		grown := make([]byte, end)
		copy(grown, m.buf)
		m.buf = grown
	}
	copy(m.buf[m.pos:end], p)
	m.pos = end
	return len(p), nil
}

func (m *memSink) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		m.pos = offset
	case io.SeekCurrent:
		m.pos += offset
	case io.SeekEnd:
		m.pos = int64(len(m.buf)) + offset
	}
	return m.pos, nil
}

func (m *memSink) ReadAt(p []byte, off int64) (int, error) {
	return bytes.NewReader(m.buf).ReadAt(p, off)
}

func TestCommitterRoundTrip(t *testing.T) {
	sink := &memSink{}

	committer, err := NewCommitter(sink, BlockSize4096)
	require.NoError(t, err)

	streamA := bytes.Repeat([]byte{0xAB}, 10)
	streamB := bytes.Repeat([]byte{0xCD}, 5000) // spans multiple blocks

	idxNil, err := committer.WriteStream(nil)
	require.NoError(t, err)
	require.Equal(t, uint32(0), idxNil)

	idxA, err := committer.WriteStream(streamA)
	require.NoError(t, err)
	require.Equal(t, uint32(1), idxA)

	idxB, err := committer.WriteStream(streamB)
	require.NoError(t, err)
	require.Equal(t, uint32(2), idxB)

	require.NoError(t, committer.Finish())

	f, err := NewFile(sink, int64(len(sink.buf)))
	require.NoError(t, err)

	exists, err := f.StreamExists(idxNil)
	require.NoError(t, err)
	require.False(t, exists)

	got, err := f.ReadStream(idxA)
	require.NoError(t, err)
	require.Equal(t, streamA, got)

	got, err = f.ReadStream(idxB)
	require.NoError(t, err)
	require.Equal(t, streamB, got)
}

func TestCommitterFreePageMapSlotsAreMarkedAllocated(t *testing.T) {
	sink := &memSink{}
	committer, err := NewCommitter(sink, BlockSize4096)
	require.NoError(t, err)

	big := bytes.Repeat([]byte{0x11}, int(BlockSize4096)*4)
	_, err = committer.WriteStream(big)
	require.NoError(t, err)
	require.NoError(t, committer.Finish())

	fpm1 := sink.buf[BlockSize4096 : 2*BlockSize4096]
	for _, b := range fpm1 {
		require.Equal(t, byte(0xFF), b)
	}
}
