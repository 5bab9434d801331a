package pdb

import (
	"bytes"
	"io"
	"testing"

	"github.com/jac3km4/pdb-sdk/internal/dbi"
	"github.com/jac3km4/pdb-sdk/internal/names"
	"github.com/jac3km4/pdb-sdk/internal/symbols"
	"github.com/jac3km4/pdb-sdk/internal/tpi"
	"github.com/stretchr/testify/require"
)

// memSink is a growable in-memory buffer implementing msf.Sink, used as a
// write target for Builder.Commit in place of an *os.File.
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

func TestBuilderCommitRoundTripsThroughOpenReader(t *testing.T) {
	b := NewBuilder()
	b.Signature = 0xCAFEBABE
	b.Age = 3
	b.GUID = [16]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}

	intType := b.AddType(tpi.TypeRecordInput{
		Kind: tpi.LF_POINTER,
		Body: []byte{0x74, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00},
	})

	b.AddPublic(PublicInput{Name: "_main", Offset: 0x1000, Segment: 1, Flags: symbols.PublicSymFlags(0x01)})
	b.AddPublic(PublicInput{Name: "_helper", Offset: 0x2000, Segment: 1})

	b.AddGlobal(GlobalInput{
		Name: "g_counter",
		Kind: symbols.S_GDATA32,
		Data: &symbols.DataSym{Type: intType, Offset: 0x4000, Segment: 2, Name: "g_counter"},
	})

	namesBuilder := names.NewBuilder()
	namesBuilder.Add("main.obj")
	b.AddNamedStream("/names", namesBuilder.Build().Encode(nil))

	var textName [8]byte
	copy(textName[:], ".text")
	b.AddSectionHeader(SectionHeader{Name: textName, VirtualSize: 0x500, VirtualAddress: 0x1000, SizeOfRawData: 0x500})
	b.AddSectionMapEntry(dbi.SectionMapEntry{Frame: 1, SectionLength: 0x500})

	b.AddModule(ModuleInput{
		Name:        "main.obj",
		ObjFileName: "main.obj",
		Section:     dbi.SectionContribution{Section: 1, Offset: 0x1000, Size: 0x100},
		Symbols: []SymbolInput{
			{Kind: symbols.S_OBJNAME, ObjName: &symbols.ObjNameSym{Signature: 0, Name: "main.obj"}},
			{Kind: symbols.S_CONSTANT, Constant: &symbols.ConstantSym{Type: intType, Value: 42, Name: "kAnswer"}},
		},
	})

	sink := &memSink{}
	require.NoError(t, b.Commit(sink))

	f, err := OpenReader(sink, int64(len(sink.buf)))
	require.NoError(t, err)
	defer f.Close()

	info, err := f.Info()
	require.NoError(t, err)
	require.Equal(t, uint32(0xCAFEBABE), info.Signature)
	require.Equal(t, uint32(3), info.Age)
	require.Equal(t, b.GUID, info.GUID)

	types, err := f.Types()
	require.NoError(t, err)
	require.NotNil(t, types)

	modules, err := f.Modules()
	require.NoError(t, err)
	require.Len(t, modules, 1)
	require.Equal(t, "main.obj", modules[0].Name())
	require.Equal(t, "main.obj", modules[0].ObjectFileName())

	var names []string
	for sym := range modules[0].Symbols() {
		names = append(names, sym.Name())
	}
	require.Contains(t, names, "kAnswer")

	st, err := f.Symbols()
	require.NoError(t, err)

	pub, ok := st.FindByName("_main")
	require.True(t, ok)
	require.Equal(t, SymbolKindPublic, pub.Kind())
	require.Equal(t, uint32(0x1000), pub.Offset())

	sym, found := st.ByAddress(1, 0x2000)
	require.True(t, found)
	require.Equal(t, "_helper", sym.Name())

	_, namesData, err := f.NamedStream("/names")
	require.NoError(t, err)
	parsedNames, err := names.Parse(namesData)
	require.NoError(t, err)
	require.Equal(t, uint32(1), parsedNames.NameCount())

	sections, err := f.Sections()
	require.NoError(t, err)
	require.Equal(t, 1, sections.Count())
	require.Equal(t, ".text", sections.All()[0].NameString())
	require.Equal(t, uint32(0x3000), sections.ToRVA(1, 0x2000))
}
