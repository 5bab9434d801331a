package dbi

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMakeBuildNumberRoundTripsWithAccessors(t *testing.T) {
	bn := MakeBuildNumber(27, 1, true)
	h := Header{BuildNumber: bn}
	require.Equal(t, uint16(27), h.BuildMajorVersion())
	require.Equal(t, uint16(1), h.BuildMinorVersion())
	require.NotZero(t, bn&0x8000)
}

func TestEncodeHeaderRoundTripsThroughParseStream(t *testing.T) {
	contrib := SectionContribution{
		Section: 1, Offset: 0x10, Size: 0x20, Characteristics: 0x60000020,
		ModuleIndex: 0, DataCrc: 0, RelocCrc: 0,
	}
	modInfo := EncodeModuleInfo([]ModuleInfoInput{
		{Section: contrib, ModuleSymStreamIndex: 9, ModuleName: "foo.obj", ObjFileName: "foo.obj"},
	})
	secContribs := EncodeSectionContributions([]SectionContribution{contrib})
	secMap := EncodeSectionMap([]SectionMapEntry{{SectionName: 0, ClassName: 0, Offset: 0, SectionLength: 0x1000}})
	optDbg := NewOptionalDbgHeader()
	optDbgBytes := EncodeOptionalDbgHeader(optDbg)

	h := Header{
		VersionSignature:        -1,
		VersionHeader:           DBIVersionV70,
		Age:                     1,
		GlobalStreamIndex:       10,
		BuildNumber:             MakeBuildNumber(14, 11, true),
		PublicStreamIndex:       11,
		SymRecordStreamIndex:    5,
		ModInfoSize:             uint32(len(modInfo)),
		SectionContributionSize: uint32(len(secContribs)),
		SectionMapSize:          uint32(len(secMap)),
		OptionalDbgHeaderSize:   uint32(len(optDbgBytes)),
		Machine:                 MachineAMD64,
	}

	var data []byte
	data = append(data, EncodeHeader(h)...)
	data = append(data, modInfo...)
	data = append(data, secContribs...)
	data = append(data, secMap...)
	data = append(data, optDbgBytes...)

	s, err := ParseStream(data)
	require.NoError(t, err)
	require.Equal(t, h, s.Header)

	require.Len(t, s.Modules, 1)
	require.Equal(t, "foo.obj", s.Modules[0].ModuleName)
	require.Equal(t, "foo.obj", s.Modules[0].ObjFileName)
	require.Equal(t, uint16(9), s.Modules[0].ModuleSymStreamIndex)
	require.Equal(t, contrib.Offset, s.Modules[0].Section.Offset)

	require.Len(t, s.SectionContributions, 1)
	require.Equal(t, contrib.Characteristics, s.SectionContributions[0].Characteristics)

	require.NotNil(t, s.SectionMap)
	require.Len(t, s.SectionMap.Entries, 1)
	require.Equal(t, uint32(0x1000), s.SectionMap.Entries[0].SectionLength)

	require.NotNil(t, s.OptionalDbgStreams)
	require.Equal(t, InvalidStreamIndex, s.OptionalDbgStreams.FPOStreamIndex)
}

func TestEncodeOptionalDbgHeaderPreservesExplicitIndices(t *testing.T) {
	h := NewOptionalDbgHeader()
	h.SectionHdrStreamIndex = 6

	encoded := EncodeOptionalDbgHeader(h)
	require.Len(t, encoded, 22)

	s := &Stream{}
	require.NoError(t, s.parseOptionalDbgHeader(encoded))
	require.Equal(t, uint16(6), s.OptionalDbgStreams.SectionHdrStreamIndex)
	require.Equal(t, InvalidStreamIndex, s.OptionalDbgStreams.ExceptionStreamIndex)
}
