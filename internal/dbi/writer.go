package dbi

import (
	"github.com/jac3km4/pdb-sdk/internal/stream"
)

// MakeBuildNumber packs a toolchain version into the DBI header's
// BuildNumber bitfield: bits 0-7 minor, bits 8-14 major, bit 15 the
// new-format flag. It is the inverse of Header.BuildMajorVersion /
// Header.BuildMinorVersion.
func MakeBuildNumber(major, minor uint16, newFormat bool) uint16 {
	v := (minor & 0xFF) | ((major & 0x7F) << 8)
	if newFormat {
		v |= 0x8000
	}
	return v
}

// EncodeHeader serializes h as the fixed 64-byte DBI header.
func EncodeHeader(h Header) []byte {
	w := stream.NewWriter(DBIHeaderSize)
	w.WriteI32(h.VersionSignature)
	w.WriteU32(h.VersionHeader)
	w.WriteU32(h.Age)
	w.WriteU16(h.GlobalStreamIndex)
	w.WriteU16(h.BuildNumber)
	w.WriteU16(h.PublicStreamIndex)
	w.WriteU16(h.PDBDllVersion)
	w.WriteU16(h.SymRecordStreamIndex)
	w.WriteU16(h.PDBDllRbld)
	w.WriteU32(h.ModInfoSize)
	w.WriteU32(h.SectionContributionSize)
	w.WriteU32(h.SectionMapSize)
	w.WriteU32(h.SourceInfoSize)
	w.WriteU32(h.TypeServerMapSize)
	w.WriteU32(h.MFCTypeServerIndex)
	w.WriteU32(h.OptionalDbgHeaderSize)
	w.WriteU32(h.ECSubstreamSize)
	w.WriteU16(h.Flags)
	w.WriteU16(h.Machine)
	w.WriteU32(h.Padding)
	return w.Bytes()
}

func encodeSectionContribution(w *stream.Writer, sc SectionContribution, withCrc bool) {
	w.WriteU16(sc.Section)
	w.WriteU16(sc.Padding1)
	w.WriteI32(sc.Offset)
	w.WriteI32(sc.Size)
	w.WriteU32(sc.Characteristics)
	w.WriteU16(sc.ModuleIndex)
	w.WriteU16(sc.Padding2)
	if withCrc {
		w.WriteU32(sc.DataCrc)
		w.WriteU32(sc.RelocCrc)
	}
}

// ModuleInfoInput is one not-yet-encoded ModuleInfo entry: the fixed
// header fields plus the two trailing null-terminated name strings.
type ModuleInfoInput struct {
	Section              SectionContribution
	Flags                uint16
	ModuleSymStreamIndex  uint16
	SymByteSize          uint32
	C11ByteSize          uint32
	C13ByteSize          uint32
	SourceFileCount      uint16
	SourceFileNameIndex  uint32
	PDBFilePathNameIndex uint32
	ModuleName           string
	ObjFileName          string
}

// EncodeModuleInfo serializes the module-info substream: each entry in
// turn, individually padded to a 4-byte boundary, matching parseModuleInfo.
func EncodeModuleInfo(mods []ModuleInfoInput) []byte {
	w := stream.NewWriter(len(mods) * 64)
	for _, m := range mods {
		w.WriteU32(0) // Opened, unused
		encodeSectionContribution(w, m.Section, true)
		w.WriteU16(m.Flags)
		w.WriteU16(m.ModuleSymStreamIndex)
		w.WriteU32(m.SymByteSize)
		w.WriteU32(m.C11ByteSize)
		w.WriteU32(m.C13ByteSize)
		w.WriteU16(m.SourceFileCount)
		w.WriteU16(0) // padding
		w.WriteU32(0) // unused
		w.WriteU32(m.SourceFileNameIndex)
		w.WriteU32(m.PDBFilePathNameIndex)
		w.WriteCString(m.ModuleName)
		w.WriteCString(m.ObjFileName)
		w.Align(4)
	}
	return w.Bytes()
}

// EncodeSectionContributions serializes the Ver60-tagged section
// contribution substream.
func EncodeSectionContributions(contribs []SectionContribution) []byte {
	w := stream.NewWriter(4 + len(contribs)*28)
	w.WriteU32(SectionContribVer60)
	for _, sc := range contribs {
		encodeSectionContribution(w, sc, true)
	}
	return w.Bytes()
}

// EncodeSectionMap serializes the section-map substream.
func EncodeSectionMap(entries []SectionMapEntry) []byte {
	w := stream.NewWriter(4 + len(entries)*20)
	w.WriteU16(uint16(len(entries)))
	w.WriteU16(uint16(len(entries)))
	for _, e := range entries {
		w.WriteU16(e.Flags)
		w.WriteU16(e.Ovl)
		w.WriteU16(e.Group)
		w.WriteU16(e.Frame)
		w.WriteU16(e.SectionName)
		w.WriteU16(e.ClassName)
		w.WriteU32(e.Offset)
		w.WriteU32(e.SectionLength)
	}
	return w.Bytes()
}

// EncodeOptionalDbgHeader serializes the 11-slot optional debug-stream
// directory, writing every field verbatim; a zero-valued field is written
// as zero, not as InvalidStreamIndex.
func EncodeOptionalDbgHeader(h OptionalDbgHeader) []byte {
	w := stream.NewWriter(22)
	w.WriteU16(h.FPOStreamIndex)
	w.WriteU16(h.ExceptionStreamIndex)
	w.WriteU16(h.FixupStreamIndex)
	w.WriteU16(h.OmapToSrcStreamIndex)
	w.WriteU16(h.OmapFromSrcStreamIndex)
	w.WriteU16(h.SectionHdrStreamIndex)
	w.WriteU16(h.TokenRidMapStreamIndex)
	w.WriteU16(h.XDataStreamIndex)
	w.WriteU16(h.PDataStreamIndex)
	w.WriteU16(h.NewFPOStreamIndex)
	w.WriteU16(h.SectionHdrOrigStreamIndex)
	return w.Bytes()
}

// NewOptionalDbgHeader returns an OptionalDbgHeader with every slot set to
// InvalidStreamIndex, ready for the caller to fill in the slots it has.
func NewOptionalDbgHeader() OptionalDbgHeader {
	inv := InvalidStreamIndex
	return OptionalDbgHeader{
		FPOStreamIndex:            inv,
		ExceptionStreamIndex:      inv,
		FixupStreamIndex:          inv,
		OmapToSrcStreamIndex:      inv,
		OmapFromSrcStreamIndex:    inv,
		SectionHdrStreamIndex:     inv,
		TokenRidMapStreamIndex:    inv,
		XDataStreamIndex:          inv,
		PDataStreamIndex:          inv,
		NewFPOStreamIndex:         inv,
		SectionHdrOrigStreamIndex: inv,
	}
}
