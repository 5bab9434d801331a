package pdb

import (
	"fmt"

	"github.com/jac3km4/pdb-sdk/internal/dbi"
	"github.com/jac3km4/pdb-sdk/internal/hashutil"
	"github.com/jac3km4/pdb-sdk/internal/stream"
	"github.com/jac3km4/pdb-sdk/internal/symbols"
	"github.com/jac3km4/pdb-sdk/internal/tpi"
	"github.com/jac3km4/pdb-sdk/msf"
)

// pdbInfoVersion is the PDB Info stream's VC70 implementation version.
const pdbInfoVersion uint32 = 20000404

// ModuleInput describes one compiland to add to a Builder: its name, the
// symbols it contributes, and the section contribution it owns.
type ModuleInput struct {
	Name        string
	ObjFileName string
	Section     dbi.SectionContribution
	Symbols     []SymbolInput
}

// SymbolInput is a not-yet-encoded symbol destined for a module's private
// symbol stream. Exactly one of the typed fields should be set; Kind names
// which one.
type SymbolInput struct {
	Kind symbols.SymbolRecordKind

	Public   *symbols.PublicSym32
	Data     *symbols.DataSym
	Constant *symbols.ConstantSym
	UDT      *symbols.UDTSym
	Label    *symbols.LabelSym
	ObjName  *symbols.ObjNameSym
}

func encodeSymbolBody(sym SymbolInput) ([]byte, error) {
	switch sym.Kind {
	case symbols.S_PUB32:
		return symbols.EncodePublicSym32(*sym.Public), nil
	case symbols.S_GDATA32, symbols.S_LDATA32:
		return symbols.EncodeDataSym(*sym.Data), nil
	case symbols.S_CONSTANT:
		return symbols.EncodeConstantSym(*sym.Constant), nil
	case symbols.S_UDT:
		return symbols.EncodeUDTSym(*sym.UDT), nil
	case symbols.S_LABEL32:
		return symbols.EncodeLabelSym(*sym.Label), nil
	case symbols.S_OBJNAME:
		return symbols.EncodeObjNameSym(*sym.ObjName), nil
	default:
		return nil, fmt.Errorf("pdb: unsupported symbol kind %#x", uint16(sym.Kind))
	}
}

// PublicInput is a symbol contributed to the publics index: its record
// body plus the section-relative offset used for the address map.
type PublicInput struct {
	Name    string
	Flags   symbols.PublicSymFlags
	Offset  uint32
	Segment uint16
}

// GlobalInput is a symbol contributed to the globals index.
type GlobalInput struct {
	Name string
	Kind symbols.SymbolRecordKind
	Data *symbols.DataSym
	UDT  *symbols.UDTSym
}

// TypeInput is a not-yet-indexed TPI or IPI record.
type TypeInput = tpi.TypeRecordInput

// Builder assembles a PDB file one component at a time and commits it to
// an msf.Sink in a single pass. Components must be added in dependency
// order: types and IDs before modules that reference them, modules before
// Commit.
type Builder struct {
	Signature uint32
	Age       uint32
	GUID      [16]byte

	modules      []ModuleInput
	types        []TypeInput
	ids          []TypeInput
	publics      []PublicInput
	globals      []GlobalInput
	namedStreams []namedStreamInput

	sectionHeaders    []SectionHeader
	sectionMapEntries []dbi.SectionMapEntry

	machine uint16
}

// namedStreamInput is a not-yet-indexed named stream registered through
// AddNamedStream.
type namedStreamInput struct {
	name string
	data []byte
}

// NewBuilder returns an empty Builder targeting the AMD64 machine type.
func NewBuilder() *Builder {
	return &Builder{
		Signature: 1,
		Age:       1,
		machine:   dbi.MachineAMD64,
	}
}

// SetMachine overrides the target machine type recorded in the DBI header.
func (b *Builder) SetMachine(machine uint16) {
	b.machine = machine
}

// AddModule appends a compiland and returns its assigned module index.
func (b *Builder) AddModule(m ModuleInput) int {
	b.modules = append(b.modules, m)
	return len(b.modules) - 1
}

// AddType appends a type record to the TPI stream and returns its
// assigned type index.
func (b *Builder) AddType(rec TypeInput) tpi.TypeIndex {
	b.types = append(b.types, rec)
	return tpi.FirstUserTypeIndex + tpi.TypeIndex(len(b.types)-1)
}

// AddID appends an ID record to the IPI stream and returns its assigned
// index.
func (b *Builder) AddID(rec TypeInput) tpi.TypeIndex {
	b.ids = append(b.ids, rec)
	return tpi.FirstUserTypeIndex + tpi.TypeIndex(len(b.ids)-1)
}

// AddPublic registers a public symbol for the publics index.
func (b *Builder) AddPublic(p PublicInput) {
	b.publics = append(b.publics, p)
}

// AddGlobal registers a global symbol for the globals index.
func (b *Builder) AddGlobal(g GlobalInput) {
	b.globals = append(b.globals, g)
}

// AddNamedStream registers a stream to be addressable by name (e.g.
// "/names") through the PDB Info stream's named streams table.
func (b *Builder) AddNamedStream(name string, data []byte) {
	b.namedStreams = append(b.namedStreams, namedStreamInput{name: name, data: data})
}

// AddSectionHeader appends a COFF section header (40 bytes on disk) to
// the section header stream.
func (b *Builder) AddSectionHeader(h SectionHeader) {
	b.sectionHeaders = append(b.sectionHeaders, h)
}

// AddSectionMapEntry appends an entry to the DBI section-map substream.
func (b *Builder) AddSectionMapEntry(e dbi.SectionMapEntry) {
	b.sectionMapEntries = append(b.sectionMapEntries, e)
}

// Commit serializes every registered component and writes the resulting
// PDB container to sink.
func (b *Builder) Commit(sink msf.Sink) error {
	committer, err := msf.NewCommitter(sink, msf.BlockSize4096)
	if err != nil {
		return &BuildError{Component: "msf", Message: "failed to start commit", Err: err}
	}

	// Stream 0: unused legacy "old directory" slot.
	if _, err := committer.WriteStream(nil); err != nil {
		return &BuildError{Component: "msf", Message: "failed to reserve stream 0", Err: err}
	}

	// Every stream's index is fixed by call order before a single byte is
	// written — WriteStream streams each call's bytes to the sink
	// immediately, it does not buffer for rewrite — so the PDB Info stream
	// (committed first, stream 1) must already know the index of every
	// named stream it references, even though those streams are only
	// written at the very end.
	const (
		symRecordStream     = 5
		sectionHeaderStream = 6
		tpiHashStream       = 7
		ipiHashStream       = 8
		firstModuleStream   = 9
	)
	globalStreamIndex := uint16(firstModuleStream + len(b.modules))
	publicStreamIndex := globalStreamIndex + 1
	namedStreamBaseIndex := publicStreamIndex + 1

	namedStreamIndices := make([]uint16, len(b.namedStreams))
	for i := range b.namedStreams {
		namedStreamIndices[i] = namedStreamBaseIndex + uint16(i)
	}

	infoBytes := b.encodeInfo(namedStreamIndices)
	if _, err := committer.WriteStream(infoBytes); err != nil {
		return &BuildError{Component: "info", Message: "failed to write PDB info stream", Err: err}
	}

	typeHashStreamIndex, idHashStreamIndex := uint16(7), uint16(8)

	tpiBytes, tpiHash := tpi.BuildStream(b.types, typeHashStreamIndex)
	if _, err := committer.WriteStream(tpiBytes); err != nil {
		return &BuildError{Component: "tpi", Message: "failed to write TPI stream", Err: err}
	}

	dbiBytes, moduleSymStreams, err := b.buildDBI(globalStreamIndex, publicStreamIndex, symRecordStream, sectionHeaderStream)
	if err != nil {
		return &BuildError{Component: "dbi", Message: "failed to assemble DBI stream", Err: err}
	}
	if _, err := committer.WriteStream(dbiBytes); err != nil {
		return &BuildError{Component: "dbi", Message: "failed to write DBI stream", Err: err}
	}

	ipiBytes, ipiHash := tpi.BuildStream(b.ids, idHashStreamIndex)
	if _, err := committer.WriteStream(ipiBytes); err != nil {
		return &BuildError{Component: "ipi", Message: "failed to write IPI stream", Err: err}
	}

	symRecordBytes, publicOffsets, globalOffsets := b.buildSymbolRecordStream()
	if _, err := committer.WriteStream(symRecordBytes); err != nil {
		return &BuildError{Component: "symbols", Message: "failed to write symbol record stream", Err: err}
	}

	sectionHeaderBytes := EncodeSectionHeaders(b.sectionHeaders)
	if _, err := committer.WriteStream(sectionHeaderBytes); err != nil {
		return &BuildError{Component: "sections", Message: "failed to write section header stream", Err: err}
	}

	if _, err := committer.WriteStream(tpiHash); err != nil {
		return &BuildError{Component: "tpi", Message: "failed to write TPI hash sidecar", Err: err}
	}
	if _, err := committer.WriteStream(ipiHash); err != nil {
		return &BuildError{Component: "ipi", Message: "failed to write IPI hash sidecar", Err: err}
	}

	for _, data := range moduleSymStreams {
		if _, err := committer.WriteStream(data); err != nil {
			return &BuildError{Component: "module", Message: "failed to write module symbol stream", Err: err}
		}
	}

	globalsBytes := symbols.BuildGSIBody(toSymbolEntries(b.globals, globalOffsets))
	if _, err := committer.WriteStream(globalsBytes); err != nil {
		return &BuildError{Component: "symbols", Message: "failed to write globals stream", Err: err}
	}

	publicsBytes := b.buildPublicsStream(publicOffsets)
	if _, err := committer.WriteStream(publicsBytes); err != nil {
		return &BuildError{Component: "symbols", Message: "failed to write publics stream", Err: err}
	}

	for _, ns := range b.namedStreams {
		if _, err := committer.WriteStream(ns.data); err != nil {
			return &BuildError{Component: "names", Message: fmt.Sprintf("failed to write named stream %q", ns.name), Err: err}
		}
	}

	if err := committer.Finish(); err != nil {
		return &BuildError{Component: "msf", Message: "failed to finalize container", Err: err}
	}
	return nil
}

// encodeInfo serializes the PDB Info stream: the fixed 28-byte header
// (version, signature, age, GUID), the named streams table mapping each
// registered stream's name to its index (indices assigned by Commit, in
// registration order), and the trailing feature flags. A Builder-produced
// PDB always reports FeatureVC140, matching the IPI stream it always
// writes.
func (b *Builder) encodeInfo(namedStreamIndices []uint16) []byte {
	w := stream.NewWriter(32)
	w.WriteU32(pdbInfoVersion)
	w.WriteU32(b.Signature)
	w.WriteU32(b.Age)
	w.WriteGUID(b.GUID)

	var buf []byte
	pairs := make([][2]uint32, len(b.namedStreams))
	for i, ns := range b.namedStreams {
		offset := uint32(len(buf))
		buf = append(buf, []byte(ns.name)...)
		buf = append(buf, 0)
		pairs[i] = [2]uint32{offset, uint32(namedStreamIndices[i])}
	}

	w.WriteU32(uint32(len(buf)))
	w.WriteBytes(buf)
	w.WriteBytes(hashutil.NewTable(pairs).Encode(nil))

	w.WriteU32(uint32(FeatureVC140))
	return w.Bytes()
}

// buildDBI assembles the DBI stream and, for each module, its private
// symbol stream (signature + framed symbol records; no C11/C13 line data
// is emitted by this builder).
func (b *Builder) buildDBI(globalStreamIndex, publicStreamIndex, symRecordStreamIndex, sectionHeaderStreamIndex uint16) ([]byte, [][]byte, error) {
	moduleSymStreams := make([][]byte, len(b.modules))
	moduleInfos := make([]dbi.ModuleInfoInput, len(b.modules))
	sectionContribs := make([]dbi.SectionContribution, len(b.modules))

	for i, m := range b.modules {
		data, err := encodeModuleSymbols(m.Symbols)
		if err != nil {
			return nil, nil, fmt.Errorf("module %q: %w", m.Name, err)
		}
		moduleSymStreams[i] = data

		moduleInfos[i] = dbi.ModuleInfoInput{
			Section:              m.Section,
			ModuleSymStreamIndex: 0, // assigned once every module's index is known, below
			SymByteSize:          uint32(len(data)),
			ModuleName:           m.Name,
			ObjFileName:          m.ObjFileName,
		}
		sectionContribs[i] = m.Section
	}

	// Module symbol streams are assigned the next sequential indices after
	// the fixed ones (0-4), the symbol record stream (5), section headers
	// (6), and the TPI/IPI hash sidecars (7-8): streams 9..9+len(modules)-1.
	const firstModuleStream = 9
	for i := range moduleInfos {
		moduleInfos[i].ModuleSymStreamIndex = uint16(firstModuleStream + i)
	}

	modInfoBytes := dbi.EncodeModuleInfo(moduleInfos)
	sectionContribBytes := dbi.EncodeSectionContributions(sectionContribs)
	sectionMapBytes := dbi.EncodeSectionMap(b.sectionMapEntries)
	optionalHeader := dbi.NewOptionalDbgHeader()
	optionalHeader.SectionHdrStreamIndex = sectionHeaderStreamIndex
	optionalHeaderBytes := dbi.EncodeOptionalDbgHeader(optionalHeader)

	header := dbi.Header{
		VersionSignature:        -1,
		VersionHeader:           dbi.DBIVersionV70,
		Age:                     b.Age,
		GlobalStreamIndex:       globalStreamIndex,
		BuildNumber:             dbi.MakeBuildNumber(14, 11, true),
		PublicStreamIndex:       publicStreamIndex,
		PDBDllVersion:           0,
		SymRecordStreamIndex:    symRecordStreamIndex,
		PDBDllRbld:              0,
		ModInfoSize:             uint32(len(modInfoBytes)),
		SectionContributionSize: uint32(len(sectionContribBytes)),
		SectionMapSize:          uint32(len(sectionMapBytes)),
		SourceInfoSize:          0,
		TypeServerMapSize:       0,
		MFCTypeServerIndex:      0,
		OptionalDbgHeaderSize:   uint32(len(optionalHeaderBytes)),
		ECSubstreamSize:         0,
		Flags:                   0,
		Machine:                 b.machine,
	}

	var out []byte
	out = append(out, dbi.EncodeHeader(header)...)
	out = append(out, modInfoBytes...)
	out = append(out, sectionContribBytes...)
	out = append(out, sectionMapBytes...)
	out = append(out, optionalHeaderBytes...)

	return out, moduleSymStreams, nil
}

func encodeModuleSymbols(syms []SymbolInput) ([]byte, error) {
	const debugSectionSignature uint32 = 0x00000004
	w := stream.NewWriter(16 * (len(syms) + 1))
	w.WriteU32(debugSectionSignature)

	var body []byte
	for _, s := range syms {
		b, err := encodeSymbolBody(s)
		if err != nil {
			return nil, err
		}
		body = symbols.EncodeRecord(body, s.Kind, b)
	}
	w.WriteBytes(body)
	return w.Bytes(), nil
}

// buildSymbolRecordStream frames every public and global symbol into the
// shared symbol-record stream and returns each entry's offset within it.
func (b *Builder) buildSymbolRecordStream() (records []byte, publicOffsets, globalOffsets []uint32) {
	publicOffsets = make([]uint32, len(b.publics))
	for i, p := range b.publics {
		publicOffsets[i] = uint32(len(records))
		body := symbols.EncodePublicSym32(symbols.PublicSym32{
			Flags:   p.Flags,
			Offset:  p.Offset,
			Segment: p.Segment,
			Name:    p.Name,
		})
		records = symbols.EncodeRecord(records, symbols.S_PUB32, body)
	}

	globalOffsets = make([]uint32, len(b.globals))
	for i, g := range b.globals {
		globalOffsets[i] = uint32(len(records))
		var body []byte
		switch g.Kind {
		case symbols.S_UDT:
			body = symbols.EncodeUDTSym(*g.UDT)
		default:
			body = symbols.EncodeDataSym(*g.Data)
		}
		records = symbols.EncodeRecord(records, g.Kind, body)
	}

	return records, publicOffsets, globalOffsets
}

func toSymbolEntries(globals []GlobalInput, offsets []uint32) []symbols.SymbolEntry {
	entries := make([]symbols.SymbolEntry, len(globals))
	for i, g := range globals {
		entries[i] = symbols.SymbolEntry{Name: g.Name, Offset: offsets[i]}
	}
	return entries
}

// buildPublicsStream assembles the full publics index from the builder's
// registered public symbols and their already-framed offsets.
func (b *Builder) buildPublicsStream(publicOffsets []uint32) []byte {
	entries := make([]symbols.SymbolEntry, len(b.publics))
	addrEntries := make([]symbols.PublicAddrEntry, len(b.publics))
	for i, p := range b.publics {
		entries[i] = symbols.SymbolEntry{Name: p.Name, Offset: publicOffsets[i]}
		addrEntries[i] = symbols.PublicAddrEntry{
			SymOffset:        publicOffsets[i],
			DataRegionOffset: p.Offset,
		}
	}
	return symbols.BuildPSIBody(entries, addrEntries)
}
