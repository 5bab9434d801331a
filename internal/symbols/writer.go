package symbols

import (
	"github.com/jac3km4/pdb-sdk/internal/cvrecord"
	"github.com/jac3km4/pdb-sdk/internal/stream"
)

// EncodePublicSym32 serializes an S_PUB32 body (flags, offset, segment,
// name), ready to be framed with cvrecord.Encode.
func EncodePublicSym32(sym PublicSym32) []byte {
	w := stream.NewWriter(16 + len(sym.Name))
	w.WriteU32(uint32(sym.Flags))
	w.WriteU32(sym.Offset)
	w.WriteU16(sym.Segment)
	w.WriteBytes([]byte(sym.Name))
	w.WriteU8(0)
	return w.Bytes()
}

// EncodeDataSym serializes an S_GDATA32/S_LDATA32 body.
func EncodeDataSym(sym DataSym) []byte {
	w := stream.NewWriter(16 + len(sym.Name))
	w.WriteU32(uint32(sym.Type))
	w.WriteU32(sym.Offset)
	w.WriteU16(sym.Segment)
	w.WriteBytes([]byte(sym.Name))
	w.WriteU8(0)
	return w.Bytes()
}

// EncodeConstantSym serializes an S_CONSTANT body: type, a numeric-leaf
// value, and a name.
func EncodeConstantSym(sym ConstantSym) []byte {
	w := stream.NewWriter(16 + len(sym.Name))
	w.WriteU32(uint32(sym.Type))
	w.WriteNumeric(sym.Value)
	w.WriteBytes([]byte(sym.Name))
	w.WriteU8(0)
	return w.Bytes()
}

// EncodeUDTSym serializes an S_UDT body: type index and name.
func EncodeUDTSym(sym UDTSym) []byte {
	w := stream.NewWriter(8 + len(sym.Name))
	w.WriteU32(uint32(sym.Type))
	w.WriteBytes([]byte(sym.Name))
	w.WriteU8(0)
	return w.Bytes()
}

// EncodeLabelSym serializes an S_LABEL32 body.
func EncodeLabelSym(sym LabelSym) []byte {
	w := stream.NewWriter(12 + len(sym.Name))
	w.WriteU32(sym.Offset)
	w.WriteU16(sym.Segment)
	w.WriteU8(sym.Flags)
	w.WriteBytes([]byte(sym.Name))
	w.WriteU8(0)
	return w.Bytes()
}

// EncodeObjNameSym serializes an S_OBJNAME body: a signature and a name.
func EncodeObjNameSym(sym ObjNameSym) []byte {
	w := stream.NewWriter(8 + len(sym.Name))
	w.WriteU32(sym.Signature)
	w.WriteBytes([]byte(sym.Name))
	w.WriteU8(0)
	return w.Bytes()
}

// EncodeRecord frames a symbol body with its kind tag via cvrecord, ready
// for concatenation into a module or global symbol stream.
func EncodeRecord(dst []byte, kind SymbolRecordKind, body []byte) []byte {
	return cvrecord.Encode(dst, uint16(kind), body)
}
