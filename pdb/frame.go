package pdb

import (
	"encoding/binary"
	"fmt"

	"github.com/jac3km4/pdb-sdk/internal/dbi"
)

// FPORecord describes stack-frame layout for one function compiled
// without frame pointers, in the classic (pre-FrameData) FPO format.
type FPORecord struct {
	Offset     uint32
	Size       uint32
	NumLocals  uint32
	NumParams  uint16
	Attributes uint16
}

const fpoRecordSize = 16

func parseFPORecords(data []byte) []FPORecord {
	count := len(data) / fpoRecordSize
	records := make([]FPORecord, count)
	for i := 0; i < count; i++ {
		off := i * fpoRecordSize
		records[i] = FPORecord{
			Offset:     binary.LittleEndian.Uint32(data[off:]),
			Size:       binary.LittleEndian.Uint32(data[off+4:]),
			NumLocals:  binary.LittleEndian.Uint32(data[off+8:]),
			NumParams:  binary.LittleEndian.Uint16(data[off+12:]),
			Attributes: binary.LittleEndian.Uint16(data[off+14:]),
		}
	}
	return records
}

// FPORecords returns the classic FPO stack-frame records for the PDB's
// image, read from the DBI optional debug header's FPO stream.
func (f *File) FPORecords() ([]FPORecord, error) {
	data, err := f.readOptionalDbgStream(func(h *dbi.OptionalDbgHeader) uint16 { return h.FPOStreamIndex }, "fpo")
	if err != nil {
		return nil, err
	}
	return parseFPORecords(data), nil
}

// FrameDataRecord describes stack-frame layout for one function using
// the newer, richer FrameData format (rva-addressed, tracks a frame
// function pointer and saved-register size).
type FrameDataRecord struct {
	RVAStart      uint32
	CodeSize      uint32
	LocalSize     uint32
	ParamsSize    uint32
	MaxStackSize  uint32
	FrameFunc     uint32
	PrologSize    uint16
	SavedRegsSize uint16
	Flags         uint32
}

const frameDataRecordSize = 32

func parseFrameDataRecords(data []byte) []FrameDataRecord {
	// A frame-data stream whose length isn't a multiple of the record
	// size leads with a 4-byte relocation pointer that callers of this
	// reader don't need.
	if len(data)%frameDataRecordSize != 0 && len(data) >= 4 {
		data = data[4:]
	}
	count := len(data) / frameDataRecordSize
	records := make([]FrameDataRecord, count)
	for i := 0; i < count; i++ {
		off := i * frameDataRecordSize
		records[i] = FrameDataRecord{
			RVAStart:      binary.LittleEndian.Uint32(data[off:]),
			CodeSize:      binary.LittleEndian.Uint32(data[off+4:]),
			LocalSize:     binary.LittleEndian.Uint32(data[off+8:]),
			ParamsSize:    binary.LittleEndian.Uint32(data[off+12:]),
			MaxStackSize:  binary.LittleEndian.Uint32(data[off+16:]),
			FrameFunc:     binary.LittleEndian.Uint32(data[off+20:]),
			PrologSize:    binary.LittleEndian.Uint16(data[off+24:]),
			SavedRegsSize: binary.LittleEndian.Uint16(data[off+26:]),
			Flags:         binary.LittleEndian.Uint32(data[off+28:]),
		}
	}
	return records
}

// FrameData returns the new-format stack-frame records for the PDB's
// image, read from the DBI optional debug header's new FPO stream.
func (f *File) FrameData() ([]FrameDataRecord, error) {
	data, err := f.readOptionalDbgStream(func(h *dbi.OptionalDbgHeader) uint16 { return h.NewFPOStreamIndex }, "new fpo")
	if err != nil {
		return nil, err
	}
	return parseFrameDataRecords(data), nil
}

// readOptionalDbgStream reads the stream named by one of DBI's optional
// debug header slots, selected by pick.
func (f *File) readOptionalDbgStream(pick func(*dbi.OptionalDbgHeader) uint16, label string) ([]byte, error) {
	dbiStream, err := f.getDBI()
	if err != nil {
		return nil, err
	}

	if dbiStream.OptionalDbgStreams == nil {
		return nil, fmt.Errorf("pdb: no optional debug streams")
	}

	streamIndex := pick(dbiStream.OptionalDbgStreams)
	if streamIndex == dbi.InvalidStreamIndex {
		return nil, fmt.Errorf("pdb: no %s stream", label)
	}

	data, err := f.msf.ReadStream(uint32(streamIndex))
	if err != nil {
		return nil, fmt.Errorf("pdb: failed to read %s stream: %w", label, err)
	}
	return data, nil
}
