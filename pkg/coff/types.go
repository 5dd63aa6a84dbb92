// Package coff provides parsing and per-symbol extraction for the TI-style
// COFF object files produced by proprietary firmware toolchains.
package coff

import (
	"bytes"
	"encoding/binary"
)

// Record sizes in bytes.
const (
	FileHeaderSize      = 22
	OptionalHeaderSize  = 28
	SectionHeaderSize   = 48
	RelocationEntrySize = 12
	SymbolEntrySize     = 18
)

// Symbol codes used by the extraction pipeline.
const (
	// FunctionType is the type code carried by function symbols.
	FunctionType = 4
	// DefaultCodeSection is the 1-based number of the section holding
	// executable code in the images this package targets.
	DefaultCodeSection = 2
)

// FileHeader is the fixed header at the beginning of the file.
type FileHeader struct {
	Magic          uint16 // File format magic number
	NumSections    uint16 // Number of section headers
	Timestamp      uint32 // Link time, seconds since the epoch
	SymTableOffset uint32 // File offset of the symbol table
	NumSymbols     uint32 // Number of symbol table entries
	OptHeaderSize  uint16 // Size of the optional header; 0 means absent
	Flags          uint16
	TargetID       uint16 // Target processor family
}

// OptionalHeader follows the file header when FileHeader.OptHeaderSize is
// non-zero.
type OptionalHeader struct {
	Magic         uint16
	LinkerVersion uint16
	TextSize      uint32 // Size of executable code
	DataSize      uint32 // Size of initialized data
	BSSSize       uint32 // Size of uninitialized data
	EntryPoint    uint32
	TextStart     uint32 // Load address of executable code
	DataStart     uint32 // Load address of initialized data
}

// SectionHeader describes one named region of code or data.
type SectionHeader struct {
	RawName       [8]byte // Null-padded section name
	PhysAddr      uint32  // Physical address
	VirtAddr      uint32  // Virtual (load-time) address
	Size          uint32  // Section size in bytes
	DataOffset    uint32  // File offset of the raw section data
	RelocOffset   uint32  // File offset of relocation entries; 0 means none
	LineNumOffset uint32  // File offset of line number entries
	RelocCount    uint32  // Number of relocation entries
	LineNumCount  uint32  // Number of line number entries
	Flags         uint32
	Reserved      uint16
	Page          uint16 // Memory page number
}

// Name returns the section name with trailing null bytes stripped.
func (s *SectionHeader) Name() string {
	return trimNulls(s.RawName[:])
}

// RelocationEntry describes one address to patch at link/load time.
type RelocationEntry struct {
	VirtAddr uint32 // Virtual address of the reference
	SymIndex uint32 // Index into the symbol table
	Reserved uint16
	Type     uint16 // Relocation type
}

// SymbolEntry is the wire form of one symbol table record.
type SymbolEntry struct {
	RawName       [8]byte // Inline name or string-table offset, see NameRef
	Value         uint32  // Symbol address
	SectionNumber uint16  // 1-based owning section; 0 means undefined
	Type          uint16  // Type code
	StorageClass  uint8
	NumAux        uint8 // Number of auxiliary entries that follow
}

// Symbol is a symbol table entry with its name field decoded.
type Symbol struct {
	SymbolEntry
	Name NameRef
}

// NameRef is the decoded form of a symbol's 8-byte name field. The field is
// a union: when its first four bytes are zero, the last four hold a
// string-table offset; otherwise the eight bytes hold the name itself.
type NameRef struct {
	Inline bool   // discriminant: true when the record stores the name inline
	Value  string // inline name, trailing nulls stripped; set iff Inline
	Offset uint32 // string-table byte offset; set iff !Inline
}

// decodeNameRef interprets a raw name field, deciding the union case once.
func decodeNameRef(raw [8]byte) NameRef {
	if binary.LittleEndian.Uint32(raw[0:4]) == 0 {
		return NameRef{Offset: binary.LittleEndian.Uint32(raw[4:8])}
	}
	return NameRef{Inline: true, Value: trimNulls(raw[:])}
}

// StringEntry is one scanned string-table entry. Offset is relative to the
// first byte after the table's 4-byte length field.
type StringEntry struct {
	Offset uint32
	Value  string
}

// StringTable is the ordered sequence of entries scanned from the string
// table at the tail of the file.
type StringTable []StringEntry

// Lookup returns the string recorded at exactly the given byte offset.
func (st StringTable) Lookup(offset uint32) (string, bool) {
	for _, e := range st {
		if e.Offset == offset {
			return e.Value, true
		}
	}
	return "", false
}

func trimNulls(b []byte) string {
	return string(bytes.TrimRight(b, "\x00"))
}
