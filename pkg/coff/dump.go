package coff

import (
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// String returns a multi-line listing of the header fields.
func (h *FileHeader) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Magic: %04x\n", h.Magic)
	fmt.Fprintf(&b, "Number of sections: %d\n", h.NumSections)
	fmt.Fprintf(&b, "Time: %s\n", time.Unix(int64(h.Timestamp), 0).Format(time.ANSIC))
	fmt.Fprintf(&b, "Pointer to symbol table: %d\n", h.SymTableOffset)
	fmt.Fprintf(&b, "Number of symbols: %d\n", h.NumSymbols)
	fmt.Fprintf(&b, "Size of optional header: %d\n", h.OptHeaderSize)
	fmt.Fprintf(&b, "Flags: 0x%04x\n", h.Flags)
	fmt.Fprintf(&b, "Target ID: 0x%04x\n", h.TargetID)
	return b.String()
}

// String returns a multi-line listing of the optional header fields.
func (h *OptionalHeader) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Magic: %04x\n", h.Magic)
	fmt.Fprintf(&b, "Linker version: %04x\n", h.LinkerVersion)
	fmt.Fprintf(&b, "Text section size: %d\n", h.TextSize)
	fmt.Fprintf(&b, "Data section size: %d\n", h.DataSize)
	fmt.Fprintf(&b, "Uninitialized data section size: %d\n", h.BSSSize)
	fmt.Fprintf(&b, "Entry point: 0x%08x\n", h.EntryPoint)
	fmt.Fprintf(&b, "Text start: 0x%08x\n", h.TextStart)
	fmt.Fprintf(&b, "Data start: 0x%08x\n", h.DataStart)
	return b.String()
}

// String returns a multi-line listing of the section header fields.
func (s *SectionHeader) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Section '%s':\n", s.Name())
	fmt.Fprintf(&b, "\tPhysical address: 0x%08x\n", s.PhysAddr)
	fmt.Fprintf(&b, "\tVirtual address: 0x%08x\n", s.VirtAddr)
	fmt.Fprintf(&b, "\tSize: %d\n", s.Size)
	fmt.Fprintf(&b, "\tFile pointer to raw data: %d\n", s.DataOffset)
	fmt.Fprintf(&b, "\tFile pointer to relocation: %d\n", s.RelocOffset)
	fmt.Fprintf(&b, "\tFile pointer to line numbers: %d\n", s.LineNumOffset)
	fmt.Fprintf(&b, "\tNumber of relocation entries: %d\n", s.RelocCount)
	fmt.Fprintf(&b, "\tNumber of line number entries: %d\n", s.LineNumCount)
	fmt.Fprintf(&b, "\tFlags: 0x%08x\n", s.Flags)
	fmt.Fprintf(&b, "\tReserved: 0x%04x\n", s.Reserved)
	fmt.Fprintf(&b, "\tPage: %d\n", s.Page)
	return b.String()
}

// String returns a multi-line listing of the relocation entry fields.
func (r *RelocationEntry) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Virtual address: 0x%08x\n", r.VirtAddr)
	fmt.Fprintf(&b, "Index in symtab: %d\n", r.SymIndex)
	fmt.Fprintf(&b, "Reserved: 0x%04x\n", r.Reserved)
	fmt.Fprintf(&b, "Type: 0x%04x\n", r.Type)
	return b.String()
}

// String returns a multi-line listing of the symbol fields, headed by the
// inline name or the string-table offset, whichever the record carries.
func (s *Symbol) String() string {
	var b strings.Builder
	if s.Name.Inline {
		fmt.Fprintf(&b, "Symbol with name '%s':\n", s.Name.Value)
	} else {
		fmt.Fprintf(&b, "Symbol with name offset %d:\n", s.Name.Offset)
	}
	fmt.Fprintf(&b, "\tValue: 0x%08x\n", s.Value)
	fmt.Fprintf(&b, "\tSection number: %d\n", s.SectionNumber)
	fmt.Fprintf(&b, "\tType: %x\n", s.Type)
	fmt.Fprintf(&b, "\tLoader class: %d\n", s.StorageClass)
	fmt.Fprintf(&b, "\tNumber of auxiliary entries: %d\n", s.NumAux)
	return b.String()
}

// String returns the textual dump of every decoded record, in parse order.
// Relocation groups are listed by section name in sorted order to keep the
// output deterministic.
func (f *File) String() string {
	var b strings.Builder

	b.WriteString("File Header\n")
	b.WriteString(f.Header.String())
	if f.OptHeader != nil {
		b.WriteString("Optional header\n")
		b.WriteString(f.OptHeader.String())
	}

	b.WriteString("Sections\n")
	for i := range f.Sections {
		b.WriteString(f.Sections[i].String())
	}

	names := maps.Keys(f.Relocations)
	slices.Sort(names)
	for _, name := range names {
		fmt.Fprintf(&b, "Relocations for section %s\n", name)
		entries := f.Relocations[name]
		for i := range entries {
			b.WriteString(entries[i].String())
		}
	}

	b.WriteString("Symbols\n")
	for i := range f.Symbols {
		b.WriteString(f.Symbols[i].String())
	}

	b.WriteString("Strings:\n")
	for _, e := range f.Strings {
		fmt.Fprintf(&b, "Offset: %d Strings: '%s'\n", e.Offset, e.Value)
	}

	return b.String()
}

// Dump writes the textual record dump to w.
func (f *File) Dump(w io.Writer) error {
	_, err := io.WriteString(w, f.String())
	return err
}
