package coff

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/exp/slices"

	"github.com/coffkit/gocoff/pkg/coff/record"
)

// File is a parsed COFF object file. All header and table collections are
// populated by one parse pass and are not mutated afterwards.
type File struct {
	Header    FileHeader
	OptHeader *OptionalHeader // nil when the file carries none
	Sections  []SectionHeader
	// Relocations holds each section's relocation entries keyed by the
	// section's trimmed name. Sections with a zero relocation offset
	// contribute no entries; when two sections share a name the later
	// one wins.
	Relocations map[string][]RelocationEntry
	Symbols     []Symbol
	Strings     StringTable

	r      *record.Reader
	closer io.Closer
}

// Open opens the file at path and parses the whole container.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	c, err := NewFile(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	c.closer = f

	return c, nil
}

// NewFile parses a COFF container from src. The returned File reads section
// and symbol data from src on demand, so src must remain open for the File's
// lifetime.
func NewFile(src io.ReadSeeker) (*File, error) {
	f := &File{r: record.NewReader(src)}
	if err := f.parse(); err != nil {
		return nil, err
	}
	return f, nil
}

// Close closes the underlying file when the File was created with Open.
func (f *File) Close() error {
	if f.closer != nil {
		return f.closer.Close()
	}
	return nil
}

// parse decodes the container in dependency order: each stage reads at file
// offsets produced by the previous one. A truncated record at any stage
// aborts the whole parse.
func (f *File) parse() error {
	if err := f.r.Seek(0); err != nil {
		return err
	}

	hdr, err := record.Decode[FileHeader](f.r)
	if err != nil {
		return fmt.Errorf("failed to read file header: %w", err)
	}
	f.Header = hdr

	if hdr.OptHeaderSize != 0 {
		opt, err := record.Decode[OptionalHeader](f.r)
		if err != nil {
			return fmt.Errorf("failed to read optional header: %w", err)
		}
		f.OptHeader = &opt
	}

	f.Sections, err = record.DecodeN[SectionHeader](f.r, int(hdr.NumSections))
	if err != nil {
		return fmt.Errorf("failed to read section headers: %w", err)
	}

	if err := f.readRelocations(); err != nil {
		return err
	}
	if err := f.readSymbols(); err != nil {
		return err
	}
	return f.readStrings()
}

// readRelocations decodes the relocation entries of every section that has
// any.
func (f *File) readRelocations() error {
	f.Relocations = make(map[string][]RelocationEntry)
	for i := range f.Sections {
		s := &f.Sections[i]
		if s.RelocOffset == 0 {
			continue
		}
		if err := f.r.Seek(int64(s.RelocOffset)); err != nil {
			return err
		}
		entries, err := record.DecodeN[RelocationEntry](f.r, int(s.RelocCount))
		if err != nil {
			return fmt.Errorf("failed to read relocations for section %s: %w", s.Name(), err)
		}
		f.Relocations[s.Name()] = entries
	}
	return nil
}

// readSymbols decodes the symbol table, deciding each entry's name union as
// it is read.
func (f *File) readSymbols() error {
	if err := f.r.Seek(int64(f.Header.SymTableOffset)); err != nil {
		return err
	}
	entries, err := record.DecodeN[SymbolEntry](f.r, int(f.Header.NumSymbols))
	if err != nil {
		return fmt.Errorf("failed to read symbol table: %w", err)
	}
	f.Symbols = make([]Symbol, len(entries))
	for i, e := range entries {
		f.Symbols[i] = Symbol{SymbolEntry: e, Name: decodeNameRef(e.RawName)}
	}
	return nil
}

// readStrings scans the string table that immediately follows the symbol
// table: a 4-byte total length, then null-delimited strings recorded
// together with their offsets until the length is reached or input ends.
func (f *File) readStrings() error {
	length, err := record.Decode[uint32](f.r)
	if err != nil {
		return fmt.Errorf("failed to read string table length: %w", err)
	}
	data, err := f.r.ReadMax(int64(length))
	if err != nil {
		return fmt.Errorf("failed to read string table: %w", err)
	}

	off := uint32(0)
	for off < length && off < uint32(len(data)) {
		end := off
		for end < uint32(len(data)) && data[end] != 0 {
			end++
		}
		f.Strings = append(f.Strings, StringEntry{Offset: off, Value: string(data[off:end])})
		off = end + 1
	}
	return nil
}

// SectionData reads the raw data of the named section. The name must match
// a section's trimmed name exactly.
func (f *File) SectionData(name string) ([]byte, error) {
	i := slices.IndexFunc(f.Sections, func(s SectionHeader) bool { return s.Name() == name })
	if i < 0 {
		return nil, fmt.Errorf("no section named %q", name)
	}
	s := &f.Sections[i]

	if err := f.r.Seek(int64(s.DataOffset)); err != nil {
		return nil, err
	}
	data, err := f.r.Bytes(int(s.Size))
	if err != nil {
		return nil, fmt.Errorf("failed to read data for section %s: %w", name, err)
	}
	return data, nil
}

// SymbolName resolves a symbol's name: the inline name when the record holds
// one, otherwise the string-table entry at the symbol's recorded offset. ok
// is false when the offset matches no entry, meaning the symbol has no
// resolvable name.
func (f *File) SymbolName(sym *Symbol) (string, bool) {
	if sym.Name.Inline {
		return sym.Name.Value, true
	}
	return f.Strings.Lookup(sym.Name.Offset)
}
