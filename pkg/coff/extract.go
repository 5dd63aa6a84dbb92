package coff

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/exp/slices"
)

// spanSentinel is the boundary used when no function symbol lies above the
// one being extracted: the span extends to the end of available input.
const spanSentinel = 0xffffffff

// SymbolData reads the bytes a function symbol owns: starting at the
// symbol's address mapped into its section's raw data, up to the address of
// the next function symbol. Note that the boundary search scans function
// symbols in every section, not only the symbol's own, so in tables that
// spread function symbols across sections a span can be bounded by a symbol
// from another section.
//
// When fewer bytes are available than the span calls for, the bytes actually
// read are returned together with an error wrapping io.ErrUnexpectedEOF;
// the caller decides whether to keep the partial span.
func (f *File) SymbolData(sym *Symbol) ([]byte, error) {
	n := int(sym.SectionNumber)
	if n < 1 || n > len(f.Sections) {
		return nil, fmt.Errorf("section number %d out of range [1, %d]", n, len(f.Sections))
	}
	sec := &f.Sections[n-1]

	offset := int64(sec.DataOffset) + int64(sym.Value) - int64(sec.VirtAddr)
	span := int64(f.nextBoundary(sym.Value)) - int64(sym.Value)

	if err := f.r.Seek(offset); err != nil {
		return nil, err
	}
	data, err := f.r.ReadMax(span)
	if err != nil {
		return nil, fmt.Errorf("failed to read span for symbol at 0x%x: %w", sym.Value, err)
	}
	if int64(len(data)) < span {
		return data, fmt.Errorf("span at 0x%x: read %d of %d bytes: %w", sym.Value, len(data), span, io.ErrUnexpectedEOF)
	}
	return data, nil
}

// nextBoundary returns the lowest function-symbol address above value, or
// spanSentinel when none exists.
func (f *File) nextBoundary(value uint32) uint32 {
	boundary := uint32(spanSentinel)
	for i := range f.Symbols {
		s := &f.Symbols[i]
		if s.Type != FunctionType {
			continue
		}
		if s.Value > value && s.Value < boundary {
			boundary = s.Value
		}
	}
	return boundary
}

// FunctionSymbols returns the function symbols belonging to the given
// 1-based section, sorted ascending by address. The sort is stable, so
// symbols sharing an address keep their table order.
func (f *File) FunctionSymbols(section uint16) []Symbol {
	var syms []Symbol
	for i := range f.Symbols {
		s := &f.Symbols[i]
		if s.Type == FunctionType && s.SectionNumber == section {
			syms = append(syms, *s)
		}
	}
	slices.SortStableFunc(syms, func(a, b Symbol) bool { return a.Value < b.Value })
	return syms
}

// ArtifactSink receives one artifact per extracted symbol, keyed by name.
type ArtifactSink interface {
	CreateArtifact(name string) (io.WriteCloser, error)
}

// DirSink is an ArtifactSink that writes each artifact as a file in Dir.
// The directory is created on first use.
type DirSink struct {
	Dir string
}

// CreateArtifact creates the named file inside the sink directory.
func (d *DirSink) CreateArtifact(name string) (io.WriteCloser, error) {
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	w, err := os.Create(filepath.Join(d.Dir, name))
	if err != nil {
		return nil, fmt.Errorf("failed to create artifact: %w", err)
	}
	return w, nil
}

// ExtractFunctions writes the span of every function symbol in the given
// 1-based section to sink, one artifact per symbol. Symbols without a
// resolvable name get generated placeholder names; the placeholder counter
// starts at 1 and advances only when a placeholder is assigned. Spans cut
// short by end of input are written as-is. progress, when non-nil, is called
// with each symbol's name before its artifact is written.
func (f *File) ExtractFunctions(section uint16, sink ArtifactSink, progress func(name string)) error {
	unknown := 1
	for _, sym := range f.FunctionSymbols(section) {
		name, ok := f.SymbolName(&sym)
		if !ok {
			name = fmt.Sprintf("unknown%d", unknown)
			unknown++
		}
		if progress != nil {
			progress(name)
		}

		data, err := f.SymbolData(&sym)
		if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("failed to extract symbol %s: %w", name, err)
		}
		if err := writeArtifact(sink, name, data); err != nil {
			return fmt.Errorf("failed to write artifact %s: %w", name, err)
		}
	}
	return nil
}

// writeArtifact writes one artifact, closing it on every path.
func writeArtifact(sink ArtifactSink, name string, data []byte) error {
	w, err := sink.CreateArtifact(name)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
