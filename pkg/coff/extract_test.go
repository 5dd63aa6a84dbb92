package coff

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

// buildSpanImage lays out one code section with three function symbols. The
// third symbol claims section 2, which does not exist; it still participates
// in boundary searches.
//
//	0x000 file header
//	0x016 section header (.text, vaddr 0x1000, data at 0x200, size 0x100)
//	0x200 .text raw data
//	0x300 symbol table
//	0x336 string table (empty)
func buildSpanImage(t *testing.T) []byte {
	b := newImage(t)
	b.append(FileHeader{
		NumSections:    1,
		SymTableOffset: 0x300,
		NumSymbols:     3,
	})
	b.append(SectionHeader{
		RawName:    rawName(".text"),
		PhysAddr:   0x1000,
		VirtAddr:   0x1000,
		Size:       0x100,
		DataOffset: 0x200,
	})
	b.pad(0x200)
	b.raw(pattern(0x100, 0))
	b.append(SymbolEntry{RawName: rawName("first"), Value: 0x1000, SectionNumber: 1, Type: FunctionType})
	b.append(SymbolEntry{RawName: rawName("second"), Value: 0x1050, SectionNumber: 1, Type: FunctionType})
	b.append(SymbolEntry{RawName: rawName("third"), Value: 0x10c0, SectionNumber: 2, Type: FunctionType})
	b.append(uint32(0))
	return b.bytes()
}

func TestSymbolDataSpans(t *testing.T) {
	img := buildSpanImage(t)
	f, err := NewFile(bytes.NewReader(img))
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}

	// The span of the first symbol ends at the second symbol's address.
	data, err := f.SymbolData(&f.Symbols[0])
	if err != nil {
		t.Fatalf("SymbolData(first): %v", err)
	}
	if len(data) != 0x50 {
		t.Errorf("first span is %d bytes, want 0x50", len(data))
	}
	if !bytes.Equal(data, img[0x200:0x250]) {
		t.Error("first span does not match the image region at 0x200")
	}

	// The second symbol's boundary comes from the third symbol even though
	// that one belongs to a different section.
	data, err = f.SymbolData(&f.Symbols[1])
	if err != nil {
		t.Fatalf("SymbolData(second): %v", err)
	}
	if len(data) != 0x70 {
		t.Errorf("second span is %d bytes, want 0x70", len(data))
	}
	if !bytes.Equal(data, img[0x250:0x2c0]) {
		t.Error("second span does not match the image region at 0x250")
	}
}

func TestSymbolDataSentinel(t *testing.T) {
	img := buildSpanImage(t)
	f, err := NewFile(bytes.NewReader(img))
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}

	// No function symbol lies above 0x10c0, so the span runs to the end of
	// the input and comes back short.
	sym := &Symbol{SymbolEntry: SymbolEntry{Value: 0x10c0, SectionNumber: 1, Type: FunctionType}}
	data, err := f.SymbolData(sym)
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("SymbolData past end: err = %v, want io.ErrUnexpectedEOF", err)
	}
	if want := img[0x2c0:]; !bytes.Equal(data, want) {
		t.Errorf("sentinel span = %d bytes, want the %d bytes from 0x2c0 to end of input", len(data), len(want))
	}
}

func TestSymbolDataTwoFunctionImage(t *testing.T) {
	b := newImage(t)
	b.append(FileHeader{
		NumSections:    1,
		SymTableOffset: 0x300,
		NumSymbols:     2,
	})
	b.append(SectionHeader{
		RawName:    rawName(".text"),
		PhysAddr:   0x1000,
		VirtAddr:   0x1000,
		Size:       0x100,
		DataOffset: 0x200,
	})
	b.pad(0x200)
	b.raw(pattern(0x100, 0))
	b.append(SymbolEntry{RawName: rawName("first"), Value: 0x1000, SectionNumber: 1, Type: FunctionType})
	b.append(SymbolEntry{RawName: rawName("last"), Value: 0x1050, SectionNumber: 1, Type: FunctionType})
	b.append(uint32(0))
	img := b.bytes()

	f, err := NewFile(bytes.NewReader(img))
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}

	data, err := f.SymbolData(&f.Symbols[0])
	if err != nil {
		t.Fatalf("SymbolData(first): %v", err)
	}
	if !bytes.Equal(data, img[0x200:0x250]) {
		t.Errorf("first span = %d bytes from wrong region, want 0x50 from 0x200", len(data))
	}

	// The last symbol has nothing above it, so its read starts at 0x250 and
	// runs off the end of the input.
	data, err = f.SymbolData(&f.Symbols[1])
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("SymbolData(last): err = %v, want io.ErrUnexpectedEOF", err)
	}
	if !bytes.Equal(data, img[0x250:]) {
		t.Errorf("last span = %d bytes, want everything from 0x250 to end of input", len(data))
	}
}

func TestSymbolDataRangeError(t *testing.T) {
	f, err := NewFile(bytes.NewReader(buildSpanImage(t)))
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}

	// Section numbers are 1-based; 0 means undefined and must not index.
	undefined := &Symbol{SymbolEntry: SymbolEntry{Value: 0x1000, SectionNumber: 0, Type: FunctionType}}
	if _, err := f.SymbolData(undefined); err == nil {
		t.Error("SymbolData accepted section number 0")
	}

	// The third symbol names section 2, but the file has only one section.
	if _, err := f.SymbolData(&f.Symbols[2]); err == nil {
		t.Error("SymbolData accepted an out-of-range section number")
	}
}

func TestFunctionSymbols(t *testing.T) {
	f, err := NewFile(bytes.NewReader(buildSpanImage(t)))
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}

	syms := f.FunctionSymbols(1)
	if len(syms) != 2 {
		t.Fatalf("got %d function symbols in section 1, want 2", len(syms))
	}
	if syms[0].Value != 0x1000 || syms[1].Value != 0x1050 {
		t.Errorf("function symbols sorted as %#x, %#x", syms[0].Value, syms[1].Value)
	}
}

func TestFunctionSymbolsStable(t *testing.T) {
	f := &File{
		Symbols: []Symbol{
			{SymbolEntry: SymbolEntry{RawName: rawName("a1"), Value: 0x1000, SectionNumber: 1, Type: FunctionType}, Name: decodeNameRef(rawName("a1"))},
			{SymbolEntry: SymbolEntry{RawName: rawName("a2"), Value: 0x1000, SectionNumber: 1, Type: FunctionType}, Name: decodeNameRef(rawName("a2"))},
			{SymbolEntry: SymbolEntry{RawName: rawName("lo"), Value: 0x0500, SectionNumber: 1, Type: FunctionType}, Name: decodeNameRef(rawName("lo"))},
			{SymbolEntry: SymbolEntry{RawName: rawName("nf"), Value: 0x0400, SectionNumber: 1, Type: 0}, Name: decodeNameRef(rawName("nf"))},
		},
	}

	syms := f.FunctionSymbols(1)
	if len(syms) != 3 {
		t.Fatalf("got %d function symbols, want 3", len(syms))
	}
	if syms[0].Name.Value != "lo" || syms[1].Name.Value != "a1" || syms[2].Name.Value != "a2" {
		t.Errorf("sort order = %s, %s, %s", syms[0].Name.Value, syms[1].Name.Value, syms[2].Name.Value)
	}
}

// buildDriverImage lays out a container for extraction runs: four function
// symbols in one section, in scrambled table order, two of them with string
// table offsets that match nothing. The section claims 0x100 bytes of data
// but the image ends early, so the last span is cut short.
//
//	0x000 file header
//	0x016 section header (.text, vaddr 0x1000, data at 0x100)
//	0x046 symbol table
//	0x08e string table ("alpha")
//	0x100 .text raw data, truncated at 0x138
func buildDriverImage(t *testing.T) []byte {
	b := newImage(t)
	b.append(FileHeader{
		NumSections:    1,
		SymTableOffset: 70,
		NumSymbols:     4,
	})
	b.append(SectionHeader{
		RawName:    rawName(".text"),
		PhysAddr:   0x1000,
		VirtAddr:   0x1000,
		Size:       0x100,
		DataOffset: 0x100,
	})
	b.append(SymbolEntry{RawName: rawName("beta"), Value: 0x1010, SectionNumber: 1, Type: FunctionType})
	b.append(SymbolEntry{RawName: offsetName(50), Value: 0x1020, SectionNumber: 1, Type: FunctionType})
	b.append(SymbolEntry{RawName: offsetName(0), Value: 0x1000, SectionNumber: 1, Type: FunctionType})
	b.append(SymbolEntry{RawName: offsetName(60), Value: 0x1030, SectionNumber: 1, Type: FunctionType})
	strs := []byte("alpha\x00")
	b.append(uint32(len(strs)))
	b.raw(strs)
	b.pad(0x100)
	b.raw(pattern(0x38, 0x40))
	return b.bytes()
}

// memSink collects artifacts in memory, recording creation order.
type memSink struct {
	names []string
	files map[string][]byte
}

func (m *memSink) CreateArtifact(name string) (io.WriteCloser, error) {
	m.names = append(m.names, name)
	return &memArtifact{sink: m, name: name}, nil
}

type memArtifact struct {
	sink *memSink
	name string
	buf  bytes.Buffer
}

func (a *memArtifact) Write(p []byte) (int, error) { return a.buf.Write(p) }

func (a *memArtifact) Close() error {
	if a.sink.files == nil {
		a.sink.files = make(map[string][]byte)
	}
	a.sink.files[a.name] = a.buf.Bytes()
	return nil
}

func TestExtractFunctions(t *testing.T) {
	img := buildDriverImage(t)
	f, err := NewFile(bytes.NewReader(img))
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}

	sink := &memSink{}
	var reported []string
	err = f.ExtractFunctions(1, sink, func(name string) {
		reported = append(reported, name)
	})
	if err != nil {
		t.Fatalf("ExtractFunctions: %v", err)
	}

	wantOrder := []string{"alpha", "beta", "unknown1", "unknown2"}
	if len(sink.names) != len(wantOrder) {
		t.Fatalf("extracted %d artifacts, want %d: %v", len(sink.names), len(wantOrder), sink.names)
	}
	if len(reported) != len(wantOrder) {
		t.Fatalf("progress reported %d names, want %d: %v", len(reported), len(wantOrder), reported)
	}
	for i, want := range wantOrder {
		if sink.names[i] != want {
			t.Errorf("artifact %d = %q, want %q", i, sink.names[i], want)
		}
		if reported[i] != want {
			t.Errorf("progress %d = %q, want %q", i, reported[i], want)
		}
	}

	wantData := map[string][]byte{
		"alpha":    img[0x100:0x110],
		"beta":     img[0x110:0x120],
		"unknown1": img[0x120:0x130],
		"unknown2": img[0x130:0x138], // cut short by end of input
	}
	for name, want := range wantData {
		if got := sink.files[name]; !bytes.Equal(got, want) {
			t.Errorf("artifact %s holds %d bytes, want %d", name, len(got), len(want))
		}
	}
}

func TestExtractFunctionsSinkError(t *testing.T) {
	f, err := NewFile(bytes.NewReader(buildDriverImage(t)))
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}

	if err := f.ExtractFunctions(1, failSink{}, nil); err == nil {
		t.Error("ExtractFunctions ignored a sink failure")
	}
}

type failSink struct{}

func (failSink) CreateArtifact(name string) (io.WriteCloser, error) {
	return nil, errors.New("sink unavailable")
}

func TestDirSink(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out", "func")
	sink := &DirSink{Dir: dir}

	w, err := sink.CreateArtifact("boot")
	if err != nil {
		t.Fatalf("CreateArtifact: %v", err)
	}
	if _, err := w.Write([]byte{1, 2, 3}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dir, "boot"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.Equal(got, []byte{1, 2, 3}) {
		t.Errorf("artifact bytes = %v", got)
	}
}

func TestExtractFunctionsToDir(t *testing.T) {
	img := buildDriverImage(t)
	f, err := NewFile(bytes.NewReader(img))
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}

	dir := filepath.Join(t.TempDir(), "func")
	if err := f.ExtractFunctions(1, &DirSink{Dir: dir}, nil); err != nil {
		t.Fatalf("ExtractFunctions: %v", err)
	}

	for name, region := range map[string][]byte{
		"alpha":    img[0x100:0x110],
		"unknown2": img[0x130:0x138],
	} {
		got, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("ReadFile(%s): %v", name, err)
		}
		if !bytes.Equal(got, region) {
			t.Errorf("file %s holds %d bytes, want %d", name, len(got), len(region))
		}
	}
}
