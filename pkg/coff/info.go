package coff

// Info is a JSON-friendly view of one parsed container.
type Info struct {
	Header      HeaderInfo                  `json:"header"`
	OptHeader   *OptHeaderInfo              `json:"optional_header,omitempty"`
	Sections    []SectionInfo               `json:"sections"`
	Relocations map[string][]RelocationInfo `json:"relocations,omitempty"`
	Symbols     []SymbolInfo                `json:"symbols"`
	Strings     []StringInfo                `json:"strings,omitempty"`
}

// HeaderInfo summarizes the file header.
type HeaderInfo struct {
	Magic       uint16 `json:"magic"`
	Sections    uint16 `json:"sections"`
	Timestamp   uint32 `json:"timestamp"`
	SymbolCount uint32 `json:"symbol_count"`
	Flags       uint16 `json:"flags"`
	TargetID    uint16 `json:"target_id"`
}

// OptHeaderInfo summarizes the optional header.
type OptHeaderInfo struct {
	Magic         uint16 `json:"magic"`
	LinkerVersion uint16 `json:"linker_version"`
	TextSize      uint32 `json:"text_size"`
	DataSize      uint32 `json:"data_size"`
	BSSSize       uint32 `json:"bss_size"`
	EntryPoint    uint32 `json:"entry_point"`
	TextStart     uint32 `json:"text_start"`
	DataStart     uint32 `json:"data_start"`
}

// SectionInfo summarizes one section header.
type SectionInfo struct {
	Name       string `json:"name"`
	PhysAddr   uint32 `json:"paddr"`
	VirtAddr   uint32 `json:"vaddr"`
	Size       uint32 `json:"size"`
	DataOffset uint32 `json:"data_offset"`
	RelocCount uint32 `json:"reloc_count"`
	Flags      uint32 `json:"flags"`
	Page       uint16 `json:"page"`
}

// RelocationInfo summarizes one relocation entry.
type RelocationInfo struct {
	VirtAddr uint32 `json:"vaddr"`
	SymIndex uint32 `json:"symbol_index"`
	Type     uint16 `json:"type"`
}

// SymbolInfo summarizes one symbol table entry. Name is the resolved name;
// it is empty for symbols whose string-table offset matches no entry.
type SymbolInfo struct {
	Name         string  `json:"name"`
	NameOffset   *uint32 `json:"name_offset,omitempty"`
	Value        uint32  `json:"value"`
	Section      uint16  `json:"section"`
	Type         uint16  `json:"type"`
	StorageClass uint8   `json:"storage_class"`
	AuxCount     uint8   `json:"aux_count"`
}

// StringInfo is one string-table entry.
type StringInfo struct {
	Offset uint32 `json:"offset"`
	Value  string `json:"value"`
}

// Info builds the JSON-friendly view of the parsed container.
func (f *File) Info() *Info {
	info := &Info{
		Header: HeaderInfo{
			Magic:       f.Header.Magic,
			Sections:    f.Header.NumSections,
			Timestamp:   f.Header.Timestamp,
			SymbolCount: f.Header.NumSymbols,
			Flags:       f.Header.Flags,
			TargetID:    f.Header.TargetID,
		},
	}

	if f.OptHeader != nil {
		info.OptHeader = &OptHeaderInfo{
			Magic:         f.OptHeader.Magic,
			LinkerVersion: f.OptHeader.LinkerVersion,
			TextSize:      f.OptHeader.TextSize,
			DataSize:      f.OptHeader.DataSize,
			BSSSize:       f.OptHeader.BSSSize,
			EntryPoint:    f.OptHeader.EntryPoint,
			TextStart:     f.OptHeader.TextStart,
			DataStart:     f.OptHeader.DataStart,
		}
	}

	info.Sections = make([]SectionInfo, len(f.Sections))
	for i := range f.Sections {
		s := &f.Sections[i]
		info.Sections[i] = SectionInfo{
			Name:       s.Name(),
			PhysAddr:   s.PhysAddr,
			VirtAddr:   s.VirtAddr,
			Size:       s.Size,
			DataOffset: s.DataOffset,
			RelocCount: s.RelocCount,
			Flags:      s.Flags,
			Page:       s.Page,
		}
	}

	if len(f.Relocations) > 0 {
		info.Relocations = make(map[string][]RelocationInfo, len(f.Relocations))
		for name, entries := range f.Relocations {
			views := make([]RelocationInfo, len(entries))
			for i, e := range entries {
				views[i] = RelocationInfo{
					VirtAddr: e.VirtAddr,
					SymIndex: e.SymIndex,
					Type:     e.Type,
				}
			}
			info.Relocations[name] = views
		}
	}

	info.Symbols = make([]SymbolInfo, len(f.Symbols))
	for i := range f.Symbols {
		sym := &f.Symbols[i]
		si := SymbolInfo{
			Value:        sym.Value,
			Section:      sym.SectionNumber,
			Type:         sym.Type,
			StorageClass: sym.StorageClass,
			AuxCount:     sym.NumAux,
		}
		if name, ok := f.SymbolName(sym); ok {
			si.Name = name
		}
		if !sym.Name.Inline {
			offset := sym.Name.Offset
			si.NameOffset = &offset
		}
		info.Symbols[i] = si
	}

	if len(f.Strings) > 0 {
		info.Strings = make([]StringInfo, len(f.Strings))
		for i, e := range f.Strings {
			info.Strings[i] = StringInfo{Offset: e.Offset, Value: e.Value}
		}
	}

	return info
}
