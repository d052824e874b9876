package linker

import (
	"bytes"
	"debug/elf"
	"math/bits"

	"github.com/daniel-levin/wild/pkg/utils"
)

// ObjectFile is one parsed relocatable object: an InputFile plus the
// per-object resolution state the scheduler traverses — resolved Symbol
// pointers, per-object InputSections, and the group this object was
// assigned to.
type ObjectFile struct {
	InputFile

	SymtabSection *SectionHeader

	// GroupIndex is the id of the GroupState this object's work items
	// are routed through. Assigned by the group-partitioning pass in
	// group.go, or by ExtractFromArchive for an archive member, not by
	// Parse.
	GroupIndex int

	// Symbols[i] corresponds to SymTable[i]: for a local symbol, a
	// private *Symbol; for a global symbol, the canonical, process-wide
	// *Symbol returned by GetSymbolByName.
	Symbols []*Symbol

	// InputSections holds one *InputSection per ELF section this object
	// defines (nil entries for sections that carry no linkable content,
	// e.g. SHT_NULL or SHT_STRTAB).
	InputSections []*InputSection

	// FromArchive is true for an object extracted from a .a archive
	// member rather than named directly on the command line.
	FromArchive bool
}

// NewObjectFile wraps file as an ObjectFile pending Parse.
func NewObjectFile(file *File, fromArchive bool) *ObjectFile {
	return &ObjectFile{
		InputFile:   NewInputFile(file),
		FromArchive: fromArchive,
	}
}

// GetEhdr reads back this object's ELF header (used by output assembly to
// carry forward e.g. EF_RISCV_RVC flags).
func (o *ObjectFile) GetEhdr() Header64 {
	hdr := utils.Read[Header64](o.File.Contents)
	return hdr
}

// Parse locates the symbol table, resolves every global symbol against
// ctx's process-wide symbol map, and builds this object's InputSection
// list. Called once per object: before the scheduler pool starts for
// objects named on the command line (the activation phase seeds
// WorkItems from the result), or from inside a group's goroutine when
// ExtractFromArchive pulls in an archive member mid-run.
func (o *ObjectFile) Parse(ctx *Context) {
	o.SymtabSection = o.FindSection(uint32(elf.SHT_SYMTAB))
	if o.SymtabSection == nil {
		o.initializeSections(ctx)
		return
	}

	o.FirstGlobal = int64(o.SymtabSection.Info)
	o.FillUpSymbols(o.SymtabSection)
	o.SymStrTable = o.GetBytesFromIndex(uint64(o.SymtabSection.Link))

	o.initializeSections(ctx)
	o.initializeSymbols(ctx)
}

// initializeSections builds one *InputSection per section this object
// defines and registers each into ctx.Sections so it has a stable
// WorkItem ID. The ctx.Sections append is taken under ctx.tablesMu: for
// the initial input set this runs single-threaded before the pool
// starts, but an archive member's Parse (ExtractFromArchive) runs this
// from inside a group's goroutine while other groups may be indexing
// ctx.Sections by id concurrently (see SectionByID).
func (o *ObjectFile) initializeSections(ctx *Context) {
	o.InputSections = make([]*InputSection, len(o.Sections))
	for i, shdr := range o.Sections {
		if shdr.Type == uint32(elf.SHT_NULL) || shdr.Type == uint32(elf.SHT_STRTAB) ||
			shdr.Type == uint32(elf.SHT_SYMTAB) || shdr.Type == uint32(elf.SHT_RELA) {
			continue
		}
		isec := NewInputSection(o, uint32(i))
		ctx.tablesMu.Lock()
		isec.ID = uint32(len(ctx.Sections))
		ctx.Sections = append(ctx.Sections, isec)
		ctx.tablesMu.Unlock()
		o.InputSections[i] = isec

		if shdr.Flags&uint64(elf.SHF_MERGE) != 0 && shdr.Flags&uint64(elf.SHF_STRINGS) != 0 &&
			shdr.Type == uint32(elf.SHT_PROGBITS) {
			splitMergeableStrings(ctx, isec)
		}
	}

	// Second pass: attach each SHT_RELA section's entries to the
	// InputSection it targets (shdr.Info names the target section index).
	for _, shdr := range o.Sections {
		if shdr.Type != uint32(elf.SHT_RELA) {
			continue
		}
		target := shdr.Info
		if int(target) >= len(o.InputSections) || o.InputSections[target] == nil {
			continue
		}
		o.InputSections[target].attachRelocations(o.GetBytesFromShdr(&shdr))
	}
}

// initializeSymbols resolves every symbol table entry: locals get a
// private Symbol, globals resolve (or are created) in ctx's process-wide
// map via GetSymbolByName. A global symbol defined here (Shndx != 0) wins
// over a previously-undefined placeholder; the first definition seen
// across objects wins over a later one, matching conventional linker
// first-definition-wins semantics.
func (o *ObjectFile) initializeSymbols(ctx *Context) {
	o.Symbols = make([]*Symbol, len(o.SymTable))

	for i := range o.SymTable {
		if int64(i) < o.FirstGlobal {
			sym := NewSymbol(GetNameFromTable(o.SymStrTable, o.SymTable[i].Name))
			sym.File = o
			sym.SymIdx = int32(i)
			o.Symbols[i] = sym
			continue
		}

		name := GetNameFromTable(o.SymStrTable, o.SymTable[i].Name)
		sym := GetSymbolByName(ctx, name)
		o.Symbols[i] = sym

		defined := o.SymTable[i].Shndx != uint16(elf.SHN_UNDEF)
		if defined && (sym.File == nil || !sym.isDefined()) {
			sym.File = o
			sym.SymIdx = int32(i)
			sym.Value = o.SymTable[i].Value
			if int(o.SymTable[i].Shndx) < len(o.InputSections) {
				sym.SetInputSection(o.InputSections[o.SymTable[i].Shndx])
			}
		}
	}
}

// splitMergeableStrings breaks an SHF_MERGE|SHF_STRINGS section's
// contents into its NUL-terminated entries, deduplicating each into the
// named bucket's MergedSection and recording the offset table
// MergeableSection.GetFragment needs to map a symbol's byte offset back
// to the fragment that now owns it.
func splitMergeableStrings(ctx *Context, isec *InputSection) {
	shdr := isec.Shdr()
	var p2align uint8
	if shdr.Addralign > 0 {
		p2align = uint8(bits.TrailingZeros64(shdr.Addralign))
	}

	merged := GetMergedSection(ctx, isec.Name(), shdr.Flags, shdr.Type)

	m := &MergeableSection{Parent: merged, P2Align: p2align}

	content := isec.Contents
	var offset uint32
	for len(content) > 0 {
		end := bytes.IndexByte(content, 0)
		if end < 0 {
			end = len(content) - 1
		}
		entry := string(content[:end+1])

		frag := merged.Insert(entry, uint32(p2align))
		m.Strs = append(m.Strs, entry)
		m.FragOffsets = append(m.FragOffsets, offset)
		m.Fragments = append(m.Fragments, frag)

		content = content[end+1:]
		offset += uint32(end + 1)
	}

	isec.Mergeable = m
}

// UndefinedGlobals returns the ctx.Symbols IDs of every global symbol
// this object references but does not itself define. Activation uses
// this to seed one LoadGlobalSymbol WorkItem per undefined reference.
func (o *ObjectFile) UndefinedGlobals() []uint32 {
	var out []uint32
	for i := o.FirstGlobal; i < int64(len(o.SymTable)); i++ {
		if o.SymTable[i].Shndx == uint16(elf.SHN_UNDEF) {
			out = append(out, o.Symbols[i].ID)
		}
	}
	return out
}
