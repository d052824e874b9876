package linker

import (
	"sync/atomic"

	"github.com/daniel-levin/wild/pkg/utils"
)

// Rela64 mirrors the wire format of an ELF64 SHT_RELA entry (debug/elf
// only exposes the decoded elf.Rela64 for whole-file reading; the linker
// needs the raw layout to walk relocations section-by-section without
// re-parsing the entire file through debug/elf.File).
type Rela64 struct {
	Offset uint64
	Info   uint64
	Addend int64
}

// Sym is the symbol-table index this relocation references (upper 32
// bits of Info, per the ELF64 R_INFO encoding).
func (r *Rela64) Sym() uint32 {
	return uint32(r.Info >> 32)
}

// Type is the relocation type (lower 32 bits of Info).
func (r *Rela64) Type() uint32 {
	return uint32(r.Info)
}

const Rela64Size = 24

type InputSection struct {
	File     *ObjectFile
	Contents []byte
	Shndx    uint32

	// ID indexes this section into ctx.Sections, its WorkItem handle.
	ID uint32

	// Relocations holds this section's SHT_RELA entries, attached by
	// initializeSections when a relocation section naming this one as
	// its target is found.
	Relocations []Rela64

	// Mergeable is non-nil when this section carries SHF_MERGE|
	// SHF_STRINGS content (constant string pools, typically
	// .rodata.str1.1): its bytes were split into deduplicated
	// SectionFragments at parse time and it never itself becomes a
	// LoadSection target — liveness is tracked per fragment instead.
	Mergeable *MergeableSection

	// isAlive is flipped by MarkLive when a LoadSection item resolves
	// to this section; checked by MarkLive itself to make marking
	// idempotent even if two groups' WorkItems reference the same
	// section concurrently.
	isAlive atomic.Bool
}

func NewInputSection(file *ObjectFile, shndx uint32) *InputSection {
	s := &InputSection{
		File:  file,
		Shndx: shndx,
	}

	shdr := s.Shdr()
	s.Contents = file.File.Contents[shdr.Offset : shdr.Offset+shdr.Size]

	return s
}

func (i *InputSection) Shdr() *SectionHeader {
	utils.Assert(i.Shndx < uint32(len(i.File.Sections)))
	return &i.File.InputFile.Sections[i.Shndx]
}

func (i *InputSection) Name() string {
	return GetNameFromTable(i.File.StrTable, i.Shdr().Name)
}

// MarkLive flips the alive flag and reports whether this call is the one
// that transitioned it false -> true, so Process can push follow-up
// WorkItems exactly once per section no matter how many references
// resolve to it.
func (i *InputSection) MarkLive() bool {
	return i.isAlive.CompareAndSwap(false, true)
}

func (i *InputSection) IsAlive() bool {
	return i.isAlive.Load()
}

// attachRelocations decodes a SHT_RELA section's raw bytes into this
// section's Relocations slice.
func (i *InputSection) attachRelocations(contents []byte) {
	n := len(contents) / Rela64Size
	i.Relocations = make([]Rela64, 0, n)
	for n > 0 {
		i.Relocations = append(i.Relocations, utils.Read[Rela64](contents))
		contents = contents[Rela64Size:]
		n--
	}
}
