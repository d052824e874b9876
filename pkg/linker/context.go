package linker

import (
	"sync"

	"github.com/daniel-levin/wild/pkg/scheduler"
)

type ContextArgs struct {
	Output       string
	Emulation    MachineType
	LibraryPaths []string
	ExportList   []string
	NumJobs      int
}

// Context is the process-wide state a link shares across every group:
// the resolved input set, the process-wide symbol table, and the output
// chunk list the final assembly pass walks. Groups is populated by
// PartitionGroups once every input object has been read and parsed.
type Context struct {
	Args          ContextArgs
	Objs          []*ObjectFile
	SymbolMap     map[string]*Symbol
	InternalObj   *ObjectFile
	InternalEsyms []Sym64

	// Symbols and Sections give every process-wide *Symbol and
	// *InputSection a compact, stable uint32 handle: a WorkItem carries
	// an index into one of these rather than a pointer, so the
	// scheduler core stays free of domain types. Most entries are built
	// sequentially while reading the initial input files, before the
	// pool starts, but an archive member extracted mid-run (see
	// library.go's ExtractFromArchive) appends more of both while other
	// groups' goroutines are concurrently indexing them by WorkItem ID —
	// tablesMu is the one lock guarding every read or write of Symbols,
	// Sections, or SymbolMap, since an append can reallocate the backing
	// array underneath an unsynchronized reader. Go through
	// GetSymbolByName / SymbolByID / SectionByID rather than touching
	// these slices directly.
	Symbols  []*Symbol
	Sections []*InputSection
	tablesMu sync.RWMutex

	MergedSections []*MergedSection

	Ehdr *OutputEhdr
	Shdr *OutputShdr
	Phdr *OutputPhdr

	TpAddr uint64

	OutputSections []*OutputSection

	Chunks []Chunker
	Buf    []byte

	// Groups and Shared are set by Link (from PartitionGroups and
	// scheduler.NewSharedResources) and consumed by its
	// scheduler.Pool.Run call.
	Groups []*scheduler.GroupState
	Shared *scheduler.SharedResources

	// archiveMu protects PendingArchiveMembers and the Objs/GroupIndex
	// bookkeeping ExtractFromArchive performs: LoadGlobalSymbol items
	// running concurrently across groups may race to extract the same
	// member.
	archiveMu             sync.Mutex
	PendingArchiveMembers []*File
}

func NewContext() *Context {
	return &Context{
		Args: ContextArgs{
			Output:    "a.out",
			Emulation: MachineTypeNone,
			NumJobs:   1,
		},
		SymbolMap: make(map[string]*Symbol),
	}
}

// SymbolByID returns ctx.Symbols[id] under tablesMu, the only safe way to
// index it once archive extraction may be appending to the same slice
// from another group's goroutine. Reports false if id is out of range.
func (ctx *Context) SymbolByID(id uint32) (*Symbol, bool) {
	ctx.tablesMu.RLock()
	defer ctx.tablesMu.RUnlock()
	if int(id) >= len(ctx.Symbols) {
		return nil, false
	}
	return ctx.Symbols[id], true
}

// SectionByID returns ctx.Sections[id] under tablesMu, the Sections
// counterpart to SymbolByID.
func (ctx *Context) SectionByID(id uint32) (*InputSection, bool) {
	ctx.tablesMu.RLock()
	defer ctx.tablesMu.RUnlock()
	if int(id) >= len(ctx.Sections) {
		return nil, false
	}
	return ctx.Sections[id], true
}
