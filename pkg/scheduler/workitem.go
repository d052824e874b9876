// Package scheduler implements the concurrent work-stealing scheduler that
// drives symbol resolution and section loading to completion across a fixed
// goroutine pool. It knows nothing about ELF, symbols, or sections; those
// live in pkg/linker and are wired in through the Process callback.
package scheduler

// Kind tags the four flavors of traversal work the scheduler carries. The
// identifier each WorkItem carries is opaque to the scheduler; only Process
// understands what it names.
type Kind uint8

const (
	// LoadGlobalSymbol resolves a global symbol, possibly extracting an
	// archive member that defines it.
	LoadGlobalSymbol Kind = iota
	// CopyRelocateSymbol marks a symbol for copy relocation into the
	// owning group's output.
	CopyRelocateSymbol
	// LoadSection marks an input section live and walks its relocations.
	LoadSection
	// ExportDynamic marks a symbol for export from the dynamic symbol
	// table.
	ExportDynamic
)

func (k Kind) String() string {
	switch k {
	case LoadGlobalSymbol:
		return "LoadGlobalSymbol"
	case CopyRelocateSymbol:
		return "CopyRelocateSymbol"
	case LoadSection:
		return "LoadSection"
	case ExportDynamic:
		return "ExportDynamic"
	default:
		return "Kind(?)"
	}
}

// WorkItem is a cheap-to-copy tagged variant naming one unit of traversal
// work. ID is understood only by Process; the scheduler never inspects it.
type WorkItem struct {
	Kind Kind
	ID   uint32
}

// New builds a WorkItem. It exists mostly so callers read
// scheduler.New(scheduler.LoadSection, id) instead of a bare struct literal.
func New(kind Kind, id uint32) WorkItem {
	return WorkItem{Kind: kind, ID: id}
}
