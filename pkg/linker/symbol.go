package linker

import (
	"sync/atomic"

	"github.com/daniel-levin/wild/pkg/utils"
)

// Symbol is the process-wide table entry a global name resolves to.
// Every ObjectFile.initializeSymbols call for a given name returns the
// same *Symbol (via GetSymbolByName), so the fields below are written
// from multiple group goroutines and read concurrently; isLive and
// isExported use atomic.Bool for that reason, while File/InputSection/
// SymIdx are only ever written once, during resolution in
// initializeSymbols (single-threaded, before the pool starts).
type Symbol struct {
	File         *ObjectFile
	InputSection *InputSection
	Name         string
	Value        uint64
	SymIdx       int32

	// ID indexes this symbol into ctx.Symbols, giving WorkItem a
	// compact uint32 handle onto an otherwise pointer-identified,
	// process-wide object.
	ID uint32

	isLive          atomic.Bool
	isExported      atomic.Bool
	isCopyRelocated atomic.Bool
}

func NewSymbol(name string) *Symbol {
	s := &Symbol{
		Name: name,
	}

	return s
}

func (s *Symbol) SetInputSection(isec *InputSection) {
	s.InputSection = isec
}

// isDefined reports whether this symbol already has an owning file with
// a resolved definition, as opposed to being a placeholder created by an
// as-yet-unsatisfied reference.
func (s *Symbol) isDefined() bool {
	return s.File != nil && s.SymIdx >= 0 && int(s.SymIdx) < len(s.File.SymTable) &&
		s.File.SymTable[s.SymIdx].Shndx != 0
}

// MarkLive flips the liveness flag and reports whether this call is the
// one that transitioned it false -> true.
func (s *Symbol) MarkLive() bool {
	return s.isLive.CompareAndSwap(false, true)
}

func (s *Symbol) IsLive() bool {
	return s.isLive.Load()
}

// MarkExported flips the export flag and reports whether this call is
// the one that transitioned it false -> true.
func (s *Symbol) MarkExported() bool {
	return s.isExported.CompareAndSwap(false, true)
}

func (s *Symbol) IsExported() bool {
	return s.isExported.Load()
}

// MarkCopyRelocated flips the copy-relocation flag and reports whether
// this call is the one that transitioned it false -> true.
func (s *Symbol) MarkCopyRelocated() bool {
	return s.isCopyRelocated.CompareAndSwap(false, true)
}

func (s *Symbol) IsCopyRelocated() bool {
	return s.isCopyRelocated.Load()
}

// GetSymbolByName resolves name to the process-wide *Symbol, creating a
// placeholder on first sight. Takes ctx.tablesMu for the full lookup-or-
// insert: initializeSymbols runs single-threaded before the pool starts
// for every file present at startup, but an archive member extracted mid-
// run (ExtractFromArchive) calls this from inside a group's goroutine
// while other groups may be indexing ctx.Symbols by id concurrently.
func GetSymbolByName(ctx *Context, name string) *Symbol {
	ctx.tablesMu.Lock()
	defer ctx.tablesMu.Unlock()
	if sym, ok := ctx.SymbolMap[name]; ok {
		return sym
	}
	sym := NewSymbol(name)
	sym.ID = uint32(len(ctx.Symbols))
	ctx.SymbolMap[name] = sym
	ctx.Symbols = append(ctx.Symbols, sym)
	return sym
}

func (s *Symbol) ELFSym() *Sym64 {
	utils.Assert(s.SymIdx < int32(len(s.File.SymTable)))
	return &s.File.SymTable[s.SymIdx]
}

func (s *Symbol) Clear() {
	s.File = nil
	s.InputSection = nil
	s.SymIdx = -1
}
