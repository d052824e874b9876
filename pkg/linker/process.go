package linker

import (
	"fmt"

	"github.com/daniel-levin/wild/pkg/scheduler"
)

// rRISCVCopy is R_RISCV_COPY: a relocation referencing a symbol that must
// be satisfied by copying its definition's bytes into this object's BSS
// at load time, rather than by a normal section-load resolution. It is
// the one relocation type that routes to CopyRelocateSymbol instead of
// LoadGlobalSymbol.
const rRISCVCopy = 4

// Process implements scheduler.ProcessFunc over the four work-item kinds
// the resolution walk produces.
func Process(item scheduler.WorkItem, group *scheduler.GroupState, shared *scheduler.SharedResources) error {
	ctx := shared.Collaborators.SymbolDB.(*Context)
	acc := group.Accumulator.(*Accumulator)

	switch item.Kind {
	case scheduler.LoadGlobalSymbol:
		return processLoadGlobalSymbol(ctx, item, group, shared)
	case scheduler.CopyRelocateSymbol:
		return processCopyRelocateSymbol(ctx, item, acc)
	case scheduler.LoadSection:
		return processLoadSection(ctx, item, group, shared, acc)
	case scheduler.ExportDynamic:
		return processExportDynamic(ctx, item, acc)
	default:
		return fmt.Errorf("linker: unknown work item kind %v", item.Kind)
	}
}

// processLoadGlobalSymbol resolves a single undefined reference: if the
// symbol already has a definition, push a same-or-cross-group LoadSection
// item for the section that defines it; otherwise try to satisfy it by
// extracting an archive member, seeding that member's own work into
// whichever group it is assigned to.
func processLoadGlobalSymbol(ctx *Context, item scheduler.WorkItem, group *scheduler.GroupState, shared *scheduler.SharedResources) error {
	sym, ok := ctx.SymbolByID(item.ID)
	if !ok {
		return fmt.Errorf("linker: symbol id %d out of range", item.ID)
	}

	if !sym.isDefined() {
		obj, ok := ExtractFromArchive(ctx, sym.Name)
		if !ok {
			return fmt.Errorf("linker: undefined symbol: %s", sym.Name)
		}
		// Extraction parses obj's own symbol table, which may resolve
		// sym in place (GetSymbolByName returns the same pointer for a
		// name seen twice). Seed obj's own undefined references either
		// way, then fall through: if sym is now defined, the rest of
		// this function pushes its LoadSection item exactly as the
		// already-resolved case would.
		seedExtractedObject(ctx, obj, group, shared)
		if !sym.isDefined() {
			return fmt.Errorf("linker: undefined symbol: %s", sym.Name)
		}
	}

	if !sym.MarkLive() {
		return nil
	}

	isec := sym.InputSection
	if isec == nil {
		// Absolute or common symbol: no section to load.
		return nil
	}

	if isec.Mergeable != nil {
		// Constant-pool content is already deduplicated into fragments;
		// only the fragment this symbol's value falls in needs to stay
		// live, and there is no section body left to schedule a load
		// for.
		isec.Mergeable.MarkLiveAt(uint32(sym.Value))
		return nil
	}

	deliver(scheduler.New(scheduler.LoadSection, isec.ID), isec.File.GroupIndex, group, shared)
	return nil
}

// processLoadSection marks isec live exactly once, then walks its
// relocations, pushing one LoadGlobalSymbol or CopyRelocateSymbol item
// per referenced symbol into this same group's local queue: the
// relocation's referencing object is always a member of the group
// currently running this item (a LoadSection item only reaches a group
// once that group owns the section, via the cross-group delivery done in
// processLoadGlobalSymbol above).
func processLoadSection(ctx *Context, item scheduler.WorkItem, group *scheduler.GroupState, shared *scheduler.SharedResources, acc *Accumulator) error {
	isec, ok := ctx.SectionByID(item.ID)
	if !ok {
		return fmt.Errorf("linker: section id %d out of range", item.ID)
	}
	if !isec.MarkLive() {
		return nil
	}
	acc.LiveSections = append(acc.LiveSections, isec)

	// isec.File.Symbols is a different slice from ctx.Symbols: it is
	// sized and filled once, by isec.File.initializeSymbols, and never
	// appended to again afterward. That call completes (as part of
	// obj.Parse) before this object's first WorkItem is ever delivered,
	// whether at startup activation or via ExtractFromArchive's
	// Parse-then-seed ordering, so no later goroutine can observe it
	// half-built and it needs no lock here.
	for i := range isec.Relocations {
		rel := &isec.Relocations[i]
		symIdx := rel.Sym()
		if int(symIdx) >= len(isec.File.Symbols) {
			continue
		}
		sym := isec.File.Symbols[symIdx]
		if sym == nil {
			continue
		}

		if rel.Type() == rRISCVCopy {
			group.Local().Push(scheduler.New(scheduler.CopyRelocateSymbol, sym.ID))
		} else {
			group.Local().Push(scheduler.New(scheduler.LoadGlobalSymbol, sym.ID))
		}
	}

	return nil
}

// processCopyRelocateSymbol is a leaf: it records the symbol for copy
// relocation and pushes nothing further (scenario 3's c1/c2/c3 shape).
func processCopyRelocateSymbol(ctx *Context, item scheduler.WorkItem, acc *Accumulator) error {
	sym, ok := ctx.SymbolByID(item.ID)
	if !ok {
		return fmt.Errorf("linker: symbol id %d out of range", item.ID)
	}
	if !sym.MarkCopyRelocated() {
		return nil
	}
	acc.CopyRelocated = append(acc.CopyRelocated, sym)
	return nil
}

// processExportDynamic is a leaf: it records the symbol as exported.
func processExportDynamic(ctx *Context, item scheduler.WorkItem, acc *Accumulator) error {
	sym, ok := ctx.SymbolByID(item.ID)
	if !ok {
		return fmt.Errorf("linker: symbol id %d out of range", item.ID)
	}
	if !sym.MarkExported() {
		return nil
	}
	acc.Exported = append(acc.Exported, sym)
	return nil
}

// deliver routes item to targetGroup: the local queue if it is the
// group currently running, shared.SendWork otherwise.
func deliver(item scheduler.WorkItem, targetGroup int, group *scheduler.GroupState, shared *scheduler.SharedResources) {
	if targetGroup == group.ID {
		group.Local().Push(item)
		return
	}
	shared.SendWork(targetGroup, item)
}

// seedExtractedObject takes a freshly extracted (and already parsed)
// archive member and routes its own initial work the same way activation does for the
// files present at startup, delivering into whichever group the new
// object is assigned to.
func seedExtractedObject(ctx *Context, obj *ObjectFile, group *scheduler.GroupState, shared *scheduler.SharedResources) {
	for _, symID := range obj.UndefinedGlobals() {
		deliver(scheduler.New(scheduler.LoadGlobalSymbol, symID), obj.GroupIndex, group, shared)
	}
}
