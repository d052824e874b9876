package linker

import "github.com/daniel-levin/wild/pkg/scheduler"

// PartitionGroups assigns every parsed object to one of numGroups
// scheduler groups, round-robin, and builds the GroupState list
// Link hands to scheduler.NewPool. Objects are partitioned, not files: an
// archive member extracted later during resolution is assigned a group
// the same way, in ExtractFromArchive.
func PartitionGroups(ctx *Context, numGroups int) []*scheduler.GroupState {
	if numGroups < 1 {
		numGroups = 1
	}

	groups := make([]*scheduler.GroupState, numGroups)
	files := make([][]any, numGroups)

	for i, obj := range ctx.Objs {
		gi := i % numGroups
		obj.GroupIndex = gi
		files[gi] = append(files[gi], obj)
	}

	for i := range groups {
		groups[i] = scheduler.NewGroupState(i, files[i], NewAccumulator(i), seedGroup)
	}

	return groups
}

// seedGroup is every GroupState's activation procedure: one
// LoadGlobalSymbol item per undefined global reference in a file the
// group owns, and one ExportDynamic item per caller-requested export
// name whose definition lives in this group.
func seedGroup(group *scheduler.GroupState, shared *scheduler.SharedResources) {
	ctx := shared.Collaborators.SymbolDB.(*Context)

	for _, f := range group.Files {
		obj := f.(*ObjectFile)
		for _, symID := range obj.UndefinedGlobals() {
			group.Local().Push(scheduler.New(scheduler.LoadGlobalSymbol, symID))
		}
	}

	for _, name := range ctx.Args.ExportList {
		sym, ok := ctx.SymbolMap[name]
		if !ok || sym.File == nil || sym.File.GroupIndex != group.ID {
			continue
		}
		group.Local().Push(scheduler.New(scheduler.ExportDynamic, sym.ID))
	}
}
