package linker

import "github.com/daniel-levin/wild/pkg/utils"

func ReadInputFiles(ctx *Context, remaining []string) {
	for _, arg := range remaining {
		// normal object file
		var ok bool

		if arg, ok = utils.RemovePrefix(arg, "-l"); ok {
			ReadFile(ctx, FindLibrary(ctx, arg))
		} else {
			ReadFile(ctx, MustNewFile(arg))
		}
	}
}

// ReadFile dispatches a top-level input by its magic number. A plain
// object is parsed immediately; an archive's members are not parsed at
// all here — they are staged in ctx.PendingArchiveMembers and only
// turned into ObjectFiles by ExtractFromArchive, lazily, when symbol
// resolution actually needs one of them.
func ReadFile(ctx *Context, file *File) {
	ft := GetFileType(file.Contents)

	switch ft {
	case FileTypeObject:
		ctx.Objs = append(ctx.Objs, CreateObjectFile(ctx, file, false))
	case FileTypeArchive:
		for _, child := range ReadArchiveMembers(file) {
			utils.Assert(GetFileType(child.Contents) == FileTypeObject)
			ctx.PendingArchiveMembers = append(ctx.PendingArchiveMembers, child)
		}
	default:
		utils.Fatal("unknown file type")
	}
}

func CreateObjectFile(ctx *Context, file *File, inLib bool) *ObjectFile {
	mt := GetMachineTypeFromContext(file.Contents)
	if mt != ctx.Args.Emulation {
		utils.Fatal("incompatible file type")
	}

	obj := NewObjectFile(file, !inLib)
	obj.Parse(ctx)

	return obj
}
