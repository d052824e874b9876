package linker

import (
	"debug/elf"
	"fmt"
	"os"
	"path/filepath"

	"github.com/daniel-levin/wild/pkg/utils"
)

// FindLibrary resolves a bare "-lNAME" argument against ctx.Args.LibraryPaths,
// the way a Unix linker walks -L directories looking for libNAME.a.
func FindLibrary(ctx *Context, name string) *File {
	for _, dir := range ctx.Args.LibraryPaths {
		path := filepath.Join(dir, fmt.Sprintf("lib%s.a", name))
		if _, err := os.Stat(path); err == nil {
			return MustNewFile(path)
		}
	}
	utils.Fatal(fmt.Sprintf("library not found: -l%s", name))
	return nil
}

// ExtractFromArchive scans every not-yet-extracted archive member for one
// that defines name as a global symbol, extracting and parsing the first
// match found. A member is only turned into an ObjectFile, assigned a
// group, and given its own work items once something actually needs a
// symbol it defines.
func ExtractFromArchive(ctx *Context, name string) (*ObjectFile, bool) {
	ctx.archiveMu.Lock()
	defer ctx.archiveMu.Unlock()

	for i, member := range ctx.PendingArchiveMembers {
		if !memberDefines(member, name) {
			continue
		}

		ctx.PendingArchiveMembers = append(ctx.PendingArchiveMembers[:i], ctx.PendingArchiveMembers[i+1:]...)

		obj := NewObjectFile(member, true)
		obj.Parse(ctx)

		numGroups := len(ctx.Groups)
		if numGroups == 0 {
			numGroups = 1
		}
		obj.GroupIndex = len(ctx.Objs) % numGroups
		ctx.Objs = append(ctx.Objs, obj)

		return obj, true
	}

	return nil, false
}

// memberDefines reports whether file's symbol table contains a global,
// defined entry named name, without registering any of its symbols into
// ctx — a throwaway InputFile parse, same as peeking at an archive's "/"
// symbol-table member would tell you.
func memberDefines(file *File, name string) bool {
	in := NewInputFile(file)
	symtab := in.FindSection(uint32(elf.SHT_SYMTAB))
	if symtab == nil {
		return false
	}

	in.FirstGlobal = int64(symtab.Info)
	in.FillUpSymbols(symtab)
	strtab := in.GetBytesFromIndex(uint64(symtab.Link))

	for i := in.FirstGlobal; i < int64(len(in.SymTable)); i++ {
		sym := in.SymTable[i]
		if sym.Shndx == 0 {
			continue
		}
		if GetNameFromTable(strtab, sym.Name) == name {
			return true
		}
	}
	return false
}
