// Command wildobjdump prints one object file's symbol table, the
// smallest useful thing to build on top of linker.ObjectFile while
// developing the resolver — every symbol name it sees is a name the
// scheduler can later be asked to resolve.
package main

import (
	"fmt"
	"os"

	"github.com/daniel-levin/wild/pkg/linker"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: wildobjdump <object-file>")
		os.Exit(1)
	}

	ctx := linker.NewContext()
	file := linker.MustNewFile(os.Args[1])
	objFile := linker.NewObjectFile(file, false)
	objFile.Parse(ctx)

	for i, sym := range objFile.SymTable {
		kind := "local"
		if int64(i) >= objFile.FirstGlobal {
			kind = "global"
		}
		fmt.Printf("%s\t%s\n", kind, linker.GetNameFromTable(objFile.SymStrTable, sym.Name))
	}
}
