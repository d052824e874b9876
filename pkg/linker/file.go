package linker

import (
	"os"

	"github.com/daniel-levin/wild/pkg/utils"
)

// File is a named byte blob: a top-level input on the command line, or a
// member extracted from a parent archive. Parent tracks archive
// provenance so diagnostics can report "foo.o (from libbar.a)".
type File struct {
	Name     string
	Contents []byte
	Parent   *File
}

// MustNewFile reads path into memory, aborting the process on any I/O
// failure (a missing or unreadable input file is a fatal, non-recoverable
// condition for the linker, not an item error the scheduler can route
// around).
func MustNewFile(path string) *File {
	contents, err := os.ReadFile(path)
	utils.MustNo(err)
	return &File{Name: path, Contents: contents}
}
