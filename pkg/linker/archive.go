package linker

import (
	"strconv"
	"strings"
	"unsafe"

	"github.com/daniel-levin/wild/pkg/utils"
)

// ArHeader is the 60-byte Unix ar(1) member header preceding every
// archive member's bytes.
type ArHeader struct {
	Name  [16]byte
	Mtime [12]byte
	Uid   [6]byte
	Gid   [6]byte
	Mode  [8]byte
	Size  [10]byte
	Fmag  [2]byte
}

const ArHeaderSize = unsafe.Sizeof(ArHeader{})

// GetSize parses the ASCII, space-padded member size field.
func (h *ArHeader) GetSize() int {
	s := strings.TrimSpace(string(h.Size[:]))
	n, err := strconv.Atoi(s)
	utils.MustNo(err)
	return n
}

// IsSymtab reports whether this member is the archive symbol table ("/").
func (h *ArHeader) IsSymtab() bool {
	return h.Name[0] == '/' && h.Name[1] == ' '
}

// IsStrtab reports whether this member is the GNU long-name string table
// ("//").
func (h *ArHeader) IsStrtab() bool {
	return h.Name[0] == '/' && h.Name[1] == '/'
}

// ReadName resolves a member's name, following the GNU extension that
// stores names longer than 16 bytes as an offset into strTab when Name
// starts with "/".
func (h *ArHeader) ReadName(strTab []byte) string {
	name := string(h.Name[:])
	if strings.HasPrefix(name, "/") {
		offset, err := strconv.Atoi(strings.TrimSpace(name[1:]))
		utils.MustNo(err)
		end := offset
		for end < len(strTab) && strTab[end] != '/' && strTab[end] != '\n' {
			end++
		}
		return string(strTab[offset:end])
	}
	return strings.TrimRight(name, " /")
}

// ReadArchiveMembers splits a Unix ar(1) archive into its constituent
// object-file members, skipping the symbol-table and long-name members.
func ReadArchiveMembers(file *File) []*File {
	utils.Assert(GetFileType(file.Contents) == FileTypeArchive)

	// skip 8 bytes "!<arch>\n"
	pos := 8

	var strTab []byte
	var files []*File
	// Length of section which cannot divided by 2 will fill "\n" to align 2 bytes
	for len(file.Contents)-pos > 1 {
		if pos%2 == 1 {
			pos++
		}

		hdr := utils.Read[ArHeader](file.Contents[pos:])
		dataStart := pos + int(ArHeaderSize)
		pos = dataStart + hdr.GetSize()
		dataEnd := pos
		contents := file.Contents[dataStart:dataEnd]

		if hdr.IsSymtab() {
			continue
		} else if hdr.IsStrtab() {
			strTab = contents
			continue
		}

		files = append(files, &File{
			Name:     hdr.ReadName(strTab),
			Contents: contents,
			Parent:   file,
		})
	}

	return files
}
