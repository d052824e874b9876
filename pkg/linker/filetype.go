package linker

import "bytes"

// FileType distinguishes the handful of input shapes the linker accepts.
type FileType int

const (
	FileTypeUnknown FileType = iota
	FileTypeObject
	FileTypeArchive
)

var elfMagic = []byte{0x7f, 'E', 'L', 'F'}
var arMagic = []byte("!<arch>\n")

// CheckMagic reports whether contents opens with the ELF magic number.
func CheckMagic(contents []byte) bool {
	return bytes.HasPrefix(contents, elfMagic)
}

// WriteMagic writes the ELF magic number into the front of dst.
func WriteMagic(dst []byte) {
	copy(dst, elfMagic)
}

// GetFileType classifies contents as a relocatable object, a Unix archive,
// or unknown.
func GetFileType(contents []byte) FileType {
	if CheckMagic(contents) {
		return FileTypeObject
	}
	if bytes.HasPrefix(contents, arMagic) {
		return FileTypeArchive
	}
	return FileTypeUnknown
}
