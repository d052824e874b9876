package linker

import "debug/elf"

// OutputSection collects every live InputSection assigned to it by
// GetOutputSection's name/flags/type policy, across every group's
// accumulator.
type OutputSection struct {
	Chunk

	Sections []*InputSection
}

func NewOutputSection(name string, typ, flags uint32) *OutputSection {
	o := &OutputSection{}
	o.Name = name
	o.Shdr.Addralign = 1
	o.Shdr.Type = typ
	o.Shdr.Flags = uint64(flags)
	return o
}

func (o *OutputSection) UpdateShdr(ctx *Context) {
	size := uint64(0)
	for _, isec := range o.Sections {
		align := isec.Shdr().Addralign
		if align == 0 {
			align = 1
		}
		size = (size + align - 1) &^ (align - 1)
		size += isec.Shdr().Size
	}
	o.Shdr.Size = size
}

func (o *OutputSection) CopyBuf(ctx *Context) {
	if o.Shdr.Type == uint32(elf.SHT_NOBITS) {
		return
	}
	base := ctx.Buf[o.Shdr.Offset:]
	offset := uint64(0)
	for _, isec := range o.Sections {
		align := isec.Shdr().Addralign
		if align == 0 {
			align = 1
		}
		offset = (offset + align - 1) &^ (align - 1)
		copy(base[offset:], isec.Contents)
		offset += isec.Shdr().Size
	}
}

// outputSectionKey names the output section an input section's
// name/flags/type combination belongs in, collapsing the usual
// .text.foo / .data.bar / .rodata.baz naming convention down to the
// canonical .text / .data / .rodata bucket, same as every compiler's
// default linker script does.
func outputSectionKey(name string, flags uint64, typ uint32) (string, uint32, uint32) {
	strip := func(prefixes ...string) {
		for _, p := range prefixes {
			if len(name) >= len(p) && name[:len(p)] == p && (len(name) == len(p) || name[len(p)] == '.') {
				name = p
				return
			}
		}
	}

	switch {
	case typ == uint32(elf.SHT_NOBITS):
		strip(".bss", ".tbss")
	case flags&uint64(elf.SHF_EXECINSTR) != 0:
		strip(".text")
	case flags&uint64(elf.SHF_TLS) != 0:
		strip(".tdata", ".tbss")
	case flags&uint64(elf.SHF_WRITE) != 0:
		strip(".data", ".data.rel.ro")
	default:
		strip(".rodata")
	}

	return name, typ, uint32(flags)
}

// GetOutputSection returns the OutputSection isec's name, type, and flags
// dictate, creating it on first use; the caller appends isec to it.
// Mergeable sections (SHF_MERGE) resolve through ctx.MergedSections
// instead, so the caller is expected to check that first and only fall
// back to this for non-mergeable sections.
func GetOutputSection(ctx *Context, isec *InputSection) *OutputSection {
	shdr := isec.Shdr()
	name, typ, flags := outputSectionKey(isec.Name(), shdr.Flags, uint32(shdr.Type))

	for _, osec := range ctx.OutputSections {
		if osec.Name == name && osec.Shdr.Type == typ && osec.Shdr.Flags == uint64(flags) {
			return osec
		}
	}

	osec := NewOutputSection(name, typ, flags)
	ctx.OutputSections = append(ctx.OutputSections, osec)
	return osec
}
