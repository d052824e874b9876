package linker

import (
	"debug/elf"
	"fmt"
	"os"
	"sort"

	"github.com/daniel-levin/wild/pkg/scheduler"
	"go.uber.org/zap"
)

// baseLoadAddress is the virtual address the first PT_LOAD segment is
// placed at, the conventional default for a static RISC-V executable.
const baseLoadAddress = 0x400000

// Link runs the pipeline after input reading: partition objects into
// groups, drive the scheduler pool to quiescence, and assemble the
// output file. The caller is expected to have already populated
// ctx.Objs / ctx.PendingArchiveMembers via ReadInputFiles.
func Link(ctx *Context, logger *zap.SugaredLogger) error {
	if len(ctx.Objs) == 0 {
		return fmt.Errorf("linker: no input objects")
	}

	numJobs := ctx.Args.NumJobs
	if numJobs < 1 {
		numJobs = 1
	}

	ctx.Groups = PartitionGroups(ctx, numJobs)
	ctx.Shared = scheduler.NewSharedResources(len(ctx.Groups), numJobs, logger, scheduler.Collaborators{
		SymbolDB: ctx,
	})

	pool := scheduler.NewPool(numJobs, ctx.Groups, Process, ctx.Shared)
	if errs := pool.Run(); errs != nil {
		return errs
	}

	return assembleOutput(ctx)
}

// assembleOutput builds the output ELF from the union of every group's
// accumulator. Layout is a small fixed-point iteration: the
// program header's own size depends on the segment list CreatePhdr
// derives from section addresses, and those addresses depend on how much
// space the program header reserves up front.
func assembleOutput(ctx *Context) error {
	ctx.Ehdr = NewOutputEhdr()
	ctx.Shdr = NewOutputShdr()
	ctx.Phdr = NewOutputPhdr()

	for _, g := range ctx.Groups {
		acc, ok := g.Accumulator.(*Accumulator)
		if !ok {
			continue
		}
		for _, isec := range acc.LiveSections {
			osec := GetOutputSection(ctx, isec)
			osec.Sections = append(osec.Sections, isec)
		}
	}

	sort.Slice(ctx.OutputSections, func(i, j int) bool {
		return ctx.OutputSections[i].Name < ctx.OutputSections[j].Name
	})
	sort.Slice(ctx.MergedSections, func(i, j int) bool {
		return ctx.MergedSections[i].Name < ctx.MergedSections[j].Name
	})

	shndx := int64(1)
	for _, osec := range ctx.OutputSections {
		osec.Shndx = shndx
		shndx++
	}
	for _, msec := range ctx.MergedSections {
		msec.Shndx = shndx
		shndx++
	}

	ctx.Chunks = append(ctx.Chunks, ctx.Ehdr)
	for _, osec := range ctx.OutputSections {
		ctx.Chunks = append(ctx.Chunks, osec)
	}
	for _, msec := range ctx.MergedSections {
		ctx.Chunks = append(ctx.Chunks, msec)
	}
	ctx.Chunks = append(ctx.Chunks, ctx.Shdr, ctx.Phdr)

	var phdrs []ProgramHeader
	for iter := 0; iter < 8; iter++ {
		reserved := ctx.Phdr.Shdr.Size
		if reserved == 0 {
			reserved = uint64(ProgramHeaderSize) * 8
		}

		offset := uint64(ELFHeaderSize)
		addr := baseLoadAddress + offset

		ctx.Phdr.Shdr.Offset = offset
		ctx.Phdr.Shdr.Addr = addr
		offset += reserved
		addr += reserved

		for _, osec := range ctx.OutputSections {
			osec.UpdateShdr(ctx)
			align := osec.Shdr.Addralign
			if align == 0 {
				align = 1
			}
			offset = (offset + align - 1) &^ (align - 1)
			addr = (addr + align - 1) &^ (align - 1)
			osec.Shdr.Offset = offset
			osec.Shdr.Addr = addr
			if osec.Shdr.Type != uint32(elf.SHT_NOBITS) {
				offset += osec.Shdr.Size
			}
			addr += osec.Shdr.Size
		}

		for _, msec := range ctx.MergedSections {
			msec.UpdateShdr(ctx)
			align := msec.Shdr.Addralign
			if align == 0 {
				align = 1
			}
			offset = (offset + align - 1) &^ (align - 1)
			addr = (addr + align - 1) &^ (align - 1)
			msec.Shdr.Offset = offset
			msec.Shdr.Addr = addr
			offset += msec.Shdr.Size
			addr += msec.Shdr.Size
		}

		ctx.Shdr.UpdateShdr(ctx)
		offset = (offset + 7) &^ 7
		ctx.Shdr.Shdr.Offset = offset
		offset += ctx.Shdr.Shdr.Size

		phdrs = CreatePhdr(ctx)
		newSize := uint64(len(phdrs)) * uint64(ProgramHeaderSize)
		if newSize == ctx.Phdr.Shdr.Size {
			break
		}
		ctx.Phdr.Shdr.Size = newSize
	}
	ctx.Phdr.Phdrs = phdrs

	total := ctx.Shdr.Shdr.Offset + ctx.Shdr.Shdr.Size
	ctx.Buf = make([]byte, total)

	for _, chunk := range ctx.Chunks {
		chunk.CopyBuf(ctx)
	}

	return os.WriteFile(ctx.Args.Output, ctx.Buf, 0755)
}
