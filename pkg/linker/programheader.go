package linker

import "unsafe"

// ProgramHeader mirrors the wire layout of an ELF64 program header entry.
type ProgramHeader struct {
	Type     uint32
	Flags    uint32
	Offset   uint64
	VAddr    uint64
	PAddr    uint64
	FileSize uint64
	MemSize  uint64
	Align    uint64
}

const ProgramHeaderSize = unsafe.Sizeof(ProgramHeader{})

// PageSize is the alignment granularity PT_LOAD segments are placed on.
const PageSize = 0x1000

// EF_RISCV_RVC marks a RISC-V object as using the compressed instruction
// extension; carried forward into the output ELF header's e_flags if any
// input object sets it.
const EF_RISCV_RVC = 0x1
