package linker

import (
	"debug/elf"
	"fmt"

	"github.com/daniel-levin/wild/pkg/utils"
)

type MachineType = uint8

const (
	MachineTypeNone    MachineType = iota
	MachineTypeRISCV64 MachineType = iota
)

// ParseMachineType resolves the CLI's --emulation flag (or wild.yaml's
// equivalent) to a MachineType, the same name GetMachineTypeFromContext
// recovers by sniffing an input object's e_machine field — the two
// together are what let CreateObjectFile reject a --emulation riscv64 run fed an
// object built for a machine the wire data itself disagrees with.
func ParseMachineType(s string) (MachineType, error) {
	switch s {
	case "riscv64", "":
		return MachineTypeRISCV64, nil
	default:
		return MachineTypeNone, fmt.Errorf("linker: unsupported emulation %q", s)
	}
}

func GetMachineTypeFromContext(contents []byte) MachineType {
	ft := GetFileType(contents)

	switch ft {
	case FileTypeObject:
		machine := elf.Machine(utils.Read[uint16](contents[18:]))
		if machine == elf.EM_RISCV {
			class := elf.Class(contents[4])
			switch class {
			case elf.ELFCLASS64:
				return MachineTypeRISCV64
			}
		}
	}

	return MachineTypeNone
}

type MachineTypeStringer struct {
	MachineType
}

func (m MachineTypeStringer) String() string {
	switch m.MachineType {
	case MachineTypeRISCV64:
		return "riscv64"
	}

	utils.Assert(m.MachineType == MachineTypeNone)
	return ""
}
