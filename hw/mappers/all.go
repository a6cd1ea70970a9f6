package mappers

import (
	"errors"
	"fmt"

	"nesemu/emu/log"
	"nesemu/hw/hwdefs"
	"nesemu/hw/hwio"
	"nesemu/ines"
)

var modMapper = log.NewModule("mapper")

var (
	ErrBadState    = errors.New("invalid mapper state")
	ErrUnsupported = errors.New("unsupported mapper")
)

// A Mapper implements the CPU memory map of a cartridge board, and switches
// PRG and CHR banks into the CPU and PPU memories.
type Mapper interface {
	Name() string

	Read8(addr uint16) uint8
	Write8(addr uint16, val uint8)

	// Load loads the banks of rom into memory, which must be called before
	// any other method.
	Load(rom *ines.Rom) error
	Reset()

	// SaveState returns the mapper registers. LoadState restores them, it
	// doesn't modify anything if buf is invalid.
	SaveState() []byte
	LoadState(buf []byte) error
}

// PPU is the PPU as seen from the cartridge.
type PPU interface {
	SetMirroring(m hwdefs.Mirroring)
	SetCHRWritable(w bool)
}

// Hardware holds the components a mapper is connected to.
type Hardware struct {
	CPUMem *hwio.Mem // 64KB
	PPUMem *hwio.Mem
	PPU    PPU

	// IO holds the PPU, APU and joypad registers, $2000-$401F.
	IO *hwio.Table
}

type MapperDesc struct {
	Name string
	New  func(*base) Mapper
}

var All = map[uint16]MapperDesc{
	0:  NROM,
	1:  MMC1,
	2:  UxROM,
	3:  CNROM,
	7:  AxROM,
	66: GxROM,
}

// IsSupported reports whether a mapper number is implemented.
func IsSupported(num uint16) bool {
	_, ok := All[num]
	return ok
}

// New creates the mapper for rom, wired to hw, and loads the rom.
func New(rom *ines.Rom, hw Hardware) (Mapper, error) {
	desc, ok := All[rom.Mapper()]
	if !ok {
		return nil, fmt.Errorf("%w %d", ErrUnsupported, rom.Mapper())
	}
	m := desc.New(newbase(desc, hw))
	if err := m.Load(rom); err != nil {
		return nil, fmt.Errorf("failed to load mapper %s: %w", desc.Name, err)
	}
	return m, nil
}
