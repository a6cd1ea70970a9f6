package mappers

import (
	"errors"
	"fmt"

	"nesemu/hw/hwdefs"
	"nesemu/ines"
)

const (
	prgBank8K  = 0x2000
	prgBank16K = 0x4000
	prgBank32K = 0x8000
	chrBank4K  = 0x1000
	chrBank8K  = 0x2000
)

// base implements the parts of the CPU memory map common to all boards:
//
//	$0000-$07FF  2KB internal RAM, mirrored up to $1FFF
//	$2000-$2007  PPU registers, mirrored up to $3FFF
//	$4000-$4017  APU and I/O registers
//	$4018-$5FFF  expansion area
//	$6000-$7FFF  PRG RAM
//	$8000-$FFFF  PRG ROM
type base struct {
	Hardware
	desc MapperDesc
	rom  *ines.Rom

	prgRAMEnabled bool

	// board specific write to $8000-$FFFF
	writeROM func(addr uint16, val uint8)
}

func newbase(desc MapperDesc, hw Hardware) *base {
	return &base{Hardware: hw, desc: desc, prgRAMEnabled: true}
}

func ispow2(n int) bool {
	return n&(n-1) == 0
}

func (b *base) Name() string { return b.desc.Name }

// load performs the common part of the rom loading. Banks are mapped by the
// board.
func (b *base) load(rom *ines.Rom, writeROM func(addr uint16, val uint8)) error {
	if len(rom.PRG) == 0 {
		return errors.New("rom has no PRG ROM")
	}
	if !ispow2(len(rom.PRG)) {
		return fmt.Errorf("only support PRG ROM with power of 2 size, got %d", len(rom.PRG))
	}
	if len(rom.CHR) != 0 && len(rom.CHR)%chrBank4K != 0 {
		return fmt.Errorf("invalid CHR ROM size %d", len(rom.CHR))
	}

	b.rom = rom
	b.writeROM = writeROM
	b.PPU.SetCHRWritable(rom.HasCHRRAM())
	b.setMirroring(rom.Mirroring())
	if len(rom.Trainer) > 0 {
		b.CPUMem.WriteSlice(0x7000, rom.Trainer)
	}

	modMapper.InfoZ("loaded rom").
		String("mapper", b.desc.Name).
		Int("prg", len(rom.PRG)).
		Int("chr", len(rom.CHR)).
		Stringer("mirroring", rom.Mirroring()).
		End()
	return nil
}

// Reset is the default reset for boards without registers.
func (b *base) Reset() {}

// SaveState and LoadState are the default for boards without registers.
func (b *base) SaveState() []byte { return []byte{} }

func (b *base) LoadState(buf []byte) error {
	return checkState(buf, 0)
}

func checkState(buf []byte, size int) error {
	if len(buf) != size {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrBadState, len(buf), size)
	}
	return nil
}

func (b *base) Read8(addr uint16) uint8 {
	switch {
	case addr < 0x2000:
		return b.CPUMem.Data[addr&0x07FF]
	case addr < 0x4020:
		return b.IO.Read8(addr)
	case addr < 0x6000:
		// Open bus, most likely the high byte of the address.
		return uint8(addr >> 8)
	case addr < 0x8000 && !b.prgRAMEnabled:
		return uint8(addr >> 8)
	}
	return b.CPUMem.Data[addr]
}

func (b *base) Write8(addr uint16, val uint8) {
	switch {
	case addr < 0x2000:
		b.CPUMem.Data[addr&0x07FF] = val
	case addr < 0x4020:
		b.IO.Write8(addr, val)
	case addr < 0x6000:
		modMapper.DebugZ("write to expansion area").Hex16("addr", addr).Hex8("val", val).End()
	case addr < 0x8000:
		if b.prgRAMEnabled {
			b.CPUMem.Data[addr] = val
		}
	default:
		if b.writeROM != nil {
			b.writeROM(addr, val)
		}
	}
}

// peek8 reads PRG ROM, for bus conflicts emulation.
func (b *base) peek8(addr uint16) uint8 {
	return b.CPUMem.Data[addr]
}

func (b *base) setMirroring(m hwdefs.Mirroring) {
	b.PPU.SetMirroring(m)
}

// bankOffset returns the offset in data of the bank of the given size,
// negative banks counting from the end, and wrapping around the data size.
func bankOffset(data []byte, size, bank int) int {
	nbanks := len(data) / size
	if nbanks == 0 {
		return 0
	}
	if bank < 0 {
		bank += nbanks
	}
	bank %= nbanks
	if bank < 0 {
		bank += nbanks
	}
	return bank * size
}

// selectPRGPage copies a PRG ROM bank of the given size at CPU address dst.
func (b *base) selectPRGPage(dst uint16, size, bank int) {
	if len(b.rom.PRG) < size {
		// Smaller than the bank (e.g. 16KB NROM in 32KB mode): mirror it.
		for off := 0; off < size; off += len(b.rom.PRG) {
			b.CPUMem.WriteSlice(int(dst)+off, b.rom.PRG)
		}
		return
	}
	off := bankOffset(b.rom.PRG, size, bank)
	b.CPUMem.WriteSlice(int(dst), b.rom.PRG[off:off+size])
}

func (b *base) selectPRGPage16KB(slot, bank int) {
	b.selectPRGPage(0x8000+uint16(slot)*prgBank16K, prgBank16K, bank)
}

func (b *base) selectPRGPage32KB(bank int) {
	b.selectPRGPage(0x8000, prgBank32K, bank)
}

// selectCHRPage copies a CHR ROM bank of the given size into the pattern
// tables. Boards with CHR RAM have no bank to switch.
func (b *base) selectCHRPage(dst uint16, size, bank int) {
	if len(b.rom.CHR) == 0 {
		return
	}
	off := bankOffset(b.rom.CHR, size, bank)
	b.PPUMem.WriteSlice(int(dst), b.rom.CHR[off:off+size])
}

func (b *base) selectCHRPage8KB(bank int) {
	b.selectCHRPage(0x0000, chrBank8K, bank)
}

func (b *base) selectCHRPage4KB(slot, bank int) {
	b.selectCHRPage(uint16(slot)*chrBank4K, chrBank4K, bank)
}

func u8tob(v uint8) bool { return v != 0 }

func btou8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
