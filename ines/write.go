package ines

import (
	"bytes"
	"io"

	"nesemu/hw/hwdefs"
)

// New builds an iNES 1.0 rom. prg length must be a multiple of 16KB and chr
// length a multiple of 8KB (chr is empty for CHR RAM).
func New(mapper uint8, mirroring hwdefs.Mirroring, prg, chr []byte) *Rom {
	rom := &Rom{PRG: prg, CHR: chr}
	copy(rom.raw[:], Magic)
	rom.raw[4] = uint8(len(prg) / prgUnit)
	rom.raw[5] = uint8(len(chr) / chrUnit)
	rom.raw[6] = mapper << 4
	rom.raw[7] = mapper & 0xF0
	switch mirroring {
	case hwdefs.VertMirroring:
		rom.raw[6] |= 0x01
	case hwdefs.FourScreen:
		rom.raw[6] |= 0x08
	}
	rom.prgsz = len(prg)
	rom.chrsz = len(chr)
	return rom
}

// SetBattery sets the battery-backed memory flag.
func (rom *Rom) SetBattery(battery bool) {
	if battery {
		rom.raw[6] |= 0x02
	} else {
		rom.raw[6] &^= 0x02
	}
}

// WriteTo implements io.WriterTo, writing the rom in iNES format.
func (rom *Rom) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	buf.Write(rom.raw[:])
	if rom.HasTrainer() {
		buf.Write(rom.Trainer)
	}
	buf.Write(rom.PRG)
	buf.Write(rom.CHR)
	return buf.WriteTo(w)
}
