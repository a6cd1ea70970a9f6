package mappers

import (
	"nesemu/hw/hwdefs"
	"nesemu/ines"
)

var MMC1 = MapperDesc{
	Name: "MMC1",
	New:  func(b *base) Mapper { return &mmc1{base: b} },
}

// mmc1 registers are written one bit at a time, through a 5-bit serial
// shift register.
type mmc1 struct {
	*base

	serial  shiftReg // shift register
	counter uint8    // count of bits shifted

	// CTRL reg bits
	chrmode uint8
	prgmode uint8
	ntm     uint8

	chrbank0 uint8
	chrbank1 uint8

	// PRG reg bits
	disableWRAM bool
	prgbank     uint8
}

type shiftReg uint8

func (sr shiftReg) push(val uint8) shiftReg {
	sr >>= 1
	sr |= shiftReg((val << 4) & 0x10)
	return sr
}

func (m *mmc1) Load(rom *ines.Rom) error {
	if err := m.load(rom, m.WritePRGROM); err != nil {
		return err
	}
	m.Reset()
	return nil
}

// Reset puts the board in its power-up state: bits 2,3 of $8000 are set so
// that $8000 is bank 0, and $C000 is the last bank.
func (m *mmc1) Reset() {
	m.serial = 0
	m.counter = 0
	m.writeREG(0x8000, 0x0C)
	m.writeREG(0xA000, 0)
	m.writeREG(0xC000, 0)
	m.writeREG(0xE000, 0)
	m.remap()
}

func (m *mmc1) WritePRGROM(addr uint16, val uint8) {
	if val&0x80 != 0 {
		// if the reset bit is set.
		//	- ignore databit
		//	- reset shift register (so that the next write is the "first" write)
		//	- bits 2,3 of control reg are set (16k PRG mode, $8000 swappable)
		//	- other bits of $8000 (and other regs) are unchanged
		m.serial = 0
		m.counter = 0
		m.prgmode = 0b11
		m.remap()
		return
	}

	m.serial = m.serial.push(val)
	m.counter++
	if m.counter == 5 {
		m.writeREG(addr, uint8(m.serial))
		m.remap()
		m.serial = 0
		m.counter = 0
	}
}

func (m *mmc1) writeREG(addr uint16, val uint8) {
	switch (addr & 0x6000) >> 13 {
	case 0:
		m.writeCTRL(val)
	case 1:
		modMapper.DebugZ("Write CHR0 reg").String("mapper", m.desc.Name).Uint8("val", val).End()
		m.chrbank0 = val & 0b11111
	case 2:
		modMapper.DebugZ("Write CHR1 reg").String("mapper", m.desc.Name).Uint8("val", val).End()
		m.chrbank1 = val & 0b11111
	case 3:
		m.writePRG(val)
	}
}

func (m *mmc1) writeCTRL(val uint8) {
	m.chrmode = (val & 0x10) >> 4
	m.prgmode = (val & 0x0C) >> 2
	m.ntm = val & 0x03

	modMapper.DebugZ("Write CTRL reg").String("mapper", m.desc.Name).
		Uint8("val", val).
		Uint8("prgmode", m.prgmode).
		Uint8("chrmode", m.chrmode).
		End()
}

func (m *mmc1) writePRG(val uint8) {
	modMapper.DebugZ("Write PRG reg").String("mapper", m.desc.Name).Uint8("val", val).End()

	// $E000-FFFF:  [...W PPPP]
	// W = WRAM Disable (0=enabled, 1=disabled)
	// P = PRG Reg
	m.disableWRAM = u8tob(val & 0b1_0000)
	m.prgbank = val & 0b1111
}

var mmc1Mirroring = [4]hwdefs.Mirroring{
	hwdefs.OnlyAScreen,
	hwdefs.OnlyBScreen,
	hwdefs.VertMirroring,
	hwdefs.HorzMirroring,
}

func (m *mmc1) remap() {
	switch m.prgmode {
	case 0, 1:
		// ignore low bit of bank number
		m.selectPRGPage32KB(int(m.prgbank&0xE) >> 1)
	case 2:
		m.selectPRGPage16KB(0, 0)
		m.selectPRGPage16KB(1, int(m.prgbank))
	case 3:
		m.selectPRGPage16KB(0, int(m.prgbank))
		m.selectPRGPage16KB(1, -1)
	}

	switch m.chrmode {
	case 0:
		m.selectCHRPage8KB(int(m.chrbank0&0x1E) >> 1)
	case 1:
		m.selectCHRPage4KB(0, int(m.chrbank0))
		m.selectCHRPage4KB(1, int(m.chrbank1))
	}

	m.setMirroring(mmc1Mirroring[m.ntm])
	m.prgRAMEnabled = !m.disableWRAM
}

func (m *mmc1) SaveState() []byte {
	ctrl := m.chrmode<<4 | m.prgmode<<2 | m.ntm
	prg := m.prgbank | btou8(m.disableWRAM)<<4
	return []byte{uint8(m.serial), m.counter, ctrl, m.chrbank0, m.chrbank1, prg}
}

func (m *mmc1) LoadState(buf []byte) error {
	if err := checkState(buf, 6); err != nil {
		return err
	}
	if buf[1] >= 5 {
		return ErrBadState
	}
	m.serial = shiftReg(buf[0] & 0x1F)
	m.counter = buf[1]
	m.writeCTRL(buf[2])
	m.chrbank0 = buf[3] & 0x1F
	m.chrbank1 = buf[4] & 0x1F
	m.writePRG(buf[5])
	m.remap()
	return nil
}
