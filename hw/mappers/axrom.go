package mappers

import (
	"nesemu/hw/hwdefs"
	"nesemu/ines"
)

var AxROM = MapperDesc{
	Name: "AxROM",
	New:  func(b *base) Mapper { return &axrom{base: b} },
}

type axrom struct {
	*base

	reg          uint8
	busConflicts bool
}

func (m *axrom) Load(rom *ines.Rom) error {
	if err := m.load(rom, m.WritePRGROM); err != nil {
		return err
	}
	m.busConflicts = rom.SubMapper() == 2
	m.selectCHRPage8KB(0)
	m.Reset()
	return nil
}

func (m *axrom) Reset() {
	m.reg = 0
	m.remap()
}

func (m *axrom) WritePRGROM(addr uint16, val uint8) {
	if m.busConflicts {
		val &= m.peek8(addr)
	}

	// 7  bit  0
	// ---- ----
	// xxxM xPPP
	//    |  |||
	//    |  +++- Select 32 KB PRG ROM bank for CPU $8000-$FFFF
	//    +------ Select 1 KB VRAM page for all 4 nametables
	m.reg = val & 0x17
	m.remap()
}

func (m *axrom) remap() {
	m.selectPRGPage32KB(int(m.reg & 0x07))
	ntm := hwdefs.OnlyAScreen
	if m.reg&0x10 != 0 {
		ntm = hwdefs.OnlyBScreen
	}
	m.setMirroring(ntm)
}

func (m *axrom) SaveState() []byte {
	return []byte{m.reg}
}

func (m *axrom) LoadState(buf []byte) error {
	if err := checkState(buf, 1); err != nil {
		return err
	}
	m.reg = buf[0] & 0x17
	m.remap()
	return nil
}
