package mappers

import "nesemu/ines"

var CNROM = MapperDesc{
	Name: "CNROM",
	New:  func(b *base) Mapper { return &cnrom{base: b} },
}

type cnrom struct {
	*base

	chrbank      uint8
	busConflicts bool
}

func (m *cnrom) Load(rom *ines.Rom) error {
	if err := m.load(rom, m.WritePRGROM); err != nil {
		return err
	}
	m.busConflicts = rom.SubMapper() == 2
	m.selectPRGPage32KB(0)
	m.Reset()
	return nil
}

func (m *cnrom) Reset() {
	m.chrbank = 0
	m.selectCHRPage8KB(0)
}

func (m *cnrom) WritePRGROM(addr uint16, val uint8) {
	if m.busConflicts {
		val &= m.peek8(addr)
	}

	// 7  bit  0
	// ---- ----
	// cccc ccCC
	// |||| ||||
	// ++++-++++- Select 8 KB CHR ROM bank for PPU $0000-$1FFF
	prev := m.chrbank
	m.chrbank = val
	if prev != m.chrbank {
		m.selectCHRPage8KB(int(m.chrbank))
		modMapper.DebugZ("select CHR bank").String("mapper", m.desc.Name).Uint8("bank", m.chrbank).End()
	}
}

func (m *cnrom) SaveState() []byte {
	return []byte{m.chrbank}
}

func (m *cnrom) LoadState(buf []byte) error {
	if err := checkState(buf, 1); err != nil {
		return err
	}
	m.chrbank = buf[0]
	m.selectCHRPage8KB(int(m.chrbank))
	return nil
}
