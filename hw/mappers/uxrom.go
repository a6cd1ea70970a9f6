package mappers

import "nesemu/ines"

var UxROM = MapperDesc{
	Name: "UxROM",
	New:  func(b *base) Mapper { return &uxrom{base: b} },
}

type uxrom struct {
	*base

	prgbank      uint8
	bankmask     uint8
	busConflicts bool
}

func (m *uxrom) Load(rom *ines.Rom) error {
	if err := m.load(rom, m.WritePRGROM); err != nil {
		return err
	}
	m.busConflicts = rom.SubMapper() == 2
	m.bankmask = uint8(len(rom.PRG)/prgBank16K) - 1
	m.Reset()
	return nil
}

func (m *uxrom) Reset() {
	m.prgbank = 0
	m.remap()
}

func (m *uxrom) remap() {
	m.selectCHRPage8KB(0)
	m.selectPRGPage16KB(0, int(m.prgbank))
	m.selectPRGPage16KB(1, -1)
}

func (m *uxrom) WritePRGROM(addr uint16, val uint8) {
	if m.busConflicts {
		val &= m.peek8(addr)
	}

	// 7  bit  0
	// ---- ----
	// xxxx pPPP
	//      ||||
	//      ++++- Select 16 KB PRG ROM bank for CPU $8000-$BFFF
	//            (UNROM uses bits 2-0; UOROM uses bits 3-0)
	prev := m.prgbank
	m.prgbank = val & m.bankmask
	if prev != m.prgbank {
		m.selectPRGPage16KB(0, int(m.prgbank))
		modMapper.DebugZ("select PRG bank").String("mapper", m.desc.Name).Uint8("bank", m.prgbank).End()
	}
}

func (m *uxrom) SaveState() []byte {
	return []byte{m.prgbank}
}

func (m *uxrom) LoadState(buf []byte) error {
	if err := checkState(buf, 1); err != nil {
		return err
	}
	m.prgbank = buf[0] & m.bankmask
	m.remap()
	return nil
}
