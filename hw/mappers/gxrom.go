package mappers

import "nesemu/ines"

var GxROM = MapperDesc{
	Name: "GxROM",
	New:  func(b *base) Mapper { return &gxrom{base: b} },
}

type gxrom struct {
	*base

	prgbank uint8
	chrbank uint8
}

func (m *gxrom) Load(rom *ines.Rom) error {
	if err := m.load(rom, m.WritePRGROM); err != nil {
		return err
	}
	m.Reset()
	return nil
}

func (m *gxrom) Reset() {
	m.prgbank, m.chrbank = 0, 0
	m.remap()
}

func (m *gxrom) WritePRGROM(addr uint16, val uint8) {
	// GxROM always has bus conflicts.
	val &= m.peek8(addr)

	// 7  bit  0
	// ---- ----
	// xxPP xxCC
	//   ||   ||
	//   ||   ++- Select 8 KB CHR ROM bank for PPU $0000-$1FFF
	//   ++------ Select 32 KB PRG ROM bank for CPU $8000-$FFFF
	m.prgbank = (val >> 4) & 0x03
	m.chrbank = val & 0x03
	m.remap()
}

func (m *gxrom) remap() {
	m.selectPRGPage32KB(int(m.prgbank))
	m.selectCHRPage8KB(int(m.chrbank))
}

func (m *gxrom) SaveState() []byte {
	return []byte{m.prgbank, m.chrbank}
}

func (m *gxrom) LoadState(buf []byte) error {
	if err := checkState(buf, 2); err != nil {
		return err
	}
	m.prgbank = buf[0] & 0x03
	m.chrbank = buf[1] & 0x03
	m.remap()
	return nil
}
