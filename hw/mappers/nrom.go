package mappers

import "nesemu/ines"

var NROM = MapperDesc{
	Name: "NROM",
	New:  func(b *base) Mapper { return &nrom{base: b} },
}

// nrom has no bank switching. 16KB PRG ROMs are mirrored at $C000.
type nrom struct {
	*base
}

func (m *nrom) Load(rom *ines.Rom) error {
	if err := m.load(rom, nil); err != nil {
		return err
	}
	m.selectPRGPage32KB(0)
	m.selectCHRPage8KB(0)
	return nil
}
