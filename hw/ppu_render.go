package hw

// Rendering happens on visible lines and on the pre-render line. On each of
// them, the PPU fetches the data of 2 tiles ahead, one byte every 2 dots:
//
//	dot 1: nametable byte
//	dot 3: attribute byte
//	dot 5: pattern low byte
//	dot 7: pattern high byte
//	dot 8: store the tile row into the shift register
type bgState struct {
	ntByte   uint8
	attrByte uint8
	lowByte  uint8
	highByte uint8
	tileData uint64 // 2 tiles of 8 4-bit pixels
}

const maxSpritesPerLine = 8

type spriteState struct {
	count      int
	patterns   [maxSpritesPerLine]uint32 // 8 4-bit pixels
	positions  [maxSpritesPerLine]uint8
	priorities [maxSpritesPerLine]uint8
	indexes    [maxSpritesPerLine]uint8
}

func (p *PPU) renderDot(visibleLine bool) {
	visibleCycle := p.Cycle >= 1 && p.Cycle <= 256
	fetchCycle := visibleCycle || (p.Cycle >= 321 && p.Cycle <= 336)

	if visibleLine && visibleCycle {
		p.renderPixel()
	}

	if fetchCycle {
		p.bg.tileData <<= 4
		switch p.Cycle % 8 {
		case 1:
			p.fetchNameTableByte()
		case 3:
			p.fetchAttributeByte()
		case 5:
			p.bg.lowByte = p.Read8(p.bgPatternAddr())
		case 7:
			p.bg.highByte = p.Read8(p.bgPatternAddr() + 8)
		case 0:
			p.storeTileData()
			p.incrementX()
		}
	}

	switch {
	case p.Cycle == 256:
		p.incrementY()
	case p.Cycle == 257:
		p.copyX()
		if visibleLine {
			p.evaluateSprites()
		} else {
			p.sprites.count = 0
		}
	case !visibleLine && p.Cycle >= 280 && p.Cycle <= 304:
		p.copyY()
	}
}

func (p *PPU) renderPixel() {
	x := p.Cycle - 1
	y := p.Scanline

	bg := p.backgroundPixel()
	i, spr := p.spritePixel()

	if x < 8 && p.PPUMASK.Value&(1<<leftmostBg) == 0 {
		bg = 0
	}
	if x < 8 && p.PPUMASK.Value&(1<<leftmostSprites) == 0 {
		spr = 0
	}

	bgOpaque := bg%4 != 0
	sprOpaque := spr%4 != 0

	var color uint8
	switch {
	case !bgOpaque && !sprOpaque:
		color = 0
	case !bgOpaque:
		color = spr | 0x10
	case !sprOpaque:
		color = bg
	default:
		if p.sprites.indexes[i] == 0 && x < 255 {
			p.PPUSTATUS.Value |= 1 << sprite0Hit
		}
		if p.sprites.priorities[i] == 0 {
			color = spr | 0x10
		} else {
			color = bg
		}
	}

	idx := p.Read8(0x3F00 + uint16(color))
	if p.PPUMASK.Value&(1<<greyscale) != 0 {
		idx &= 0x30
	}
	off := p.back.PixOffset(x, y)
	c := ntscPalette[idx&0x3F]
	p.back.Pix[off+0] = c.R
	p.back.Pix[off+1] = c.G
	p.back.Pix[off+2] = c.B
	p.back.Pix[off+3] = c.A
}

func (p *PPU) backgroundPixel() uint8 {
	if p.PPUMASK.Value&(1<<showBg) == 0 {
		return 0
	}
	data := uint32(p.bg.tileData>>32) >> ((7 - p.finex) * 4)
	return uint8(data & 0x0F)
}

// spritePixel returns the index of the first opaque sprite at the current
// dot, and its color.
func (p *PPU) spritePixel() (int, uint8) {
	if p.PPUMASK.Value&(1<<showSprites) == 0 {
		return 0, 0
	}
	for i := range p.sprites.count {
		offset := p.Cycle - 1 - int(p.sprites.positions[i])
		if offset < 0 || offset > 7 {
			continue
		}
		color := uint8(p.sprites.patterns[i]>>((7-offset)*4)) & 0x0F
		if color%4 == 0 {
			continue
		}
		return i, color
	}
	return 0, 0
}

func (p *PPU) spriteHeight() int {
	if p.PPUCTRL.Value&(1<<spriteSize) != 0 {
		return 16
	}
	return 8
}

func (p *PPU) evaluateSprites() {
	h := p.spriteHeight()
	oam := p.SprMem.Data

	count := 0
	for i := range 64 {
		y := oam[i*4+0]
		attr := oam[i*4+2]
		x := oam[i*4+3]
		row := p.Scanline - int(y)
		if row < 0 || row >= h {
			continue
		}
		if count < maxSpritesPerLine {
			p.sprites.patterns[count] = p.fetchSpritePattern(i, row)
			p.sprites.positions[count] = x
			p.sprites.priorities[count] = (attr >> 5) & 1
			p.sprites.indexes[count] = uint8(i)
		}
		count++
	}
	if count > maxSpritesPerLine {
		count = maxSpritesPerLine
		p.PPUSTATUS.Value |= 1 << spriteOverflow
	}
	p.sprites.count = count
}

func (p *PPU) fetchSpritePattern(i, row int) uint32 {
	tile := uint16(p.SprMem.Data[i*4+1])
	attr := p.SprMem.Data[i*4+2]

	var addr uint16
	if p.spriteHeight() == 8 {
		if attr&0x80 != 0 {
			row = 7 - row
		}
		table := uint16(p.PPUCTRL.Value>>spriteAddr) & 1
		addr = 0x1000*table + tile*16 + uint16(row)
	} else {
		if attr&0x80 != 0 {
			row = 15 - row
		}
		table := tile & 1
		tile &= 0xFE
		if row > 7 {
			tile++
			row -= 8
		}
		addr = 0x1000*table + tile*16 + uint16(row)
	}

	lo := p.Read8(addr)
	hi := p.Read8(addr + 8)
	pal := (attr & 3) << 2

	var data uint32
	for range 8 {
		var p1, p2 uint8
		if attr&0x40 != 0 { // horizontal flip
			p1 = lo & 1
			p2 = (hi & 1) << 1
			lo >>= 1
			hi >>= 1
		} else {
			p1 = (lo & 0x80) >> 7
			p2 = (hi & 0x80) >> 6
			lo <<= 1
			hi <<= 1
		}
		data <<= 4
		data |= uint32(pal | p1 | p2)
	}
	return data
}

func (p *PPU) fetchNameTableByte() {
	p.bg.ntByte = p.Read8(0x2000 | p.vramAddr.val()&0x0FFF)
}

func (p *PPU) fetchAttributeByte() {
	v := p.vramAddr.val()
	addr := 0x23C0 | v&0x0C00 | (v>>4)&0x38 | (v>>2)&0x07
	shift := (v>>4)&4 | v&2
	p.bg.attrByte = ((p.Read8(addr) >> shift) & 3) << 2
}

func (p *PPU) bgPatternAddr() uint16 {
	table := uint16(p.PPUCTRL.Value>>backgroundAddr) & 1
	return 0x1000*table + uint16(p.bg.ntByte)*16 + uint16(p.vramAddr.finey())
}

func (p *PPU) storeTileData() {
	var data uint32
	for range 8 {
		p1 := (p.bg.lowByte & 0x80) >> 7
		p2 := (p.bg.highByte & 0x80) >> 6
		p.bg.lowByte <<= 1
		p.bg.highByte <<= 1
		data <<= 4
		data |= uint32(p.bg.attrByte | p1 | p2)
	}
	p.bg.tileData |= uint64(data)
}

// copyX copies the horizontal position bits from t to v.
func (p *PPU) copyX() {
	p.vramAddr = p.vramAddr&0xFBE0 | p.vramTmp&0x041F
}

// copyY copies the vertical position bits from t to v.
func (p *PPU) copyY() {
	p.vramAddr = p.vramAddr&0x841F | p.vramTmp&0x7BE0
}

func (p *PPU) incrementX() {
	if p.vramAddr.coarsex() == 31 {
		p.vramAddr &^= 0x001F
		p.vramAddr ^= 0x0400 // switch horizontal nametable
	} else {
		p.vramAddr++
	}
}

func (p *PPU) incrementY() {
	if p.vramAddr.finey() < 7 {
		p.vramAddr += 0x1000
		return
	}

	p.vramAddr &^= 0x7000
	y := loopy(p.vramAddr.coarsey())
	switch y {
	case 29:
		y = 0
		p.vramAddr ^= 0x0800 // switch vertical nametable
	case 31:
		y = 0
	default:
		y++
	}
	p.vramAddr = p.vramAddr&^0x03E0 | y<<5
}
