package hw

import "nesemu/emu/log"

// CPU-exposed memory-mapped PPU registers, mapped from $2000 to $2007 and
// mirrored up to $3FFF.
const (
	PPUCTRL   = 0x2000
	PPUMASK   = 0x2001
	PPUSTATUS = 0x2002
	OAMADDR   = 0x2003
	OAMDATA   = 0x2004
	PPUSCROLL = 0x2005
	PPUADDR   = 0x2006
	PPUDATA   = 0x2007
)

const (
	// PPUCTRL bits

	// Base nametable address
	// (0 = $2000; 1 = $2400; 2 = $2800; 3 = $2C00)
	ntselect = 0b11

	// VRAM address increment per CPU read/write of PPUDATA
	// (0: add 1, going across; 1: add 32, going down)
	vramIncr = 2

	// Sprite pattern table address for 8x8 sprites
	// (0: $0000; 1: $1000; ignored in 8x16 mode)
	spriteAddr = 3

	// Background pattern table address (0: $0000; 1: $1000)
	backgroundAddr = 4

	// Sprite size (0: 8x8 pixels; 1: 8x16 pixels)
	spriteSize = 5

	// Generate an NMI at the start of the
	// vertical blanking interval (0: off; 1: on)
	nmi = 7
)

const (
	// PPUMASK bits

	greyscale       = 0
	leftmostBg      = 1 // Show background in leftmost 8 pixels of screen
	leftmostSprites = 2 // Show sprites in leftmost 8 pixels of screen
	showBg          = 3
	showSprites     = 4
)

const (
	// PPUSTATUS bits

	// Returns stale PPU bus contents.
	openbusMask = 0b11111

	// Sprite overflow, set during sprite evaluation and cleared at dot 1 of
	// the pre-render line.
	spriteOverflow = 5

	// Sprite 0 Hit. Set when a nonzero pixel of sprite 0 overlaps a nonzero
	// background pixel; cleared at dot 1 of the pre-render line.
	sprite0Hit = 6

	// Vertical blank has started (0: not in vblank; 1: in vblank).
	// Set at dot 1 of line 241 (the line *after* the post-render
	// line); cleared after reading $2002 and at dot 1 of the
	// pre-render line.
	vblank = 7
)

// loopy is the layout of the internal v and t VRAM address registers:
//
//	yyy NN YYYYY XXXXX
//	||| || ||||| +++++-- coarse X scroll
//	||| || +++++-------- coarse Y scroll
//	||| ++-------------- nametable select
//	+++----------------- fine Y scroll
type loopy uint16

func (l loopy) coarsex() uint8   { return uint8(l & 0x1F) }
func (l loopy) coarsey() uint8   { return uint8(l>>5) & 0x1F }
func (l loopy) nametable() uint8 { return uint8(l>>10) & 0b11 }
func (l loopy) finey() uint8     { return uint8(l>>12) & 0b111 }
func (l loopy) high() uint8      { return uint8(l>>8) & 0x3F }
func (l loopy) low() uint8       { return uint8(l) }
func (l loopy) val() uint16      { return uint16(l) & 0x7FFF }

// ReadLATCH returns the I/O latch, refreshed by every register access.
func (p *PPU) ReadLATCH(uint8) uint8 { return p.openBus }

func (p *PPU) WriteLATCH(_, val uint8) { p.openBus = val }

// OAMDATA: $2004
func (p *PPU) ReadOAMDATA(uint8) uint8 {
	p.openBus = p.SprMem.Read8(uint16(p.OAMADDR.Value))
	return p.openBus
}

func (p *PPU) PeekOAMDATA(uint8) uint8 {
	return p.SprMem.Read8(uint16(p.OAMADDR.Value))
}

func (p *PPU) WriteOAMDATA(_, val uint8) {
	p.openBus = val
	p.SprMem.Write8(uint16(p.OAMADDR.Value), val)
	p.OAMADDR.Value++
}

// PPUMASK: $2001
func (p *PPU) WritePPUMASK(_, val uint8) {
	p.openBus = val
	log.ModPPU.DebugZ("Write to PPUMASK").Hex8("val", val).End()
}

// PPUCTRL: $2000
func (p *PPU) WritePPUCTRL(_, val uint8) {
	p.openBus = val
	log.ModPPU.DebugZ("Write to PPUCTRL").Hex8("val", val).End()

	// Transfer the nametable bits.
	p.vramTmp &^= ntselect << 10
	p.vramTmp |= loopy(val&ntselect) << 10

	// By toggling the nmi bit during vblank without reading PPUSTATUS, a
	// program can cause multiple NMIs to be generated.
	p.updateNMI()
}

// PPUSTATUS: $2002
func (p *PPU) PeekPPUSTATUS(uint8) uint8 {
	return p.PPUSTATUS.Value&^openbusMask | p.openBus&openbusMask
}

// Writes only reach the I/O latch.
func (p *PPU) WritePPUSTATUS(old, val uint8) {
	p.openBus = val
	p.PPUSTATUS.Value = old
}

func (p *PPU) ReadPPUSTATUS(uint8) uint8 {
	ret := p.PeekPPUSTATUS(0)
	p.PPUSTATUS.Value &^= 1 << vblank
	p.writeLatch = false
	p.updateNMI()
	p.openBus = ret
	return ret
}

// PPUSCROLL: $2005
func (p *PPU) WritePPUSCROLL(_, val uint8) {
	p.openBus = val
	log.ModPPU.DebugZ("Write to PPUSCROLL").Hex8("val", val).End()

	if !p.writeLatch { // first write
		p.finex = val & 0b111
		p.vramTmp &^= 0b1_1111
		p.vramTmp |= loopy(val >> 3)
	} else { // second write
		p.vramTmp &^= 0b0111_0011_1110_0000
		p.vramTmp |= loopy(val&0b111) << 12
		p.vramTmp |= loopy(val&0b1111_1000) << 2
	}
	p.writeLatch = !p.writeLatch
}

// To read/write VRAM from CPU, PPUADDR is set to the address of the operation.
// It's a 16-bit register so 2 writes are necessary.
// PPUADDR: $2006
func (p *PPU) WritePPUADDR(_, val uint8) {
	p.openBus = val
	if !p.writeLatch { // first write
		p.vramTmp &^= 0b0111_1111_0000_0000
		p.vramTmp |= loopy(val&0b11_1111) << 8
	} else { // second write
		p.vramTmp &^= 0xFF
		p.vramTmp |= loopy(val)
		p.vramAddr = p.vramTmp
	}
	p.writeLatch = !p.writeLatch
}

// PPUDATA: $2007
func (p *PPU) PeekPPUDATA(uint8) uint8 {
	if p.vramAddr.val()&0x3FFF >= 0x3F00 {
		return p.Read8(p.vramAddr.val() & 0x3FFF)
	}
	return p.ppuDataRbuf
}

func (p *PPU) ReadPPUDATA(uint8) uint8 {
	addr := p.vramAddr.val() & 0x3FFF
	var val uint8
	if addr < 0x3F00 {
		// Reading VRAM is too slow so the actual data
		// will be returned at the next read.
		val = p.ppuDataRbuf
		p.ppuDataRbuf = p.Read8(addr)
	} else {
		// Reading palette data is immediate, the buffer gets the
		// nametable byte underneath.
		val = p.Read8(addr)
		p.ppuDataRbuf = p.Read8(addr - 0x1000)
	}
	p.incVRAMaddr()

	log.ModPPU.DebugZ("VRAM read").
		Hex16("addr", addr).
		Hex8("val", val).
		End()
	p.openBus = val
	return val
}

// PPUDATA: $2007
func (p *PPU) WritePPUDATA(_, val uint8) {
	p.openBus = val
	addr := p.vramAddr.val() & 0x3FFF
	p.Write8(addr, val)
	p.incVRAMaddr()

	log.ModPPU.DebugZ("VRAM write").
		Hex16("addr", addr).
		Hex8("val", val).
		End()
}

// After each i/o on PPUDATA, the VRAM address is incremented.
func (p *PPU) incVRAMaddr() {
	incr := loopy(1)
	if p.PPUCTRL.Value&(1<<vramIncr) != 0 {
		incr = 32
	}
	p.vramAddr = (p.vramAddr + incr) & 0x7FFF
}
