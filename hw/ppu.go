package hw

import (
	"image"

	"nesemu/emu/log"
	"nesemu/hw/hwdefs"
	"nesemu/hw/hwio"
	"nesemu/hw/snapshot"
)

const (
	NumScanlines = 262 // Number of scanlines per frame.
	NumCycles    = 341 // Number of PPU cycles per scanline.

	ScreenWidth  = 256
	ScreenHeight = 240
)

const (
	vblankLine    = 241
	preRenderLine = 261
)

// PPU memory map:
//
//	$0000-$1FFF  pattern tables (CHR, copied in by the mapper)
//	$2000-$2FFF  4 physical nametables
//	$3000-$3EFF  mirror of $2000-$2EFF
//	$3F00-$3F1F  palette RAM, mirrored up to $3FFF
type PPU struct {
	CPU *CPU

	Mem    *hwio.Mem // PPU memory
	SprMem *hwio.Mem // OAM, 64 sprites of 4 bytes

	Cycle    int // Current cycle/pixel in scanline
	Scanline int // Current scanline being drawn
	Frame    uint32
	oddFrame bool

	mirroring hwdefs.Mirroring
	chrRAM    bool // pattern tables are writable

	// CPU-mapped registers, $2000-$2007 mirrored up to $3FFF, and $4014.
	PPUCTRL   hwio.Reg8 `hwio:"offset=0x0,wcb,rcb=ReadLATCH,pcb=ReadLATCH"`
	PPUMASK   hwio.Reg8 `hwio:"offset=0x1,wcb,rcb=ReadLATCH,pcb=ReadLATCH"`
	PPUSTATUS hwio.Reg8 `hwio:"offset=0x2,rcb,pcb,wcb"`
	OAMADDR   hwio.Reg8 `hwio:"offset=0x3,wcb=WriteLATCH,rcb=ReadLATCH,pcb=ReadLATCH"`
	OAMDATA   hwio.Reg8 `hwio:"offset=0x4,rcb,pcb,wcb"`
	PPUSCROLL hwio.Reg8 `hwio:"offset=0x5,wcb,rcb=ReadLATCH,pcb=ReadLATCH"`
	PPUADDR   hwio.Reg8 `hwio:"offset=0x6,wcb,rcb=ReadLATCH,pcb=ReadLATCH"`
	PPUDATA   hwio.Reg8 `hwio:"offset=0x7,rcb,pcb,wcb"`
	OAMDMA    hwio.Reg8 `hwio:"bank=1,offset=0x14,writeonly,wcb"`

	openBus uint8 // I/O latch, what reads of write-only registers return

	vramAddr    loopy
	vramTmp     loopy
	finex       uint8
	writeLatch  bool
	ppuDataRbuf uint8

	// nmiOut is the NMI output line (vblank && nmi enabled).
	nmiOut bool

	bg      bgState
	sprites spriteState

	front, back *image.RGBA
}

func NewPPU(cpu *CPU) *PPU {
	p := &PPU{
		CPU:    cpu,
		Mem:    hwio.NewMem("ppu", snapshot.PPUMemSize),
		SprMem: hwio.NewMem("oam", snapshot.SprMemSize),
		front:  image.NewRGBA(image.Rect(0, 0, ScreenWidth, ScreenHeight)),
		back:   image.NewRGBA(image.Rect(0, 0, ScreenWidth, ScreenHeight)),
	}
	hwio.MustInitRegs(p)
	return p
}

// MapRegisters maps the PPU registers on the CPU I/O table.
func (p *PPU) MapRegisters(io *hwio.Table) {
	for addr := uint16(0x2000); addr < 0x4000; addr += 8 {
		io.MapBank(addr, p, 0)
	}
	io.MapBank(0x4000, p, 1)
}

// Output returns the last complete frame.
func (p *PPU) Output() *image.RGBA {
	return p.front
}

func (p *PPU) SetMirroring(m hwdefs.Mirroring) {
	log.ModPPU.InfoZ("set mirroring").Stringer("mode", m).End()
	p.mirroring = m
}

func (p *PPU) Mirroring() hwdefs.Mirroring { return p.mirroring }

// SetCHRWritable allows writes to the pattern tables, for cartridges
// providing CHR RAM instead of CHR ROM.
func (p *PPU) SetCHRWritable(w bool) {
	p.chrRAM = w
}

// Position returns the current scanline (-1 for the pre-render line) and
// dot.
func (p *PPU) Position() (scanline, dot int) {
	if p.Scanline == preRenderLine {
		return -1, p.Cycle
	}
	return p.Scanline, p.Cycle
}

// Reset resets the PPU registers. Memories are left untouched.
func (p *PPU) Reset() {
	p.Cycle = 0
	p.Scanline = 0
	p.Frame = 0
	p.oddFrame = false

	p.PPUCTRL.Value = 0
	p.PPUMASK.Value = 0
	p.PPUSTATUS.Value = 0
	p.OAMADDR.Value = 0
	p.openBus = 0

	p.vramAddr = 0
	p.vramTmp = 0
	p.finex = 0
	p.writeLatch = false
	p.ppuDataRbuf = 0
	p.nmiOut = false

	p.bg = bgState{}
	p.sprites = spriteState{}
}

func (p *PPU) renderingEnabled() bool {
	return p.PPUMASK.Value&(1<<showBg|1<<showSprites) != 0
}

// Tick runs the PPU for a single dot.
func (p *PPU) Tick() {
	p.advance()

	visibleLine := p.Scanline < ScreenHeight
	preLine := p.Scanline == preRenderLine

	if p.renderingEnabled() && (visibleLine || preLine) {
		p.renderDot(visibleLine)
	}

	switch {
	case p.Scanline == vblankLine && p.Cycle == 1:
		p.front, p.back = p.back, p.front
		p.PPUSTATUS.Value |= 1 << vblank
		p.updateNMI()
	case preLine && p.Cycle == 1:
		p.PPUSTATUS.Value &^= 1<<vblank | 1<<sprite0Hit | 1<<spriteOverflow
		p.updateNMI()
	}
}

// Run runs the PPU for n dots.
func (p *PPU) Run(n int) {
	for range n {
		p.Tick()
	}
}

func (p *PPU) advance() {
	// With rendering enabled, odd frames are one dot shorter.
	if p.renderingEnabled() && p.oddFrame && p.Scanline == preRenderLine && p.Cycle == 339 {
		p.Cycle = 0
		p.Scanline = 0
		p.endFrame()
		return
	}

	p.Cycle++
	if p.Cycle >= NumCycles {
		p.Cycle = 0
		p.Scanline++
		if p.Scanline >= NumScanlines {
			p.Scanline = 0
			p.endFrame()
		}
	}
}

func (p *PPU) endFrame() {
	p.Frame++
	p.oddFrame = !p.oddFrame
}

// updateNMI triggers an NMI on the rising edge of the NMI output.
func (p *PPU) updateNMI() {
	out := p.PPUSTATUS.Value&(1<<vblank) != 0 && p.PPUCTRL.Value&(1<<nmi) != 0
	if out && !p.nmiOut && p.CPU != nil {
		p.CPU.TriggerNMI()
	}
	p.nmiOut = out
}

var mirroringTables = [...][4]uint16{
	hwdefs.HorzMirroring: {0, 0, 1, 1},
	hwdefs.VertMirroring: {0, 1, 0, 1},
	hwdefs.OnlyAScreen:   {0, 0, 0, 0},
	hwdefs.OnlyBScreen:   {1, 1, 1, 1},
	hwdefs.FourScreen:    {0, 1, 2, 3},
}

// ntAddr returns the physical address of a nametable address.
func (p *PPU) ntAddr(addr uint16) uint16 {
	off := (addr - 0x2000) & 0x0FFF
	table := mirroringTables[p.mirroring][off/0x400]
	return 0x2000 + table*0x400 + off%0x400
}

func paletteAddr(addr uint16) uint16 {
	idx := addr & 0x1F
	// $3F10/$3F14/$3F18/$3F1C mirror $3F00/$3F04/$3F08/$3F0C.
	if idx&0x13 == 0x10 {
		idx &^= 0x10
	}
	return 0x3F00 + idx
}

// Read8 reads the PPU address space.
func (p *PPU) Read8(addr uint16) uint8 {
	addr &= 0x3FFF
	switch {
	case addr < 0x2000:
		return p.Mem.Read8(addr)
	case addr < 0x3F00:
		return p.Mem.Read8(p.ntAddr(addr))
	default:
		return p.Mem.Read8(paletteAddr(addr))
	}
}

// Write8 writes the PPU address space.
func (p *PPU) Write8(addr uint16, val uint8) {
	addr &= 0x3FFF
	switch {
	case addr < 0x2000:
		if !p.chrRAM {
			log.ModPPU.DebugZ("write to CHR ROM").Hex16("addr", addr).Hex8("val", val).End()
			return
		}
		p.Mem.Write8(addr, val)
	case addr < 0x3F00:
		p.Mem.Write8(p.ntAddr(addr), val)
	default:
		p.Mem.Write8(paletteAddr(addr), val&0x3F)
	}
}

// SaveState returns the PPU registers and internal state.
func (p *PPU) SaveState() snapshot.PPU {
	return snapshot.PPU{
		PPUCTRL:    p.PPUCTRL.Value,
		PPUMASK:    p.PPUMASK.Value,
		PPUSTATUS:  p.PPUSTATUS.Value,
		OAMAddr:    p.OAMADDR.Value,
		VRAMAddr:   uint16(p.vramAddr),
		VRAMTemp:   uint16(p.vramTmp),
		FineX:      p.finex,
		WriteLatch: p.writeLatch,
		DataBuf:    p.ppuDataRbuf,
		OpenBus:    p.openBus,
		Mirroring:  uint8(p.mirroring),
		Cycle:      uint16(p.Cycle),
		Scanline:   int16(p.Scanline),
		Frame:      p.Frame,
		OddFrame:   p.oddFrame,
		NMIOut:     p.nmiOut,

		BgLatches:     [4]uint8{p.bg.ntByte, p.bg.attrByte, p.bg.lowByte, p.bg.highByte},
		BgTileData:    p.bg.tileData,
		SprCount:      uint8(p.sprites.count),
		SprPatterns:   p.sprites.patterns,
		SprPositions:  p.sprites.positions,
		SprPriorities: p.sprites.priorities,
		SprIndexes:    p.sprites.indexes,
	}
}

// LoadState restores a state previously returned by SaveState.
func (p *PPU) LoadState(state snapshot.PPU) {
	p.PPUCTRL.Value = state.PPUCTRL
	p.PPUMASK.Value = state.PPUMASK
	p.PPUSTATUS.Value = state.PPUSTATUS
	p.OAMADDR.Value = state.OAMAddr
	p.vramAddr = loopy(state.VRAMAddr)
	p.vramTmp = loopy(state.VRAMTemp)
	p.finex = state.FineX
	p.writeLatch = state.WriteLatch
	p.ppuDataRbuf = state.DataBuf
	p.openBus = state.OpenBus
	if m := hwdefs.Mirroring(state.Mirroring); m <= hwdefs.FourScreen {
		p.mirroring = m
	}
	p.Cycle = int(state.Cycle)
	p.Scanline = int(state.Scanline)
	p.Frame = state.Frame
	p.oddFrame = state.OddFrame
	p.nmiOut = state.NMIOut

	p.bg = bgState{
		ntByte:   state.BgLatches[0],
		attrByte: state.BgLatches[1],
		lowByte:  state.BgLatches[2],
		highByte: state.BgLatches[3],
		tileData: state.BgTileData,
	}
	p.sprites = spriteState{
		count:      min(int(state.SprCount), maxSpritesPerLine),
		patterns:   state.SprPatterns,
		positions:  state.SprPositions,
		priorities: state.SprPriorities,
		indexes:    state.SprIndexes,
	}
}
