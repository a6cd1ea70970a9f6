package hw

import (
	"image"
	"testing"

	"github.com/google/go-cmp/cmp"

	"nesemu/hw/hwdefs"
	"nesemu/hw/hwio"
)

// testPPU reaches the PPU registers through a CPU I/O table, the way the
// console maps them.
type testPPU struct {
	*PPU
	io *hwio.Table
}

func (p testPPU) ReadRegister(addr uint16) uint8       { return p.io.Read8(addr) }
func (p testPPU) PeekRegister(addr uint16) uint8       { return p.io.Peek8(addr) }
func (p testPPU) WriteRegister(addr uint16, val uint8) { p.io.Write8(addr, val) }

func newTestPPU(t *testing.T) (testPPU, *CPU, *flatBus) {
	t.Helper()

	cpu, bus := newTestCPU(t)
	ppu := NewPPU(cpu)
	ppu.Reset()
	io := hwio.NewTable("io")
	ppu.MapRegisters(io)
	return testPPU{ppu, io}, cpu, bus
}

func TestPPUScroll(t *testing.T) {
	ppu, _, _ := newTestPPU(t)
	ppu.vramTmp = 0xffff

	// Write to PPUCTRL
	ppu.WriteRegister(0x2000, 0)
	if got := ppu.vramTmp.nametable(); got != 0b00 {
		t.Errorf("t.nametable = 0b%08b, want 0b00", got)
	}

	// Read from PPUSTATUS
	_ = ppu.ReadRegister(0x2002)
	if ppu.writeLatch {
		t.Errorf("writeLatch = %t, want false", ppu.writeLatch)
	}

	// First write to PPUSCROLL
	ppu.WriteRegister(0x2005, 0b01111_101)
	if got := ppu.vramTmp.coarsex(); got != 0b01111 {
		t.Errorf("t.coarsex = 0b%08b, want 0b01111", got)
	}
	if ppu.finex != 0b101 {
		t.Errorf("finex = 0b%08b, want 0b101", ppu.finex)
	}
	if !ppu.writeLatch {
		t.Errorf("writeLatch = %t, want true", ppu.writeLatch)
	}

	// Second write to PPUSCROLL
	ppu.WriteRegister(0x2005, 0b01_011_110)
	if got := ppu.vramTmp.coarsey(); got != 0b01011 {
		t.Errorf("t.coarsey = 0b%08b, want 0b01011", got)
	}
	if got := ppu.vramTmp.finey(); got != 0b110 {
		t.Errorf("t.finey = 0b%08b, want 0b110", got)
	}
	if ppu.writeLatch {
		t.Errorf("writeLatch = %t, want false", ppu.writeLatch)
	}

	// First write to PPUADDR (mirrored at $200E)
	ppu.WriteRegister(0x200E, 0b00_111101)
	if got := ppu.vramTmp.high(); got != 0b111101 {
		t.Errorf("t.high = %08b, want 0b111101", got)
	}
	// Bit 14 (15th bit) of t gets set to zero
	if ppu.vramTmp.val() != 0b0111101_01101111 {
		t.Errorf("t.val = %015b, want 0b0111101_01101111", ppu.vramTmp.val())
	}

	// Second write to PPUADDR
	ppu.WriteRegister(0x2006, 0b11110000)
	if got := ppu.vramTmp.low(); got != 0b11110000 {
		t.Errorf("t.low = %08b, want 0b11110000", got)
	}
	if ppu.vramTmp.val() != 0b0111101_11110000 {
		t.Errorf("t.val = %015b, want 0b0111101_11110000", ppu.vramTmp.val())
	}
	// After t is updated, contents of t copied into v
	if ppu.vramTmp.val() != ppu.vramAddr.val() {
		t.Errorf("v != t")
	}
}

func setVRAMAddr(p testPPU, addr uint16) {
	p.WriteRegister(PPUADDR, uint8(addr>>8))
	p.WriteRegister(PPUADDR, uint8(addr))
}

func TestPPUDataReads(t *testing.T) {
	ppu, _, _ := newTestPPU(t)

	setVRAMAddr(ppu, 0x2000)
	ppu.WriteRegister(PPUDATA, 0x11)
	ppu.WriteRegister(PPUDATA, 0x22)
	setVRAMAddr(ppu, 0x3F00)
	ppu.WriteRegister(PPUDATA, 0x0F)

	// VRAM reads are delayed by the read buffer.
	setVRAMAddr(ppu, 0x2000)
	got := []uint8{
		ppu.ReadRegister(PPUDATA),
		ppu.ReadRegister(PPUDATA),
		ppu.ReadRegister(PPUDATA),
	}
	if diff := cmp.Diff([]uint8{0x00, 0x11, 0x22}, got); diff != "" {
		t.Errorf("PPUDATA reads mismatch (-want +got):\n%s", diff)
	}

	// Palette reads are immediate.
	setVRAMAddr(ppu, 0x3F00)
	if got := ppu.ReadRegister(PPUDATA); got != 0x0F {
		t.Errorf("palette read = %02X, want 0F", got)
	}

	// Increment by 32.
	ppu.WriteRegister(PPUCTRL, 1<<vramIncr)
	setVRAMAddr(ppu, 0x2000)
	ppu.ReadRegister(PPUDATA)
	if got := ppu.vramAddr.val(); got != 0x2020 {
		t.Errorf("v = %04X after read, want 2020", got)
	}
}

func TestMirroring(t *testing.T) {
	tests := []struct {
		mode hwdefs.Mirroring
		// physical nametable of $2000, $2400, $2800, $2C00
		want [4]uint16
	}{
		{hwdefs.HorzMirroring, [4]uint16{0x2000, 0x2000, 0x2400, 0x2400}},
		{hwdefs.VertMirroring, [4]uint16{0x2000, 0x2400, 0x2000, 0x2400}},
		{hwdefs.OnlyAScreen, [4]uint16{0x2000, 0x2000, 0x2000, 0x2000}},
		{hwdefs.OnlyBScreen, [4]uint16{0x2400, 0x2400, 0x2400, 0x2400}},
		{hwdefs.FourScreen, [4]uint16{0x2000, 0x2400, 0x2800, 0x2C00}},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			ppu, _, _ := newTestPPU(t)
			ppu.SetMirroring(tt.mode)

			var got [4]uint16
			for i := range got {
				got[i] = ppu.ntAddr(0x2000 + uint16(i)*0x400 + 0x15)
				got[i] -= 0x15
			}
			if got != tt.want {
				t.Errorf("nametables = %04X, want %04X", got, tt.want)
			}
			// $3000-$3EFF mirrors $2000-$2EFF
			if ppu.ntAddr(0x3015) != tt.want[0]+0x15 {
				t.Errorf("ntAddr($3015) = %04X, want %04X", ppu.ntAddr(0x3015), tt.want[0]+0x15)
			}
		})
	}
}

func TestPaletteMirroring(t *testing.T) {
	ppu, _, _ := newTestPPU(t)

	ppu.Write8(0x3F10, 0x2A)
	if got := ppu.Read8(0x3F00); got != 0x2A {
		t.Errorf("$3F00 = %02X, want 2A", got)
	}
	ppu.Write8(0x3F25, 0x15)
	if got := ppu.Read8(0x3F05); got != 0x15 {
		t.Errorf("$3F05 = %02X, want 15", got)
	}
}

func TestCHRROMIsReadOnly(t *testing.T) {
	ppu, _, _ := newTestPPU(t)

	ppu.Write8(0x0010, 0xAA)
	if got := ppu.Read8(0x0010); got != 0 {
		t.Errorf("CHR ROM write went through: %02X", got)
	}
	ppu.SetCHRWritable(true)
	ppu.Write8(0x0010, 0xAA)
	if got := ppu.Read8(0x0010); got != 0xAA {
		t.Errorf("CHR RAM = %02X, want AA", got)
	}
}

func TestVBlankNMI(t *testing.T) {
	ppu, cpu, _ := newTestPPU(t)
	ppu.WriteRegister(PPUCTRL, 1<<nmi)

	// Run up to dot 1 of line 241.
	ppu.Run(vblankLine*NumCycles + 1)
	if sl, dot := ppu.Position(); sl != vblankLine || dot != 1 {
		t.Fatalf("position = %d,%d, want %d,1", sl, dot, vblankLine)
	}
	if !cpu.nmiPending {
		t.Fatalf("NMI not triggered at vblank")
	}
	if got := ppu.PeekRegister(PPUSTATUS); got&0x80 == 0 {
		t.Errorf("PPUSTATUS = %02X, want vblank set", got)
	}

	if got := ppu.ReadRegister(PPUSTATUS); got&0x80 == 0 {
		t.Errorf("PPUSTATUS = %02X, want vblank set", got)
	}
	if got := ppu.ReadRegister(PPUSTATUS); got&0x80 != 0 {
		t.Errorf("PPUSTATUS = %02X, want vblank cleared by previous read", got)
	}

	// Finish the frame, vblank is cleared on the pre-render line.
	cpu.nmiPending = false
	ppu.Run((preRenderLine-vblankLine)*NumCycles + 1)
	if sl, _ := ppu.Position(); sl != -1 {
		t.Fatalf("scanline = %d, want -1", sl)
	}
	if ppu.PPUSTATUS.Value&(1<<vblank) != 0 || cpu.nmiPending {
		t.Errorf("status = %02X nmi = %t on pre-render line", ppu.PPUSTATUS.Value, cpu.nmiPending)
	}
}

func TestPPURegisterMirrors(t *testing.T) {
	ppu, _, _ := newTestPPU(t)

	ppu.WriteRegister(0x3FF8, 0x84)
	if ppu.PPUCTRL.Value != 0x84 {
		t.Errorf("PPUCTRL = %02X, want 84", ppu.PPUCTRL.Value)
	}
	ppu.WriteRegister(0x2009, 0x1E)
	if ppu.PPUMASK.Value != 0x1E {
		t.Errorf("PPUMASK = %02X, want 1E", ppu.PPUMASK.Value)
	}

	// PPUSTATUS isn't writable, the write only reaches the I/O latch.
	ppu.PPUSTATUS.Value = 0x80
	ppu.WriteRegister(0x200A, 0x3F)
	if ppu.PPUSTATUS.Value != 0x80 {
		t.Errorf("PPUSTATUS = %02X, want 80", ppu.PPUSTATUS.Value)
	}
	if got := ppu.PeekRegister(PPUSTATUS); got != 0x9F {
		t.Errorf("peek PPUSTATUS = %02X, want 9F", got)
	}

	// Write-only registers read back the latch.
	ppu.WriteRegister(PPUSCROLL, 0x42)
	for _, addr := range []uint16{PPUCTRL, PPUMASK, OAMADDR, PPUSCROLL, PPUADDR, 0x3FFD} {
		if got := ppu.ReadRegister(addr); got != 0x42 {
			t.Errorf("read $%04X = %02X, want 42", addr, got)
		}
	}
}

func TestOAMDMA(t *testing.T) {
	ppu, cpu, bus := newTestPPU(t)
	for i := range 256 {
		bus.mem[0x0200+i] = uint8(i)
	}

	ppu.WriteRegister(OAMADDR, 0x10)
	ppu.WriteRegister(0x4014, 0x02)

	if got := ppu.SprMem.Data[0x10]; got != 0x00 {
		t.Errorf("OAM[$10] = %02X, want 00", got)
	}
	if got := ppu.SprMem.Data[0x0F]; got != 0xFF {
		t.Errorf("OAM[$0F] = %02X, want FF", got)
	}
	// Reset leaves the CPU on an odd cycle.
	if cpu.haltCycles != oamDMACycles+1 {
		t.Errorf("haltCycles = %d, want %d", cpu.haltCycles, oamDMACycles+1)
	}
}

func TestPPUState(t *testing.T) {
	ppu, _, _ := newTestPPU(t)
	ppu.SetMirroring(hwdefs.VertMirroring)
	ppu.WriteRegister(PPUCTRL, 0x91)
	ppu.WriteRegister(PPUMASK, 0x1E)
	ppu.WriteRegister(PPUSCROLL, 0x7D)
	ppu.Run(12345)

	state := ppu.SaveState()

	other, _, _ := newTestPPU(t)
	other.LoadState(state)
	if diff := cmp.Diff(state, other.SaveState()); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}
	if other.Mirroring() != hwdefs.VertMirroring {
		t.Errorf("mirroring = %s, want %s", other.Mirroring(), hwdefs.VertMirroring)
	}
}

func TestPPUStateMidFrame(t *testing.T) {
	ppu, _, _ := newTestPPU(t)
	ppu.SetCHRWritable(true)

	// Columns of alternating tiles 1 and 2, of colors 1 and 2.
	for row := range uint16(8) {
		ppu.Write8(0x0010+row, 0xFF)
		ppu.Write8(0x0028+row, 0xFF)
	}
	for i := range uint16(0x3C0) {
		ppu.Write8(0x2000+i, uint8(1+i%2))
	}
	ppu.Write8(0x3F00, 0x0F)
	ppu.Write8(0x3F01, 0x30)
	ppu.Write8(0x3F02, 0x16)
	copy(ppu.SprMem.Data, []byte{99, 0x02, 0x00, 4})

	ppu.WriteRegister(PPUMASK, 1<<showBg|1<<leftmostBg|1<<showSprites|1<<leftmostSprites)
	ppu.Run((NumScanlines + 100) * NumCycles)

	// The tiles of the first pixels of the line are already prefetched.
	other, _, _ := newTestPPU(t)
	other.SetCHRWritable(true)
	other.LoadState(ppu.SaveState())
	for _, m := range []struct{ src, dst *hwio.Mem }{
		{ppu.Mem, other.Mem},
		{ppu.SprMem, other.SprMem},
	} {
		if err := m.dst.LoadState(m.src.SaveState()); err != nil {
			t.Fatal(err)
		}
	}

	// Finish the frame, only the lines after the save point are comparable.
	ppu.Run(NumScanlines * NumCycles)
	other.Run(NumScanlines * NumCycles)
	want, got := ppu.Output(), other.Output()
	lines := func(img *image.RGBA) []uint8 { return img.Pix[100*img.Stride : ScreenHeight*img.Stride] }
	if diff := cmp.Diff(lines(want), lines(got)); diff != "" {
		t.Errorf("frame mismatch after LoadState (-want +got):\n%s", diff)
	}
}

func TestRenderBackground(t *testing.T) {
	ppu, _, _ := newTestPPU(t)
	ppu.SetCHRWritable(true)

	// Tile 1: every pixel uses color 1.
	for row := range uint16(8) {
		ppu.Write8(0x0010+row, 0xFF)
	}
	for i := range uint16(0x3C0) {
		ppu.Write8(0x2000+i, 0x01)
	}
	ppu.Write8(0x3F00, 0x0F) // backdrop: black
	ppu.Write8(0x3F01, 0x30) // white

	ppu.WriteRegister(PPUMASK, 1<<showBg|1<<leftmostBg)
	ppu.Run(2 * NumScanlines * NumCycles)

	want := ntscPalette[0x30]
	for _, pt := range [][2]int{{0, 0}, {100, 100}, {255, 239}} {
		if got := ppu.Output().RGBAAt(pt[0], pt[1]); got != want {
			t.Errorf("pixel %v = %v, want %v", pt, got, want)
		}
	}
}

func TestSprite0Hit(t *testing.T) {
	ppu, _, _ := newTestPPU(t)
	ppu.SetCHRWritable(true)

	for row := range uint16(8) {
		ppu.Write8(0x0010+row, 0xFF)
	}
	for i := range uint16(0x3C0) {
		ppu.Write8(0x2000+i, 0x01)
	}
	// Sprite 0 at (20, 20), tile 1.
	copy(ppu.SprMem.Data, []byte{20, 0x01, 0x00, 20})
	for i := 4; i < 256; i++ {
		ppu.SprMem.Data[i] = 0xFF
	}

	ppu.WriteRegister(PPUMASK, 1<<showBg|1<<showSprites)
	ppu.Run(NumScanlines * NumCycles) // one frame to prefetch

	ppu.Run(30 * NumCycles)
	if ppu.PPUSTATUS.Value&(1<<sprite0Hit) == 0 {
		t.Errorf("sprite 0 hit not set")
	}
}
