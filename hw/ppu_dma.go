package hw

import "nesemu/emu/log"

var modDMA = log.NewModule("dma")

// Number of cycles the CPU is halted during an OAM DMA transfer, one more
// when it starts on an odd cycle.
const oamDMACycles = 513

// WriteOAMDMA copies the 256 bytes of CPU page val into OAM, starting at
// OAMADDR, and halts the CPU for the duration of the transfer.
func (p *PPU) WriteOAMDMA(_, val uint8) {
	p.openBus = val
	log.ModPPU.InfoZ("OAM DMA").Hex8("page", val).End()

	base := uint16(val) << 8
	for i := range uint16(256) {
		p.SprMem.Write8(uint16(p.OAMADDR.Value), p.CPU.Bus.Read8(base+i))
		p.OAMADDR.Value++
	}

	cycles := oamDMACycles
	if p.CPU.Cycles&1 != 0 {
		cycles++
	}
	p.CPU.HaltCycles(cycles)
	modDMA.DebugZ("CPU halted").Int("cycles", cycles).End()
}
