package hw

import (
	"io"

	"nesemu/emu/log"
	"nesemu/hw/hwdefs"
	"nesemu/hw/snapshot"
)

// Locations reserved for vector pointers.
const (
	NMIVector   = 0xFFFA // Non-Maskable Interrupt
	ResetVector = 0xFFFC // Reset
	IRQVector   = 0xFFFE // Interrupt Request
)

// Cycles taken to push PC and P and jump through an interrupt vector.
const interruptCycles = 7

// Maximum number of halted cycles consumed by a single Step.
const maxHaltChunk = 8

// Bus is the CPU view of the memory map. All CPU memory accesses go through
// it, the CPU never accesses RAM or cartridge memory directly.
type Bus interface {
	Read8(addr uint16) uint8
	Write8(addr uint16, val uint8)
}

type CPU struct {
	Bus Bus

	ops OpcodeTable

	A  uint8  // accumulator
	X  uint8  // x register
	Y  uint8  // y register
	SP uint8  // stack pointer
	PC uint16 // program counter
	P  P      // processor status flags

	Cycles uint64 // total elapsed cycles

	running    bool
	irqFlag    hwdefs.IRQSource // active IRQ sources.
	nmiPending bool
	haltCycles uint32

	tracer *tracer
}

// NewCPU creates a CPU executing instructions decoded with ops, and accessing
// memory through bus.
func NewCPU(ops OpcodeTable, bus Bus) *CPU {
	return &CPU{
		Bus: bus,
		ops: ops,
		SP:  0xFD,
		P:   Interrupt | Reserved,
	}
}

// Reset performs a hard reset, or a soft reset (as if the reset button was
// pressed) if soft is true. RAM is never modified.
func (c *CPU) Reset(soft bool) {
	if soft {
		c.SP -= 3
		c.P.setFlags(Interrupt)
	} else {
		c.A = 0
		c.X = 0
		c.Y = 0
		c.SP = 0xFD
		c.P = Interrupt | Reserved
	}

	c.irqFlag = 0
	c.nmiPending = false
	c.haltCycles = 0
	c.PC = read16(c.Bus, ResetVector)
	c.Cycles = interruptCycles

	log.ModCPU.InfoZ("CPU reset").
		Bool("soft", soft).
		Hex16("pc", c.PC).
		End()
}

func (c *CPU) BeginExecution() { c.running = true }
func (c *CPU) EndExecution()   { c.running = false }
func (c *CPU) IsRunning() bool { return c.running }

// SetIRQ asserts the IRQ line for the given source. The line stays asserted
// until ClearIRQ is called for every asserting source.
func (c *CPU) SetIRQ(src hwdefs.IRQSource) {
	c.irqFlag |= src
}

func (c *CPU) ClearIRQ(src hwdefs.IRQSource) {
	c.irqFlag &^= src
}

func (c *CPU) HasIRQSource(src hwdefs.IRQSource) bool {
	return c.irqFlag&src != 0
}

// TriggerNMI requests a non-maskable interrupt, serviced at the next
// instruction boundary.
func (c *CPU) TriggerNMI() {
	c.nmiPending = true
}

// HaltCycles stalls the CPU for n cycles, during which Step doesn't execute
// any instruction (e.g. during DMA).
func (c *CPU) HaltCycles(n int) {
	c.haltCycles += uint32(n)
}

// SetTraceOutput enables execution tracing into w. Passing nil disables it.
func (c *CPU) SetTraceOutput(w io.Writer) {
	if w == nil {
		c.tracer = nil
		return
	}
	c.tracer = &tracer{w: w}
}

// SetTraceDots sets the function providing the PPU position in trace lines.
func (c *CPU) SetTraceDots(dots func() (scanline, dot int)) {
	if c.tracer != nil {
		c.tracer.dots = dots
	}
}

// Step services a pending interrupt, or executes one instruction. It returns
// the exact number of cycles it took.
func (c *CPU) Step() int {
	if c.haltCycles > 0 {
		n := min(c.haltCycles, maxHaltChunk)
		c.haltCycles -= n
		return c.tick(int(n))
	}

	switch {
	case c.nmiPending:
		c.nmiPending = false
		c.interrupt(NMIVector, false)
		log.ModCPU.DebugZ("NMI").Hex16("pc", c.PC).End()
		return c.tick(interruptCycles)
	case c.irqFlag != 0 && !c.P.hasFlag(Interrupt):
		c.interrupt(IRQVector, false)
		log.ModCPU.DebugZ("IRQ").
			Stringer("src", c.irqFlag).
			Hex16("pc", c.PC).
			End()
		return c.tick(interruptCycles)
	}

	pc := c.PC
	opcode := c.Bus.Read8(pc)
	op := c.ops.Lookup(opcode)
	if c.tracer != nil {
		c.tracer.write(c, pc, op)
	}

	addr, crossed := operandAddr(c.Bus, op.Mode, pc, c.X, c.Y)
	c.PC = pc + uint16(op.Size)

	cycles := int(op.Cycles)
	if crossed && op.Kind.pageCrossPenalty() {
		cycles++
	}
	cycles += c.exec(op, addr, crossed)

	if !op.Valid() {
		log.ModCPU.DebugZ("invalid opcode").
			Hex8("op", opcode).
			Hex16("pc", pc).
			End()
	}
	return c.tick(cycles)
}

// Run executes instructions until at least ncycles have elapsed, and returns
// the number of cycles actually executed.
func (c *CPU) Run(ncycles int) int {
	done := 0
	for done < ncycles {
		done += c.Step()
	}
	return done
}

func (c *CPU) tick(n int) int {
	c.Cycles += uint64(n)
	return n
}

func (c *CPU) interrupt(vector uint16, brk bool) {
	c.push16(c.PC)
	p := c.P | Reserved
	if brk {
		p |= Break
	} else {
		p &^= Break
	}
	c.push8(uint8(p))
	c.P.setFlags(Interrupt)
	c.PC = read16(c.Bus, vector)
}

// stack operations

func (c *CPU) push8(val uint8) {
	c.Bus.Write8(0x0100|uint16(c.SP), val)
	c.SP--
}

func (c *CPU) push16(val uint16) {
	c.push8(uint8(val >> 8))
	c.push8(uint8(val))
}

func (c *CPU) pull8() uint8 {
	c.SP++
	return c.Bus.Read8(0x0100 | uint16(c.SP))
}

func (c *CPU) pull16() uint16 {
	lo := c.pull8()
	hi := c.pull8()
	return uint16(hi)<<8 | uint16(lo)
}

// SaveState returns the CPU registers and internal state.
func (c *CPU) SaveState() snapshot.CPU {
	return snapshot.CPU{
		PC:         c.PC,
		SP:         c.SP,
		P:          uint8(c.P),
		A:          c.A,
		X:          c.X,
		Y:          c.Y,
		Cycles:     c.Cycles,
		IRQFlag:    uint8(c.irqFlag),
		NMIPending: c.nmiPending,
		HaltCycles: c.haltCycles,
	}
}

// LoadState restores a state previously returned by SaveState.
func (c *CPU) LoadState(state snapshot.CPU) {
	c.PC = state.PC
	c.SP = state.SP
	c.P = P(state.P)
	c.A = state.A
	c.X = state.X
	c.Y = state.Y
	c.Cycles = state.Cycles
	c.irqFlag = hwdefs.IRQSource(state.IRQFlag)
	c.nmiPending = state.NMIPending
	c.haltCycles = state.HaltCycles
}
