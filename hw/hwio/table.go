package hwio

import (
	"fmt"

	"nesemu/emu/log"
)

type BankIO8 interface {
	// Read8 reads a byte from the given address. If peek is true, the read
	// shouldn't have any side effects (debugging/tracing).
	Read8(addr uint16, peek bool) uint8
	Write8(addr uint16, val uint8)
}

// OpenBus answers reads of unmapped addresses with the high byte of the
// address, the last value most likely left on the NES data bus.
type OpenBus struct{}

func (OpenBus) Read8(addr uint16, _ bool) uint8 { return uint8(addr >> 8) }
func (OpenBus) Write8(uint16, uint8)            {}

type page [256]BankIO8

// pages is a 2-level lookup table covering the 16-bit address space.
type pages [256]*page

func (pt *pages) get(addr uint16) BankIO8 {
	if p := pt[addr>>8]; p != nil {
		return p[addr&0xFF]
	}
	return nil
}

func (pt *pages) set(addr uint16, io BankIO8) error {
	p := pt[addr>>8]
	if p == nil {
		p = new(page)
		pt[addr>>8] = p
	}
	if p[addr&0xFF] != nil {
		return fmt.Errorf("address %04X already mapped", addr)
	}
	p[addr&0xFF] = io
	return nil
}

// Table dispatches CPU accesses to memory-mapped registers. Reads and writes
// are mapped separately, so that a read-only and a write-only register can
// share an address.
type Table struct {
	Name     string
	Unmapped BankIO8 // answers reads of unmapped addresses

	rd, wr pages
}

func NewTable(name string) *Table {
	return &Table{Name: name, Unmapped: OpenBus{}}
}

// MapBank maps the registers of bank, a pointer to a structure containing
// Reg8 and Device fields, at addr. Registers are selected by their "hwio"
// struct tag:
//
//	offset=0x12     Byte-offset within the register bank at which this
//	                register is mapped. Registers without offset are
//	                ignored.
//	bank=NN         Ordinal bank number, defaults to zero. This lets a
//	                structure expose registers living in separate areas.
//	size=NN         Size of a Device.
//	readonly        Only mapped for reads.
//	writeonly       Only mapped for writes.
//
// See InitRegs for the other options. It panics if an address is already
// mapped.
func (t *Table) MapBank(addr uint16, bank any, bankNum int) {
	regs, err := bankGetRegs(bank, bankNum)
	if err != nil {
		panic(err)
	}

	for _, reg := range regs {
		if err := t.mapReg(addr+reg.offset, reg); err != nil {
			panic(fmt.Errorf("%s: %s: %v", t.Name, reg.name, err))
		}
	}
}

func (t *Table) mapReg(addr uint16, reg bankReg) error {
	log.ModHwIo.DebugZ("mapping reg").
		String("bus", t.Name).
		String("reg", reg.name).
		Hex16("addr", addr).
		Int("size", reg.size).
		End()

	for i := range reg.size {
		a := addr + uint16(i)
		if reg.flags&WriteOnlyFlag == 0 {
			if err := t.rd.set(a, reg.io); err != nil {
				return err
			}
		}
		if reg.flags&ReadOnlyFlag == 0 {
			if err := t.wr.set(a, reg.io); err != nil {
				return err
			}
		}
	}
	return nil
}

func (t *Table) read(addr uint16, peek bool) uint8 {
	if io := t.rd.get(addr); io != nil {
		return io.Read8(addr, peek)
	}
	if t.Unmapped != nil {
		return t.Unmapped.Read8(addr, peek)
	}
	return 0
}

func (t *Table) Read8(addr uint16) uint8 { return t.read(addr, false) }

// Peek8 reads addr without side effects.
func (t *Table) Peek8(addr uint16) uint8 { return t.read(addr, true) }

func (t *Table) Write8(addr uint16, val uint8) {
	io := t.wr.get(addr)
	if io == nil {
		log.ModHwIo.DebugZ("unmapped Write8").
			String("bus", t.Name).
			Hex16("addr", addr).
			Hex8("val", val).
			End()
		return
	}
	io.Write8(addr, val)
}
