package hwio

import (
	"fmt"

	"nesemu/emu/log"
)

// Mem is a linear, fixed-size memory area. Every access is checked against
// the size chosen at creation: out of range reads return 0 and out of range
// writes are ignored.
type Mem struct {
	Name string // name of the memory area (for debugging)
	Data []byte // actual memory buffer
}

func NewMem(name string, size int) *Mem {
	return &Mem{
		Name: name,
		Data: make([]byte, size),
	}
}

func (m *Mem) Size() int { return len(m.Data) }

func (m *Mem) Read8(addr uint16) uint8 {
	if int(addr) >= len(m.Data) {
		log.ModMem.DebugZ("Read8 out of range").
			String("mem", m.Name).
			Hex16("addr", addr).
			End()
		return 0
	}
	return m.Data[addr]
}

func (m *Mem) Write8(addr uint16, val uint8) {
	if int(addr) >= len(m.Data) {
		log.ModMem.DebugZ("Write8 out of range").
			String("mem", m.Name).
			Hex16("addr", addr).
			Hex8("val", val).
			End()
		return
	}
	m.Data[addr] = val
}

// ReadSlice copies len(dst) bytes starting at addr into dst, and returns the
// number of bytes copied, which is less than len(dst) if the area ends before.
func (m *Mem) ReadSlice(addr int, dst []byte) int {
	if addr < 0 || addr >= len(m.Data) {
		return 0
	}
	return copy(dst, m.Data[addr:])
}

// WriteSlice copies src at addr. The whole write is dropped if it doesn't fit.
func (m *Mem) WriteSlice(addr int, src []byte) bool {
	if addr < 0 || addr+len(src) > len(m.Data) {
		log.ModMem.DebugZ("WriteSlice dropped").
			String("mem", m.Name).
			Int("addr", addr).
			Int("len", len(src)).
			End()
		return false
	}
	copy(m.Data[addr:], src)
	return true
}

// Reset zeroes the whole memory area.
func (m *Mem) Reset() {
	clear(m.Data)
}

// SaveState returns a raw copy of the memory content.
func (m *Mem) SaveState() []byte {
	return append([]byte(nil), m.Data...)
}

// LoadState restores a raw dump previously returned by SaveState. The memory
// is left untouched if the dump size doesn't match.
func (m *Mem) LoadState(buf []byte) error {
	if len(buf) != len(m.Data) {
		return fmt.Errorf("%s: state size mismatch: got %d bytes, want %d", m.Name, len(buf), len(m.Data))
	}
	copy(m.Data, buf)
	return nil
}
