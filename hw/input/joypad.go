package input

import (
	"nesemu/emu/log"
	"nesemu/hw/hwio"
)

// Ports handles I/O with the paddles plugged in the 2 console ports,
// through $4016 (strobe, port 1 data) and $4017 (port 2 data). Writes to
// $4017 belong to the APU frame counter.
type Ports struct {
	prov Provider

	JOYPAD1 hwio.Reg8 `hwio:"offset=0x16,rcb,pcb,wcb"`
	JOYPAD2 hwio.Reg8 `hwio:"offset=0x17,readonly,rcb,pcb"`

	strobe bool
	state  [2]uint8 // state shift registers.
}

// NewPorts returns Ports reading paddles from prov, which can be nil if no
// paddle is plugged.
func NewPorts(prov Provider) *Ports {
	p := &Ports{prov: prov}
	hwio.MustInitRegs(p)
	return p
}

// MapRegisters maps the joypad registers on the CPU I/O table.
func (p *Ports) MapRegisters(io *hwio.Table) {
	io.MapBank(0x4000, p, 0)
}

func (p *Ports) SetProvider(prov Provider) {
	p.prov = prov
}

func (p *Ports) Reset() {
	p.strobe = false
	p.state = [2]uint8{}
}

// capture state of all connected input devices.
func (p *Ports) loadstate() {
	if p.prov == nil {
		p.state = [2]uint8{}
		return
	}
	p.state[0] = uint8(p.prov.Buttons(0))
	p.state[1] = uint8(p.prov.Buttons(1))
	log.ModInput.DebugZ("paddles latched").
		Hex8("pad1", p.state[0]).
		Hex8("pad2", p.state[1]).
		End()
}

// WriteJOYPAD1 handles a write to $4016. The paddles are latched while the
// strobe bit is set.
func (p *Ports) WriteJOYPAD1(_, val uint8) {
	prev := p.strobe
	p.strobe = val&1 == 1
	if prev && !p.strobe {
		p.loadstate()
	}
}

func (p *Ports) ReadJOYPAD1(uint8) uint8 { return p.read(0) }
func (p *Ports) ReadJOYPAD2(uint8) uint8 { return p.read(1) }
func (p *Ports) PeekJOYPAD1(uint8) uint8 { return p.peek(0) }
func (p *Ports) PeekJOYPAD2(uint8) uint8 { return p.peek(1) }

func (p *Ports) read(port int) uint8 {
	if p.strobe {
		p.loadstate()
	}

	ret := p.state[port] & 1
	p.state[port] >>= 1

	// After 8 bits are read, all subsequent bits will report 1 on a standard
	// NES controller.
	p.state[port] |= 0x80

	// Emulate open bus behavior.
	return 0x40 | ret
}

// peek returns the next bit without shifting nor latching the paddle.
func (p *Ports) peek(port int) uint8 {
	if p.strobe && p.prov != nil {
		return 0x40 | uint8(p.prov.Buttons(port))&1
	}
	return 0x40 | p.state[port]&1
}
