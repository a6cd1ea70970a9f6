package apu

import (
	"fmt"

	"nesemu/emu/log"
	"nesemu/hw/hwdefs"
	"nesemu/hw/hwio"
)

// APU registers outside of the channel windows.
const (
	StatusReg       = 0x4015
	FrameCounterReg = 0x4017
)

type APU struct {
	cpu   cpu
	mixer *Mixer

	CHANNELS hwio.Device `hwio:"offset=0x00,size=0x14,writeonly,wcb"`
	STATUS   hwio.Reg8   `hwio:"offset=0x15,rcb,pcb,wcb"`
	FRAMECNT hwio.Reg8   `hwio:"offset=0x17,writeonly,wcb"`

	square1  *squareChannel
	square2  *squareChannel
	triangle *triangleChannel
	noise    *noiseChannel
	dmc      *dmcChannel

	regs         Registry
	frameCounter frameCounter

	curCycle uint32
}

// New creates an APU raising its interrupts on cpu and sending its output
// to mixer.
func New(cpu cpu, mixer *Mixer) *APU {
	a := &APU{
		cpu:      cpu,
		mixer:    mixer,
		square1:  newSquareChannel(Square1),
		square2:  newSquareChannel(Square2),
		triangle: newTriangleChannel(),
		noise:    newNoiseChannel(),
		dmc:      newDMCChannel(cpu),
	}
	a.frameCounter.cpu = cpu
	a.frameCounter.tick = a.frameTick

	for _, w := range []struct {
		lo uint16
		ch Channel
	}{
		{0x4000, a.square1},
		{0x4004, a.square2},
		{0x4008, a.triangle},
		{0x400C, a.noise},
		{0x4010, a.dmc},
	} {
		if err := a.regs.RegisterChannel(w.lo, w.lo+regsPerChannel-1, w.ch); err != nil {
			panic(fmt.Sprintf("apu: %v", err))
		}
	}
	a.regs.Seal()
	hwio.MustInitRegs(a)
	return a
}

// MapRegisters maps the APU registers on the CPU I/O table.
func (a *APU) MapRegisters(io *hwio.Table) {
	io.MapBank(0x4000, a, 0)
}

// SetMemReader sets the memory the DMC channel fetches its samples from.
func (a *APU) SetMemReader(mem MemReader) {
	a.dmc.setMemReader(mem)
}

func (a *APU) Mixer() *Mixer { return a.mixer }

// Channel returns the channel with the given id.
func (a *APU) Channel(id ChannelID) Channel {
	switch id {
	case Square1:
		return a.square1
	case Square2:
		return a.square2
	case Triangle:
		return a.triangle
	case Noise:
		return a.noise
	case DPCM:
		return a.dmc
	}
	return nil
}

// $4000-$4013
func (a *APU) WriteCHANNELS(addr uint16, val uint8) {
	a.regs.RouteWrite(addr, val)
}

// $4017
func (a *APU) WriteFRAMECNT(_, val uint8) {
	a.frameCounter.write(val)
}

// $4015
func (a *APU) WriteSTATUS(_, val uint8) {
	log.ModSound.InfoZ("write status").Hex8("val", val).End()

	// Must be cleared before enabling the DMC, which may raise it again.
	a.cpu.ClearIRQ(hwdefs.DMC)

	a.square1.SetEnabled(val&0x01 != 0)
	a.square2.SetEnabled(val&0x02 != 0)
	a.triangle.SetEnabled(val&0x04 != 0)
	a.noise.SetEnabled(val&0x08 != 0)
	a.dmc.SetEnabled(val&0x10 != 0)
}

func (a *APU) PeekSTATUS(uint8) uint8 { return a.Status() }

// ReadSTATUS reads $4015, which clears the frame interrupt.
func (a *APU) ReadSTATUS(uint8) uint8 {
	status := a.Status()
	a.cpu.ClearIRQ(hwdefs.FrameCounter)
	log.ModSound.DebugZ("read status").Hex8("status", status).End()
	return status
}

// Status returns the value of $4015 without side effects.
func (a *APU) Status() uint8 {
	var status uint8
	for i, ch := range a.channels() {
		if ch.LengthStatus() {
			status |= 1 << i
		}
	}
	if a.cpu.HasIRQSource(hwdefs.FrameCounter) {
		status |= 0x40
	}
	if a.cpu.HasIRQSource(hwdefs.DMC) {
		status |= 0x80
	}
	return status
}

func (a *APU) channels() [hwdefs.NumAudioChannels]Channel {
	return [...]Channel{a.square1, a.square2, a.triangle, a.noise, a.dmc}
}

func (a *APU) frameTick(ft FrameType) {
	// Quarter and half frames clock envelopes and the linear counter.
	for _, ch := range a.channels() {
		ch.ClockEnvelope()
	}
	if ft == HalfFrame {
		for _, ch := range a.channels() {
			ch.ClockLengthCounter()
		}
	}
}

// Step runs the APU for the given number of CPU cycles.
func (a *APU) Step(cycles int) {
	for range cycles {
		a.frameCounter.clock()
		a.square1.clockTimer()
		a.square2.clockTimer()
		a.triangle.clockTimer()
		a.noise.clockTimer()
		a.dmc.clockTimer()

		a.mixer.update(a.curCycle, a.output())
		a.curCycle++
	}
}

func (a *APU) output() [hwdefs.NumAudioChannels]uint8 {
	var out [hwdefs.NumAudioChannels]uint8
	for i, ch := range a.channels() {
		out[i] = ch.CurrentSample()
	}
	return out
}

// EndFrame ends the current audio frame, its samples can then be read from
// the mixer.
func (a *APU) EndFrame() {
	a.mixer.EndFrame(a.curCycle)
	a.curCycle = 0
}

func (a *APU) Reset() {
	for _, ch := range a.channels() {
		ch.Reset()
	}
	a.frameCounter.reset()
	a.cpu.ClearIRQ(hwdefs.FrameCounter | hwdefs.DMC)
	a.mixer.Reset()
	a.curCycle = 0
}
