package apu

import (
	"nesemu/emu/log"
	"nesemu/hw/hwdefs"
)

// DMC timer periods, in CPU cycles.
var dmcPeriods = [16]uint16{
	428, 380, 340, 320, 286, 254, 226, 214, 190, 160, 142, 128, 106, 84, 72, 54,
}

// Number of cycles the CPU is stalled for each DMC memory read.
const dmcReadHalt = 4

// dmcChannel outputs delta-encoded 1-bit samples fetched from CPU memory.
//
//	Timer
//	  |
//	  v
//	Reader ---> Buffer ---> Shifter ---> Output level ---> (to mixer)
type dmcChannel struct {
	cpu cpu
	mem MemReader

	enabled    bool
	irqEnabled bool
	loop       bool

	timer timer

	sampleAddr   uint16
	sampleLength uint16
	curAddr      uint16
	bytesLeft    uint16

	buffer      uint8
	bufferEmpty bool

	shiftReg     uint8
	bitsLeft     uint8
	silence      bool
	deltaCounter uint8

	sampleValue uint8
}

func newDMCChannel(cpu cpu) *dmcChannel {
	dmc := &dmcChannel{cpu: cpu}
	dmc.Reset()
	return dmc
}

func (dmc *dmcChannel) setMemReader(mem MemReader) {
	dmc.mem = mem
}

func (dmc *dmcChannel) WriteRegister(offset uint16, val uint8) {
	switch offset & 3 {
	case 0:
		dmc.irqEnabled = val&0x80 != 0
		dmc.loop = val&0x40 != 0
		dmc.timer.period = dmcPeriods[val&0x0F] - 1
		if !dmc.irqEnabled {
			dmc.cpu.ClearIRQ(hwdefs.DMC)
		}
	case 1:
		dmc.deltaCounter = val & 0x7F
	case 2:
		dmc.sampleAddr = 0xC000 | uint16(val)<<6
	case 3:
		dmc.sampleLength = uint16(val)<<4 | 1
	}
	log.ModSound.DebugZ("dmc write").
		Uint16("off", offset).
		Hex8("val", val).
		End()
	dmc.updateSampleValue()
}

func (dmc *dmcChannel) restart() {
	dmc.curAddr = dmc.sampleAddr
	dmc.bytesLeft = dmc.sampleLength
}

// fill fetches the next sample byte into the buffer if it's empty.
func (dmc *dmcChannel) fill() {
	if !dmc.bufferEmpty || dmc.bytesLeft == 0 || dmc.mem == nil {
		return
	}

	dmc.cpu.HaltCycles(dmcReadHalt)
	dmc.buffer = dmc.mem.Read8(dmc.curAddr)
	dmc.bufferEmpty = false

	dmc.curAddr++
	if dmc.curAddr == 0 {
		dmc.curAddr = 0x8000
	}
	dmc.bytesLeft--
	if dmc.bytesLeft == 0 {
		switch {
		case dmc.loop:
			dmc.restart()
		case dmc.irqEnabled:
			dmc.cpu.SetIRQ(hwdefs.DMC)
		}
	}
}

func (dmc *dmcChannel) clockTimer() {
	if !dmc.timer.clock() {
		return
	}

	if !dmc.silence {
		if dmc.shiftReg&1 != 0 {
			if dmc.deltaCounter <= 125 {
				dmc.deltaCounter += 2
			}
		} else if dmc.deltaCounter >= 2 {
			dmc.deltaCounter -= 2
		}
	}
	dmc.shiftReg >>= 1

	if dmc.bitsLeft > 0 {
		dmc.bitsLeft--
	}
	if dmc.bitsLeft == 0 {
		dmc.bitsLeft = 8
		if dmc.bufferEmpty {
			dmc.silence = true
		} else {
			dmc.silence = false
			dmc.shiftReg = dmc.buffer
			dmc.bufferEmpty = true
			dmc.fill()
		}
	}
	dmc.updateSampleValue()
}

// The DMC has neither length counter nor envelope.
func (dmc *dmcChannel) ClockLengthCounter() {}
func (dmc *dmcChannel) ClockEnvelope()      {}

func (dmc *dmcChannel) updateSampleValue() {
	if !dmc.enabled {
		dmc.sampleValue = 0
		return
	}
	dmc.sampleValue = dmc.deltaCounter
}

func (dmc *dmcChannel) CurrentSample() uint8 { return dmc.sampleValue }
func (dmc *dmcChannel) IsEnabled() bool      { return dmc.enabled }

// LengthStatus reports whether sample bytes remain to be read.
func (dmc *dmcChannel) LengthStatus() bool { return dmc.bytesLeft > 0 }

// SetEnabled starts the sample playback if it was finished, or stops it.
func (dmc *dmcChannel) SetEnabled(enabled bool) {
	dmc.enabled = enabled
	if !enabled {
		dmc.bytesLeft = 0
	} else if dmc.bytesLeft == 0 {
		dmc.restart()
		dmc.fill()
	}
	dmc.updateSampleValue()
}

func (dmc *dmcChannel) Reset() {
	cpu, mem := dmc.cpu, dmc.mem
	*dmc = dmcChannel{
		cpu:          cpu,
		mem:          mem,
		sampleAddr:   0xC000,
		sampleLength: 1,
		bufferEmpty:  true,
		bitsLeft:     8,
		silence:      true,
	}
	dmc.timer.period = dmcPeriods[0] - 1
}
