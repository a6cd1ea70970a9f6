package apu

import "nesemu/emu/log"

// Noise timer periods, in CPU cycles.
var noisePeriods = [16]uint16{
	4, 8, 16, 32, 64, 96, 128, 160, 202, 254, 380, 508, 762, 1016, 2034, 4068,
}

const noiseSeed = 1 << 14

// noiseChannel generates pseudo-random 1-bit noise at 16 different
// frequencies.
//
//	      Timer --> Shift Register   Length Counter
//	                    |                |
//	                    v                v
//	Envelope -------> Gate ----------> Gate --> (to mixer)
type noiseChannel struct {
	enabled bool

	env    envelope
	length lengthCounter
	timer  timer

	shiftReg  uint16
	mode      uint8
	randomBit uint8

	sampleValue uint8
}

func newNoiseChannel() *noiseChannel {
	return &noiseChannel{shiftReg: noiseSeed}
}

func (nc *noiseChannel) WriteRegister(offset uint16, val uint8) {
	switch offset & 3 {
	case 0:
		nc.env.write(val)
		nc.length.halt = val&0x20 != 0
	case 1:
		// unused
	case 2:
		nc.timer.period = noisePeriods[val&0x0F] - 1
		nc.mode = val >> 7
	case 3:
		if nc.enabled {
			nc.length.load(val >> 3)
		}
		nc.env.restart()
	}
	log.ModSound.DebugZ("noise write").
		Uint16("off", offset).
		Hex8("val", val).
		End()
	nc.updateSampleValue()
}

func (nc *noiseChannel) clockTimer() {
	if !nc.timer.clock() {
		return
	}
	tap := uint16(1)
	if nc.mode == 1 {
		tap = 6
	}
	fb := (nc.shiftReg ^ nc.shiftReg>>tap) & 1
	nc.shiftReg = nc.shiftReg>>1 | fb<<14
	nc.randomBit = uint8(^nc.shiftReg & 1)
	nc.updateSampleValue()
}

func (nc *noiseChannel) ClockLengthCounter() {
	nc.length.clock()
	nc.updateSampleValue()
}

func (nc *noiseChannel) ClockEnvelope() {
	nc.env.clock()
	nc.updateSampleValue()
}

func (nc *noiseChannel) updateSampleValue() {
	if !nc.enabled || !nc.length.active() {
		nc.sampleValue = 0
		return
	}
	nc.sampleValue = nc.randomBit * nc.env.masterVolume
}

func (nc *noiseChannel) CurrentSample() uint8 { return nc.sampleValue }
func (nc *noiseChannel) IsEnabled() bool      { return nc.enabled }
func (nc *noiseChannel) LengthStatus() bool   { return nc.enabled && nc.length.active() }

// SetEnabled enables or disables the channel. Disabling it clears the length
// counter and silences the channel.
func (nc *noiseChannel) SetEnabled(enabled bool) {
	nc.enabled = enabled
	if !enabled {
		nc.length.counter = 0
	}
	nc.updateSampleValue()
}

func (nc *noiseChannel) Reset() {
	*nc = noiseChannel{shiftReg: noiseSeed}
}
