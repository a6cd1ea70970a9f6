package apu

import "nesemu/emu/log"

var triangleSequence = [32]uint8{
	15, 14, 13, 12, 11, 10, 9, 8, 7, 6, 5, 4, 3, 2, 1, 0,
	0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15,
}

// triangleChannel generates a pseudo-triangle wave. It has no volume control.
//
//	      Linear Counter   Length Counter
//	            |                |
//	            v                v
//	Timer ---> Gate ----------> Gate ---> Sequencer ---> (to mixer)
type triangleChannel struct {
	enabled bool

	length lengthCounter
	timer  timer

	control       bool // also the length counter halt flag
	linearPeriod  uint8
	linearCounter uint8
	linearReload  bool

	seqPos uint8

	sampleValue uint8
}

func newTriangleChannel() *triangleChannel {
	return &triangleChannel{}
}

func (tc *triangleChannel) WriteRegister(offset uint16, val uint8) {
	switch offset & 3 {
	case 0:
		tc.control = val&0x80 != 0
		tc.length.halt = tc.control
		tc.linearPeriod = val & 0x7F
	case 1:
		// unused
	case 2:
		tc.timer.setLow(val)
	case 3:
		tc.timer.setHigh(val)
		if tc.enabled {
			tc.length.load(val >> 3)
		}
		tc.linearReload = true
	}
	log.ModSound.DebugZ("triangle write").
		Uint16("off", offset).
		Hex8("val", val).
		End()
	tc.updateSampleValue()
}

func (tc *triangleChannel) clockTimer() {
	if !tc.timer.clock() {
		return
	}
	if tc.linearCounter > 0 && tc.length.active() {
		tc.seqPos = (tc.seqPos + 1) & 31
		tc.updateSampleValue()
	}
}

func (tc *triangleChannel) ClockLengthCounter() {
	tc.length.clock()
	tc.updateSampleValue()
}

// ClockEnvelope clocks the linear counter, the triangle having no envelope.
func (tc *triangleChannel) ClockEnvelope() {
	if tc.linearReload {
		tc.linearCounter = tc.linearPeriod
	} else if tc.linearCounter > 0 {
		tc.linearCounter--
	}
	if !tc.control {
		tc.linearReload = false
	}
	tc.updateSampleValue()
}

func (tc *triangleChannel) updateSampleValue() {
	if !tc.enabled || !tc.length.active() {
		tc.sampleValue = 0
		return
	}
	tc.sampleValue = triangleSequence[tc.seqPos]
}

func (tc *triangleChannel) CurrentSample() uint8 { return tc.sampleValue }
func (tc *triangleChannel) IsEnabled() bool      { return tc.enabled }
func (tc *triangleChannel) LengthStatus() bool   { return tc.enabled && tc.length.active() }

func (tc *triangleChannel) SetEnabled(enabled bool) {
	tc.enabled = enabled
	if !enabled {
		tc.length.counter = 0
	}
	tc.updateSampleValue()
}

func (tc *triangleChannel) Reset() {
	*tc = triangleChannel{}
}
