package apu

import "nesemu/emu/log"

var dutyTable = [4][8]uint8{
	{0, 1, 0, 0, 0, 0, 0, 0},
	{0, 1, 1, 0, 0, 0, 0, 0},
	{0, 1, 1, 1, 1, 0, 0, 0},
	{1, 0, 0, 1, 1, 1, 1, 1},
}

// squareChannel is one of the 2 pulse channels, at $4000 and $4004.
//
//	Sweep -> Timer/2 -> Sequencer -> Length -> Envelope -> (to mixer)
type squareChannel struct {
	id      ChannelID
	enabled bool

	env    envelope
	length lengthCounter
	timer  timer
	div2   bool

	duty    uint8
	dutyPos uint8

	sweepEnabled bool
	sweepPeriod  uint8
	sweepNegate  bool
	sweepShift   uint8
	sweepCounter uint8
	sweepReload  bool

	sampleValue uint8
}

func newSquareChannel(id ChannelID) *squareChannel {
	return &squareChannel{id: id}
}

func (sq *squareChannel) WriteRegister(offset uint16, val uint8) {
	switch offset & 3 {
	case 0:
		sq.duty = val >> 6
		sq.length.halt = val&0x20 != 0
		sq.env.write(val)
	case 1:
		sq.sweepEnabled = val&0x80 != 0
		sq.sweepPeriod = (val >> 4) & 0x07
		sq.sweepNegate = val&0x08 != 0
		sq.sweepShift = val & 0x07
		sq.sweepReload = true
	case 2:
		sq.timer.setLow(val)
	case 3:
		sq.timer.setHigh(val)
		if sq.enabled {
			sq.length.load(val >> 3)
		}
		sq.env.restart()
		sq.dutyPos = 0
	}
	log.ModSound.DebugZ("square write").
		Stringer("ch", sq.id).
		Uint16("off", offset).
		Hex8("val", val).
		End()
	sq.updateSampleValue()
}

// clockTimer is called on every CPU cycle, the sequencer advances every
// other cycle.
func (sq *squareChannel) clockTimer() {
	sq.div2 = !sq.div2
	if !sq.div2 {
		return
	}
	if sq.timer.clock() {
		sq.dutyPos = (sq.dutyPos + 1) & 7
		sq.updateSampleValue()
	}
}

func (sq *squareChannel) ClockLengthCounter() {
	sq.length.clock()
	sq.clockSweep()
	sq.updateSampleValue()
}

func (sq *squareChannel) ClockEnvelope() {
	sq.env.clock()
	sq.updateSampleValue()
}

func (sq *squareChannel) sweepTarget() uint16 {
	period := sq.timer.period
	delta := period >> sq.sweepShift
	if !sq.sweepNegate {
		return period + delta
	}
	// The first pulse channel uses one's complement.
	if sq.id == Square1 {
		delta++
	}
	if delta > period {
		return 0
	}
	return period - delta
}

func (sq *squareChannel) muted() bool {
	return sq.timer.period < 8 || (!sq.sweepNegate && sq.sweepTarget() > 0x7FF)
}

func (sq *squareChannel) clockSweep() {
	if sq.sweepCounter == 0 && sq.sweepEnabled && sq.sweepShift > 0 && !sq.muted() {
		sq.timer.period = sq.sweepTarget()
	}
	if sq.sweepCounter == 0 || sq.sweepReload {
		sq.sweepCounter = sq.sweepPeriod
		sq.sweepReload = false
	} else {
		sq.sweepCounter--
	}
}

func (sq *squareChannel) updateSampleValue() {
	if !sq.enabled || !sq.length.active() || sq.muted() {
		sq.sampleValue = 0
		return
	}
	sq.sampleValue = dutyTable[sq.duty][sq.dutyPos] * sq.env.masterVolume
}

func (sq *squareChannel) CurrentSample() uint8 { return sq.sampleValue }
func (sq *squareChannel) IsEnabled() bool      { return sq.enabled }
func (sq *squareChannel) LengthStatus() bool   { return sq.enabled && sq.length.active() }

func (sq *squareChannel) SetEnabled(enabled bool) {
	sq.enabled = enabled
	if !enabled {
		sq.length.counter = 0
	}
	sq.updateSampleValue()
}

func (sq *squareChannel) Reset() {
	*sq = squareChannel{id: sq.id}
}
