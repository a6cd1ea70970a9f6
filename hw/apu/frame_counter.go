package apu

import (
	"nesemu/emu/log"
	"nesemu/hw/hwdefs"
)

type FrameType uint8

const (
	NoFrame FrameType = iota
	QuarterFrame
	HalfFrame
)

var stepCycles = [2][6]int32{
	{7457, 14913, 22371, 29828, 29829, 29830},
	{7457, 14913, 22371, 29829, 37281, 37282},
}

var frameType = [6]FrameType{QuarterFrame, HalfFrame, QuarterFrame, NoFrame, HalfFrame, NoFrame}

// frameCounter drives the envelopes, length counters and sweep units, and
// raises the frame IRQ in 4-step mode.
type frameCounter struct {
	cpu  cpu
	tick func(FrameType)

	cycle      int32
	curStep    int
	stepMode   int // 0: 4-step mode, 1: 5-step mode
	inhibitIRQ bool
}

func (fc *frameCounter) reset() {
	fc.cycle = 0
	fc.curStep = 0
	fc.stepMode = 0
	fc.inhibitIRQ = false
}

// write handles a write to $4017.
func (fc *frameCounter) write(val uint8) {
	log.ModSound.InfoZ("write frame counter").Hex8("val", val).End()

	fc.stepMode = int(val >> 7)
	fc.inhibitIRQ = val&0x40 != 0
	if fc.inhibitIRQ {
		fc.cpu.ClearIRQ(hwdefs.FrameCounter)
	}

	fc.cycle = 0
	fc.curStep = 0
	if fc.stepMode == 1 {
		fc.tick(HalfFrame)
	}
}

// clock advances the frame counter by one CPU cycle.
func (fc *frameCounter) clock() {
	fc.cycle++
	if fc.cycle < stepCycles[fc.stepMode][fc.curStep] {
		return
	}

	if fc.stepMode == 0 && fc.curStep >= 3 && !fc.inhibitIRQ {
		fc.cpu.SetIRQ(hwdefs.FrameCounter)
	}
	if ft := frameType[fc.curStep]; ft != NoFrame {
		fc.tick(ft)
	}

	fc.curStep++
	if fc.curStep == len(stepCycles[0]) {
		fc.curStep = 0
		fc.cycle = 0
	}
}
