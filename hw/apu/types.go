package apu

import "nesemu/hw/hwdefs"

// ChannelID identifies one of the 5 audio channels.
type ChannelID uint8

const (
	Square1 ChannelID = iota
	Square2
	Triangle
	Noise
	DPCM
)

var channelNames = [hwdefs.NumAudioChannels]string{"square1", "square2", "triangle", "noise", "dmc"}

func (id ChannelID) String() string {
	if int(id) < len(channelNames) {
		return channelNames[id]
	}
	return "unknown"
}

// Channel is the interface shared by all audio channels.
type Channel interface {
	// WriteRegister writes val into the channel register at offset (0-3).
	WriteRegister(offset uint16, val uint8)

	// ClockLengthCounter is called on half-frame ticks.
	ClockLengthCounter()

	// ClockEnvelope is called on quarter-frame ticks.
	ClockEnvelope()

	// CurrentSample returns the current channel output. It has no side
	// effects and is always 0 when the channel is disabled or its length
	// counter reached 0.
	CurrentSample() uint8

	SetEnabled(enabled bool)
	IsEnabled() bool

	// LengthStatus reports whether the channel is enabled and its length
	// counter is non-zero, as read in $4015.
	LengthStatus() bool

	Reset()
}

// cpu is the interface the APU uses to raise interrupts and stall the CPU.
type cpu interface {
	SetIRQ(src hwdefs.IRQSource)
	ClearIRQ(src hwdefs.IRQSource)
	HasIRQSource(src hwdefs.IRQSource) bool
	HaltCycles(n int)
}

// MemReader gives the DMC access to CPU memory.
type MemReader interface {
	Read8(addr uint16) uint8
}
