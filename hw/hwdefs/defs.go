package hwdefs

import "strings"

type IRQSource uint8

const (
	External IRQSource = 1 << iota
	FrameCounter
	DMC
	Mapper

	numSources = 4
)

var irqSrcNames = [numSources]string{
	"ext",
	"fcnt",
	"dmc",
	"mapper",
}

func (irq IRQSource) String() string {
	var names []string
	for i := range numSources {
		if irq&(1<<i) != 0 {
			names = append(names, irqSrcNames[i])
		}
	}
	return strings.Join(names, "|")
}

// Mirroring describes how the 4 logical nametables map onto PPU memory.
type Mirroring uint8

const (
	HorzMirroring Mirroring = iota
	VertMirroring
	OnlyAScreen
	OnlyBScreen
	FourScreen
)

func (m Mirroring) String() string {
	switch m {
	case HorzMirroring:
		return "horizontal"
	case VertMirroring:
		return "vertical"
	case OnlyAScreen:
		return "single screen A"
	case OnlyBScreen:
		return "single screen B"
	case FourScreen:
		return "four screen"
	}
	return "unknown"
}

const (
	SoftReset = true
	HardReset = false
)

const NumAudioChannels = 5 // Square1, Square2, Triangle, Noise, DMC

// Hardware clocks.
const (
	NTSCCPUClock      = 1789773
	CPUCyclesPerFrame = 29781
	PPUDotsPerCycle   = 3
)
