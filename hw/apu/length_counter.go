package apu

var lengthTable = [32]uint8{
	10, 254, 20, 2, 40, 4, 80, 6, 160, 8, 60, 10, 14, 12, 26, 14,
	12, 16, 24, 18, 48, 20, 96, 22, 192, 24, 72, 26, 16, 28, 32, 30,
}

// lengthCounter silences a channel when it reaches 0.
type lengthCounter struct {
	halt    bool
	counter uint8
}

// load reloads the counter with the length table entry at idx.
func (lc *lengthCounter) load(idx uint8) {
	lc.counter = lengthTable[idx&0x1F]
}

// clock decrements the counter and reports whether it just reached 0.
func (lc *lengthCounter) clock() bool {
	if lc.halt || lc.counter == 0 {
		return false
	}
	lc.counter--
	return lc.counter == 0
}

func (lc *lengthCounter) active() bool {
	return lc.counter > 0
}
