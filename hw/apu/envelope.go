package apu

// envelope generates either a constant volume or a decaying saw envelope.
type envelope struct {
	decayDisable bool  // constant volume
	loop         bool  // restart decay at 0, also halts the length counter
	decayRate    uint8 // envelope period or constant volume
	decayCounter uint8
	volume       uint8
	reset        bool

	masterVolume uint8
}

func (env *envelope) write(val uint8) {
	env.decayDisable = val&0x10 != 0
	env.decayRate = val & 0x0F
	env.loop = val&0x20 != 0
	env.updateMasterVolume()
}

func (env *envelope) restart() {
	env.reset = true
}

// clock clocks the envelope, a pending reset has priority over decay.
func (env *envelope) clock() {
	switch {
	case env.reset:
		env.reset = false
		env.decayCounter = env.decayRate + 1
		env.volume = 0xF
	case env.decayCounter <= 1:
		env.decayCounter = env.decayRate + 1
		if env.volume > 0 {
			env.volume--
		} else if env.loop {
			env.volume = 0xF
		}
	default:
		env.decayCounter--
	}
	env.updateMasterVolume()
}

func (env *envelope) updateMasterVolume() {
	if env.decayDisable {
		env.masterVolume = env.decayRate
	} else {
		env.masterVolume = env.volume
	}
}
