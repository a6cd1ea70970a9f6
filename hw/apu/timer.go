package apu

// timer is a divider reloaded with period each time it expires.
type timer struct {
	counter uint16
	period  uint16
}

// clock clocks the timer and reports whether it expired.
func (t *timer) clock() bool {
	if t.counter == 0 {
		t.counter = t.period
		return true
	}
	t.counter--
	return false
}

func (t *timer) setLow(val uint8) {
	t.period = t.period&0x0700 | uint16(val)
}

func (t *timer) setHigh(val uint8) {
	t.period = t.period&0x00FF | uint16(val&0x07)<<8
}
