package hw

// P is the 6502 processor status register.
type P uint8

const (
	Carry = 1 << iota
	Zero
	Interrupt
	Decimal // stored, but has no effect on arithmetic on the 2A03.
	Break
	Reserved
	Overflow
	Negative
)

func (p P) String() string {
	const bits = "nvubdizcNVUBDIZC"

	s := make([]byte, 8)
	for i := range 8 {
		ibit := (uint8(p) >> (7 - i)) & 1
		s[i] = bits[i+int(8*ibit)]
	}
	return string(s)
}

func (p *P) setFlags(flags uint8) {
	*p |= P(flags)
}

func (p *P) clearFlags(flags uint8) {
	*p &= ^P(flags)
}

func (p P) hasFlag(flag uint8) bool {
	return uint8(p)&flag == flag
}

func (p *P) writeFlag(flag uint8, set bool) {
	if set {
		p.setFlags(flag)
	} else {
		p.clearFlags(flag)
	}
}

func (p *P) setNZ(val uint8) {
	p.clearFlags(Zero | Negative)
	if val == 0 {
		p.setFlags(Zero)
	} else if val&0x80 != 0 {
		p.setFlags(Negative)
	}
}

func (p P) carry() uint8 {
	return uint8(p) & Carry
}
