package hw

// exec executes the semantics of op, whose operand address has already been
// computed. It returns the cycles to add to the base cycle count (taken
// branches).
func (c *CPU) exec(op Opcode, addr uint16, crossed bool) int {
	switch op.Kind {
	case ADC:
		c.add(c.Bus.Read8(addr))
	case SBC:
		c.add(^c.Bus.Read8(addr))
	case AND:
		c.A &= c.Bus.Read8(addr)
		c.P.setNZ(c.A)
	case ORA:
		c.A |= c.Bus.Read8(addr)
		c.P.setNZ(c.A)
	case EOR:
		c.A ^= c.Bus.Read8(addr)
		c.P.setNZ(c.A)

	case ASL:
		c.rmw(op.Mode, addr, func(v uint8) uint8 {
			c.P.writeFlag(Carry, v&0x80 != 0)
			return v << 1
		})
	case LSR:
		c.rmw(op.Mode, addr, func(v uint8) uint8 {
			c.P.writeFlag(Carry, v&0x01 != 0)
			return v >> 1
		})
	case ROL:
		c.rmw(op.Mode, addr, func(v uint8) uint8 {
			carry := c.P.carry()
			c.P.writeFlag(Carry, v&0x80 != 0)
			return v<<1 | carry
		})
	case ROR:
		c.rmw(op.Mode, addr, func(v uint8) uint8 {
			carry := c.P.carry()
			c.P.writeFlag(Carry, v&0x01 != 0)
			return v>>1 | carry<<7
		})

	case BCC:
		return c.branch(!c.P.hasFlag(Carry), addr, crossed)
	case BCS:
		return c.branch(c.P.hasFlag(Carry), addr, crossed)
	case BNE:
		return c.branch(!c.P.hasFlag(Zero), addr, crossed)
	case BEQ:
		return c.branch(c.P.hasFlag(Zero), addr, crossed)
	case BPL:
		return c.branch(!c.P.hasFlag(Negative), addr, crossed)
	case BMI:
		return c.branch(c.P.hasFlag(Negative), addr, crossed)
	case BVC:
		return c.branch(!c.P.hasFlag(Overflow), addr, crossed)
	case BVS:
		return c.branch(c.P.hasFlag(Overflow), addr, crossed)

	case BIT:
		v := c.Bus.Read8(addr)
		c.P.writeFlag(Zero, c.A&v == 0)
		c.P.writeFlag(Overflow, v&0x40 != 0)
		c.P.writeFlag(Negative, v&0x80 != 0)

	case BRK:
		// BRK is followed by a padding byte.
		c.PC++
		c.interrupt(IRQVector, true)

	case CLC:
		c.P.clearFlags(Carry)
	case CLD:
		c.P.clearFlags(Decimal)
	case CLI:
		c.P.clearFlags(Interrupt)
	case CLV:
		c.P.clearFlags(Overflow)
	case SEC:
		c.P.setFlags(Carry)
	case SED:
		c.P.setFlags(Decimal)
	case SEI:
		c.P.setFlags(Interrupt)

	case CMP:
		c.compare(c.A, c.Bus.Read8(addr))
	case CPX:
		c.compare(c.X, c.Bus.Read8(addr))
	case CPY:
		c.compare(c.Y, c.Bus.Read8(addr))

	case DEC:
		v := c.Bus.Read8(addr) - 1
		c.Bus.Write8(addr, v)
		c.P.setNZ(v)
	case INC:
		v := c.Bus.Read8(addr) + 1
		c.Bus.Write8(addr, v)
		c.P.setNZ(v)
	case DEX:
		c.X--
		c.P.setNZ(c.X)
	case DEY:
		c.Y--
		c.P.setNZ(c.Y)
	case INX:
		c.X++
		c.P.setNZ(c.X)
	case INY:
		c.Y++
		c.P.setNZ(c.Y)

	case JMP:
		c.PC = addr
	case JSR:
		c.push16(c.PC - 1)
		c.PC = addr
	case RTS:
		c.PC = c.pull16() + 1
	case RTI:
		c.pullP()
		c.PC = c.pull16()

	case LDA:
		c.A = c.Bus.Read8(addr)
		c.P.setNZ(c.A)
	case LDX:
		c.X = c.Bus.Read8(addr)
		c.P.setNZ(c.X)
	case LDY:
		c.Y = c.Bus.Read8(addr)
		c.P.setNZ(c.Y)
	case STA:
		c.Bus.Write8(addr, c.A)
	case STX:
		c.Bus.Write8(addr, c.X)
	case STY:
		c.Bus.Write8(addr, c.Y)

	case PHA:
		c.push8(c.A)
	case PHP:
		c.push8(uint8(c.P | Break | Reserved))
	case PLA:
		c.A = c.pull8()
		c.P.setNZ(c.A)
	case PLP:
		c.pullP()

	case TAX:
		c.X = c.A
		c.P.setNZ(c.X)
	case TAY:
		c.Y = c.A
		c.P.setNZ(c.Y)
	case TSX:
		c.X = c.SP
		c.P.setNZ(c.X)
	case TXA:
		c.A = c.X
		c.P.setNZ(c.A)
	case TXS:
		c.SP = c.X
	case TYA:
		c.A = c.Y
		c.P.setNZ(c.A)

	case NOP, DUMMY, Invalid:
		// Undefined opcodes only consume their cycles.
	}
	return 0
}

// add performs binary addition with carry. Decimal mode is ignored.
func (c *CPU) add(val uint8) {
	sum := uint16(c.A) + uint16(val) + uint16(c.P.carry())
	res := uint8(sum)
	c.P.writeFlag(Carry, sum > 0xFF)
	c.P.writeFlag(Overflow, (c.A^res)&(val^res)&0x80 != 0)
	c.A = res
	c.P.setNZ(c.A)
}

func (c *CPU) compare(reg, val uint8) {
	c.P.writeFlag(Carry, reg >= val)
	c.P.setNZ(reg - val)
}

// rmw applies f to the accumulator or to the memory operand.
func (c *CPU) rmw(mode AddrMode, addr uint16, f func(uint8) uint8) {
	if mode == ACC {
		c.A = f(c.A)
		c.P.setNZ(c.A)
		return
	}
	v := f(c.Bus.Read8(addr))
	c.Bus.Write8(addr, v)
	c.P.setNZ(v)
}

// branch jumps to addr if cond is true. A taken branch costs one more cycle,
// two if it lands on another page.
func (c *CPU) branch(cond bool, addr uint16, crossed bool) int {
	if !cond {
		return 0
	}
	c.PC = addr
	if crossed {
		return 2
	}
	return 1
}

// pullP pulls P from the stack. B is ignored and U always reads as set.
func (c *CPU) pullP() {
	c.P = P(c.pull8())&^Break | Reserved
}
