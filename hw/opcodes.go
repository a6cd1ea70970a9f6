package hw

import "strconv"

// Kind identifies one of the 56 documented 6502 instructions.
type Kind uint8

const (
	ADC Kind = iota
	AND
	ASL
	BCC
	BCS
	BEQ
	BIT
	BMI
	BNE
	BPL
	BRK
	BVC
	BVS
	CLC
	CLD
	CLI
	CLV
	CMP
	CPX
	CPY
	DEC
	DEX
	DEY
	EOR
	INC
	INX
	INY
	JMP
	JSR
	LDA
	LDX
	LDY
	LSR
	NOP
	ORA
	PHA
	PHP
	PLA
	PLP
	ROL
	ROR
	RTI
	RTS
	SBC
	SEC
	SED
	SEI
	STA
	STX
	STY
	TAX
	TAY
	TSX
	TXA
	TXS
	TYA
	DUMMY // halts the processor for a few cycles.

	// Invalid marks opcodes the instruction set doesn't define.
	Invalid Kind = 0xFF
)

const kindNames = "ADCANDASLBCCBCSBEQBITBMIBNEBPLBRKBVCBVSCLCCLDCLICLVCMPCPXCPYDECDEXDEYEORINCINXINYJMPJSRLDALDXLDYLSRNOPORAPHAPHPPLAPLPROLRORRTIRTSSBCSECSEDSEISTASTXSTYTAXTAYTSXTXATXSTYA"

func (k Kind) String() string {
	switch {
	case k == DUMMY:
		return "DUMMY"
	case k == Invalid:
		return "???"
	case k < DUMMY:
		return kindNames[3*k : 3*k+3]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// pageCrossPenalty reports whether an instruction of this kind takes one more
// cycle when its indexed operand address crosses a page.
func (k Kind) pageCrossPenalty() bool {
	switch k {
	case ADC, AND, CMP, EOR, LDA, LDX, LDY, ORA, SBC:
		return true
	}
	return false
}

// AddrMode is an operand addressing mode.
type AddrMode uint8

const (
	ZP AddrMode = iota
	REL
	IMP
	ABS
	ACC
	IMM
	ZPX
	ZPY
	ABSX
	ABSY
	PREIDXIND
	POSTIDXIND
	INDABS

	numAddrModes
)

var addrModeNames = [numAddrModes]string{
	"zp", "rel", "imp", "abs", "acc", "imm", "zpx", "zpy",
	"absx", "absy", "preidxind", "postidxind", "indabs",
}

func (m AddrMode) String() string {
	if m < numAddrModes {
		return addrModeNames[m]
	}
	return "AddrMode(" + strconv.Itoa(int(m)) + ")"
}

// Opcode describes how to decode and execute an opcode byte.
type Opcode struct {
	Kind   Kind
	Mode   AddrMode
	Size   uint8 // instruction length in bytes, opcode included.
	Cycles uint8 // base cycle count.
}

func (op Opcode) Valid() bool { return op.Kind != Invalid }

// OpcodeTable maps opcode bytes to their description. It's a plain value,
// built once with BuildOpcodeTable and never modified afterwards.
type OpcodeTable struct {
	ops    [256]Opcode
	cycles [256]uint8
}

// Lookup returns the description of op. Undefined opcodes have the Invalid
// kind, a size of 1 and the base cycle count of the cycle table.
func (t *OpcodeTable) Lookup(op uint8) Opcode {
	return t.ops[op]
}

// Cycles returns the base cycle count for op, including undefined opcodes.
func (t *OpcodeTable) Cycles(op uint8) uint8 {
	return t.cycles[op]
}

// BuildOpcodeTable builds the opcode table. It has no side effects, calling
// it multiple times always produces equal tables.
func BuildOpcodeTable() OpcodeTable {
	var t OpcodeTable
	t.cycles = cycleTable
	for i := range t.ops {
		t.ops[i] = Opcode{Kind: Invalid, Mode: IMP, Size: 1, Cycles: cycleTable[i]}
	}
	for _, def := range opcodeDefs {
		t.ops[def.op] = Opcode{Kind: def.kind, Mode: def.mode, Size: def.size, Cycles: def.cycles}
	}
	return t
}

type opcodeDef struct {
	op     uint8
	kind   Kind
	mode   AddrMode
	size   uint8
	cycles uint8
}

var opcodeDefs = [...]opcodeDef{
	{0x69, ADC, IMM, 2, 2}, {0x65, ADC, ZP, 2, 3}, {0x75, ADC, ZPX, 2, 4}, {0x6D, ADC, ABS, 3, 4},
	{0x7D, ADC, ABSX, 3, 4}, {0x79, ADC, ABSY, 3, 4}, {0x61, ADC, PREIDXIND, 2, 6}, {0x71, ADC, POSTIDXIND, 2, 5},

	{0x29, AND, IMM, 2, 2}, {0x25, AND, ZP, 2, 3}, {0x35, AND, ZPX, 2, 4}, {0x2D, AND, ABS, 3, 4},
	{0x3D, AND, ABSX, 3, 4}, {0x39, AND, ABSY, 3, 4}, {0x21, AND, PREIDXIND, 2, 6}, {0x31, AND, POSTIDXIND, 2, 5},

	{0x0A, ASL, ACC, 1, 2}, {0x06, ASL, ZP, 2, 5}, {0x16, ASL, ZPX, 2, 6}, {0x0E, ASL, ABS, 3, 6}, {0x1E, ASL, ABSX, 3, 7},

	{0x90, BCC, REL, 2, 2},
	{0xB0, BCS, REL, 2, 2},
	{0xF0, BEQ, REL, 2, 2},
	{0x24, BIT, ZP, 2, 3}, {0x2C, BIT, ABS, 3, 4},
	{0x30, BMI, REL, 2, 2},
	{0xD0, BNE, REL, 2, 2},
	{0x10, BPL, REL, 2, 2},
	{0x00, BRK, IMP, 1, 7},
	{0x50, BVC, REL, 2, 2},
	{0x70, BVS, REL, 2, 2},
	{0x18, CLC, IMP, 1, 2},
	{0xD8, CLD, IMP, 1, 2},
	{0x58, CLI, IMP, 1, 2},
	{0xB8, CLV, IMP, 1, 2},

	{0xC9, CMP, IMM, 2, 2}, {0xC5, CMP, ZP, 2, 3}, {0xD5, CMP, ZPX, 2, 4}, {0xCD, CMP, ABS, 3, 4},
	{0xDD, CMP, ABSX, 3, 4}, {0xD9, CMP, ABSY, 3, 4}, {0xC1, CMP, PREIDXIND, 2, 6}, {0xD1, CMP, POSTIDXIND, 2, 5},

	{0xE0, CPX, IMM, 2, 2}, {0xE4, CPX, ZP, 2, 3}, {0xEC, CPX, ABS, 3, 4},
	{0xC0, CPY, IMM, 2, 2}, {0xC4, CPY, ZP, 2, 3}, {0xCC, CPY, ABS, 3, 4},

	{0xC6, DEC, ZP, 2, 5}, {0xD6, DEC, ZPX, 2, 6}, {0xCE, DEC, ABS, 3, 6}, {0xDE, DEC, ABSX, 3, 7},
	{0xCA, DEX, IMP, 1, 2},
	{0x88, DEY, IMP, 1, 2},

	{0x49, EOR, IMM, 2, 2}, {0x45, EOR, ZP, 2, 3}, {0x55, EOR, ZPX, 2, 4}, {0x4D, EOR, ABS, 3, 4},
	{0x5D, EOR, ABSX, 3, 4}, {0x59, EOR, ABSY, 3, 4}, {0x41, EOR, PREIDXIND, 2, 6}, {0x51, EOR, POSTIDXIND, 2, 5},

	{0xE6, INC, ZP, 2, 5}, {0xF6, INC, ZPX, 2, 6}, {0xEE, INC, ABS, 3, 6}, {0xFE, INC, ABSX, 3, 7},
	{0xE8, INX, IMP, 1, 2},
	{0xC8, INY, IMP, 1, 2},

	{0x4C, JMP, ABS, 3, 3}, {0x6C, JMP, INDABS, 3, 5},
	{0x20, JSR, ABS, 3, 6},

	{0xA9, LDA, IMM, 2, 2}, {0xA5, LDA, ZP, 2, 3}, {0xB5, LDA, ZPX, 2, 4}, {0xAD, LDA, ABS, 3, 4},
	{0xBD, LDA, ABSX, 3, 4}, {0xB9, LDA, ABSY, 3, 4}, {0xA1, LDA, PREIDXIND, 2, 6}, {0xB1, LDA, POSTIDXIND, 2, 5},

	{0xA2, LDX, IMM, 2, 2}, {0xA6, LDX, ZP, 2, 3}, {0xB6, LDX, ZPY, 2, 4}, {0xAE, LDX, ABS, 3, 4}, {0xBE, LDX, ABSY, 3, 4},
	{0xA0, LDY, IMM, 2, 2}, {0xA4, LDY, ZP, 2, 3}, {0xB4, LDY, ZPX, 2, 4}, {0xAC, LDY, ABS, 3, 4}, {0xBC, LDY, ABSX, 3, 4},

	{0x4A, LSR, ACC, 1, 2}, {0x46, LSR, ZP, 2, 5}, {0x56, LSR, ZPX, 2, 6}, {0x4E, LSR, ABS, 3, 6}, {0x5E, LSR, ABSX, 3, 7},

	{0xEA, NOP, IMP, 1, 2},

	{0x09, ORA, IMM, 2, 2}, {0x05, ORA, ZP, 2, 3}, {0x15, ORA, ZPX, 2, 4}, {0x0D, ORA, ABS, 3, 4},
	{0x1D, ORA, ABSX, 3, 4}, {0x19, ORA, ABSY, 3, 4}, {0x01, ORA, PREIDXIND, 2, 6}, {0x11, ORA, POSTIDXIND, 2, 5},

	{0x48, PHA, IMP, 1, 3},
	{0x08, PHP, IMP, 1, 3},
	{0x68, PLA, IMP, 1, 4},
	{0x28, PLP, IMP, 1, 4},

	{0x2A, ROL, ACC, 1, 2}, {0x26, ROL, ZP, 2, 5}, {0x36, ROL, ZPX, 2, 6}, {0x2E, ROL, ABS, 3, 6}, {0x3E, ROL, ABSX, 3, 7},
	{0x6A, ROR, ACC, 1, 2}, {0x66, ROR, ZP, 2, 5}, {0x76, ROR, ZPX, 2, 6}, {0x6E, ROR, ABS, 3, 6}, {0x7E, ROR, ABSX, 3, 7},

	{0x40, RTI, IMP, 1, 6},
	{0x60, RTS, IMP, 1, 6},

	{0xE9, SBC, IMM, 2, 2}, {0xE5, SBC, ZP, 2, 3}, {0xF5, SBC, ZPX, 2, 4}, {0xED, SBC, ABS, 3, 4},
	{0xFD, SBC, ABSX, 3, 4}, {0xF9, SBC, ABSY, 3, 4}, {0xE1, SBC, PREIDXIND, 2, 6}, {0xF1, SBC, POSTIDXIND, 2, 5},

	{0x38, SEC, IMP, 1, 2},
	{0xF8, SED, IMP, 1, 2},
	{0x78, SEI, IMP, 1, 2},

	{0x85, STA, ZP, 2, 3}, {0x95, STA, ZPX, 2, 4}, {0x8D, STA, ABS, 3, 4}, {0x9D, STA, ABSX, 3, 5},
	{0x99, STA, ABSY, 3, 5}, {0x81, STA, PREIDXIND, 2, 6}, {0x91, STA, POSTIDXIND, 2, 6},
	{0x86, STX, ZP, 2, 3}, {0x96, STX, ZPY, 2, 4}, {0x8E, STX, ABS, 3, 4},
	{0x84, STY, ZP, 2, 3}, {0x94, STY, ZPX, 2, 4}, {0x8C, STY, ABS, 3, 4},

	{0xAA, TAX, IMP, 1, 2},
	{0xA8, TAY, IMP, 1, 2},
	{0xBA, TSX, IMP, 1, 2},
	{0x8A, TXA, IMP, 1, 2},
	{0x9A, TXS, IMP, 1, 2},
	{0x98, TYA, IMP, 1, 2},
}

// Base cycle count of every opcode, undefined ones included.
var cycleTable = [256]uint8{
	/*0x00*/ 7, 6, 2, 8, 3, 3, 5, 5, 3, 2, 2, 2, 4, 4, 6, 6,
	/*0x10*/ 2, 5, 2, 8, 4, 4, 6, 6, 2, 4, 2, 7, 4, 4, 7, 7,
	/*0x20*/ 6, 6, 2, 8, 3, 3, 5, 5, 4, 2, 2, 2, 4, 4, 6, 6,
	/*0x30*/ 2, 5, 2, 8, 4, 4, 6, 6, 2, 4, 2, 7, 4, 4, 7, 7,
	/*0x40*/ 6, 6, 2, 8, 3, 3, 5, 5, 3, 2, 2, 2, 3, 4, 6, 6,
	/*0x50*/ 2, 5, 2, 8, 4, 4, 6, 6, 2, 4, 2, 7, 4, 4, 7, 7,
	/*0x60*/ 6, 6, 2, 8, 3, 3, 5, 5, 4, 2, 2, 2, 5, 4, 6, 6,
	/*0x70*/ 2, 5, 2, 8, 4, 4, 6, 6, 2, 4, 2, 7, 4, 4, 7, 7,
	/*0x80*/ 2, 6, 2, 6, 3, 3, 3, 3, 2, 2, 2, 2, 4, 4, 4, 4,
	/*0x90*/ 2, 6, 2, 6, 4, 4, 4, 4, 2, 5, 2, 5, 5, 5, 5, 5,
	/*0xA0*/ 2, 6, 2, 6, 3, 3, 3, 3, 2, 2, 2, 2, 4, 4, 4, 4,
	/*0xB0*/ 2, 5, 2, 5, 4, 4, 4, 4, 2, 4, 2, 4, 4, 4, 4, 4,
	/*0xC0*/ 2, 6, 2, 8, 3, 3, 5, 5, 2, 2, 2, 2, 4, 4, 6, 6,
	/*0xD0*/ 2, 5, 2, 8, 4, 4, 6, 6, 2, 4, 2, 7, 4, 4, 7, 7,
	/*0xE0*/ 2, 6, 3, 8, 3, 3, 5, 5, 2, 2, 2, 2, 4, 4, 6, 6,
	/*0xF0*/ 2, 5, 2, 8, 4, 4, 6, 6, 2, 4, 2, 7, 4, 4, 7, 7,
}

// operandAddr computes the effective address of the instruction at pc, which
// is encoded with the given addressing mode. crossed reports whether indexing
// (or branching, for REL) moved the address to another page.
func operandAddr(bus Bus, mode AddrMode, pc uint16, x, y uint8) (addr uint16, crossed bool) {
	switch mode {
	case IMP, ACC:
		return 0, false
	case IMM:
		return pc + 1, false
	case ZP:
		return uint16(bus.Read8(pc + 1)), false
	case ZPX:
		return uint16(bus.Read8(pc+1) + x), false
	case ZPY:
		return uint16(bus.Read8(pc+1) + y), false
	case REL:
		next := pc + 2
		addr = next + uint16(int8(bus.Read8(pc+1)))
		return addr, pagesDiffer(next, addr)
	case ABS:
		return read16(bus, pc+1), false
	case ABSX:
		base := read16(bus, pc+1)
		addr = base + uint16(x)
		return addr, pagesDiffer(base, addr)
	case ABSY:
		base := read16(bus, pc+1)
		addr = base + uint16(y)
		return addr, pagesDiffer(base, addr)
	case PREIDXIND:
		ptr := bus.Read8(pc+1) + x
		return read16zp(bus, ptr), false
	case POSTIDXIND:
		base := read16zp(bus, bus.Read8(pc+1))
		addr = base + uint16(y)
		return addr, pagesDiffer(base, addr)
	case INDABS:
		// The high byte is fetched without carrying into the pointer high byte.
		ptr := read16(bus, pc+1)
		lo := bus.Read8(ptr)
		hi := bus.Read8(ptr&0xFF00 | uint16(uint8(ptr)+1))
		return uint16(hi)<<8 | uint16(lo), false
	}
	return 0, false
}

func pagesDiffer(a, b uint16) bool {
	return a&0xFF00 != b&0xFF00
}

func read16(bus Bus, addr uint16) uint16 {
	lo := bus.Read8(addr)
	hi := bus.Read8(addr + 1)
	return uint16(hi)<<8 | uint16(lo)
}

func read16zp(bus Bus, ptr uint8) uint16 {
	lo := bus.Read8(uint16(ptr))
	hi := bus.Read8(uint16(ptr + 1))
	return uint16(hi)<<8 | uint16(lo)
}
