package hw

import (
	"fmt"
	"io"
)

// tracer writes one line per executed instruction, in a format close to the
// nestest.log reference log.
type tracer struct {
	w    io.Writer
	dots func() (scanline, dot int)
	buf  []byte
}

func hexEncode(dst []byte, v byte) {
	const hextable = "0123456789ABCDEF"
	dst[0] = hextable[v>>4]
	dst[1] = hextable[v&0x0f]
}

// write the execution trace for the instruction at pc, before it executes.
func (t *tracer) write(c *CPU, pc uint16, op Opcode) {
	buf := t.buf[:0]
	buf = append(buf, Disasm(c.Bus, pc, op).Bytes()...)
	for len(buf) < 48 {
		buf = append(buf, ' ')
	}

	regs := [...]struct {
		name byte
		val  uint8
	}{
		{'A', c.A}, {'X', c.X}, {'Y', c.Y}, {'P', uint8(c.P)}, {'S', c.SP},
	}
	var hex [2]byte
	for _, r := range regs {
		hexEncode(hex[:], r.val)
		buf = append(buf, r.name, ':', hex[0], hex[1], ' ')
	}

	if t.dots != nil {
		scanline, dot := t.dots()
		if scanline == 261 {
			scanline = -1
		}
		buf = fmt.Appendf(buf, "PPU:%3d,%3d ", scanline, dot)
	}
	buf = fmt.Appendf(buf, "CYC:%d\n", c.Cycles)

	t.buf = buf
	t.w.Write(buf)
}

type DisasmOp struct {
	Opcode string
	Oper   string
	Buf    []byte
	PC     uint16
}

// Disasm disassembles the instruction at pc, without side effects other than
// the bus reads of its operand bytes.
func Disasm(bus Bus, pc uint16, op Opcode) DisasmOp {
	d := DisasmOp{
		Opcode: op.Kind.String(),
		PC:     pc,
		Buf:    make([]byte, op.Size),
	}
	for i := range d.Buf {
		d.Buf[i] = bus.Read8(pc + uint16(i))
	}

	var oper uint16
	switch op.Size {
	case 2:
		oper = uint16(d.Buf[1])
	case 3:
		oper = uint16(d.Buf[2])<<8 | uint16(d.Buf[1])
	}

	switch op.Mode {
	case IMM:
		d.Oper = fmt.Sprintf("#$%02X", oper)
	case ACC:
		d.Oper = "A"
	case ZP:
		d.Oper = fmt.Sprintf("$%02X", oper)
	case ZPX:
		d.Oper = fmt.Sprintf("$%02X,X", oper)
	case ZPY:
		d.Oper = fmt.Sprintf("$%02X,Y", oper)
	case REL:
		d.Oper = fmt.Sprintf("$%04X", pc+2+uint16(int8(oper)))
	case ABS:
		d.Oper = formatAddr(oper)
	case ABSX:
		d.Oper = formatAddr(oper) + ",X"
	case ABSY:
		d.Oper = formatAddr(oper) + ",Y"
	case PREIDXIND:
		d.Oper = fmt.Sprintf("($%02X,X)", oper)
	case POSTIDXIND:
		d.Oper = fmt.Sprintf("($%02X),Y", oper)
	case INDABS:
		d.Oper = fmt.Sprintf("($%04X)", oper)
	}
	return d
}

// Bytes returns the text representation of a DisasmOp, padded to 48 bytes.
func (d DisasmOp) Bytes() []byte {
	const totalLen = 48
	buf := make([]byte, 0, totalLen)

	var hex [2]byte
	hexEncode(hex[:], byte(d.PC>>8))
	buf = append(buf, hex[:]...)
	hexEncode(hex[:], byte(d.PC))
	buf = append(buf, hex[0], hex[1], ' ', ' ')

	for i := range d.Buf {
		hexEncode(hex[:], d.Buf[i])
		buf = append(buf, hex[0], hex[1], ' ')
	}
	for len(buf) < 16 {
		buf = append(buf, ' ')
	}

	buf = append(buf, d.Opcode...)
	if d.Oper != "" {
		buf = append(buf, ' ')
		buf = append(buf, d.Oper...)
	}
	for len(buf) < totalLen {
		buf = append(buf, ' ')
	}
	return buf
}

func (d DisasmOp) String() string {
	return string(d.Bytes())
}

var addressLabels = map[uint16]string{
	0x2000: "PpuControl_2000",
	0x2001: "PpuMask_2001",
	0x2002: "PpuStatus_2002",
	0x2003: "OamAddr_2003",
	0x2004: "OamData_2004",
	0x2005: "PpuScroll_2005",
	0x2006: "PpuAddr_2006",
	0x2007: "PpuData_2007",
	0x4000: "Sq0Duty_4000",
	0x4001: "Sq0Sweep_4001",
	0x4002: "Sq0Timer_4002",
	0x4003: "Sq0Length_4003",
	0x4004: "Sq1Duty_4004",
	0x4005: "Sq1Sweep_4005",
	0x4006: "Sq1Timer_4006",
	0x4007: "Sq1Length_4007",
	0x4008: "TrgLinear_4008",
	0x400A: "TrgTimer_400A",
	0x400B: "TrgLength_400B",
	0x400C: "NoiseVolume_400C",
	0x400E: "NoisePeriod_400E",
	0x400F: "NoiseLength_400F",
	0x4010: "DmcFreq_4010",
	0x4011: "DmcCounter_4011",
	0x4012: "DmcAddress_4012",
	0x4013: "DmcLength_4013",
	0x4014: "SpriteDma_4014",
	0x4015: "ApuStatus_4015",
	0x4016: "Ctrl1_4016",
	0x4017: "Ctrl2_FrameCtr_4017",
}

func formatAddr(addr uint16) string {
	if label, ok := addressLabels[addr]; ok {
		return label
	}
	return fmt.Sprintf("$%04X", addr)
}
