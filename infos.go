package main

import (
	"fmt"
	"io"
	"os"

	"github.com/go-faster/jx"

	"nesemu/hw/mappers"
	"nesemu/hw/snapshot"
	"nesemu/ines"
)

func romInfosMain(args RomInfos, w io.Writer) error {
	rom, err := ines.Open(args.RomPath)
	if err != nil {
		return err
	}
	if args.JSON {
		return rom.WriteJSON(w)
	}
	if err := rom.PrintInfos(w); err != nil {
		return err
	}
	if desc, ok := mappers.All[rom.Mapper()]; ok {
		fmt.Fprintf(w, "board      %s\n", desc.Name)
	} else {
		fmt.Fprintf(w, "board      unsupported\n")
	}
	return nil
}

// stateInfoMain prints a JSON summary of a save-state file.
func stateInfoMain(args StateInfo, w io.Writer) error {
	f, err := os.Open(args.StatePath)
	if err != nil {
		return err
	}
	defer f.Close()

	var state snapshot.NES
	if err := state.Decode(f); err != nil {
		return err
	}

	var e jx.Encoder
	e.SetIdent(2)
	encodeState(&e, &state)
	if _, err := w.Write(e.Bytes()); err != nil {
		return err
	}
	_, err = io.WriteString(w, "\n")
	return err
}

func encodeState(e *jx.Encoder, state *snapshot.NES) {
	hex16 := func(v uint16) string { return fmt.Sprintf("$%04X", v) }
	hex8 := func(v uint8) string { return fmt.Sprintf("$%02X", v) }

	e.Obj(func(e *jx.Encoder) {
		e.Field("version", func(e *jx.Encoder) { e.Int(int(state.Version)) })
		e.Field("cpu", func(e *jx.Encoder) {
			cpu := state.CPU
			e.Obj(func(e *jx.Encoder) {
				e.Field("pc", func(e *jx.Encoder) { e.Str(hex16(cpu.PC)) })
				e.Field("a", func(e *jx.Encoder) { e.Str(hex8(cpu.A)) })
				e.Field("x", func(e *jx.Encoder) { e.Str(hex8(cpu.X)) })
				e.Field("y", func(e *jx.Encoder) { e.Str(hex8(cpu.Y)) })
				e.Field("sp", func(e *jx.Encoder) { e.Str(hex8(cpu.SP)) })
				e.Field("p", func(e *jx.Encoder) { e.Str(hex8(cpu.P)) })
				e.Field("cycles", func(e *jx.Encoder) { e.UInt64(cpu.Cycles) })
				e.Field("irq", func(e *jx.Encoder) { e.Str(hex8(cpu.IRQFlag)) })
				e.Field("nmi_pending", func(e *jx.Encoder) { e.Bool(cpu.NMIPending) })
				e.Field("halt_cycles", func(e *jx.Encoder) { e.UInt32(cpu.HaltCycles) })
			})
		})
		e.Field("ppu", func(e *jx.Encoder) {
			ppu := state.PPU
			e.Obj(func(e *jx.Encoder) {
				e.Field("frame", func(e *jx.Encoder) { e.UInt32(ppu.Frame) })
				e.Field("scanline", func(e *jx.Encoder) { e.Int(int(ppu.Scanline)) })
				e.Field("cycle", func(e *jx.Encoder) { e.Int(int(ppu.Cycle)) })
				e.Field("ctrl", func(e *jx.Encoder) { e.Str(hex8(ppu.PPUCTRL)) })
				e.Field("mask", func(e *jx.Encoder) { e.Str(hex8(ppu.PPUMASK)) })
				e.Field("status", func(e *jx.Encoder) { e.Str(hex8(ppu.PPUSTATUS)) })
				e.Field("vram_addr", func(e *jx.Encoder) { e.Str(hex16(ppu.VRAMAddr)) })
			})
		})
		e.Field("mapper_state", func(e *jx.Encoder) { e.Base64(state.Mapper) })
	})
}
