package ines

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/go-faster/jx"
)

// Infos summarizes a rom.
type Infos struct {
	Format     string
	Mapper     uint16
	SubMapper  uint8
	PRGSize    int
	CHRSize    int
	CHRRAM     bool
	PRGRAMSize int
	Mirroring  string
	Battery    bool
	Trainer    bool
	SHA1       string // of PRG and CHR data
}

func (rom *Rom) Infos() Infos {
	format := "iNES"
	if rom.IsNES2() {
		format = "NES 2.0"
	}
	h := sha1.New()
	h.Write(rom.PRG)
	h.Write(rom.CHR)

	return Infos{
		Format:     format,
		Mapper:     rom.Mapper(),
		SubMapper:  rom.SubMapper(),
		PRGSize:    rom.PRGSize(),
		CHRSize:    rom.CHRSize(),
		CHRRAM:     rom.HasCHRRAM(),
		PRGRAMSize: rom.PRGRAMSize(),
		Mirroring:  rom.Mirroring().String(),
		Battery:    rom.HasPersistent(),
		Trainer:    rom.HasTrainer(),
		SHA1:       hex.EncodeToString(h.Sum(nil)),
	}
}

// PrintInfos prints a human readable summary of the rom into w.
func (rom *Rom) PrintInfos(w io.Writer) error {
	infos := rom.Infos()
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "format\t%s\n", infos.Format)
	fmt.Fprintf(tw, "mapper\t%d (submapper %d)\n", infos.Mapper, infos.SubMapper)
	fmt.Fprintf(tw, "PRG ROM\t%dKB\n", infos.PRGSize/1024)
	if infos.CHRRAM {
		fmt.Fprintf(tw, "CHR RAM\t8KB\n")
	} else {
		fmt.Fprintf(tw, "CHR ROM\t%dKB\n", infos.CHRSize/1024)
	}
	fmt.Fprintf(tw, "PRG RAM\t%dKB\n", infos.PRGRAMSize/1024)
	fmt.Fprintf(tw, "mirroring\t%s\n", infos.Mirroring)
	fmt.Fprintf(tw, "battery\t%t\n", infos.Battery)
	fmt.Fprintf(tw, "trainer\t%t\n", infos.Trainer)
	fmt.Fprintf(tw, "sha1\t%s\n", infos.SHA1)
	return tw.Flush()
}

// Encode writes infos as a JSON object.
func (infos Infos) Encode(e *jx.Encoder) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("format", func(e *jx.Encoder) { e.Str(infos.Format) })
		e.Field("mapper", func(e *jx.Encoder) { e.Int(int(infos.Mapper)) })
		e.Field("submapper", func(e *jx.Encoder) { e.Int(int(infos.SubMapper)) })
		e.Field("prg_size", func(e *jx.Encoder) { e.Int(infos.PRGSize) })
		e.Field("chr_size", func(e *jx.Encoder) { e.Int(infos.CHRSize) })
		e.Field("chr_ram", func(e *jx.Encoder) { e.Bool(infos.CHRRAM) })
		e.Field("prg_ram_size", func(e *jx.Encoder) { e.Int(infos.PRGRAMSize) })
		e.Field("mirroring", func(e *jx.Encoder) { e.Str(infos.Mirroring) })
		e.Field("battery", func(e *jx.Encoder) { e.Bool(infos.Battery) })
		e.Field("trainer", func(e *jx.Encoder) { e.Bool(infos.Trainer) })
		e.Field("sha1", func(e *jx.Encoder) { e.Str(infos.SHA1) })
	})
}

// Decode reads infos from a JSON object, unknown fields are ignored.
func (infos *Infos) Decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "format":
			infos.Format, err = d.Str()
		case "mapper":
			var v int
			v, err = d.Int()
			infos.Mapper = uint16(v)
		case "submapper":
			var v int
			v, err = d.Int()
			infos.SubMapper = uint8(v)
		case "prg_size":
			infos.PRGSize, err = d.Int()
		case "chr_size":
			infos.CHRSize, err = d.Int()
		case "chr_ram":
			infos.CHRRAM, err = d.Bool()
		case "prg_ram_size":
			infos.PRGRAMSize, err = d.Int()
		case "mirroring":
			infos.Mirroring, err = d.Str()
		case "battery":
			infos.Battery, err = d.Bool()
		case "trainer":
			infos.Trainer, err = d.Bool()
		case "sha1":
			infos.SHA1, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
}

// WriteJSON writes the rom infos as JSON into w.
func (rom *Rom) WriteJSON(w io.Writer) error {
	var e jx.Encoder
	e.SetIdent(2)
	rom.Infos().Encode(&e)
	if _, err := w.Write(e.Bytes()); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}
